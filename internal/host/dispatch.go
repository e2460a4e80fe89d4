// Package host runs the native-messaging request cycle: read a frame,
// dispatch it, write the response.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/clipper/internal/apperr"
	"github.com/starford/clipper/internal/clipstore"
	"github.com/starford/clipper/internal/clock"
	"github.com/starford/clipper/internal/models"
)

// SavedMessage is the success message for a stored clip.
const SavedMessage = "Clipping saved successfully"

// Saver persists one clip.
type Saver interface {
	SaveClipping(ctx context.Context, content string, meta models.ClipMetadata) (clipstore.Clip, error)
}

// protocolError is a request the helper could not understand. Its message
// is sent to the browser verbatim.
type protocolError struct{ msg string }

func (e *protocolError) Error() string { return e.msg }
func (e *protocolError) Unwrap() error { return apperr.ErrProtocol }

func protoErrorf(format string, args ...any) error {
	return &protocolError{msg: fmt.Sprintf(format, args...)}
}

// saveError is a Saver failure. Dispatch reports its cause to the browser.
type saveError struct{ err error }

func (e *saveError) Error() string { return "host: save clipping: " + e.err.Error() }
func (e *saveError) Unwrap() error { return e.err }

// Dispatcher turns raw message payloads into responses.
type Dispatcher struct {
	saver  Saver
	clock  clock.Clock
	logger *slog.Logger
}

// NewDispatcher returns a Dispatcher that stores clips with saver.
func NewDispatcher(saver Saver, clk clock.Clock, logger *slog.Logger) *Dispatcher {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{saver: saver, clock: clk, logger: logger}
}

// Decode parses payload into a validated clip request. Errors wrap
// apperr.ErrProtocol.
func Decode(payload []byte) (*models.ClipRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, protoErrorf("Failed to parse message: %v", err)
	}

	var typ string
	if raw, ok := fields["type"]; !ok || json.Unmarshal(raw, &typ) != nil || typ == "" {
		return nil, protoErrorf("Missing message type")
	}
	if typ != models.MessageTypeClip {
		return nil, protoErrorf("Unknown message type: %s", typ)
	}

	var req models.ClipRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, protoErrorf("Invalid clip message format: %v", err)
	}
	if err := validateClip(&req); err != nil {
		return nil, protoErrorf("Invalid clip message format: %v", err)
	}
	return &req, nil
}

func validateClip(req *models.ClipRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Content, validation.NotNil),
		validation.Field(&req.Metadata, validation.NotNil),
	)
}

// Handle decodes and stores one message. Errors wrap apperr.ErrProtocol
// for bad input; save failures wrap the Saver's error.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) (clipstore.Clip, error) {
	req, err := Decode(payload)
	if err != nil {
		return clipstore.Clip{}, err
	}
	meta := req.Metadata.Normalize(d.clock.Now())
	clip, err := d.saver.SaveClipping(ctx, *req.Content, meta)
	if err != nil {
		return clipstore.Clip{}, &saveError{err: err}
	}
	return clip, nil
}

// Dispatch handles one message. It always returns a response for the
// browser.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte) models.Response {
	clip, err := d.Handle(ctx, payload)
	if err != nil {
		var se *saveError
		if errors.As(err, &se) {
			d.logger.Error("host: save failed", slog.String("error", err.Error()))
			return models.Fail("Failed to save clipping: " + se.err.Error())
		}
		d.logger.Warn("host: rejected message", slog.String("error", err.Error()))
		return models.Fail(err.Error())
	}

	d.logger.Debug("host: clip stored", slog.String("name", clip.Name))
	return models.OK(SavedMessage)
}
