package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/starford/clipper/internal/framing"
	"github.com/starford/clipper/internal/models"
)

// Loop reads frames from in and writes one response frame per request to
// out.
type Loop struct {
	in         io.Reader
	out        io.Writer
	dispatcher *Dispatcher
	logger     *slog.Logger

	writeMu sync.Mutex
}

// NewLoop returns a Loop over the given streams.
func NewLoop(in io.Reader, out io.Writer, d *Dispatcher, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{in: in, out: out, dispatcher: d, logger: logger}
}

// Run serves frames until the input stream closes, which returns nil.
// Frames with an invalid length are skipped. Processing errors are
// answered and never end the loop. ctx is checked between frames only,
// since a blocked read cannot be interrupted.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("host: reading messages")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		payload, err := framing.ReadFrame(l.in)
		var sizeErr *framing.SizeError
		switch {
		case err == nil:
		case errors.Is(err, framing.ErrDisconnected):
			l.logger.Info("host: browser disconnected, staying resident")
			return nil
		case errors.As(err, &sizeErr):
			l.logger.Warn("host: skipping frame", slog.Int("length", int(sizeErr.Length)))
			continue
		default:
			return fmt.Errorf("host: read: %w", err)
		}

		resp := l.dispatcher.Dispatch(ctx, payload)
		if err := l.Respond(resp); err != nil {
			l.logger.Error("host: write response failed", slog.String("error", err.Error()))
		}
	}
}

// Respond writes resp as one frame. Concurrent calls are serialized. A
// response too large for the wire is replaced by a short error.
func (l *Loop) Respond(resp models.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("host: marshal response: %w", err)
	}
	if len(payload) > framing.MaxPayload {
		l.logger.Warn("host: response too large", slog.Int("bytes", len(payload)))
		payload, _ = json.Marshal(models.Fail("response too large"))
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return framing.WriteFrame(l.out, payload)
}
