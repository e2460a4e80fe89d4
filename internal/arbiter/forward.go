package arbiter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/starford/clipper/internal/clock"
	"github.com/starford/clipper/internal/framing"
	"github.com/starford/clipper/internal/models"
)

// ForwardedMessage is the acknowledgment a forwarder sends to the browser.
const ForwardedMessage = "Forwarded to main instance"

// Forwarder relays a single message from a secondary launch to the primary.
type Forwarder struct {
	Mailbox *Mailbox
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Forward reads one valid frame from in, publishes it and acknowledges on
// out. Invalid-size frames are skipped. The acknowledgment only means the
// message was handed off; there is no reply from the primary.
//
// If in closes before a frame arrives, nothing is written and
// framing.ErrDisconnected is returned.
func (f *Forwarder) Forward(in io.Reader, out io.Writer, origin string) error {
	payload, err := readOne(in, f.logger())
	if err != nil {
		return err
	}

	env := Envelope{
		Origin:  origin,
		PID:     os.Getpid(),
		SentAt:  f.now(),
		Payload: payload,
	}
	if err := f.Mailbox.Publish(env); err != nil {
		f.logger().Error("forward: publish failed", slog.String("error", err.Error()))
		if werr := framing.WriteJSON(out, models.Fail("failed to forward message to main instance")); werr != nil {
			f.logger().Warn("forward: write response failed", slog.String("error", werr.Error()))
		}
		return err
	}

	f.logger().Info("forward: message handed to primary",
		slog.String("origin", origin),
		slog.Int("bytes", len(payload)))
	if err := framing.WriteJSON(out, models.OK(ForwardedMessage)); err != nil {
		return fmt.Errorf("forward: write response: %w", err)
	}
	return nil
}

func readOne(in io.Reader, logger *slog.Logger) ([]byte, error) {
	for {
		payload, err := framing.ReadFrame(in)
		var sizeErr *framing.SizeError
		switch {
		case err == nil:
			return payload, nil
		case errors.As(err, &sizeErr):
			logger.Warn("forward: skipping frame", slog.Int("length", int(sizeErr.Length)))
		default:
			return nil, err
		}
	}
}

func (f *Forwarder) now() time.Time {
	if f.Clock == nil {
		return time.Now()
	}
	return f.Clock.Now()
}

func (f *Forwarder) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}
