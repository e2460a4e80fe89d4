package host

import (
	"context"
	"log/slog"

	"github.com/starford/clipper/internal/arbiter"
)

// HandleForwarded dispatches a message relayed by a forwarder. The
// forwarder has already acknowledged it, so the response is only logged.
func (d *Dispatcher) HandleForwarded(ctx context.Context, env arbiter.Envelope) {
	resp := d.Dispatch(ctx, env.Payload)
	attrs := []any{
		slog.String("origin", env.Origin),
		slog.Int("pid", env.PID),
		slog.Bool("success", resp.Success),
	}
	if !resp.Success {
		d.logger.Warn("host: forwarded message failed", append(attrs, slog.String("error", resp.Error))...)
		return
	}
	d.logger.Info("host: forwarded message handled", attrs...)
}
