package arbiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/clipper/internal/storage"
)

const envelopeExt = ".json"

// Envelope carries one forwarded native message. Payload is the raw frame
// body; encoding/json stores it as base64.
type Envelope struct {
	Origin  string    `json:"origin"`
	PID     int       `json:"pid"`
	SentAt  time.Time `json:"sent_at"`
	Payload []byte    `json:"payload"`
}

// Handler receives the payload of each forwarded message.
type Handler func(ctx context.Context, env Envelope)

// Mailbox is a directory of envelope files. Any number of processes may
// publish; one primary watches and consumes.
type Mailbox struct {
	fs     *storage.FS
	logger *slog.Logger
}

var publishSeq atomic.Uint64

// OpenMailbox creates dir if needed and returns a Mailbox over it.
func OpenMailbox(dir string, logger *slog.Logger) (*Mailbox, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mailbox: create dir: %w", err)
	}
	fs, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("mailbox: %w", err)
	}
	return &Mailbox{fs: fs, logger: logger}, nil
}

// Dir returns the absolute mailbox directory.
func (m *Mailbox) Dir() string { return m.fs.Root() }

// Publish drops env into the mailbox. The file appears atomically, so a
// watcher never sees a partial envelope. Names sort in publish order.
func (m *Mailbox) Publish(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("mailbox: encode envelope: %w", err)
	}
	name := fmt.Sprintf("%020d-%d-%d%s",
		env.SentAt.UnixNano(), env.PID, publishSeq.Add(1), envelopeExt)
	if err := m.fs.Write(name, data); err != nil {
		return fmt.Errorf("mailbox: publish: %w", err)
	}
	return nil
}

// Watch consumes envelopes until ctx is cancelled: first the ones already
// waiting, then each new one as it appears. Consumed files are removed
// before h runs, so a message is handled at most once.
func (m *Mailbox) Watch(ctx context.Context, h Handler) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(m.Dir()); err != nil {
		return err
	}

	m.logger.Info("mailbox: watching", slog.String("dir", m.Dir()))
	m.drain(ctx, h)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("mailbox: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !isEnvelopeName(name) {
				continue
			}
			m.consume(ctx, name, h)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			// Events may have been dropped; pick up anything left behind.
			m.logger.Error("mailbox: watcher error", slog.String("error", watchErr.Error()))
			m.drain(ctx, h)
		}
	}
}

// drain consumes every envelope currently in the mailbox, oldest first.
func (m *Mailbox) drain(ctx context.Context, h Handler) {
	files, err := m.fs.List("", envelopeExt)
	if err != nil {
		m.logger.Warn("mailbox: list failed", slog.String("error", err.Error()))
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	for _, f := range files {
		m.consume(ctx, f.Name, h)
	}
}

func (m *Mailbox) consume(ctx context.Context, name string, h Handler) {
	data, err := m.fs.Read(name)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("mailbox: read failed", slog.String("file", name), slog.String("error", err.Error()))
		}
		return
	}
	if err := m.fs.Delete(name); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("mailbox: remove failed", slog.String("file", name), slog.String("error", err.Error()))
		}
		// Someone else consumed it.
		return
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.logger.Warn("mailbox: dropping undecodable envelope",
			slog.String("file", name),
			slog.String("error", err.Error()))
		return
	}
	m.logger.Debug("mailbox: received",
		slog.String("origin", env.Origin),
		slog.Int("pid", env.PID),
		slog.Int("bytes", len(env.Payload)))
	h(ctx, env)
}

func isEnvelopeName(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.HasSuffix(name, envelopeExt)
}
