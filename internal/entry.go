// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/clipper/internal/api"
	"github.com/starford/clipper/internal/apperr"
	"github.com/starford/clipper/internal/arbiter"
	"github.com/starford/clipper/internal/clipservice"
	"github.com/starford/clipper/internal/clipstore"
	"github.com/starford/clipper/internal/clock"
	"github.com/starford/clipper/internal/framing"
	"github.com/starford/clipper/internal/host"
	"github.com/starford/clipper/internal/index"
	"github.com/starford/clipper/internal/mcpserver"
	"github.com/starford/clipper/internal/sse"
)

// Version is reported by the MCP server.
const Version = "0.1.0"

func newApplication(opts []Option) (*application, error) {
	app := &application{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		clock:  clock.Real(),
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the JSON logger. stdout is reserved for protocol
// frames, so logs go to stderr or to the configured file.
func newLogger(cfg ApplicationConfig, stderr io.Writer) (*slog.Logger, func(), error) {
	out, closeFn := stderr, func() {}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closeFn = f, func() { _ = f.Close() }
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return logger, closeFn, nil
}

// core is the state owned by the primary instance.
type core struct {
	db         *index.DB
	store      *clipstore.Store
	dispatcher *host.Dispatcher
	svc        *clipservice.Service
}

func openCore(cfg *Config, clk clock.Clock, logger *slog.Logger) (*core, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	loc, err := clipstore.DefaultLocator(cfg.Storage.FolderName, cfg.Storage.DocumentsDir)
	if err != nil {
		db.Close()
		return nil, err
	}
	store, err := clipstore.Open(clipstore.Options{
		Settings:    db,
		Locator:     loc,
		Root:        cfg.Storage.BaseFolder,
		Clock:       clk,
		Logger:      logger,
		RecentLimit: cfg.Storage.RecentLimit,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init clip store: %w", err)
	}

	d := host.NewDispatcher(store, clk, logger)
	svc := clipservice.NewService(store, db, d, clk, logger)

	svc.Sync()

	return &core{db: db, store: store, dispatcher: d, svc: svc}, nil
}

// Run starts the helper. A launch that finds another instance running
// forwards its single message (native-messaging launch) or fails with
// apperr.ErrAlreadyRunning (interactive launch).
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closeLog, err := newLogger(cfg.App, app.stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	origin, native := arbiter.NativeMessagingOrigin(app.args, cfg.Instance.OriginPrefixes)

	logger.Info("Configuration loaded",
		slog.Bool("native_messaging", native),
		slog.String("state_dir", cfg.Instance.StateDir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	arb := arbiter.New(cfg.Instance.StateDir, logger)
	role, err := arb.Acquire()
	if err != nil {
		return err
	}
	if role == arbiter.RoleForwarder {
		if !native {
			return apperr.ErrAlreadyRunning
		}
		return forward(app, arb, origin, logger)
	}
	defer arb.Release()

	c, err := openCore(cfg, app.clock, logger)
	if err != nil {
		return err
	}
	defer c.db.Close()

	mailbox, err := arbiter.OpenMailbox(arb.MailboxDir(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var broker *sse.Broker
	var httpServer *http.Server
	if cfg.App.HTTP.Enabled {
		broker = sse.NewBroker(sse.Options{RecentThrottle: 2 * time.Second, Replay: 32})
		defer broker.Close()
		c.store.Subscribe(broker.OnStoreEvent)
		httpServer = &http.Server{
			Addr:    cfg.App.HTTP.Address(),
			Handler: newHTTPHandler(cfg, c.svc, broker),
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Frames forwarded by later launches.
	g.Go(func() error {
		return mailbox.Watch(gCtx, c.dispatcher.HandleForwarded)
	})

	// A blocked stdin read cannot be cancelled, so the loop runs outside
	// the group. When the browser disconnects it returns and the process
	// keeps serving forwarded frames.
	if native {
		loop := host.NewLoop(app.stdin, app.stdout, c.dispatcher, logger)
		go func() {
			if err := loop.Run(gCtx); err != nil {
				logger.Error("host: loop stopped", slog.String("error", err.Error()))
			}
		}()
	}

	if httpServer != nil {
		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down...")
		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped successfully")
	return nil
}

func forward(app *application, arb *arbiter.Arbiter, origin string, logger *slog.Logger) error {
	mailbox, err := arbiter.OpenMailbox(arb.MailboxDir(), logger)
	if err != nil {
		return err
	}
	fw := &arbiter.Forwarder{Mailbox: mailbox, Clock: app.clock, Logger: logger}
	if err := fw.Forward(app.stdin, app.stdout, origin); err != nil {
		if errors.Is(err, framing.ErrDisconnected) {
			logger.Info("forward: browser disconnected before sending a message")
			return nil
		}
		return err
	}
	return nil
}

func newHTTPHandler(cfg *Config, svc *clipservice.Service, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Health check endpoint (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	return r
}

// RunMCP serves the MCP tools over stdio. It needs the instance lock so
// that only one process writes clips.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closeLog, err := newLogger(cfg.App, app.stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	arb := arbiter.New(cfg.Instance.StateDir, logger)
	role, err := arb.Acquire()
	if err != nil {
		return err
	}
	if role != arbiter.RolePrimary {
		return apperr.ErrAlreadyRunning
	}
	defer arb.Release()

	c, err := openCore(cfg, app.clock, logger)
	if err != nil {
		return err
	}
	defer c.db.Close()

	logger.Info("mcp: serving on stdio")
	return mcpserver.New(c.svc, Version).ServeStdio()
}

// ListRecent writes the recent clips under the resolved storage root to
// w, one per line. It reads only and does not need the instance lock.
func ListRecent(_ context.Context, w io.Writer, limit int, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	root := cfg.Storage.BaseFolder
	if root == "" {
		loc, err := clipstore.DefaultLocator(cfg.Storage.FolderName, cfg.Storage.DocumentsDir)
		if err != nil {
			return err
		}
		if root, err = clipstore.ResolveRoot(db, loc); err != nil {
			return err
		}
	}

	if limit <= 0 {
		limit = cfg.Storage.RecentLimit
	}
	clips, err := clipstore.ListRecent(root, limit)
	if err != nil {
		return err
	}
	for _, c := range clips {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", c.CreatedAt.Format(time.RFC3339), c.Path); err != nil {
			return err
		}
	}
	return nil
}
