// Package arbiter decides which helper process owns the clip store.
//
// Browsers start a fresh helper for every native-messaging session. The
// first launch takes an exclusive lock in the state directory and becomes
// the primary; later launches become forwarders that hand their single
// message to the primary through a watched mailbox directory and exit.
package arbiter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Role is the part this process plays.
type Role int

const (
	RolePrimary Role = iota
	RoleForwarder
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleForwarder:
		return "forwarder"
	}
	return "unknown"
}

const (
	lockFileName = "clipper.lock"
	mailboxDir   = "mailbox"
)

// DefaultOriginPrefixes are the argument prefixes that mark a
// native-messaging launch.
var DefaultOriginPrefixes = []string{"chrome-extension://"}

// NativeMessagingOrigin returns the first argument that starts with one of
// prefixes. ok is false for an interactive launch.
func NativeMessagingOrigin(args, prefixes []string) (origin string, ok bool) {
	for _, a := range args {
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(a, p) {
				return a, true
			}
		}
	}
	return "", false
}

// Arbiter owns the instance lock for one state directory.
type Arbiter struct {
	stateDir string
	logger   *slog.Logger

	mu   sync.Mutex
	lock *fileLock
}

// New returns an Arbiter for stateDir. Nothing is touched until Acquire.
func New(stateDir string, logger *slog.Logger) *Arbiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Arbiter{stateDir: stateDir, logger: logger}
}

// LockPath returns the path of the instance lock file.
func (a *Arbiter) LockPath() string { return filepath.Join(a.stateDir, lockFileName) }

// MailboxDir returns the directory forwarded messages are dropped into.
func (a *Arbiter) MailboxDir() string { return filepath.Join(a.stateDir, mailboxDir) }

// Acquire tries to become the primary. Two near-simultaneous launches
// cannot both succeed. A process that is already primary stays primary.
func (a *Arbiter) Acquire() (Role, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lock != nil {
		return RolePrimary, nil
	}
	if err := os.MkdirAll(a.stateDir, 0o755); err != nil {
		return RolePrimary, fmt.Errorf("arbiter: create state dir: %w", err)
	}

	l, err := tryLock(a.LockPath())
	if err != nil {
		return RolePrimary, err
	}
	if l == nil {
		a.logger.Info("arbiter: instance already running",
			slog.Int("holder_pid", holderPID(a.LockPath())))
		return RoleForwarder, nil
	}
	a.lock = l
	a.logger.Info("arbiter: acquired instance lock",
		slog.String("path", a.LockPath()),
		slog.Int("pid", os.Getpid()))
	return RolePrimary, nil
}

// Release gives up the instance lock if held.
func (a *Arbiter) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lock == nil {
		return nil
	}
	err := a.lock.release()
	a.lock = nil
	if err != nil {
		return fmt.Errorf("arbiter: release lock: %w", err)
	}
	return nil
}
