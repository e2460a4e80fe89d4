package main

import (
	"context"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/starford/clipper/internal/arbiter"
)

func TestRootCommand_AcceptsWindowsNativeLaunch(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"origin only", []string{"clipper", "chrome-extension://abc/"}},
		{"windows parent window", []string{"clipper", "chrome-extension://abc/", "--parent-window=0"}},
		{"flag before origin", []string{"clipper", "--parent-window=0", "chrome-extension://abc/"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var origin string
			var called bool
			cmd := newCommand(func(_ context.Context, cmd *cli.Command) error {
				called = true
				origin, _ = arbiter.NativeMessagingOrigin(cmd.Args().Slice(), arbiter.DefaultOriginPrefixes)
				return nil
			})
			if err := cmd.Run(context.Background(), tt.args); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !called {
				t.Fatal("root action not invoked")
			}
			if origin != "chrome-extension://abc/" {
				t.Errorf("origin = %q", origin)
			}
		})
	}
}
