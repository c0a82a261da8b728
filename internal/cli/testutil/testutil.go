// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Terr/phoenix-wright-2-onifier/internal/cli/config"
	"github.com/Terr/phoenix-wright-2-onifier/internal/cli/output"
	"github.com/Terr/phoenix-wright-2-onifier/internal/testutil"
)

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Result holds what a command printed.
type Result struct {
	Stdout string
	Stderr string
	Err    error
}

// ExecuteWithConfig runs cmd with args the way the root command would after
// loading cfg: the config and a test logger are stored in the context.
func ExecuteWithConfig(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) Result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	ctx := context.WithValue(context.Background(), config.ConfigKey(), cfg)
	ctx = context.WithValue(ctx, config.LoggerKey(), testutil.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)

	return Result{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

// DefaultConfig returns the configuration LoadConfig produces with no file,
// environment or flags.
func DefaultConfig() *config.Config {
	return &config.Config{
		SdatPath:  config.DefaultSdatPath,
		LogFormat: config.DefaultLogFormat,
		Output:    config.DefaultOutput,
		Tracks:    config.DefaultTracks(),
	}
}
