package resolve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It is the child process launched by
// the ExecRunner tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "no helper mode")
		os.Exit(2)
	}

	switch args[0] {
	case "execute":
		cmd, err := Decode(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		status, err := Execute(context.Background(), cmd)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(status.Code())
	case "exit":
		code, _ := strconv.Atoi(args[1])
		fmt.Fprintln(os.Stderr, "helper exiting")
		os.Exit(code)
	case "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(2)
}

func helperRunner(mode ...string) *ExecRunner {
	return &ExecRunner{
		Executable: os.Args[0],
		Args:       append([]string{"-test.run=^TestHelperProcess$", "--"}, mode...),
		Env:        []string{"GO_WANT_HELPER_PROCESS=1"},
		Timeout:    30 * time.Second,
	}
}

func TestExecRunnerExitCodes(t *testing.T) {
	ctx := context.Background()
	cmd := commandFor(t.TempDir())

	testCases := []struct {
		code     string
		expected ExitStatus
	}{
		{"0", StatusOK},
		{"7", StatusNotFound},
		{"13", StatusNotImplemented},
	}
	for _, tc := range testCases {
		t.Run("exit "+tc.code, func(t *testing.T) {
			status, err := helperRunner("exit", tc.code).Run(ctx, cmd)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, status)
		})
	}

	t.Run("unexpected code", func(t *testing.T) {
		_, err := helperRunner("exit", "3").Run(ctx, cmd)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnexpectedExit)
		var exitErr *UnexpectedExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, 3, exitErr.Code)
		assert.Contains(t, exitErr.Stderr, "helper exiting")
	})
}

func TestExecRunnerTimeout(t *testing.T) {
	r := helperRunner("sleep")
	r.Timeout = 200 * time.Millisecond
	r.WaitDelay = 200 * time.Millisecond

	start := time.Now()
	_, err := r.Run(context.Background(), commandFor(t.TempDir()))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 30*time.Second, "the child is killed, not awaited")
}

func TestExecRunnerExecute(t *testing.T) {
	base := writeCarrier(t)
	status, err := helperRunner("execute").Run(context.Background(), commandFor(base))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.FileExists(t, filepath.Join(base, "_objects", "Body.hcl"))
}

func TestExecRunnerLaunchErrors(t *testing.T) {
	_, err := (&ExecRunner{}).Run(context.Background(), commandFor(t.TempDir()))
	assert.ErrorContains(t, err, "no executable")

	r := &ExecRunner{Executable: filepath.Join(t.TempDir(), "does-not-exist")}
	_, err = r.Run(context.Background(), commandFor(t.TempDir()))
	assert.ErrorContains(t, err, "failed to run secondary resolution")
}
