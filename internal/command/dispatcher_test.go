//go:build !windows

package command

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/binbin1213/GAGA-Client/internal/config"
)

const shellTool = "shell"

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	tools := config.Tools{Tools: map[string]string{shellTool: "sh"}}
	return NewDispatcher(NewResolver(tools), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExecute(t *testing.T) {
	d := newTestDispatcher(t)

	out, err := d.Execute(context.Background(), shellTool, []string{"-c", "echo hello; echo oops >&2"}, "")
	require.NoError(t, err)
	require.Equal(t, "hello\n", out)
}

func TestExecute_WorkingDir(t *testing.T) {
	d := newTestDispatcher(t)
	dir := t.TempDir()

	out, err := d.Execute(context.Background(), shellTool, []string{"-c", "pwd"}, dir)
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestExecute_NonZeroExit(t *testing.T) {
	d := newTestDispatcher(t)

	_, err := d.Execute(context.Background(), shellTool, []string{"-c", "echo broken pipe >&2; exit 3"}, "")
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, shellTool, execErr.Tool)
	require.Equal(t, 3, execErr.ExitCode)
	require.Equal(t, "broken pipe", execErr.Output)
	require.Contains(t, err.Error(), "exit code 3")
}

func TestExecute_UnknownTool(t *testing.T) {
	d := newTestDispatcher(t)

	_, err := d.Execute(context.Background(), "muxer", nil, "")
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.ErrorIs(t, err, ErrUnknownTool)
	require.Equal(t, -1, execErr.ExitCode)
}

func TestStream_Lines(t *testing.T) {
	d := newTestDispatcher(t)

	var lines []Line
	script := `printf 'one\n'; printf '10%%\r20%%\r30%%\n'; printf 'err line\n' >&2`
	err := d.Stream(context.Background(), shellTool, []string{"-c", script}, "", func(l Line) {
		lines = append(lines, l)
	})
	require.NoError(t, err)

	var stdout []string
	var stderr []string
	for _, l := range lines {
		if l.Source == Stdout {
			stdout = append(stdout, l.Text)
		} else {
			stderr = append(stderr, l.Text)
		}
	}
	require.Equal(t, []string{"one", "10%", "20%", "30%"}, stdout)
	require.Equal(t, []string{"err line"}, stderr)
}

func TestStream_Failure(t *testing.T) {
	d := newTestDispatcher(t)

	err := d.Stream(context.Background(), shellTool, []string{"-c", "echo first; echo fatal >&2; exit 2"}, "", nil)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, 2, execErr.ExitCode)
	require.Contains(t, execErr.Output, "fatal")
}

func TestStream_CancelKillsProcessGroup(t *testing.T) {
	d := newTestDispatcher(t)
	pidFile := filepath.Join(t.TempDir(), "child.pid")

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		script := "sleep 30 & echo $! > " + pidFile + "; echo ready; wait"
		done <- d.Stream(ctx, shellTool, []string{"-c", script}, "", func(l Line) {
			if l.Text == "ready" {
				close(started)
			}
		})
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("tool did not start")
	}
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("stream did not return after cancel")
	}

	pid := readPID(t, pidFile)
	require.Eventually(t, func() bool {
		return !processAlive(pid)
	}, 5*time.Second, 50*time.Millisecond, "child process survived cancellation")
}

func TestResolver(t *testing.T) {
	binDir := t.TempDir()
	bundled := filepath.Join(binDir, "fake-dl")
	require.NoError(t, os.WriteFile(bundled, []byte("#!/bin/sh\n"), 0755))
	notExec := filepath.Join(binDir, "plain")
	require.NoError(t, os.WriteFile(notExec, []byte("x"), 0644))

	r := NewResolver(config.Tools{
		BinDir: binDir,
		Tools: map[string]string{
			"downloader": "fake-dl",
			"shell":      "sh",
			"explicit":   bundled,
			"broken":     notExec,
			"missing":    "definitely-not-a-real-binary-xyz",
		},
	})

	path, err := r.Resolve("downloader")
	require.NoError(t, err)
	require.Equal(t, bundled, path)

	path, err = r.Resolve("explicit")
	require.NoError(t, err)
	require.Equal(t, bundled, path)

	require.True(t, r.Available("shell"))
	require.False(t, r.Available("broken"))
	require.False(t, r.Available("missing"))

	_, err = r.Resolve("nope")
	require.True(t, errors.Is(err, ErrUnknownTool))
}

func TestScanLinesOrCR(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("a\r\nb\rc\n\nd"))
	scanner.Split(scanLinesOrCR)

	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, []string{"a", "b", "c", "", "d"}, got)
}
