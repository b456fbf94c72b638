package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWaitDelay bounds how long Wait blocks on output pipes after a kill
	DefaultWaitDelay = 5 * time.Second

	maxOutputTail = 2048
	tailLines     = 20
	maxLineSize   = 1024 * 1024
)

// Source tells which output stream a line came from
type Source string

const (
	Stdout Source = "stdout"
	Stderr Source = "stderr"
)

// Line is a single line of tool output
type Line struct {
	Source Source
	Text   string
}

// LineHandler receives streamed output. Calls are serialized.
type LineHandler func(Line)

// Dispatcher runs tools
type Dispatcher struct {
	resolver  *Resolver
	log       *slog.Logger
	waitDelay time.Duration
}

func NewDispatcher(resolver *Resolver, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		resolver:  resolver,
		log:       log.With(slog.String("component", "command")),
		waitDelay: DefaultWaitDelay,
	}
}

// Resolver returns the tool resolver used by the dispatcher
func (d *Dispatcher) Resolver() *Resolver {
	return d.resolver
}

// Execute runs tool to completion and returns its standard output
func (d *Dispatcher) Execute(ctx context.Context, tool string, args []string, dir string) (string, error) {
	cmd, err := d.command(ctx, tool, args, dir)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	d.log.Debug("tool finished", slog.String("tool", tool), slog.Duration("elapsed", time.Since(start)))
	if err != nil {
		return stdout.String(), d.executionError(ctx, tool, err, tail(stderr.String()))
	}
	return stdout.String(), nil
}

// Stream runs tool to completion, handing every output line to onLine as it
// is produced. Carriage returns split lines too, so progress redraws arrive
// one by one.
func (d *Dispatcher) Stream(ctx context.Context, tool string, args []string, dir string, onLine LineHandler) error {
	cmd, err := d.command(ctx, tool, args, dir)
	if err != nil {
		return err
	}

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		outW.Close()
		errW.Close()
		return &ExecutionError{Tool: tool, ExitCode: -1, Err: err}
	}
	d.log.Info("tool started", slog.String("tool", tool), slog.Int("pid", cmd.Process.Pid))

	var (
		mu   sync.Mutex
		last []string
	)
	emit := func(src Source, text string) {
		mu.Lock()
		defer mu.Unlock()
		last = append(last, text)
		if len(last) > tailLines {
			last = last[1:]
		}
		if onLine != nil {
			onLine(Line{Source: src, Text: text})
		}
	}

	var g errgroup.Group
	g.Go(func() error { return scan(outR, Stdout, emit) })
	g.Go(func() error { return scan(errR, Stderr, emit) })

	// Wait returns once the process exited and its output was copied,
	// or WaitDelay after a kill when descendants still hold the pipes.
	err = cmd.Wait()
	outW.Close()
	errW.Close()
	scanErr := g.Wait()

	if err == nil && scanErr != nil {
		d.log.Warn("reading tool output failed", slog.String("tool", tool), slog.String("error", scanErr.Error()))
	}
	if err != nil {
		mu.Lock()
		output := tail(strings.Join(last, "\n"))
		mu.Unlock()
		return d.executionError(ctx, tool, err, output)
	}
	return nil
}

func (d *Dispatcher) command(ctx context.Context, tool string, args []string, dir string) (*exec.Cmd, error) {
	path, err := d.resolver.Resolve(tool)
	if err != nil {
		return nil, &ExecutionError{Tool: tool, ExitCode: -1, Err: err}
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	cmd.WaitDelay = d.waitDelay
	configureProcess(cmd)

	d.log.Debug("running tool", slog.String("tool", tool), slog.String("path", path), slog.Int("args", len(args)))
	return cmd, nil
}

func (d *Dispatcher) executionError(ctx context.Context, tool string, err error, output string) error {
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	d.log.Warn("tool failed", slog.String("tool", tool), slog.Int("exit_code", exitCode), slog.String("error", err.Error()))
	return &ExecutionError{Tool: tool, ExitCode: exitCode, Output: output, Err: err}
}

func scan(r io.Reader, src Source, emit func(Source, string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	scanner.Split(scanLinesOrCR)
	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), " \t")
		if text == "" {
			continue
		}
		emit(src, text)
	}
	if err := scanner.Err(); err != nil {
		// keep draining so the tool never blocks on a full pipe
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}

// scanLinesOrCR is bufio.ScanLines that also breaks on a lone '\r'
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		if data[i] == '\r' && i+1 == len(data) && !atEOF {
			// might be the first half of "\r\n"
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxOutputTail {
		return s
	}
	return "..." + s[len(s)-maxOutputTail:]
}
