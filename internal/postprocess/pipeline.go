package postprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/binbin1213/GAGA-Client/internal/command"
	"github.com/binbin1213/GAGA-Client/internal/config"
	"github.com/binbin1213/GAGA-Client/internal/events"
	"github.com/binbin1213/GAGA-Client/internal/metrics"
	"github.com/binbin1213/GAGA-Client/internal/model"
	"github.com/binbin1213/GAGA-Client/internal/platform"
)

const burnSubtitleName = "burn-subtitle"

// Runner runs the muxer and the burner
type Runner interface {
	Execute(ctx context.Context, tool string, args []string, dir string) (string, error)
	Stream(ctx context.Context, tool string, args []string, dir string, onLine command.LineHandler) error
}

// Publisher receives burn progress and status events
type Publisher interface {
	Publish(events.Event)
}

// Options tune the pipeline
type Options struct {
	SubtitleLanguages []string
	BurnSubtitles     bool
	SubtitleStyle     string
	KeepIntermediates bool // leave the work dir in place when a step fails
	PollInterval      time.Duration
	PollAttempts      int
}

// DefaultOptions returns the options used when settings are unavailable
func DefaultOptions() Options {
	return Options{
		SubtitleLanguages: DefaultSubtitleLanguages,
		BurnSubtitles:     true,
		SubtitleStyle:     config.DefaultSubtitleStyle,
		PollInterval:      DefaultPollInterval,
		PollAttempts:      DefaultPollAttempts,
	}
}

// Job describes one post-processing run
type Job struct {
	WorkDir    string // private directory holding the downloader output
	Stem       string // save-name given to the downloader
	OutputPath string // final video path
	TaskID     string // stamped on published events

	// OnStep is called before the mux and burn steps start
	OnStep func(Step)
}

// Plan tells which steps apply to a set of artifacts
type Plan struct {
	Mux  bool
	Burn bool
}

// IsCopy reports whether the single video is moved as is
func (p Plan) IsCopy() bool {
	return !p.Mux && !p.Burn
}

// PlanFor decides the steps for a, burning only when burn is enabled
func PlanFor(a Artifacts, burn bool) Plan {
	return Plan{
		Mux:  a.Audio != "",
		Burn: burn && a.Subtitle != "",
	}
}

// Result is the outcome of a successful run
type Result struct {
	OutputPath string
	Files      []string // every file left in the output directory
	Plan       Plan
}

// Pipeline runs the post-processing steps
type Pipeline struct {
	fs     afero.Fs
	runner Runner
	bus    Publisher
	log    *slog.Logger
	now    func() time.Time

	mu   sync.RWMutex
	opts Options
}

// NewPipeline creates a pipeline working on the OS filesystem
func NewPipeline(runner Runner, bus Publisher, opts Options, log *slog.Logger) *Pipeline {
	return NewPipelineWithFS(afero.NewOsFs(), runner, bus, opts, log)
}

// NewPipelineWithFS creates a pipeline with a custom filesystem
func NewPipelineWithFS(fs afero.Fs, runner Runner, bus Publisher, opts Options, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = DefaultPollAttempts
	}
	return &Pipeline{
		fs:     fs,
		runner: runner,
		bus:    bus,
		opts:   opts,
		log:    log.With(slog.String("component", "postprocess")),
		now:    time.Now,
	}
}

// SetOptions replaces the options for the next runs
func (p *Pipeline) SetOptions(opts Options) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = DefaultPollAttempts
	}
	p.mu.Lock()
	p.opts = opts
	p.mu.Unlock()
}

func (p *Pipeline) options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

// Process turns the downloader output in job.WorkDir into job.OutputPath.
// On failure the work dir is removed unless KeepIntermediates is set.
func (p *Pipeline) Process(ctx context.Context, job Job) (Result, error) {
	log := p.log.With(slog.String("work_dir", job.WorkDir))
	opts := p.options()

	res, err := p.process(ctx, job, opts, log)
	if err != nil {
		if !opts.KeepIntermediates {
			p.Cleanup(job.WorkDir)
		}
		return Result{}, err
	}
	p.Cleanup(job.WorkDir)
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, job Job, opts Options, log *slog.Logger) (Result, error) {
	art, err := Discover(p.fs, job.WorkDir, job.Stem, opts.SubtitleLanguages)
	if err != nil {
		return Result{}, p.fail(StepDiscover, err)
	}
	plan := PlanFor(art, opts.BurnSubtitles)
	log.Info("artifacts discovered", slog.String("artifacts", art.String()),
		slog.Bool("mux", plan.Mux), slog.Bool("burn", plan.Burn))

	if err := WaitStable(ctx, p.fs, art.Paths(), opts.PollInterval, opts.PollAttempts); err != nil {
		return Result{}, p.fail(StepStabilize, err)
	}

	current := art.Video
	if plan.Mux {
		job.notify(StepMux)
		merged, err := p.mux(ctx, job, art)
		if err != nil {
			return Result{}, p.fail(StepMux, err)
		}
		current = merged
	}

	if plan.Burn {
		job.notify(StepBurn)
		burned, err := p.burn(ctx, job, current, art.Subtitle, opts.SubtitleStyle)
		if err != nil {
			return Result{}, p.fail(StepBurn, err)
		}
		current = burned
	}

	if err := p.move(current, job.OutputPath); err != nil {
		return Result{}, p.fail(StepMove, err)
	}
	metrics.PostProcessStepsTotal.WithLabelValues(string(StepMove), "ok").Inc()

	res := Result{OutputPath: job.OutputPath, Files: []string{job.OutputPath}, Plan: plan}

	// subtitles that were not burned are kept next to the video
	if art.Subtitle != "" && !plan.Burn {
		side := sidecarPath(job.OutputPath, art)
		if err := p.move(art.Subtitle, side); err != nil {
			log.Warn("keeping subtitle failed", slog.String("error", err.Error()))
		} else {
			res.Files = append(res.Files, side)
		}
	}

	log.Info("post-processing finished", slog.String("output", job.OutputPath))
	return res, nil
}

func (p *Pipeline) mux(ctx context.Context, job Job, art Artifacts) (string, error) {
	start := p.now()
	merged := filepath.Join(job.WorkDir, job.Stem+MergedSuffix+ExtMP4)

	if _, err := p.runner.Execute(ctx, config.ToolMuxer, BuildMuxArgs(art.Video, art.Audio, merged), job.WorkDir); err != nil {
		return "", err
	}
	if _, err := p.fs.Stat(merged); err != nil {
		return "", fmt.Errorf("muxer produced no output: %w", err)
	}

	for _, src := range []string{art.Video, art.Audio} {
		if err := p.fs.Remove(src); err != nil {
			p.log.Warn("removing mux source failed", slog.String("path", src), slog.String("error", err.Error()))
		}
	}
	metrics.StageDuration.WithLabelValues(string(StepMux)).Observe(p.now().Sub(start).Seconds())
	metrics.PostProcessStepsTotal.WithLabelValues(string(StepMux), "ok").Inc()
	return merged, nil
}

func (p *Pipeline) burn(ctx context.Context, job Job, input, subtitle, style string) (string, error) {
	start := p.now()
	burned := filepath.Join(job.WorkDir, job.Stem+BurnedSuffix+ExtMP4)

	// the subtitles filter gets a fixed name, titles may hold filter syntax
	name := burnSubtitleName
	if strings.EqualFold(filepath.Ext(subtitle), ExtSRT) {
		name += ExtSRT
	}
	staged := filepath.Join(job.WorkDir, name)
	if err := p.fs.Rename(subtitle, staged); err != nil {
		return "", fmt.Errorf("stage subtitle: %w", err)
	}

	p.publish(job, events.BurnStatus(model.LevelInfo, "subtitle burn started", p.now()))
	args := BuildBurnArgs(input, staged, style, burned)
	err := p.runner.Stream(ctx, config.ToolBurner, args, job.WorkDir, func(l command.Line) {
		p.publish(job, events.ParseBurnProgressLine(l.Text, p.now()))
	})
	if err != nil {
		p.publish(job, events.BurnStatus(model.LevelError, "subtitle burn failed: "+err.Error(), p.now()))
		return "", err
	}
	if _, err := p.fs.Stat(burned); err != nil {
		return "", fmt.Errorf("burner produced no output: %w", err)
	}
	p.publish(job, events.BurnStatus(model.LevelInfo, "subtitle burn finished", p.now()))

	for _, src := range []string{input, staged} {
		if err := p.fs.Remove(src); err != nil {
			p.log.Warn("removing burn source failed", slog.String("path", src), slog.String("error", err.Error()))
		}
	}
	metrics.StageDuration.WithLabelValues(string(StepBurn)).Observe(p.now().Sub(start).Seconds())
	metrics.PostProcessStepsTotal.WithLabelValues(string(StepBurn), "ok").Inc()
	return burned, nil
}

// move renames src to dst, copying when a rename is not possible
func (p *Pipeline) move(src, dst string) error {
	if err := p.fs.MkdirAll(filepath.Dir(dst), platform.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if _, err := p.fs.Stat(dst); err == nil {
		p.log.Warn("overwriting existing file", slog.String("path", dst))
		if err := p.fs.Remove(dst); err != nil {
			return fmt.Errorf("remove existing %s: %w", dst, err)
		}
	}

	if err := p.fs.Rename(src, dst); err == nil {
		return nil
	}

	if err := p.copyFile(src, dst); err != nil {
		_ = p.fs.Remove(dst)
		return err
	}
	if err := p.fs.Remove(src); err != nil {
		p.log.Warn("removing moved file failed", slog.String("path", src), slog.String("error", err.Error()))
	}
	return nil
}

func (p *Pipeline) copyFile(src, dst string) error {
	in, err := p.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := p.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, platform.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// Cleanup removes a work dir. Failures are logged only.
func (p *Pipeline) Cleanup(workDir string) {
	if workDir == "" {
		return
	}
	if err := p.fs.RemoveAll(workDir); err != nil {
		p.log.Warn("cleanup failed", slog.String("work_dir", workDir), slog.String("error", err.Error()))
	}
}

func (p *Pipeline) fail(step Step, err error) error {
	metrics.PostProcessStepsTotal.WithLabelValues(string(step), "error").Inc()

	var ppErr *PostProcessError
	if errors.As(err, &ppErr) {
		return err
	}
	p.log.Error("post-processing step failed", slog.String("step", string(step)), slog.String("error", err.Error()))
	return &PostProcessError{Step: step, Err: err}
}

func (p *Pipeline) publish(job Job, e events.Event) {
	if p.bus == nil {
		return
	}
	e.TaskID = job.TaskID
	p.bus.Publish(e)
}

func (j Job) notify(step Step) {
	if j.OnStep != nil {
		j.OnStep(step)
	}
}

func sidecarPath(output string, art Artifacts) string {
	stem := strings.TrimSuffix(output, filepath.Ext(output))
	if art.SubtitleLanguage != "" {
		stem += "." + art.SubtitleLanguage
	}
	if strings.EqualFold(filepath.Ext(art.Subtitle), ExtSRT) {
		stem += ExtSRT
	}
	return stem
}
