package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/binbin1213/GAGA-Client/internal/auth"
	"github.com/binbin1213/GAGA-Client/internal/command"
	"github.com/binbin1213/GAGA-Client/internal/config"
	"github.com/binbin1213/GAGA-Client/internal/events"
	"github.com/binbin1213/GAGA-Client/internal/history"
	"github.com/binbin1213/GAGA-Client/internal/license"
	"github.com/binbin1213/GAGA-Client/internal/metrics"
	"github.com/binbin1213/GAGA-Client/internal/model"
	"github.com/binbin1213/GAGA-Client/internal/platform"
	"github.com/binbin1213/GAGA-Client/internal/postprocess"
)

const (
	WorkDirPrefix = ".gaga-"
	TmpDirName    = "tmp"
	OutputExt     = ".mp4"

	historyTimeout = 5 * time.Second
)

var (
	// ErrClosed is returned by Submit and Run after Close
	ErrClosed = errors.New("orchestrator is closed")

	// ErrSuperseded is returned by Run when the task was cancelled or replaced
	ErrSuperseded = errors.New("task was cancelled or replaced")

	errIngestedFailure = errors.New("downloader reported an error")
)

// Options are read when a task starts
type Options struct {
	ThreadCount       int
	SubtitleLanguage  string
	KeepIntermediates bool
	LogCapacity       int
}

// Deps are the collaborators of the orchestrator. History may be nil.
type Deps struct {
	Auth    Authorizer
	Keys    KeyResolver
	Runner  CommandRunner
	Post    PostProcessor
	History HistoryRecorder
	Bus     EventBus
	Fs      afero.Fs
}

// Orchestrator drives the single active download task
type Orchestrator struct {
	deps Deps
	fs   afero.Fs
	log  *slog.Logger
	now  func() time.Time

	mu         sync.Mutex
	opts       Options
	task       *model.DownloadTask
	gen        uint64
	cancel     context.CancelFunc // set while a run is in progress
	inDownload bool               // ingested progress applies only while the downloader runs
	closed     bool
	onUpdate   func(model.TaskSnapshot)

	sub *events.Subscription
}

// run is one execution of a task; gen ties it to the orchestrator state
type run struct {
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	taskID  string
	desc    model.VideoDescriptor
	outDir  string
	workDir string
	started time.Time
}

// New creates an orchestrator and subscribes it to the event bus
func New(deps Deps, opts Options, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	fs := deps.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	o := &Orchestrator{
		deps: deps,
		fs:   fs,
		log:  log.With(slog.String("component", "download")),
		now:  time.Now,
		opts: opts,
	}
	o.sub = deps.Bus.Subscribe(o.ingest,
		events.ChannelDownloadLog,
		events.ChannelBurnProgress,
		events.ChannelBurnStatus,
	)
	return o
}

// SetUpdateCallback sets the function receiving task snapshots
func (o *Orchestrator) SetUpdateCallback(callback func(model.TaskSnapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onUpdate = callback
}

// SetOptions replaces the options used by the next task
func (o *Orchestrator) SetOptions(opts Options) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opts = opts
}

// Snapshot returns the current task, or an Idle snapshot when there is none
func (o *Orchestrator) Snapshot() model.TaskSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.task == nil {
		return model.TaskSnapshot{State: model.TaskStateIdle}
	}
	return o.task.Snapshot()
}

// Submit starts desc in the background, replacing any task in progress.
// The returned snapshot reflects the freshly reset task.
func (o *Orchestrator) Submit(desc model.VideoDescriptor, outputDir string) (model.TaskSnapshot, error) {
	r, err := o.begin(context.Background(), desc, outputDir)
	if err != nil {
		return model.TaskSnapshot{}, err
	}
	snap := o.Snapshot()
	go func() {
		_ = o.drive(r)
	}()
	return snap, nil
}

// Run executes desc and returns when the task is finished. A task replaced
// or cancelled meanwhile returns ErrSuperseded.
func (o *Orchestrator) Run(ctx context.Context, desc model.VideoDescriptor, outputDir string) error {
	r, err := o.begin(ctx, desc, outputDir)
	if err != nil {
		return err
	}
	return o.drive(r)
}

// Cancel abandons the active task: its tools are killed and the state goes
// back to Idle with zero progress.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	if o.cancel == nil {
		o.mu.Unlock()
		return
	}
	o.supersedeLocked()
	o.task.State = model.TaskStateIdle
	o.task.Progress = 0
	o.task.TransferRate = ""
	o.log.Info("task cancelled", slog.String("task_id", o.task.ID))
	snap, cb := o.task.Snapshot(), o.onUpdate
	o.mu.Unlock()

	metrics.TasksFinishedTotal.WithLabelValues("cancelled").Inc()
	notify(cb, snap)
}

// ClearError acknowledges a failure, returning the task to Idle
func (o *Orchestrator) ClearError() {
	o.mu.Lock()
	if o.task == nil || o.task.State != model.TaskStateFailed {
		o.mu.Unlock()
		return
	}
	o.task.State = model.TaskStateIdle
	o.task.ErrorMessage = ""
	snap, cb := o.task.Snapshot(), o.onUpdate
	o.mu.Unlock()

	notify(cb, snap)
}

// Close unsubscribes from the event bus and cancels the active task
func (o *Orchestrator) Close() {
	o.sub.Unsubscribe()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	if o.cancel != nil {
		o.supersedeLocked()
	}
}

// supersedeLocked invalidates the running execution
func (o *Orchestrator) supersedeLocked() {
	o.gen++
	o.inDownload = false
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// begin resets the state for a new task
func (o *Orchestrator) begin(parent context.Context, desc model.VideoDescriptor, outputDir string) (*run, error) {
	now := o.now()
	u, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate task id: %w", err)
	}
	id := u.String()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}

	if o.cancel != nil {
		o.log.Info("replacing active task", slog.String("task_id", o.task.ID))
		metrics.TasksFinishedTotal.WithLabelValues("cancelled").Inc()
	}
	o.supersedeLocked()

	ctx, cancel := context.WithCancel(parent)
	r := &run{
		gen:     o.gen,
		ctx:     ctx,
		cancel:  cancel,
		taskID:  id,
		desc:    desc,
		outDir:  outputDir,
		started: now,
	}
	o.cancel = cancel
	o.task = model.NewDownloadTask(id, desc, outputDir, o.opts.LogCapacity, now)
	snap, cb := o.task.Snapshot(), o.onUpdate
	o.mu.Unlock()

	metrics.TasksStartedTotal.Inc()
	notify(cb, snap)
	return r, nil
}

// drive executes r and records its outcome
func (o *Orchestrator) drive(r *run) error {
	defer r.cancel()
	metrics.ActiveTasks.Inc()
	defer metrics.ActiveTasks.Dec()

	log := o.log.With(slog.String("task_id", r.taskID))
	log.Info("task started", slog.String("title", r.desc.Title))

	res, err := o.execute(r, log)
	return o.finish(r, res, err, log)
}

func (o *Orchestrator) execute(r *run, log *slog.Logger) (postprocess.Result, error) {
	if err := r.desc.Validate(); err != nil {
		return postprocess.Result{}, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if r.outDir == "" {
		return postprocess.Result{}, fmt.Errorf("%w: output directory is required", ErrInvalidDescriptor)
	}

	creds, err := o.deps.Auth.Credentials(r.ctx)
	if err != nil {
		return postprocess.Result{}, err
	}

	keys, err := o.contentKeys(r, creds, log)
	if err != nil {
		return postprocess.Result{}, err
	}

	if err := o.download(r, keys, log); err != nil {
		return postprocess.Result{}, err
	}

	return o.postProcess(r, log)
}

// contentKeys returns the pre-supplied keys, resolves them for protected
// streams and returns none for clear streams.
func (o *Orchestrator) contentKeys(r *run, creds license.Credentials, log *slog.Logger) ([]model.ContentKey, error) {
	if len(r.desc.Keys) > 0 {
		keys, err := r.desc.PresetKeys()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
		}
		metrics.KeyRequestsTotal.WithLabelValues("preset").Inc()
		log.Info("using pre-supplied keys", slog.Int("count", len(keys)))
		return keys, nil
	}
	if !r.desc.IsProtected() {
		return nil, nil
	}

	if err := o.transition(r, func(t *model.DownloadTask) { t.State = model.TaskStateResolvingKeys }); err != nil {
		return nil, err
	}

	start := o.now()
	keys, err := o.deps.Keys.ResolveKeys(r.ctx, license.KeyRequest{
		Credentials: creds,
		PSSH:        r.desc.PSSH,
		LicenseURL:  r.desc.LicenseURL,
	})
	metrics.StageDuration.WithLabelValues("keys").Observe(o.now().Sub(start).Seconds())
	if err != nil {
		metrics.KeyRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := checkKeys(keys); err != nil {
		metrics.KeyRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.KeyRequestsTotal.WithLabelValues("ok").Inc()

	for _, k := range keys {
		log.Info("content key ready", slog.String("key", k.Masked()))
	}
	return keys, nil
}

// checkKeys rejects an empty or partial key set for a protected stream
func checkKeys(keys []model.ContentKey) error {
	if len(keys) == 0 {
		return &license.KeyResolutionError{Reason: license.ReasonNoKeys, Message: "no keys returned"}
	}
	for _, k := range keys {
		if k.KeyID == "" || k.Key == "" {
			return &license.KeyResolutionError{Reason: license.ReasonNoKeys, Message: "incomplete key set"}
		}
	}
	return nil
}

func (o *Orchestrator) download(r *run, keys []model.ContentKey, log *slog.Logger) error {
	opts := o.options()
	stem := platform.SanitizeFileName(r.desc.Title)

	workDir := filepath.Join(r.outDir, WorkDirPrefix+stem+"-"+r.taskID)
	tmpDir := filepath.Join(workDir, TmpDirName)

	args, err := BuildArgs(ArgsInput{
		ManifestURL:      r.desc.ManifestURL,
		SaveDir:          workDir,
		SaveName:         stem,
		TmpDir:           tmpDir,
		ThreadCount:      opts.ThreadCount,
		SubtitleLanguage: opts.SubtitleLanguage,
		Keys:             keys,
	})
	if err != nil {
		return err
	}

	if err := o.fs.MkdirAll(tmpDir, platform.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	r.workDir = workDir

	err = o.transition(r, func(t *model.DownloadTask) {
		t.State = model.TaskStateDownloading
		t.WorkDir = workDir
		o.inDownload = true
	})
	if err != nil {
		return err
	}

	log.Info("starting downloader", slog.Any("args", MaskArgs(args)))
	start := o.now()
	err = o.deps.Runner.Stream(r.ctx, config.ToolDownloader, args, workDir, func(l command.Line) {
		e := events.ParseDownloaderLine(l.Text, o.now())
		e.TaskID = r.taskID
		o.deps.Bus.Publish(e)
	})
	metrics.StageDuration.WithLabelValues("download").Observe(o.now().Sub(start).Seconds())

	// every line was ingested before Stream returned, so an ERROR event
	// has already failed the task
	o.mu.Lock()
	superseded := r.gen != o.gen
	failed := !superseded && o.task.State == model.TaskStateFailed
	if !superseded {
		o.inDownload = false
	}
	o.mu.Unlock()

	switch {
	case superseded:
		return ErrSuperseded
	case failed:
		return errIngestedFailure
	case err != nil:
		return err
	}
	log.Info("downloader finished")
	return nil
}

func (o *Orchestrator) postProcess(r *run, log *slog.Logger) (postprocess.Result, error) {
	stem := platform.SanitizeFileName(r.desc.Title)
	job := postprocess.Job{
		WorkDir:    r.workDir,
		Stem:       stem,
		OutputPath: filepath.Join(r.outDir, stem+OutputExt),
		TaskID:     r.taskID,
		OnStep: func(step postprocess.Step) {
			switch step {
			case postprocess.StepMux:
				_ = o.transition(r, func(t *model.DownloadTask) { t.State = model.TaskStateMerging })
			case postprocess.StepBurn:
				_ = o.transition(r, func(t *model.DownloadTask) { t.State = model.TaskStateBurningSubtitles })
			}
		},
	}

	res, err := o.deps.Post.Process(r.ctx, job)
	// the work dir is handled by the pipeline from here on
	r.workDir = ""

	o.mu.Lock()
	superseded := r.gen != o.gen
	failed := !superseded && o.task.State == model.TaskStateFailed
	o.mu.Unlock()

	switch {
	case superseded:
		return postprocess.Result{}, ErrSuperseded
	case err != nil:
		return postprocess.Result{}, err
	case failed:
		return postprocess.Result{}, errIngestedFailure
	}
	log.Info("post-processing finished", slog.String("output", res.OutputPath))
	return res, nil
}

// finish applies the outcome of r unless it was superseded
func (o *Orchestrator) finish(r *run, res postprocess.Result, err error, log *slog.Logger) error {
	if r.workDir != "" && err != nil && !o.options().KeepIntermediates {
		o.deps.Post.Cleanup(r.workDir)
	}

	o.mu.Lock()
	if r.gen != o.gen {
		o.mu.Unlock()
		log.Info("abandoned task finished", slog.Any("error", err))
		return ErrSuperseded
	}

	task := o.task
	now := o.now()
	task.FinishedAt = now
	o.cancel = nil
	o.inDownload = false

	record := history.Record{
		Title:       r.desc.Title,
		ManifestURL: r.desc.ManifestURL,
	}
	if err == nil {
		task.State = model.TaskStateCompleted
		task.Progress = 100
		task.OutputPath = res.OutputPath
		task.ErrorMessage = ""

		record.Status = history.StatusCompleted
		record.Progress = 100
		record.CompletedAt = now
		record.Files = res.Files
	} else {
		if task.State != model.TaskStateFailed {
			task.State = model.TaskStateFailed
			task.ErrorMessage = userMessage(err)
		}
		record.Status = history.StatusFailed
		record.Progress = task.Progress
		record.ErrorMessage = task.ErrorMessage
		if !errors.Is(err, errIngestedFailure) {
			record.ErrorMessage = err.Error()
		}
	}
	snap, cb := task.Snapshot(), o.onUpdate
	o.mu.Unlock()

	if err == nil {
		metrics.TasksFinishedTotal.WithLabelValues("completed").Inc()
		log.Info("task completed", slog.String("output", res.OutputPath), slog.Duration("elapsed", now.Sub(r.started)))
	} else {
		metrics.TasksFinishedTotal.WithLabelValues("failed").Inc()
		log.Error("task failed", slog.String("error", err.Error()))
	}

	notify(cb, snap)
	o.record(record, log)

	if err != nil && errors.Is(err, errIngestedFailure) {
		return errors.New(snap.ErrorMessage)
	}
	return err
}

func (o *Orchestrator) record(r history.Record, log *slog.Logger) {
	if o.deps.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if _, err := o.deps.History.Append(ctx, r); err != nil {
		log.Warn("saving history failed", slog.String("error", err.Error()))
	}
}

// transition applies fn to the task of r unless r was superseded or has
// already failed
func (o *Orchestrator) transition(r *run, fn func(*model.DownloadTask)) error {
	o.mu.Lock()
	switch {
	case r.gen != o.gen:
		o.mu.Unlock()
		return ErrSuperseded
	case o.task.State == model.TaskStateFailed:
		o.mu.Unlock()
		return errIngestedFailure
	}
	fn(o.task)
	snap, cb := o.task.Snapshot(), o.onUpdate
	o.mu.Unlock()

	notify(cb, snap)
	return nil
}

// ingest applies a published event to the current task
func (o *Orchestrator) ingest(e events.Event) {
	o.mu.Lock()
	task := o.task
	if task == nil || (e.TaskID != "" && e.TaskID != task.ID) {
		o.mu.Unlock()
		return
	}

	task.Logs.Append(e.LogEntry())

	if o.cancel != nil && task.State != model.TaskStateFailed {
		c := events.Classify(e)
		switch {
		case c.Failed:
			task.State = model.TaskStateFailed
			task.ErrorMessage = c.ErrorMessage
			o.inDownload = false
			if o.cancel != nil {
				o.cancel()
			}
		case o.inDownload:
			if c.HasProgress {
				task.Progress = c.Progress
			}
			if c.Speed != "" {
				task.TransferRate = c.Speed
			}
			if phaseRank(c.Phase) > phaseRank(task.State) {
				task.State = c.Phase
			}
		}
	}

	snap, cb := task.Snapshot(), o.onUpdate
	o.mu.Unlock()

	notify(cb, snap)
}

// phaseRank orders the states the downloader's output can move a task
// through; hints only ever move it forward.
func phaseRank(s model.TaskState) int {
	switch s {
	case model.TaskStateDownloading:
		return 1
	case model.TaskStateDecrypting:
		return 2
	case model.TaskStateMerging:
		return 3
	default:
		return 0
	}
}

func (o *Orchestrator) options() Options {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opts
}

func notify(cb func(model.TaskSnapshot), snap model.TaskSnapshot) {
	if cb != nil {
		cb(snap)
	}
}

// userMessage turns an error into the text shown to the user
func userMessage(err error) string {
	var (
		kre     *license.KeyResolutionError
		execErr *command.ExecutionError
		ppErr   *postprocess.PostProcessError
	)
	switch {
	case errors.Is(err, auth.ErrNotAuthorized):
		return "not authorized: activate a license before downloading"
	case errors.As(err, &kre):
		switch kre.Reason {
		case license.ReasonUnreachable:
			return "failed to get decryption keys: licensing server unreachable, check your network"
		case license.ReasonNoKeys:
			return "failed to get decryption keys: no keys were returned for this video"
		default:
			if kre.Message == "" {
				return "failed to get decryption keys: " + string(kre.Reason)
			}
			return "failed to get decryption keys: " + kre.Message
		}
	case errors.As(err, &ppErr):
		return fmt.Sprintf("download finished but %s failed: %v", ppErr.Step, ppErr.Err)
	case errors.As(err, &execErr):
		return "download failed: " + execErr.Error()
	default:
		return err.Error()
	}
}
