// Package session drives one browser-like session against the star plan
// service: catalog fetch, target selection, job launch, polling and result
// retrieval. The Coordinator owns every piece of mutable state and reports
// it to a View after each transition.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
	"github.com/c001-ZHSH/star-plan-analysis/internal/preview"
	"github.com/c001-ZHSH/star-plan-analysis/internal/selection"
	"github.com/c001-ZHSH/star-plan-analysis/pkg/metrics"
)

// API is the part of the star plan service the session consumes.
type API interface {
	FetchUniversities(ctx context.Context, sourceURL string) ([]client.Target, error)
	StartJob(ctx context.Context, sourceURL string, targets []string) (string, error)
	JobStatus(ctx context.Context, jobID string) (*client.JobStatus, error)
	Preview(ctx context.Context, jobID string) ([]client.PreviewRow, error)
	DownloadURL(jobID string) string
}

// Outcome describes how the lifecycle of a launched job ended.
type Outcome struct {
	JobID       string
	Status      client.Status
	Message     string
	Filename    string
	DownloadURL string
	Preview     []client.PreviewRow
}

type activeJob struct {
	id      string
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	outcome Outcome
	err     error
}

type Option func(c *Coordinator)

func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		c.pollInterval = d
	}
}

func WithPollJitter(d time.Duration) Option {
	return func(c *Coordinator) {
		c.pollJitter = d
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

type Coordinator struct {
	api          API
	view         View
	log          *zap.Logger
	pollInterval time.Duration
	pollJitter   time.Duration
	poller       *Poller

	// ctx bounds every poller; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	targets    *selection.Tracker
	launching  bool
	closed     bool
	generation uint64
	// epoch changes on Reset so that in-flight fetches and launches started
	// before it are dropped.
	epoch uint64
	// active is the job being polled. It is set by Launch and cleared when
	// the job reaches a terminal status, is superseded, or the session ends.
	active *activeJob
	// last is the most recently launched job, terminal or not.
	last *activeJob
}

func NewCoordinator(api API, view View, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:          api,
		view:         view,
		log:          zap.NewNop(),
		pollInterval: DefaultPollInterval,
		state:        initialState(),
		targets:      selection.New(nil),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("session")
	c.poller = NewPoller(api.JobStatus, c.pollInterval, c.pollJitter, c.log)
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// State returns a snapshot of the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SetURL records the source URL input without sending anything.
func (c *Coordinator) SetURL(rawURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.URL = rawURL
}

// FetchCatalog loads the targets of rawURL and selects all of them.
func (c *Coordinator) FetchCatalog(ctx context.Context, rawURL string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.state.FetchButton.Enabled {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	c.state.URL = rawURL
	sourceURL := strings.TrimSpace(rawURL)
	if sourceURL == "" {
		c.alertLocked(MsgEmptyURL)
		c.mu.Unlock()
		return ErrEmptyURL
	}
	previous := c.state.FetchButton
	epoch := c.epoch
	c.state.FetchButton = Button{Enabled: false, Label: LabelFetching}
	c.renderLocked()
	c.mu.Unlock()

	targets, err := c.api.FetchUniversities(ctx, sourceURL)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return ErrReset
	}
	if err != nil {
		c.log.Error("failed to fetch universities", zap.String("url", sourceURL), zap.Error(err))
		c.alertLocked(prefixFetchError + describe(msgFetchFailed, err))
		c.state.FetchButton = previous
		c.renderLocked()
		return fmt.Errorf("fetching universities: %w", err)
	}

	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.Name)
	}
	c.targets.Replace(names)
	c.log.Info("catalog loaded", zap.String("url", sourceURL), zap.Int("targets", c.targets.Len()))

	c.state.CatalogVisible = true
	c.state.FetchButton = Button{Enabled: true, Label: LabelFetched}
	if c.state.Phase == PhaseIdle {
		c.state.Phase = PhaseCatalogLoaded
	}
	c.syncSelectionLocked()
	c.renderLocked()
	return nil
}

// Toggle checks or unchecks a single target.
func (c *Coordinator) Toggle(name string, selected bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.targets.Toggle(name, selected); err != nil {
		return err
	}
	c.syncSelectionLocked()
	c.renderLocked()
	return nil
}

// SelectAll forces every target to selected.
func (c *Coordinator) SelectAll(selected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets.SelectAll(selected)
	c.syncSelectionLocked()
	c.renderLocked()
}

// Launch starts a job over the selected targets and begins polling it. The
// previously tracked job, if any, is superseded once the new id is known.
func (c *Coordinator) Launch(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.launching {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	sourceURL := strings.TrimSpace(c.state.URL)
	if sourceURL == "" {
		c.alertLocked(MsgEmptyURL)
		c.mu.Unlock()
		metrics.IncreaseJobLaunchesMetric(metrics.LaunchRejected)
		return ErrEmptyURL
	}
	targets := c.targets.Selected()
	if len(targets) == 0 {
		c.alertLocked(MsgEmptySelection)
		c.mu.Unlock()
		metrics.IncreaseJobLaunchesMetric(metrics.LaunchRejected)
		return ErrEmptySelection
	}
	if !c.state.StartButton.Enabled {
		c.mu.Unlock()
		return ErrTriggerDisabled
	}

	c.launching = true
	epoch := c.epoch
	c.state.StartButton = Button{Enabled: false, Label: LabelStarting}
	c.hideResultLocked()
	c.state.StatusVisible = true
	c.state.Progress = 0
	c.state.StatusText = StatusTextStarting
	c.renderLocked()
	c.mu.Unlock()

	jobID, err := c.api.StartJob(ctx, sourceURL, targets)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return ErrReset
	}
	c.launching = false
	if err != nil {
		metrics.IncreaseJobLaunchesMetric(metrics.LaunchFailed)
		c.log.Error("failed to start job", zap.Strings("targets", targets), zap.Error(err))
		c.alertLocked(prefixStartError + describe(msgStartFailed, err))
		c.state.StartButton = Button{Enabled: c.targets.CanLaunch(), Label: LabelStart}
		c.state.StatusVisible = c.active != nil
		c.renderLocked()
		return fmt.Errorf("starting job: %w", err)
	}
	if c.closed {
		return ErrClosed
	}

	metrics.IncreaseJobLaunchesMetric(metrics.LaunchOK)
	job := c.supersedeLocked(jobID)
	c.log.Info("job started", zap.String("job_id", jobID), zap.Int("targets", len(targets)))

	c.state.Phase = PhaseRunning
	c.state.JobID = jobID
	c.hideResultLocked()
	c.state.StatusVisible = true
	c.state.Progress = 0
	c.state.StatusText = StatusTextStarting
	c.renderLocked()

	go c.track(job)
	return nil
}

// Wait blocks until the lifecycle of the last launched job ends, preview
// retrieval included.
func (c *Coordinator) Wait(ctx context.Context) (*Outcome, error) {
	c.mu.Lock()
	job := c.last
	c.mu.Unlock()
	if job == nil {
		return nil, ErrNoJob
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-job.done:
	}
	if job.err != nil {
		return nil, job.err
	}
	outcome := job.outcome
	return &outcome, nil
}

// Reset drops the catalog, the selection and the tracked job.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopActiveLocked()
	c.generation++
	c.epoch++
	c.targets.Replace(nil)
	c.launching = false
	c.state = initialState()
	c.renderLocked()
}

// Close stops polling for good and waits for the poller to exit.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	job := c.active
	c.stopActiveLocked()
	c.mu.Unlock()

	c.cancel()
	if job != nil {
		<-job.done
	}
}

// supersedeLocked cancels the active poller and installs jobID as the only
// tracked job.
func (c *Coordinator) supersedeLocked(jobID string) *activeJob {
	c.stopActiveLocked()
	c.generation++

	ctx, cancel := context.WithCancel(c.ctx)
	job := &activeJob{
		id:     jobID,
		gen:    c.generation,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.active = job
	c.last = job
	return job
}

func (c *Coordinator) stopActiveLocked() {
	if c.active == nil {
		return
	}
	c.log.Info("job tracking superseded", zap.String("job_id", c.active.id))
	metrics.IncreaseStatusPollsMetric(metrics.PollSuperseded)
	c.active.cancel()
	c.active = nil
}

func (c *Coordinator) track(job *activeJob) {
	defer close(job.done)
	defer job.cancel()

	st, err := c.poller.Run(job.ctx, job.id, func(st *client.JobStatus) {
		c.applyStatus(job, st)
	})
	if err != nil {
		job.err = fmt.Errorf("tracking job %s stopped: %w", job.id, err)
		return
	}

	switch st.Status {
	case client.StatusCompleted:
		c.complete(job, st)
	case client.StatusError:
		c.fail(job, st)
	}
}

func (c *Coordinator) applyStatus(job *activeJob, st *client.JobStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != job {
		return
	}
	c.state.Progress = st.Progress
	c.state.StatusText = fmt.Sprintf("%s (%d%%)", st.Message, st.Progress)
	metrics.SetJobProgressMetric(st.Progress)
	c.renderLocked()
}

func (c *Coordinator) complete(job *activeJob, st *client.JobStatus) {
	c.mu.Lock()
	if c.active != job {
		c.mu.Unlock()
		job.err = fmt.Errorf("tracking job %s stopped: %w", job.id, context.Canceled)
		return
	}
	c.active = nil
	metrics.IncreaseJobsFinishedMetric(string(client.StatusCompleted))
	c.log.Info("job completed", zap.String("job_id", job.id), zap.String("filename", st.Filename))

	downloadURL := c.api.DownloadURL(job.id)
	c.state.Phase = PhaseCompleted
	c.state.StatusVisible = false
	c.state.ResultVisible = true
	c.state.DownloadURL = downloadURL
	c.state.StartButton = Button{Enabled: c.targets.CanLaunch(), Label: LabelRestart}
	c.renderLocked()
	c.mu.Unlock()

	job.outcome = Outcome{
		JobID:       job.id,
		Status:      st.Status,
		Message:     st.Message,
		Filename:    st.Filename,
		DownloadURL: downloadURL,
	}

	rows, err := c.api.Preview(job.ctx, job.id)
	if err != nil {
		c.log.Warn("failed to load preview", zap.String("job_id", job.id), zap.Error(err))
		return
	}
	job.outcome.Preview = rows

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != job.gen || len(rows) == 0 {
		return
	}
	c.state.Preview = preview.Lines(rows)
	c.state.PreviewVisible = true
	c.renderLocked()
}

func (c *Coordinator) fail(job *activeJob, st *client.JobStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != job {
		job.err = fmt.Errorf("tracking job %s stopped: %w", job.id, context.Canceled)
		return
	}
	c.active = nil
	metrics.IncreaseJobsFinishedMetric(string(client.StatusError))
	c.log.Info("job failed", zap.String("job_id", job.id), zap.String("message", st.Message))

	job.outcome = Outcome{
		JobID:   job.id,
		Status:  st.Status,
		Message: st.Message,
	}

	c.alertLocked(st.Message)
	c.state.Phase = PhaseCatalogLoaded
	c.state.StatusVisible = false
	c.state.StartButton = Button{Enabled: c.targets.CanLaunch(), Label: LabelRestart}
	c.renderLocked()
}

func (c *Coordinator) hideResultLocked() {
	c.state.ResultVisible = false
	c.state.PreviewVisible = false
	c.state.Preview = nil
	c.state.DownloadURL = ""
}

func (c *Coordinator) syncSelectionLocked() {
	names := c.targets.Names()
	rows := make([]TargetRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, TargetRow{Name: name, Selected: c.targets.IsSelected(name)})
	}
	c.state.Targets = rows
	c.state.SelectedLabel = c.targets.Label()
	c.state.StartButton.Enabled = c.targets.CanLaunch()
}

func (c *Coordinator) renderLocked() {
	if c.view != nil {
		c.view.Render(c.state.clone())
	}
}

func (c *Coordinator) alertLocked(message string) {
	if c.view != nil {
		c.view.Alert(message)
	}
}

// describe appends the message the service attached to err, if any.
func describe(message string, err error) string {
	if detail := client.ServerMessage(err); detail != "" {
		return fmt.Sprintf("%s (%s)", message, detail)
	}
	return message
}
