package session_test

import (
	"context"
	"errors"
	"sync"

	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
	"github.com/c001-ZHSH/star-plan-analysis/internal/session"
)

var errTransport = errors.New("connection refused")

type statusReply struct {
	status *client.JobStatus
	err    error
}

func running(progress int, message string) statusReply {
	return statusReply{status: &client.JobStatus{Status: client.StatusRunning, Progress: progress, Message: message}}
}

func completed(filename string) statusReply {
	return statusReply{status: &client.JobStatus{Status: client.StatusCompleted, Progress: 100, Message: "完成", Filename: filename}}
}

func failed(message string) statusReply {
	return statusReply{status: &client.JobStatus{Status: client.StatusError, Message: message}}
}

func transportError() statusReply {
	return statusReply{err: errTransport}
}

// fakeAPI serves scripted answers. Status replies of a job are consumed in
// order and the last one repeats. A gate, when set, holds the matching call
// until it is closed.
type fakeAPI struct {
	mu sync.Mutex

	catalog  []client.Target
	fetchErr error
	startErr error
	jobIDs   []string

	statuses   map[string][]statusReply
	previews   map[string][]client.PreviewRow
	previewErr error

	fetchGate   chan struct{}
	startGate   chan struct{}
	statusGates map[string]chan struct{}

	fetchURLs    []string
	started      [][]string
	statusCalls  map[string]int
	previewCalls map[string]int
}

func newFakeAPI(names ...string) *fakeAPI {
	f := &fakeAPI{
		statuses:     map[string][]statusReply{},
		previews:     map[string][]client.PreviewRow{},
		statusGates:  map[string]chan struct{}{},
		statusCalls:  map[string]int{},
		previewCalls: map[string]int{},
	}
	for _, n := range names {
		f.catalog = append(f.catalog, client.Target{Name: n})
	}
	return f
}

func (f *fakeAPI) script(jobID string, replies ...statusReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobIDs = append(f.jobIDs, jobID)
	f.statuses[jobID] = replies
}

func (f *fakeAPI) FetchUniversities(ctx context.Context, sourceURL string) ([]client.Target, error) {
	f.mu.Lock()
	f.fetchURLs = append(f.fetchURLs, sourceURL)
	gate := f.fetchGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]client.Target(nil), f.catalog...), nil
}

func (f *fakeAPI) StartJob(ctx context.Context, sourceURL string, targets []string) (string, error) {
	f.mu.Lock()
	f.started = append(f.started, append([]string(nil), targets...))
	gate := f.startGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	if len(f.jobIDs) == 0 {
		return "", errors.New("no job scripted")
	}
	id := f.jobIDs[0]
	f.jobIDs = f.jobIDs[1:]
	return id, nil
}

func (f *fakeAPI) JobStatus(ctx context.Context, jobID string) (*client.JobStatus, error) {
	f.mu.Lock()
	f.statusCalls[jobID]++
	n := f.statusCalls[jobID]
	gate := f.statusGates[jobID]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	replies := f.statuses[jobID]
	if len(replies) == 0 {
		return nil, errors.New("unknown job")
	}
	i := n - 1
	if i >= len(replies) {
		i = len(replies) - 1
	}
	r := replies[i]
	if r.err != nil {
		return nil, r.err
	}
	st := *r.status
	return &st, nil
}

func (f *fakeAPI) Preview(ctx context.Context, jobID string) ([]client.PreviewRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previewCalls[jobID]++
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	return f.previews[jobID], nil
}

func (f *fakeAPI) DownloadURL(jobID string) string {
	return "http://backend.test/api/download/" + jobID
}

func (f *fakeAPI) StatusCalls(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls[jobID]
}

func (f *fakeAPI) PreviewCalls(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previewCalls[jobID]
}

func (f *fakeAPI) FetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetchURLs)
}

func (f *fakeAPI) Started() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.started...)
}

type recordingView struct {
	mu     sync.Mutex
	states []session.State
	alerts []string
}

func (v *recordingView) Render(s session.State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.states = append(v.states, s)
}

func (v *recordingView) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, message)
}

func (v *recordingView) Alerts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.alerts...)
}

func (v *recordingView) Last() session.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.states) == 0 {
		return session.State{}
	}
	return v.states[len(v.states)-1]
}

// Saw reports whether any rendered state satisfies match.
func (v *recordingView) Saw(match func(session.State) bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.states {
		if match(s) {
			return true
		}
	}
	return false
}
