package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	starplan = "starplan_client"

	// Poll metrics
	statusPollsTotal = "status_polls_total"

	// Job metrics
	jobLaunchesTotal  = "job_launches_total"
	jobsFinishedTotal = "jobs_finished_total"
	jobProgress       = "job_progress_percent"

	// Labels
	outcomeLabel = "outcome"
	statusLabel  = "status"
)

// Poll outcomes.
const (
	PollOK         = "ok"
	PollFailed     = "failed"
	PollSuperseded = "superseded"
	LaunchOK       = "ok"
	LaunchFailed   = "failed"
	LaunchRejected = "rejected"
)

/**
* Metrics definition
**/
var statusPollsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: starplan,
		Name:      statusPollsTotal,
		Help:      "number of job status polls partitioned by outcome",
	},
	[]string{outcomeLabel},
)

var jobLaunchesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: starplan,
		Name:      jobLaunchesTotal,
		Help:      "number of job launch attempts partitioned by outcome",
	},
	[]string{outcomeLabel},
)

var jobsFinishedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: starplan,
		Name:      jobsFinishedTotal,
		Help:      "number of tracked jobs that reached a terminal status",
	},
	[]string{statusLabel},
)

var jobProgressMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: starplan,
		Name:      jobProgress,
		Help:      "last progress reported for the active job",
	},
)

func IncreaseStatusPollsMetric(outcome string) {
	statusPollsTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func IncreaseJobLaunchesMetric(outcome string) {
	jobLaunchesTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func IncreaseJobsFinishedMetric(status string) {
	jobsFinishedTotalMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

func SetJobProgressMetric(progress int) {
	jobProgressMetric.Set(float64(progress))
}

// StatusPolls returns the poll counter for outcome; used by tests.
func StatusPolls(outcome string) prometheus.Counter {
	return statusPollsTotalMetric.With(prometheus.Labels{outcomeLabel: outcome})
}

// JobsFinished returns the terminal counter for status; used by tests.
func JobsFinished(status string) prometheus.Counter {
	return jobsFinishedTotalMetric.With(prometheus.Labels{statusLabel: status})
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(statusPollsTotalMetric)
	prometheus.MustRegister(jobLaunchesTotalMetric)
	prometheus.MustRegister(jobsFinishedTotalMetric)
	prometheus.MustRegister(jobProgressMetric)
}
