// Package metricskey declares the metrics emitted by the agent runtime.
package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsRequestsReceived is base for counter metric for total requests decoded from the input stream
	StatsRequestsReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_requests_received",
		Help:         "stats_agent_requests_received provides total requests decoded from the input stream",
		RequiredTags: []string{"agent"},
	}

	StatsLinesDropped = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_lines_dropped",
		Help:         "stats_agent_lines_dropped provides total unparseable input lines dropped",
		RequiredTags: []string{"agent"},
	}

	StatsMethodNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_method_not_found",
		Help:         "stats_agent_method_not_found provides total requests with an unrecognized method",
		RequiredTags: []string{"agent"},
	}

	StatsComputeSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_compute_succeeded",
		Help:         "stats_agent_compute_succeeded provides total compute calls succeeded",
		RequiredTags: []string{"agent"},
	}

	StatsComputeFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_compute_failed",
		Help:         "stats_agent_compute_failed provides total compute calls failed",
		RequiredTags: []string{"agent"},
	}
)

// Perf
var (
	PerfComputeCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_agent_compute_call",
		Help:         "perf_agent_compute_call provides duration of compute call",
		RequiredTags: []string{"agent"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfComputeCall,
	&StatsComputeFailed,
	&StatsComputeSucceeded,
	&StatsLinesDropped,
	&StatsMethodNotFound,
	&StatsRequestsReceived,
}
