package prometrics

import (
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Instruments registers every metric the service records and returns them keyed for
// observability.New. Label sets here must match what the callers pass.
func Instruments(r Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: r.Counter(string(observability.MUsecaseRequests),
			"Total number of use case invocations.", "use_case", "outcome"),
		observability.MHTTPRequests: r.Counter(string(observability.MHTTPRequests),
			"Total number of HTTP requests.", "method", "route", "status"),
		observability.MExternalRequests: r.Counter(string(observability.MExternalRequests),
			"Calls to collaborators outside the process boundary.", "peer", "endpoint", "outcome"),
		observability.MPaymentFallbacks: r.Counter(string(observability.MPaymentFallbacks),
			"Payment intents served by the local mock after a gateway failure.", "reason"),
		observability.MNotificationsSent: r.Counter(string(observability.MNotificationsSent),
			"Customer notifications by delivery outcome.", "outcome"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: r.Histogram(string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.", prometheus.DefBuckets, "use_case"),
		observability.MHTTPRequestDuration: r.Histogram(string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.", prometheus.DefBuckets, "method", "route", "status"),
		observability.MExternalRequestDuration: r.Histogram(string(observability.MExternalRequestDuration),
			"Duration of calls to external collaborators in seconds.", prometheus.DefBuckets, "peer", "endpoint"),
	}
	return counters, histograms
}
