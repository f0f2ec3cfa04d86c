package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrimaryCollector implements module.PrimaryMetrics on Prometheus.
type PrimaryCollector struct {
	proposedRound      prometheus.Gauge
	proposedPayload    prometheus.Histogram
	votesCast          prometheus.Counter
	certificatesRound  prometheus.Gauge
	certificatesMade   prometheus.Counter
	acceptedRound      prometheus.Gauge
	accepted           prometheus.Counter
	suspended          *prometheus.CounterVec
	currentlySuspended prometheus.Gauge
	rejected           *prometheus.CounterVec
	dropped            *prometheus.CounterVec
	proposalDelay      prometheus.Histogram
	blockRequests      *prometheus.HistogramVec
}

func NewPrimaryCollector(reg prometheus.Registerer) *PrimaryCollector {
	r := registerer{reg}
	return &PrimaryCollector{
		proposedRound: r.gauge(subsystemProducer, prometheus.GaugeOpts{
			Name: "proposed_round",
			Help: "the round of the last header proposed by this node",
		}),
		proposedPayload: r.histogram(subsystemProducer, prometheus.HistogramOpts{
			Name:    "proposed_payload_digests",
			Buckets: []float64{0, 1, 10, 100, 500, 1000, 2000},
			Help:    "number of batch digests included in a proposed header",
		}),
		votesCast: r.counter(subsystemCore, prometheus.CounterOpts{
			Name: "votes_cast_total",
			Help: "number of votes this node cast for peer headers",
		}),
		certificatesRound: r.gauge(subsystemCore, prometheus.GaugeOpts{
			Name: "certified_round",
			Help: "round of the last certificate assembled for our own header",
		}),
		certificatesMade: r.counter(subsystemCore, prometheus.CounterOpts{
			Name: "certificates_created_total",
			Help: "number of certificates assembled from votes on our own headers",
		}),
		acceptedRound: r.gauge(subsystemCore, prometheus.GaugeOpts{
			Name: "accepted_round",
			Help: "highest round of an accepted certificate",
		}),
		accepted: r.counter(subsystemCore, prometheus.CounterOpts{
			Name: "certificates_accepted_total",
			Help: "number of certificates stored and inserted into the dag",
		}),
		suspended: r.counterVec(subsystemSynchronizer, prometheus.CounterOpts{
			Name: "suspended_total",
			Help: "number of messages parked for missing dependencies",
		}, LabelReason),
		currentlySuspended: r.gauge(subsystemCore, prometheus.GaugeOpts{
			Name: "currently_suspended",
			Help: "number of headers waiting for ancestors in the dag state",
		}),
		rejected: r.counterVec(subsystemCore, prometheus.CounterOpts{
			Name: "rejected_total",
			Help: "number of messages that failed verification",
		}, LabelKind),
		dropped: r.counterVec(subsystemSynchronizer, prometheus.CounterOpts{
			Name: "dropped_total",
			Help: "number of best-effort requests dropped on a full queue",
		}, LabelQueue),
		proposalDelay: r.histogram(subsystemProducer, prometheus.HistogramOpts{
			Name:    "clock_skew_delay_seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			Help:    "time the producer slept so that its header is not older than its ancestors",
		}),
		blockRequests: r.histogramVec(subsystemBlockWaiter, prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			Help:    "duration of block reconstructions by outcome",
		}, LabelOutcome),
	}
}

func (pc *PrimaryCollector) HeaderProposed(round uint64, payloadSize int) {
	pc.proposedRound.Set(float64(round))
	pc.proposedPayload.Observe(float64(payloadSize))
}

func (pc *PrimaryCollector) HeaderVoted() {
	pc.votesCast.Inc()
}

func (pc *PrimaryCollector) CertificateCreated(round uint64) {
	pc.certificatesRound.Set(float64(round))
	pc.certificatesMade.Inc()
}

func (pc *PrimaryCollector) CertificateAccepted(round uint64) {
	pc.accepted.Inc()
	pc.acceptedRound.Set(float64(round))
}

func (pc *PrimaryCollector) HeaderSuspended(reason string) {
	pc.suspended.With(prometheus.Labels{LabelReason: reason}).Inc()
}

func (pc *PrimaryCollector) CurrentlySuspended(count int) {
	pc.currentlySuspended.Set(float64(count))
}

func (pc *PrimaryCollector) MessageRejected(kind string) {
	pc.rejected.With(prometheus.Labels{LabelKind: kind}).Inc()
}

func (pc *PrimaryCollector) SyncRequestDropped(queue string) {
	pc.dropped.With(prometheus.Labels{LabelQueue: queue}).Inc()
}

func (pc *PrimaryCollector) ProposalDelayed(duration time.Duration) {
	pc.proposalDelay.Observe(duration.Seconds())
}

func (pc *PrimaryCollector) BlockRequest(outcome string, duration time.Duration) {
	pc.blockRequests.With(prometheus.Labels{LabelOutcome: outcome}).Observe(duration.Seconds())
}
