package metrics

import (
	"time"

	"github.com/dagbft/narwhal/module"
)

type NoopCollector struct{}

var (
	_ module.CacheMetrics   = (*NoopCollector)(nil)
	_ module.PrimaryMetrics = (*NoopCollector)(nil)
)

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

func (nc *NoopCollector) CacheEntries(resource string, entries uint)          {}
func (nc *NoopCollector) CacheHit(resource string)                            {}
func (nc *NoopCollector) CacheNotFound(resource string)                       {}
func (nc *NoopCollector) CacheMiss(resource string)                           {}
func (nc *NoopCollector) HeaderProposed(round uint64, payloadSize int)        {}
func (nc *NoopCollector) HeaderVoted()                                        {}
func (nc *NoopCollector) CertificateCreated(round uint64)                     {}
func (nc *NoopCollector) CertificateAccepted(round uint64)                    {}
func (nc *NoopCollector) HeaderSuspended(reason string)                       {}
func (nc *NoopCollector) CurrentlySuspended(count int)                        {}
func (nc *NoopCollector) MessageRejected(kind string)                         {}
func (nc *NoopCollector) SyncRequestDropped(queue string)                     {}
func (nc *NoopCollector) ProposalDelayed(duration time.Duration)              {}
func (nc *NoopCollector) BlockRequest(outcome string, duration time.Duration) {}
