package waiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/dagbft/narwhal/model/narwhal"
)

// peerLimiter spaces out the requests sent to each peer.
type peerLimiter struct {
	limit rate.Limit
	burst int

	lock     sync.Mutex
	limiters map[narwhal.AuthorityIndex]*rate.Limiter
}

func newPeerLimiter(limit rate.Limit, burst int) *peerLimiter {
	return &peerLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[narwhal.AuthorityIndex]*rate.Limiter),
	}
}

func (l *peerLimiter) get(peer narwhal.AuthorityIndex) *rate.Limiter {
	l.lock.Lock()
	defer l.lock.Unlock()

	limiter, ok := l.limiters[peer]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[peer] = limiter
	}
	return limiter
}

// Wait blocks until a request to peer is allowed. It fails if ctx ends first
// or its deadline leaves no room for the wait.
func (l *peerLimiter) Wait(ctx context.Context, peer narwhal.AuthorityIndex) error {
	return l.get(peer).Wait(ctx)
}
