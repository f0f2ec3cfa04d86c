package network

import (
	"fmt"

	"github.com/dagbft/narwhal/model/narwhal"
)

// Broadcaster publishes headers on a conduit to a fixed set of authorities.
type Broadcaster struct {
	conduit Conduit
	targets []narwhal.AuthorityIndex
}

var _ HeaderBroadcaster = (*Broadcaster)(nil)

// NewBroadcaster creates a broadcaster sending to the given targets.
func NewBroadcaster(conduit Conduit, targets []narwhal.AuthorityIndex) *Broadcaster {
	return &Broadcaster{
		conduit: conduit,
		targets: targets,
	}
}

func (b *Broadcaster) BroadcastHeader(header *narwhal.Header) error {
	err := b.conduit.Publish(header, b.targets...)
	if err != nil {
		return fmt.Errorf("could not broadcast %s: %w", header, err)
	}
	return nil
}
