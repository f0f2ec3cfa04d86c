package engine

import (
	"github.com/dagbft/narwhal/engine/common/fifoqueue"
)

// FifoMessageStore wraps a FiFo Queue to implement the MessageStore interface.
type FifoMessageStore struct {
	*fifoqueue.FifoQueue[*Message]
}

// NewFifoMessageStore creates a FifoMessageStore that drops messages once it
// holds maxCapacity of them.
// No errors are expected during normal operations.
func NewFifoMessageStore(maxCapacity int, options ...fifoqueue.ConstructorOption) (*FifoMessageStore, error) {
	options = append([]fifoqueue.ConstructorOption{fifoqueue.WithCapacity(maxCapacity)}, options...)
	queue, err := fifoqueue.NewFifoQueue[*Message](options...)
	if err != nil {
		return nil, err
	}
	return &FifoMessageStore{FifoQueue: queue}, nil
}

func (s *FifoMessageStore) Put(msg *Message) bool {
	return s.Push(msg)
}

func (s *FifoMessageStore) Get() (*Message, bool) {
	return s.Pop()
}
