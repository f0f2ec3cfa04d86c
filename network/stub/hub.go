package stub

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/model/encoding"
	"github.com/dagbft/narwhal/model/encoding/cbor"
	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/network/channels"
	"github.com/dagbft/narwhal/storage"
)

// Filter decides whether a message is delivered. Returning false drops it.
type Filter func(channel channels.Channel, from, to narwhal.AuthorityIndex) bool

// Hub connects the networks of authorities running in one process. Every
// message is encoded and decoded on its way, so receivers never share memory
// with the sender.
type Hub struct {
	log       zerolog.Logger
	committee *narwhal.Committee
	codec     encoding.Encoder

	lock     sync.RWMutex
	networks map[narwhal.AuthorityIndex]*Network
	workers  map[string]*Network
	filter   Filter
	wg       sync.WaitGroup
}

func NewHub(log zerolog.Logger, committee *narwhal.Committee) *Hub {
	return &Hub{
		log:       log.With().Str("component", "network_hub").Logger(),
		committee: committee,
		codec:     cbor.NewEncoder(),
		networks:  make(map[narwhal.AuthorityIndex]*Network),
		workers:   make(map[string]*Network),
		filter:    func(channels.Channel, narwhal.AuthorityIndex, narwhal.AuthorityIndex) bool { return true },
	}
}

// AddNetwork attaches an authority to the hub. The stores back the requests
// peers send to this authority and the batches its workers synchronize.
func (h *Hub) AddNetwork(me narwhal.AuthorityIndex, certificates storage.Certificates, batches storage.Batches, payloads storage.Payloads) *Network {
	net := &Network{
		hub:          h,
		me:           me,
		log:          h.log.With().Uint16("authority", uint16(me)).Logger(),
		certificates: certificates,
		batches:      batches,
		payloads:     payloads,
		processors:   make(map[channels.Channel]processorEntry),
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.networks[me] = net
	for _, worker := range h.committee.Authority(me).Workers {
		h.workers[worker.WorkerAddress] = net
	}
	return net
}

// SetFilter installs a filter for all subsequent messages. A nil filter
// delivers everything.
func (h *Hub) SetFilter(filter Filter) {
	if filter == nil {
		filter = func(channels.Channel, narwhal.AuthorityIndex, narwhal.AuthorityIndex) bool { return true }
	}
	h.lock.Lock()
	h.filter = filter
	h.lock.Unlock()
}

// Wait blocks until all messages in flight were handed to their processors.
func (h *Hub) Wait() {
	h.wg.Wait()
}

func (h *Hub) network(index narwhal.AuthorityIndex) (*Network, bool) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	net, ok := h.networks[index]
	return net, ok
}

func (h *Hub) worker(address string) (*Network, bool) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	net, ok := h.workers[address]
	return net, ok
}

// deliver hands a copy of the event to the processor the target registered
// on the channel. Delivery is asynchronous and best effort.
func (h *Hub) deliver(channel channels.Channel, from, to narwhal.AuthorityIndex, event interface{}) error {
	h.lock.RLock()
	target, ok := h.networks[to]
	allowed := h.filter(channel, from, to)
	h.lock.RUnlock()
	if !ok {
		return fmt.Errorf("authority %d is not attached to the hub", to)
	}
	if !allowed {
		return nil
	}

	processor, ok := target.processor(channel)
	if !ok {
		h.log.Debug().Str("channel", channel.String()).Uint16("target", uint16(to)).Msg("no processor registered, dropping message")
		return nil
	}

	msg, err := h.copy(event)
	if err != nil {
		return fmt.Errorf("could not encode message for channel %s: %w", channel, err)
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		err := processor.Process(channel, from, msg)
		if err != nil {
			target.log.Warn().Err(err).
				Str("channel", channel.String()).
				Uint16("origin", uint16(from)).
				Msg("processor rejected message")
		}
	}()
	return nil
}

// copy round-trips a pointer value through the wire codec.
func (h *Hub) copy(event interface{}) (interface{}, error) {
	typ := reflect.TypeOf(event)
	if typ == nil || typ.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("message of type %T is not a pointer", event)
	}
	data, err := h.codec.Encode(event)
	if err != nil {
		return nil, err
	}
	msg := reflect.New(typ.Elem()).Interface()
	err = h.codec.Decode(data, msg)
	if err != nil {
		return nil, err
	}
	return msg, nil
}
