package engine

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dagbft/narwhal/model/narwhal"
	"github.com/dagbft/narwhal/utils/logging"
)

// Message is an inbound event together with the authority that sent it.
type Message struct {
	OriginID narwhal.AuthorityIndex
	Payload  interface{}
}

// MessageStore is the interface to abstract how messages are buffered in memory before
// being handled by the engine
type MessageStore interface {
	Put(*Message) bool
	Get() (*Message, bool)
}

type Pattern struct {
	// Match is a function to match a message to this pattern, typically by payload type.
	Match MatchFunc
	// Map is a function to apply to messages before storing them. If not provided, then the message won't get mapped.
	Map MapFunc
	// Store is an abstract message store where we will store the message upon receipt.
	Store MessageStore
	// BeforeStore is a hook for functions to be called when a message is stored.
	BeforeStore []OnMessageFunc
}

type OnMessageFunc func(*Message)

type MatchFunc func(*Message) bool

// MapFunc transforms a matched message. Returning false drops the message.
type MapFunc func(*Message) (*Message, bool)

// MessageHandler dispatches inbound messages into the store of the first
// pattern that matches and notifies the consumer.
type MessageHandler struct {
	log      zerolog.Logger
	notifier Notifier
	patterns []Pattern
}

func NewMessageHandler(log zerolog.Logger, notifier Notifier, patterns ...Pattern) *MessageHandler {
	return &MessageHandler{
		log:      log.With().Str("component", "message_handler").Logger(),
		notifier: notifier,
		patterns: patterns,
	}
}

// Process stores the message in the matching store. A full store drops the
// message silently.
// Expected errors during normal operations:
//   - IncompatibleInputTypeError if no pattern matches the payload
func (e *MessageHandler) Process(originID narwhal.AuthorityIndex, payload interface{}) error {
	msg := &Message{
		OriginID: originID,
		Payload:  payload,
	}

	for _, pattern := range e.patterns {
		if !pattern.Match(msg) {
			continue
		}

		var keep bool
		if pattern.Map != nil {
			msg, keep = pattern.Map(msg)
			if !keep {
				return nil
			}
		}

		for _, apply := range pattern.BeforeStore {
			apply(msg)
		}

		ok := pattern.Store.Put(msg)
		if !ok {
			e.log.Warn().
				Str("msg_type", logging.Type(payload)).
				Uint16("origin_id", uint16(originID)).
				Msg("failed to store message - discarding")
			return nil
		}
		e.notifier.Notify()

		// message can only be matched by one pattern, and processed by one handler
		return nil
	}

	return fmt.Errorf("no matching processor for message of type %T from origin %d: %w", payload, originID, IncompatibleInputTypeError)
}

func (e *MessageHandler) GetNotifier() <-chan struct{} {
	return e.notifier.Channel()
}
