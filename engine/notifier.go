package engine

// Notifier is a concurrency primitive for informing worker routines about the
// arrival of new work unit(s). Notifiers behave like channels in that they can
// be passed by value and still share their internal state.
//
// Notifications coalesce: any number of Notify calls without a receive in
// between leave exactly one pending notification.
type Notifier struct {
	notifier chan struct{} // buffered channel with capacity 1
}

func NewNotifier() Notifier {
	return Notifier{make(chan struct{}, 1)}
}

// Notify sends a notification without blocking.
func (n Notifier) Notify() {
	select {
	case n.notifier <- struct{}{}:
	default:
	}
}

// Channel returns a channel for receiving notifications
func (n Notifier) Channel() <-chan struct{} {
	return n.notifier
}
