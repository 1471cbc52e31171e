// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package notifier fans change events out to observers subscribed by item id,
// or to the wildcard topic for favorite list changes.
package notifier

import (
	"sync"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// AnyFavorite is the wildcard topic. It receives every FavoriteChanged event.
const AnyFavorite = "*"

// Kind says what changed about an item.
type Kind int

const (
	// FavoriteChanged is published after an item was added to or removed from
	// the favorites index.
	FavoriteChanged Kind = iota
	// ImageReady is published after an item's image landed in the memory cache.
	ImageReady
)

func (k Kind) String() string {
	switch k {
	case FavoriteChanged:
		return "favorite"
	case ImageReady:
		return "image"
	default:
		return "unknown"
	}
}

// Event is one change notification. ID is empty for list-level changes that
// are not tied to a single item, such as an external edit of the index.
type Event struct {
	ID   string
	Kind Kind
}

// CallbackFn receives events on the notifier's dispatch goroutine.
type CallbackFn func(Event)

// Publisher is the write side used by the stores.
type Publisher interface {
	Publish(Event)
}

// Subscription identifies one registered callback.
type Subscription struct {
	n     *Notifier
	topic string
	id    string
}

// Unsubscribe removes the callback. Deliveries already queued for it may still
// run. Calling it more than once is harmless.
func (s Subscription) Unsubscribe() {
	if s.n == nil {
		return
	}
	s.n.remove(s.topic, s.id)
}

// Notifier is an in-process topic registry. All callbacks run one at a time on
// a single dispatch goroutine, in publish order. Publish never waits for
// callbacks.
type Notifier struct {
	// handlers maps topic -> subscription id -> callback.
	handlers map[string]map[string]CallbackFn
	hmutex   sync.RWMutex

	mutex  sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// New returns a running notifier. Call Close to stop its dispatch goroutine.
func New() *Notifier {
	n := &Notifier{
		handlers: map[string]map[string]CallbackFn{},
		done:     make(chan struct{}),
	}
	n.cond = sync.NewCond(&n.mutex)
	go n.dispatch()
	return n
}

// Subscribe registers fn for topic, which is an item id or AnyFavorite.
func (n *Notifier) Subscribe(topic string, fn CallbackFn) Subscription {
	id := uuid.NewString()

	n.hmutex.Lock()
	defer n.hmutex.Unlock()
	if _, ok := n.handlers[topic]; !ok {
		n.handlers[topic] = map[string]CallbackFn{}
	}
	n.handlers[topic][id] = fn

	return Subscription{n: n, topic: topic, id: id}
}

func (n *Notifier) remove(topic, id string) {
	n.hmutex.Lock()
	defer n.hmutex.Unlock()
	subs, ok := n.handlers[topic]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(n.handlers, topic)
	}
}

// Publish queues evt for everyone currently subscribed to evt.ID and, for
// FavoriteChanged, to AnyFavorite. Observers that subscribe later never see it.
func (n *Notifier) Publish(evt Event) {
	topics := []string{}
	if evt.ID != "" {
		topics = append(topics, evt.ID)
	}
	if evt.Kind == FavoriteChanged {
		topics = append(topics, AnyFavorite)
	}

	var callbacks []CallbackFn
	func() {
		n.hmutex.RLock()
		defer n.hmutex.RUnlock()
		for _, topic := range topics {
			for _, fn := range n.handlers[topic] {
				callbacks = append(callbacks, fn)
			}
		}
	}()

	if len(callbacks) == 0 {
		return
	}

	for _, fn := range callbacks {
		fn := fn
		n.Post(func() { fn(evt) })
	}
}

// Post runs fn on the dispatch goroutine after everything queued before it.
// Work posted after Close is dropped.
func (n *Notifier) Post(fn func()) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.closed {
		log.Debug("notifier closed, dropping delivery")
		return
	}
	n.queue = append(n.queue, fn)
	n.cond.Signal()
}

// Sync blocks until everything queued before the call has been delivered. It
// is a delivery barrier for callers that need to observe the effects of their
// own publishes, and returns once the dispatch goroutine has exited if the
// notifier is closed.
func (n *Notifier) Sync() {
	ch := make(chan struct{})
	n.mutex.Lock()
	if n.closed {
		n.mutex.Unlock()
		<-n.done
		return
	}
	n.queue = append(n.queue, func() { close(ch) })
	n.cond.Signal()
	n.mutex.Unlock()
	<-ch
}

// Close delivers whatever is queued and stops the dispatch goroutine.
func (n *Notifier) Close() {
	n.mutex.Lock()
	if !n.closed {
		n.closed = true
		n.cond.Broadcast()
	}
	n.mutex.Unlock()
	<-n.done
}

func (n *Notifier) dispatch() {
	defer close(n.done)
	for {
		n.mutex.Lock()
		for len(n.queue) == 0 && !n.closed {
			n.cond.Wait()
		}
		if len(n.queue) == 0 && n.closed {
			n.mutex.Unlock()
			return
		}
		fn := n.queue[0]
		n.queue[0] = nil
		n.queue = n.queue[1:]
		n.mutex.Unlock()

		run(fn)
	}
}

func run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("notifier callback panicked: %v", r)
		}
	}()
	fn()
}
