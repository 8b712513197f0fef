package transport

import (
	"context"
	"sync"
)

// Broker routes inbound platform events to blocked Await calls. Channel
// implementations feed their message and reaction callbacks into the
// Offer methods; the prompt engine blocks in the Await methods. Each
// event is delivered to at most one waiter; events nobody is waiting for
// are reported back to the caller so it can fall through to command
// dispatch.
type Broker struct {
	mu              sync.Mutex
	nextID          uint64
	messageWaiters  map[uint64]*messageWaiter
	reactionWaiters map[uint64]*reactionWaiter
}

type messageWaiter struct {
	channelID string
	filter    MessageFilter
	ch        chan *Message
}

type reactionWaiter struct {
	ref    MessageRef
	filter ReactionFilter
	ch     chan *ReactionEvent
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		messageWaiters:  make(map[uint64]*messageWaiter),
		reactionWaiters: make(map[uint64]*reactionWaiter),
	}
}

// AwaitMessage blocks until a message on channelID passes filter or ctx
// is done. The ctx error is returned unchanged.
func (b *Broker) AwaitMessage(ctx context.Context, channelID string, filter MessageFilter) (*Message, error) {
	w := &messageWaiter{
		channelID: channelID,
		filter:    filter,
		ch:        make(chan *Message, 1),
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.messageWaiters[id] = w
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.messageWaiters, id)
		b.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case m := <-w.ch:
		return m, nil
	}
}

// AwaitReaction blocks until a reaction on ref passes filter or ctx is
// done. The filter runs for every reaction added to ref, accepted or
// not, so wrappers can observe rejected events.
func (b *Broker) AwaitReaction(ctx context.Context, ref MessageRef, filter ReactionFilter) (*ReactionEvent, error) {
	w := &reactionWaiter{
		ref:    ref,
		filter: filter,
		ch:     make(chan *ReactionEvent, 1),
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.reactionWaiters[id] = w
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.reactionWaiters, id)
		b.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev := <-w.ch:
		return ev, nil
	}
}

// OfferMessage hands an inbound message to the first accepting waiter
// and reports whether one consumed it. Filters run with the broker lock
// held and must not call back into the broker.
func (b *Broker) OfferMessage(m *Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, w := range b.messageWaiters {
		if w.channelID != m.ChannelID {
			continue
		}
		if w.filter != nil && !w.filter(m) {
			continue
		}
		delete(b.messageWaiters, id)
		w.ch <- m
		return true
	}
	return false
}

// OfferReaction hands a reaction event to the first accepting waiter on
// the same message and reports whether one consumed it.
func (b *Broker) OfferReaction(ev *ReactionEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, w := range b.reactionWaiters {
		if w.ref != ev.Message {
			continue
		}
		if w.filter != nil && !w.filter(ev) {
			continue
		}
		delete(b.reactionWaiters, id)
		w.ch <- ev
		return true
	}
	return false
}
