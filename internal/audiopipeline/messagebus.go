package audiopipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// MessageType identifies the kind of event carried on the MessageBus,
// grounded on the original messagebus.h's MessageType enum.
type MessageType int

const (
	MessageError MessageType = iota
	MessageWarning
	MessageTrace
	MessageDuration
	MessageProgress
	MessageEndOfStream
	MessageClockLost
)

// Message is the common envelope for every message posted to the bus.
// Concrete payloads are carried in the typed fields below; only the
// field matching Type is meaningful.
type Message struct {
	Type   MessageType
	Stage  string
	Time   time.Time

	Err      error         // MessageError, MessageWarning
	Text     string        // MessageTrace
	Duration time.Duration // MessageDuration
	Progress float64       // MessageProgress (0..1)
}

// Handler processes one message of the type it was subscribed for.
type Handler func(Message)

type msgNode struct {
	msg  Message
	next *msgNode
}

// MessageBus is a multi-producer single-consumer bus: Publish is
// wait-free (a CAS-looped insert at the head of a singly linked list);
// a dispatch goroutine drains the list each time Publish signals it, reverses it to
// restore publish order, and invokes each message's registered
// handlers. Grounded on the original messagebus.h/PIMPL design, with
// the lock-free stack expressed via atomic.Pointer instead of a raw
// CAS-on-uintptr loop.
type MessageBus struct {
	head atomic.Pointer[msgNode]

	mu       sync.Mutex
	handlers map[MessageType][]Handler

	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	shutdownOnce sync.Once
}

// NewMessageBus constructs a bus and starts its dispatch goroutine.
func NewMessageBus() *MessageBus {
	b := &MessageBus{
		handlers: make(map[MessageType][]Handler),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	b.wg.Add(1)
	go b.dispatchLoop()
	return b
}

// Subscribe registers handler to run for every future message of type t.
// Safe to call concurrently with Publish and from inside a handler: the
// dispatch loop holds the mutex only while copying a message type's
// handler list, never while a handler runs.
func (b *MessageBus) Subscribe(t MessageType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], handler)
}

// Publish inserts msg at the head of the pending list via CAS retry and
// wakes the dispatch goroutine. Never blocks.
func (b *MessageBus) Publish(msg Message) {
	if msg.Time.IsZero() {
		msg.Time = time.Now()
	}
	node := &msgNode{msg: msg}
	for {
		old := b.head.Load()
		node.next = old
		if b.head.CompareAndSwap(old, node) {
			break
		}
	}
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// drain atomically takes the entire pending list and reverses it so
// messages are delivered in publish order (the CAS-stack naturally
// yields last-published-first).
func (b *MessageBus) drain() []Message {
	head := b.head.Swap(nil)
	if head == nil {
		return nil
	}
	var reversed []*msgNode
	for n := head; n != nil; n = n.next {
		reversed = append(reversed, n)
	}
	out := make([]Message, len(reversed))
	for i, n := range reversed {
		out[len(reversed)-1-i] = n.msg
	}
	return out
}

func (b *MessageBus) dispatchLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.notify:
			b.dispatchPending()
		case <-b.done:
			b.dispatchPending() // final drain
			return
		}
	}
}

func (b *MessageBus) dispatchPending() {
	for _, msg := range b.drain() {
		b.mu.Lock()
		handlers := append([]Handler(nil), b.handlers[msg.Type]...)
		b.mu.Unlock()
		for _, h := range handlers {
			h(msg)
		}
	}
}

// Shutdown stops the dispatch goroutine after draining everything
// currently pending. Calls after the first have no further effect.
func (b *MessageBus) Shutdown() {
	b.shutdownOnce.Do(func() { close(b.done) })
	b.wg.Wait()
}

// PostError, PostWarning, PostTrace, PostDuration, PostProgress,
// PostEndOfStream and PostClockLost are the typed convenience posting
// functions the original's overloaded post(const XxxMessage&) provided.
func (b *MessageBus) PostError(stage string, err error) {
	b.Publish(Message{Type: MessageError, Stage: stage, Err: err})
}

func (b *MessageBus) PostWarning(stage string, err error) {
	b.Publish(Message{Type: MessageWarning, Stage: stage, Err: err})
}

func (b *MessageBus) PostTrace(stage, text string) {
	b.Publish(Message{Type: MessageTrace, Stage: stage, Text: text})
}

func (b *MessageBus) PostDuration(stage string, d time.Duration) {
	b.Publish(Message{Type: MessageDuration, Stage: stage, Duration: d})
}

func (b *MessageBus) PostProgress(stage string, progress float64) {
	b.Publish(Message{Type: MessageProgress, Stage: stage, Progress: progress})
}

func (b *MessageBus) PostEndOfStream(stage string) {
	b.Publish(Message{Type: MessageEndOfStream, Stage: stage})
}

func (b *MessageBus) PostClockLost(stage string) {
	b.Publish(Message{Type: MessageClockLost, Stage: stage})
}
