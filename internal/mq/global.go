package mq

import "sync"

// Global is the singly linked list of mailboxes that currently hold
// undispatched messages, giving a worker O(1) dispatch: pop a mailbox,
// drain a batch, push it back if still non-empty (skynet_mq.c's
// skynet_globalmq_push/pop, spec.md §4.3).
type Global struct {
	mu   sync.Mutex
	head *Mailbox
	tail *Mailbox
}

// NewGlobal constructs an empty global queue.
func NewGlobal() *Global {
	return &Global{}
}

// Push appends m to the tail. It does not check for duplicates: a mailbox
// appears at most once because Mailbox.Push and MarkRelease link it only
// when flipping in_global from false to true, and the other callers
// (Mailbox.Activate, Mailbox.Release, the worker pool) re-link a mailbox
// that is not on the list.
func (g *Global) Push(m *Mailbox) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m.next = nil
	if g.tail != nil {
		g.tail.next = m
		g.tail = m
	} else {
		g.head = m
		g.tail = m
	}
}

// Pop removes and returns the head mailbox, or nil if the queue is empty.
func (g *Global) Pop() *Mailbox {
	g.mu.Lock()
	defer g.mu.Unlock()

	m := g.head
	if m == nil {
		return nil
	}
	g.head = m.next
	if g.head == nil {
		g.tail = nil
	}
	m.next = nil
	return m
}
