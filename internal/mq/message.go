// Package mq implements the two-level message queue: a per-service mailbox
// ring buffer plus the global queue of mailboxes that currently hold work.
package mq

import (
	"fmt"

	"github.com/villager-coder/skynet-go/internal/handle"
)

// Kind tags the purpose of a message's payload, packed into the high byte
// of the source skynet_message's size-and-type word. Here it is simply a
// struct field; the packing is kept only as a documented equivalence.
type Kind uint8

const (
	KindText Kind = iota + 1
	KindResponse
	KindError
	KindSystem
	KindSocket
	KindHarbor
	KindAdmin
	// KindNoCopy transfers ownership of the payload buffer directly instead
	// of the dispatcher copying it; in Go this has no observable difference
	// since payload is always a []byte reference, but the kind is kept so
	// that a service's handler can tell a "forwarded buffer" apart from one
	// it must treat as immutable.
	KindNoCopy
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindResponse:
		return "response"
	case KindError:
		return "error"
	case KindSystem:
		return "system"
	case KindSocket:
		return "socket"
	case KindHarbor:
		return "harbor"
	case KindAdmin:
		return "admin"
	case KindNoCopy:
		return "nocopy"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Message is one entry in a mailbox. Source and Session identify the
// sender and the request/reply correlation, matching spec.md §3 exactly;
// Payload replaces the source's raw pointer+length pair since a Go slice
// already carries its own length.
type Message struct {
	Source  handle.Handle
	Session uint32
	Kind    Kind
	Payload []byte
}

// Size returns the payload length, mirroring the low bits of the source's
// packed size-and-type word.
func (m Message) Size() int {
	return len(m.Payload)
}
