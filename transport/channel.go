// Package transport defines the GroupChannel collaborator the Greeter and
// session layer are driven through, plus the generic Observable/Monitor
// pub-sub utilities it is delivered over (spec.md §5, §6).
//
// Grounded on the teacher's pkg/agent/transport.MessageTransport interface,
// generalized from one-shot request/response send to a persistent,
// many-member broadcast channel: instead of a single Send returning a
// Response, a GroupChannel exposes CurMembers, an action-based Send (raw
// unicast/broadcast or a membership-change request), and an OnRecv
// subscription delivering raw receives and channel-control events.
package transport

import "fmt"

// ActionKind identifies the kind of request a Send carries.
type ActionKind int

const (
	// ActionSend unicasts Payload to To, or broadcasts it to every other
	// member when To is empty.
	ActionSend ActionKind = iota
	// ActionJoin requests that Members be admitted to the channel.
	ActionJoin
	// ActionLeave requests that Members be removed from the channel.
	ActionLeave
)

// Action is one request a local participant makes of its GroupChannel.
type Action struct {
	Kind    ActionKind
	To      string
	Payload []byte
	Members []string
}

// EventKind identifies the kind of notification a GroupChannel delivers.
type EventKind int

const (
	// EventReceive carries a raw payload sent by another member.
	EventReceive EventKind = iota
	// EventEnter reports that Self (when Self is true) or another member
	// identified by From has joined, with Members holding the resulting
	// membership set.
	EventEnter
	// EventLeave reports that Self or another member has left, with
	// Members holding the resulting membership set.
	EventLeave
)

// Event is one notification delivered to a GroupChannel subscriber.
type Event struct {
	Kind    EventKind
	From    string
	Payload []byte
	Self    bool
	Members map[string]struct{}
}

// GroupChannel is the external transport the core is driven through
// (spec.md §6). Implementations MUST deliver events to a given OnRecv
// subscriber in the order they occurred, and MUST ensure that the first
// event following a Self EventEnter is an EventReceive, and that an
// EventEnter{Self: true} always follows an EventLeave{Self: true} if the
// member ever observes further traffic on the channel.
type GroupChannel interface {
	// CurMembers returns the channel's current membership set, or
	// (nil, false) if the local participant is not currently a member.
	CurMembers() (map[string]struct{}, bool)

	// Send issues one action against the channel.
	Send(action Action) error

	// OnRecv registers a subscriber for every Event this channel delivers
	// to the local participant, returning a Subscription that cancels it.
	OnRecv(subscriber func(Event)) *Subscription
}

// ErrUnknownMember is returned by a GroupChannel.Send targeting a member
// that is not (or no longer) part of the channel.
func ErrUnknownMember(id string) error {
	return fmt.Errorf("transport: unknown member %q", id)
}
