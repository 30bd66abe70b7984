// Package events holds the inbound events the chat adapter and the weekly
// scheduler hand to the dispatcher.
package events

import "time"

type Event interface {
	event()
}

// VoteUpdate carries the full current selection of one voter on one poll
// message. An empty Selections slice is a retraction.
type VoteUpdate struct {
	PollMessageID string
	VoterRef      string
	Selections    []string
}

type MessageCreate struct {
	ChatID    string
	Body      string
	From      string
	SenderRef string
}

type Ready struct{}

type Disconnected struct {
	Err error
}

type WeeklyTrigger struct {
	At time.Time
}

func (VoteUpdate) event()    {}
func (MessageCreate) event() {}
func (Ready) event()         {}
func (Disconnected) event()  {}
func (WeeklyTrigger) event() {}
