package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"weekly_poll_bot/internal/db/models"
	"weekly_poll_bot/internal/events"
	"weekly_poll_bot/internal/services"
)

var ErrSendFailed = errors.New("scripted send failure")

type SentText struct {
	GroupID string
	Text    string
}

type SentPollMessage struct {
	GroupID  string
	Question string
	Options  []string
	Result   services.SentPoll
}

// Transport records every send. Failures are scripted by queueing errors;
// each queued error fails exactly one text send.
type Transport struct {
	mu        sync.Mutex
	polls     []SentPollMessage
	texts     []SentText
	textErrs  []error
	pollErr   error
	nextPoll  int
	block     chan struct{}
	pollBlock chan struct{}
	blocked   int
	remote    map[string][]events.VoteUpdate
	canFetch  bool
	anonymous map[string]string
}

func NewTransport() *Transport {
	return &Transport{
		remote:    make(map[string][]events.VoteUpdate),
		anonymous: make(map[string]string),
	}
}

func (t *Transport) SendPollMessage(ctx context.Context, groupID, question string, options []string) (services.SentPoll, error) {
	t.mu.Lock()
	block := t.pollBlock
	t.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return services.SentPoll{}, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pollErr != nil {
		return services.SentPoll{}, t.pollErr
	}

	t.nextPoll++
	result := services.SentPoll{MessageID: fmt.Sprintf("poll-%d", t.nextPoll)}
	for i := range options {
		result.OptionIDs = append(result.OptionIDs, fmt.Sprintf("%d", i))
	}

	t.polls = append(t.polls, SentPollMessage{
		GroupID:  groupID,
		Question: question,
		Options:  append([]string(nil), options...),
		Result:   result,
	})
	return result, nil
}

func (t *Transport) SendTextMessage(ctx context.Context, groupID, text string) error {
	t.mu.Lock()
	block := t.block
	t.mu.Unlock()

	if block != nil {
		t.mu.Lock()
		t.blocked++
		t.mu.Unlock()

		var err error
		select {
		case <-block:
		case <-ctx.Done():
			err = ctx.Err()
		}

		t.mu.Lock()
		t.blocked--
		t.mu.Unlock()
		if err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.textErrs) > 0 {
		err := t.textErrs[0]
		t.textErrs = t.textErrs[1:]
		return err
	}
	t.texts = append(t.texts, SentText{GroupID: groupID, Text: text})
	return nil
}

func (t *Transport) FailNextTexts(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < n; i++ {
		t.textErrs = append(t.textErrs, ErrSendFailed)
	}
}

func (t *Transport) FailPolls(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pollErr = err
}

// BlockTexts makes text sends hang until the returned function is called.
func (t *Transport) BlockTexts() func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	block := make(chan struct{})
	t.block = block
	return func() {
		t.mu.Lock()
		t.block = nil
		t.mu.Unlock()
		close(block)
	}
}

// BlockPolls makes poll sends hang until the returned function is called.
func (t *Transport) BlockPolls() func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	block := make(chan struct{})
	t.pollBlock = block
	return func() {
		t.mu.Lock()
		t.pollBlock = nil
		t.mu.Unlock()
		close(block)
	}
}

// BlockedTexts returns the number of text sends waiting on BlockTexts.
func (t *Transport) BlockedTexts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.blocked
}

func (t *Transport) Polls() []SentPollMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SentPollMessage(nil), t.polls...)
}

func (t *Transport) Texts() []SentText {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SentText(nil), t.texts...)
}

// SetRemoteVotes enables FetchVotes and sets the votes the platform reports
// for a poll message.
func (t *Transport) SetRemoteVotes(pollMessageID string, votes ...events.VoteUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.canFetch = true
	t.remote[pollMessageID] = votes
}

func (t *Transport) FetchVotes(ctx context.Context, poll *models.Poll) ([]events.VoteUpdate, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.canFetch {
		return nil, services.ErrUnsupported
	}
	return append([]events.VoteUpdate(nil), t.remote[poll.PollMessageID]...), nil
}

func (t *Transport) MapAnonymized(anonymizedID, identity string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.anonymous[anonymizedID] = identity
}

func (t *Transport) ResolveAnonymized(ctx context.Context, anonymizedID string) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	identity, ok := t.anonymous[anonymizedID]
	return identity, ok, nil
}
