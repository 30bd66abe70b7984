package services

import (
	"context"
	"fmt"
	"time"

	"weekly_poll_bot/internal/db/models"
	"weekly_poll_bot/internal/events"
)

// SentPoll describes a poll message as the platform stored it. OptionIDs
// holds the platform's own option identifiers in option order.
type SentPoll struct {
	MessageID string
	OptionIDs []string
}

type ChatTransport interface {
	SendPollMessage(ctx context.Context, groupID, question string, options []string) (SentPoll, error)
	SendTextMessage(ctx context.Context, groupID, text string) error
}

// IdentityLookup maps an anonymized voter reference to the identity used in
// the allowlist. ok is false when the platform knows no such mapping.
type IdentityLookup interface {
	ResolveAnonymized(ctx context.Context, anonymizedID string) (identity string, ok bool, err error)
}

// VoteFetcher returns the platform's current votes for a poll. Transports
// that cannot do this return ErrUnsupported.
type VoteFetcher interface {
	FetchVotes(ctx context.Context, poll *models.Poll) ([]events.VoteUpdate, error)
}

// callWithTimeout never blocks longer than timeout, even if fn ignores its
// context. A late result is discarded.
func callWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("send timed out after %s: %w", timeout, ctx.Err())
	}
}
