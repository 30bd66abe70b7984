package commands

import (
	"context"

	"weekly_poll_bot/internal/services"
)

type Request struct {
	Sender    services.Sender
	Arguments []string
}

// Command answers one chat sub-command. An empty reply sends nothing.
type Command interface {
	CanHandle(command string) bool
	Handle(ctx context.Context, request Request) string
}
