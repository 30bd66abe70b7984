package commands

import (
	"context"
	"fmt"
)

const helpCommandName = "help"

type helpCommand struct {
	prefix string
}

func NewHelpCommand(prefix string) Command {
	return &helpCommand{prefix: prefix}
}

func (c *helpCommand) CanHandle(command string) bool {
	return command == helpCommandName
}

func (c *helpCommand) Handle(_ context.Context, _ Request) string {
	return fmt.Sprintf(`I run the weekly game poll.

%[1]s help - show this message
%[1]s status - show the current poll and its votes
%[1]s pick <n> - organizer only, break a tie by choosing option n`, c.prefix)
}
