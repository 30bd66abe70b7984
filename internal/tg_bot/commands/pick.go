package commands

import (
	"context"
	"errors"
	"strconv"

	"weekly_poll_bot/internal/services"
	tgbot "weekly_poll_bot/internal/tg_bot/extension"

	"go.uber.org/zap"
)

const pickCommandName = "pick"

type pickCommand struct {
	pollService services.PollService
	prefix      string
	logger      *zap.SugaredLogger
}

func NewPickCommand(pollService services.PollService, prefix string, logger *zap.SugaredLogger) Command {
	return &pickCommand{
		pollService: pollService,
		prefix:      prefix,
		logger:      logger,
	}
}

func (c *pickCommand) CanHandle(command string) bool {
	return command == pickCommandName
}

func (c *pickCommand) Handle(ctx context.Context, request Request) string {
	if len(request.Arguments) != 1 {
		return "Usage: " + c.prefix + " pick <n>"
	}

	number, err := strconv.Atoi(request.Arguments[0])
	if err != nil || number < 1 {
		return "Usage: " + c.prefix + " pick <n>"
	}

	// The announcement goes out through the outbox, so success needs no reply.
	_, err = c.pollService.ManualPick(ctx, request.Sender, number)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, services.ErrNotOwner):
		return "Only the organizer can pick the slot."
	case errors.Is(err, services.ErrNoTiePending):
		return "There is no tie to break right now."
	case errors.Is(err, services.ErrOptionNotTied):
		return "Option " + strconv.Itoa(number) + " is not one of the tied slots."
	case errors.Is(err, services.ErrInProgress):
		return services.InProgressText
	default:
		c.logger.Errorw("failed to pick option", "option", number, "error", err)
		return tgbot.DefaultErrorText
	}
}
