package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"weekly_poll_bot/internal/db/models"
	"weekly_poll_bot/internal/services"
	tgbot "weekly_poll_bot/internal/tg_bot/extension"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const statusCommandName = "status"

type statusCommand struct {
	pollService services.PollService
	logger      *zap.SugaredLogger
}

func NewStatusCommand(pollService services.PollService, logger *zap.SugaredLogger) Command {
	return &statusCommand{
		pollService: pollService,
		logger:      logger,
	}
}

func (c *statusCommand) CanHandle(command string) bool {
	return command == statusCommandName
}

func (c *statusCommand) Handle(ctx context.Context, _ Request) string {
	report, err := c.pollService.Status(ctx)
	if errors.Is(err, services.ErrNoActivePoll) {
		return "There is no open poll right now."
	}
	if err != nil {
		c.logger.Errorw("failed to load poll status", "error", err)
		return tgbot.DefaultErrorText
	}

	return FormatStatus(report)
}

func FormatStatus(report services.StatusReport) string {
	poll := report.Poll

	var b strings.Builder
	fmt.Fprintf(&b, "Poll %s: %s\n", poll.WeekKey, poll.Status.CapitalizedString())
	fmt.Fprintf(&b, "Voters: %d of %d needed\n", report.Tally.Voters, report.RequiredVoters)

	switch poll.Status {
	case models.PollStatusOpen:
		fmt.Fprintf(&b, "Closes %s\n", humanize.RelTime(poll.ClosesAt, report.Now, "ago", "from now"))
	case models.PollStatusTiePending:
		if poll.TieDeadlineAt != nil {
			fmt.Fprintf(&b, "Tie window ends %s\n", humanize.RelTime(*poll.TieDeadlineAt, report.Now, "ago", "from now"))
		}
	}

	tied := make(map[int]bool, len(poll.TieOptionIndices))
	for _, idx := range poll.TieOptionIndices {
		tied[idx] = true
	}

	for idx, option := range poll.Options {
		count := 0
		if idx < len(report.Tally.Counts) {
			count = report.Tally.Counts[idx]
		}
		marker := ""
		if tied[idx] {
			marker = " (tied)"
		}
		fmt.Fprintf(&b, "%d) %s: %d%s\n", idx+1, option.Label, count, marker)
	}

	return strings.TrimRight(b.String(), "\n")
}
