package services

import (
	"fmt"
	"strings"
	"time"

	"weekly_poll_bot/internal/db/models"
)

const (
	NoVotesText    = "Poll closed. No votes were recorded this week."
	InProgressText = "Another operation is in progress, retry shortly."
)

func pluralVotes(count int) string {
	if count == 1 {
		return "1 vote"
	}
	return fmt.Sprintf("%d votes", count)
}

func announcementText(poll *models.Poll, winner *int, count int, reason models.CloseReason) string {
	if winner == nil || *winner < 0 || *winner >= len(poll.Options) {
		return NoVotesText
	}

	text := fmt.Sprintf("Weekly game slot selected: %s (%s).", poll.Options[*winner].Label, pluralVotes(count))
	switch reason {
	case models.CloseReasonTieTimeout:
		text += " The tie was broken automatically in favour of the earliest slot."
	case models.CloseReasonManualOverride:
		text += " The tie was broken by the organizer."
	}
	return text
}

func tieNoticeText(poll *models.Poll, tied []int, count int, prefix string, window time.Duration) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Tie detected with %s each:\n", pluralVotes(count))
	for _, idx := range tied {
		fmt.Fprintf(&b, "%d) %s\n", idx+1, poll.Options[idx].Label)
	}
	fmt.Fprintf(&b, "The organizer can use `%s pick <n>` within %s. Otherwise the earliest slot wins.",
		prefix, formatWindow(window))

	return b.String()
}

func formatWindow(window time.Duration) string {
	hours := int(window / time.Hour)
	if hours == 1 {
		return "1 hour"
	}
	if hours > 1 && window%time.Hour == 0 {
		return fmt.Sprintf("%d hours", hours)
	}
	return window.String()
}
