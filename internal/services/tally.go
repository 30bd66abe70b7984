package services

import "weekly_poll_bot/internal/db/models"

type Tally struct {
	Counts []int
	// Voters counts distinct voters with a non-empty selection.
	Voters int
}

func ComputeTally(optionCount int, votes []*models.Vote) Tally {
	tally := Tally{Counts: make([]int, optionCount)}

	for _, vote := range votes {
		counted := false
		for _, idx := range vote.SelectedOptions {
			if idx < 0 || idx >= optionCount {
				continue
			}
			tally.Counts[idx]++
			counted = true
		}
		if counted {
			tally.Voters++
		}
	}

	return tally
}

// Leaders returns every option index sharing the highest count, ascending.
// A tally without votes has no leaders.
func (t Tally) Leaders() ([]int, int) {
	best := 0
	for _, count := range t.Counts {
		if count > best {
			best = count
		}
	}
	if best == 0 {
		return nil, 0
	}

	leaders := make([]int, 0, 1)
	for idx, count := range t.Counts {
		if count == best {
			leaders = append(leaders, idx)
		}
	}
	return leaders, best
}
