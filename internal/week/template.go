package week

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTemplate is the 11-slot weekly pattern: weekday evenings and
// weekend morning, afternoon and evening.
func DefaultTemplate() []Slot {
	return []Slot{
		{Weekday: 1, Hour: 19},
		{Weekday: 2, Hour: 19},
		{Weekday: 3, Hour: 19},
		{Weekday: 4, Hour: 19},
		{Weekday: 5, Hour: 19},
		{Weekday: 6, Hour: 10},
		{Weekday: 6, Hour: 14},
		{Weekday: 6, Hour: 19},
		{Weekday: 7, Hour: 10},
		{Weekday: 7, Hour: 14},
		{Weekday: 7, Hour: 19},
	}
}

// ParseTemplate reads a comma separated list of "D@HH:MM" entries. An empty
// string yields the default template. Any invalid entry rejects the whole
// template.
func ParseTemplate(raw string) ([]Slot, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTemplate(), nil
	}

	var slots []Slot
	for _, entry := range strings.Split(raw, ",") {
		slot, err := parseSlot(strings.TrimSpace(entry))
		if err != nil {
			return nil, fmt.Errorf("invalid slot %q: %w", entry, err)
		}
		slots = append(slots, slot)
	}

	if err := ValidateTemplate(slots); err != nil {
		return nil, err
	}

	return slots, nil
}

func parseSlot(entry string) (Slot, error) {
	day, clock, ok := strings.Cut(entry, "@")
	if !ok {
		return Slot{}, fmt.Errorf("expected D@HH:MM")
	}
	hour, minute, ok := strings.Cut(clock, ":")
	if !ok {
		return Slot{}, fmt.Errorf("expected HH:MM after @")
	}

	weekday, err := strconv.Atoi(day)
	if err != nil {
		return Slot{}, fmt.Errorf("weekday: %w", err)
	}
	h, err := strconv.Atoi(hour)
	if err != nil {
		return Slot{}, fmt.Errorf("hour: %w", err)
	}
	m, err := strconv.Atoi(minute)
	if err != nil {
		return Slot{}, fmt.Errorf("minute: %w", err)
	}

	return Slot{Weekday: weekday, Hour: h, Minute: m}, nil
}

// ValidateTemplate checks every slot; the first failure is returned.
func ValidateTemplate(slots []Slot) error {
	if len(slots) == 0 {
		return fmt.Errorf("template has no slots")
	}

	for i, slot := range slots {
		switch {
		case slot.Weekday < 1 || slot.Weekday > 7:
			return fmt.Errorf("slot %d: weekday %d outside 1-7", i, slot.Weekday)
		case slot.Hour < 0 || slot.Hour > 23:
			return fmt.Errorf("slot %d: hour %d outside 0-23", i, slot.Hour)
		case slot.Minute < 0 || slot.Minute > 59:
			return fmt.Errorf("slot %d: minute %d outside 0-59", i, slot.Minute)
		}
	}

	return nil
}
