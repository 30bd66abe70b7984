package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	PollStatus  string
	CloseReason string
)

const (
	PollStatusOpen       PollStatus = "OPEN"
	PollStatusTiePending PollStatus = "TIE_PENDING"
	PollStatusAnnounced  PollStatus = "ANNOUNCED"

	CloseReasonQuorum         CloseReason = "quorum"
	CloseReasonDeadline       CloseReason = "deadline"
	CloseReasonTieTimeout     CloseReason = "tie-timeout"
	CloseReasonManualOverride CloseReason = "manual-override"
)

func (s PollStatus) String() string {
	return string(s)
}

func (s PollStatus) CapitalizedString() string {
	words := strings.ToLower(strings.ReplaceAll(s.String(), "_", " "))
	return cases.Title(language.English).String(words)
}

// IsActive reports whether the status still has a pending resolution.
func (s PollStatus) IsActive() bool {
	return s == PollStatusOpen || s == PollStatusTiePending
}

func (r CloseReason) String() string {
	return string(r)
}

// PollOption is one slot of a poll. LocalID is the identifier the chat
// platform assigned to the option when the poll was sent; incoming
// selections are matched against it.
type PollOption struct {
	Label   string `json:"label"`
	Weekday int    `json:"weekday"`
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
	LocalID string `json:"local_id"`
}

type Poll struct {
	tableName struct{} `pg:"polls"`

	ID            int64      `json:"id" pg:",pk"`
	GroupID       string     `json:"group_id" pg:",notnull"`
	WeekKey       string     `json:"week_key" pg:",notnull"`
	PollMessageID string     `json:"poll_message_id" pg:",notnull"`
	Question      string     `json:"question" pg:",notnull"`
	Status        PollStatus `json:"status" pg:",notnull"`

	CreatedAt     time.Time  `json:"created_at" pg:",notnull"`
	ClosesAt      time.Time  `json:"closes_at" pg:",notnull"`
	ClosedAt      *time.Time `json:"closed_at"`
	TieDeadlineAt *time.Time `json:"tie_deadline_at"`
	AnnouncedAt   *time.Time `json:"announced_at"`

	CloseReason      *CloseReason `json:"close_reason"`
	WinningOptionIdx *int         `json:"winning_option_idx"`
	WinnerVoteCount  *int         `json:"winner_vote_count"`

	OptionsJSON          string  `json:"-" pg:"options,notnull"`
	TieOptionIndicesJSON *string `json:"-" pg:"tie_option_indices"`

	Options          []PollOption `json:"options" pg:"-"`
	TieOptionIndices []int        `json:"tie_option_indices" pg:"-"`
}

// Encode serializes Options and TieOptionIndices into their columns.
func (p *Poll) Encode() error {
	options, err := json.Marshal(p.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	p.OptionsJSON = string(options)

	p.TieOptionIndicesJSON = nil
	if p.TieOptionIndices != nil {
		encoded, err := EncodeIndices(p.TieOptionIndices)
		if err != nil {
			return err
		}
		p.TieOptionIndicesJSON = &encoded
	}

	return nil
}

// Decode parses the JSON columns. Malformed values are reported as
// CorruptionError.
func (p *Poll) Decode() error {
	var options []PollOption
	if err := json.Unmarshal([]byte(p.OptionsJSON), &options); err != nil {
		return p.corruption("options", err)
	}
	p.Options = options

	p.TieOptionIndices = nil
	if p.TieOptionIndicesJSON != nil {
		indices, err := DecodeIndices(*p.TieOptionIndicesJSON)
		if err != nil {
			return p.corruption("tie_option_indices", err)
		}
		p.TieOptionIndices = indices
	}

	return nil
}

func (p *Poll) AfterScan(context.Context) error {
	return p.Decode()
}

func (p *Poll) corruption(field string, err error) error {
	return &CorruptionError{Table: "polls", ID: strconv.FormatInt(p.ID, 10), Field: field, Err: err}
}

// OptionIndexByLocalID maps a platform option identifier back to the option
// index.
func (p *Poll) OptionIndexByLocalID(localID string) (int, bool) {
	for i, option := range p.Options {
		if option.LocalID == localID {
			return i, true
		}
	}
	return 0, false
}
