package models

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

type Vote struct {
	tableName struct{} `pg:"votes"`

	PollID              int64     `json:"poll_id" pg:",pk"`
	VoterJID            string    `json:"voter_jid" pg:"voter_jid,pk"`
	SelectedOptionsJSON string    `json:"-" pg:"selected_options,notnull"`
	UpdatedAt           time.Time `json:"updated_at" pg:",notnull"`

	SelectedOptions []int `json:"selected_options" pg:"-"`
}

func (v *Vote) Encode() error {
	encoded, err := EncodeIndices(v.SelectedOptions)
	if err != nil {
		return err
	}
	v.SelectedOptionsJSON = encoded
	return nil
}

func (v *Vote) Decode() error {
	indices, err := DecodeIndices(v.SelectedOptionsJSON)
	if err != nil {
		return &CorruptionError{
			Table: "votes",
			ID:    strconv.FormatInt(v.PollID, 10) + "/" + v.VoterJID,
			Field: "selected_options",
			Err:   err,
		}
	}
	v.SelectedOptions = indices
	return nil
}

func (v *Vote) AfterScan(context.Context) error {
	return v.Decode()
}

// NormalizeSelection deduplicates and sorts indices, dropping any outside
// [0, optionCount).
func NormalizeSelection(indices []int, optionCount int) []int {
	seen := make(map[int]bool, len(indices))
	normalized := make([]int, 0, len(indices))

	for _, index := range indices {
		if index < 0 || index >= optionCount || seen[index] {
			continue
		}
		seen[index] = true
		normalized = append(normalized, index)
	}

	sort.Ints(normalized)
	return normalized
}

// EncodeIndices writes a sorted, duplicate-free list of non-negative indices.
func EncodeIndices(indices []int) (string, error) {
	if err := checkIndices(indices); err != nil {
		return "", err
	}
	if indices == nil {
		indices = []int{}
	}
	encoded, err := json.Marshal(indices)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func DecodeIndices(raw string) ([]int, error) {
	var indices []int
	if err := json.Unmarshal([]byte(raw), &indices); err != nil {
		return nil, err
	}
	if indices == nil {
		return nil, fmt.Errorf("expected JSON array, got %q", raw)
	}
	if err := checkIndices(indices); err != nil {
		return nil, err
	}
	return indices, nil
}

func checkIndices(indices []int) error {
	for i, index := range indices {
		if index < 0 {
			return fmt.Errorf("negative option index %d", index)
		}
		if i > 0 && indices[i-1] >= index {
			return fmt.Errorf("option indices not strictly ascending: %v", indices)
		}
	}
	return nil
}
