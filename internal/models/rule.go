package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RuleType enumerates the supported soft-scheduling rule categories.
type RuleType string

const (
	RuleTypeLunchWindow        RuleType = "lunch_window"
	RuleTypeMaxLecturesPerDay  RuleType = "max_lectures_per_day"
	RuleTypeGapPreference      RuleType = "gap_preference"
	RuleTypeForbiddenTimePairs RuleType = "forbidden_time_pairs"
)

const DefaultLunchWindowWeight = 20

// Rule is the persisted, storage-facing record. RuleData is stored as a
// raw JSON payload whose shape is determined by Type; it is parsed into a
// RuleData variant once, at snapshot load time, never re-parsed inside the
// model builder.
type Rule struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	Type       RuleType       `db:"rule_type" json:"rule_type"`
	RuleData   types.JSONText `db:"rule_data" json:"rule_data"`
	Department string         `db:"department" json:"department"`
	Owner      string         `db:"owner" json:"owner"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// LunchWindowData is the payload for a lunch_window rule.
type LunchWindowData struct {
	StartSlot int `json:"start_slot"`
	EndSlot   int `json:"end_slot"`
	Weight    int `json:"weight"`
}

// MaxLecturesPerDayData is the payload for a max_lectures_per_day rule.
type MaxLecturesPerDayData struct {
	Max int `json:"max"`
}

// GapPreferenceData is the payload for a gap_preference rule.
type GapPreferenceData struct {
	Weight int `json:"weight"`
}

// ForbiddenTimePair names an assignment/day/slot cell that must never be
// used, as part of a forbidden_time_pairs rule.
type ForbiddenTimePair struct {
	AssignmentID string `json:"assignment_id"`
	Day          int    `json:"day"`
	Slot         int    `json:"slot"`
}

// ForbiddenTimePairsData is the payload for a forbidden_time_pairs rule.
type ForbiddenTimePairsData struct {
	Pairs []ForbiddenTimePair `json:"pairs"`
}

// ParsedRule is the decoded, typed variant of a Rule. Exactly one of the
// Data fields is populated, matching Type.
type ParsedRule struct {
	ID         string
	Name       string
	Type       RuleType
	LunchWindow        *LunchWindowData
	MaxLecturesPerDay  *MaxLecturesPerDayData
	GapPreference      *GapPreferenceData
	ForbiddenTimePairs *ForbiddenTimePairsData
}

// ParseRule decodes a stored Rule's RuleData into its typed variant.
// Invalid payloads are a load-time error, never a runtime panic inside
// the model builder.
func ParseRule(r Rule) (ParsedRule, error) {
	parsed := ParsedRule{ID: r.ID, Name: r.Name, Type: r.Type}
	raw := []byte(r.RuleData)
	switch r.Type {
	case RuleTypeLunchWindow:
		var d LunchWindowData
		if err := json.Unmarshal(raw, &d); err != nil {
			return ParsedRule{}, fmt.Errorf("rule %s: parse lunch_window: %w", r.ID, err)
		}
		if d.Weight == 0 {
			d.Weight = DefaultLunchWindowWeight
		}
		if d.StartSlot > d.EndSlot {
			return ParsedRule{}, fmt.Errorf("rule %s: lunch_window start_slot %d > end_slot %d", r.ID, d.StartSlot, d.EndSlot)
		}
		parsed.LunchWindow = &d
	case RuleTypeMaxLecturesPerDay:
		var d MaxLecturesPerDayData
		if err := json.Unmarshal(raw, &d); err != nil {
			return ParsedRule{}, fmt.Errorf("rule %s: parse max_lectures_per_day: %w", r.ID, err)
		}
		parsed.MaxLecturesPerDay = &d
	case RuleTypeGapPreference:
		var d GapPreferenceData
		if err := json.Unmarshal(raw, &d); err != nil {
			return ParsedRule{}, fmt.Errorf("rule %s: parse gap_preference: %w", r.ID, err)
		}
		parsed.GapPreference = &d
	case RuleTypeForbiddenTimePairs:
		var d ForbiddenTimePairsData
		if err := json.Unmarshal(raw, &d); err != nil {
			return ParsedRule{}, fmt.Errorf("rule %s: parse forbidden_time_pairs: %w", r.ID, err)
		}
		parsed.ForbiddenTimePairs = &d
	default:
		return ParsedRule{}, fmt.Errorf("rule %s: unknown rule_type %q", r.ID, r.Type)
	}
	return parsed, nil
}

// RuleFilter captures filtering options for listing rules.
type RuleFilter struct {
	Department string
	Owner      string
	Type       string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
