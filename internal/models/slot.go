package models

import (
	"strings"
	"time"

	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
)

// SlotDateLayout is the canonical calendar date layout of Slot.Date.
const SlotDateLayout = "2006-01-02"

// Slot identifies a schedulable period: a calendar date, the school cycle day it falls on, and a block.
type Slot struct {
	Date     string `json:"date,omitempty"`
	CycleDay string `json:"cycleDay,omitempty"`
	Block    string `json:"block,omitempty"`
}

// Key renders the availability lookup key "cycleDay_block". It returns "" when either part is missing.
func (s Slot) Key() string {
	day := strings.TrimSpace(s.CycleDay)
	block := strings.TrimSpace(s.Block)
	if day == "" || block == "" {
		return ""
	}
	return AvailabilityKey(day, block)
}

// AvailabilityKey joins a cycle day and block the way user availability maps are keyed.
func AvailabilityKey(cycleDay, block string) string {
	return cycleDay + "_" + block
}

// ParseSlotDate reads a calendar date, accepting a full RFC 3339 timestamp by keeping its date part.
func ParseSlotDate(raw string) (time.Time, error) {
	if t, err := time.Parse(SlotDateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrParse.Code, appErrors.ErrParse.Status, "invalid slot date")
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
