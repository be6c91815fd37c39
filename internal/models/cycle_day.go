package models

// CycleDay maps a calendar date to its rotating school-cycle day.
type CycleDay struct {
	Date     string `db:"date" json:"date"`
	CycleDay string `db:"cycle_day" json:"cycleDay"`
}
