package dto

// HoursQuery filters GET /tutors/:uid/hours.
type HoursQuery struct {
	From   string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Format string `form:"format" validate:"omitempty,oneof=json csv pdf"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=1000"`
}
