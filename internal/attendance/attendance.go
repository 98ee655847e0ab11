package attendance

import "context"

// Status of one attendance record. Late counts as non-present in every
// derived statistic.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
	StatusLate    Status = "Late"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}

// Record is one (name, status, timestamp) tuple on a sheet. Name is a
// free-text label, not a foreign key into the roster.
type Record struct {
	Name      string `json:"name" bson:"name"`
	Status    Status `json:"status" bson:"status"`
	Timestamp string `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

// Sheet holds the full record set captured for one calendar date. The date
// is the unique key; saving a date again replaces its records entirely.
type Sheet struct {
	Date    string   `json:"date" bson:"_id"`
	Records []Record `json:"records" bson:"records"`
}

// Store is the persistence collaborator for attendance sheets.
type Store interface {
	// UpsertSheet creates or fully replaces the sheet for sheet.Date.
	// Concurrent upserts for the same date are last-writer-wins.
	UpsertSheet(ctx context.Context, sheet Sheet) error
	// GetSheet returns the sheet for date, or nil when none exists.
	GetSheet(ctx context.Context, date string) (*Sheet, error)
	// ListDates returns all distinct sheet dates, sorted descending.
	ListDates(ctx context.Context) ([]string, error)
	// ListSheets returns every stored sheet, in no particular order.
	ListSheets(ctx context.Context) ([]Sheet, error)
}

// Summary is the derived per-date attendance breakdown.
type Summary struct {
	Date           string `json:"date"`
	TotalStudents  int    `json:"totalStudents"`
	Present        int    `json:"present"`
	Absent         int    `json:"absent"`
	AttendanceRate int    `json:"attendanceRate"`
}

// Match is one search hit: a record plus the date of its sheet.
type Match struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Overview aggregates across all sheets. TotalRecords and TotalClasses both
// count sheets; TotalStudents and TotalPresent sum record counts.
type Overview struct {
	TotalRecords      int `json:"totalRecords"`
	AverageAttendance int `json:"averageAttendance"`
	TotalClasses      int `json:"totalClasses"`
	TotalStudents     int `json:"totalStudents"`
	TotalPresent      int `json:"totalPresent"`
}
