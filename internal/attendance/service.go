package attendance

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"rollbook/internal/apperr"
)

const dateLayout = "2006-01-02"

// Service applies sheet semantics and derives summaries, search results and
// the overview from whatever the Store returns. Every call re-reads the
// store; there is no in-process cache.
type Service struct {
	store  Store
	strict bool
	now    func() time.Time
}

// NewService creates an attendance service backed by store. Strict mode
// restricts record statuses to the three-value enum.
func NewService(store Store, strict bool) *Service {
	return &Service{store: store, strict: strict, now: time.Now}
}

// Upsert validates and saves the record set for date, fully replacing any
// existing sheet for that date. Missing record timestamps default to the
// save time. Returns the stored record count.
func (s *Service) Upsert(ctx context.Context, date string, records []Record) (int, error) {
	if date == "" {
		return 0, apperr.Validationf("date is required")
	}
	for _, rec := range records {
		if rec.Name == "" || rec.Status == "" {
			return 0, apperr.Validationf("every record needs a name and a status")
		}
		if s.strict && !rec.Status.Valid() {
			return 0, apperr.Validationf("invalid status %q: must be %s, %s or %s",
				rec.Status, StatusPresent, StatusAbsent, StatusLate)
		}
	}
	stamp := s.now().UTC().Format(time.RFC3339)
	stored := make([]Record, len(records))
	for i, rec := range records {
		if rec.Timestamp == "" {
			rec.Timestamp = stamp
		}
		stored[i] = rec
	}
	if err := s.store.UpsertSheet(ctx, Sheet{Date: date, Records: stored}); err != nil {
		return 0, err
	}
	return len(stored), nil
}

// Dates returns all known sheet dates, newest first.
func (s *Service) Dates(ctx context.Context) ([]string, error) {
	dates, err := s.store.ListDates(ctx)
	if err != nil {
		return nil, err
	}
	if dates == nil {
		dates = []string{}
	}
	return dates, nil
}

// Sheet returns the sheet for date.
func (s *Service) Sheet(ctx context.Context, date string) (*Sheet, error) {
	sheet, err := s.store.GetSheet(ctx, date)
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, apperr.NotFoundf("no attendance sheet for %s", date)
	}
	if sheet.Records == nil {
		sheet.Records = []Record{}
	}
	return sheet, nil
}

// Summaries returns one derived breakdown per sheet, newest date first.
func (s *Service) Summaries(ctx context.Context) ([]Summary, error) {
	sheets, err := s.sortedSheets(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(sheets))
	for _, sheet := range sheets {
		total, present := countPresent(sheet.Records)
		summaries = append(summaries, Summary{
			Date:           sheet.Date,
			TotalStudents:  total,
			Present:        present,
			Absent:         total - present,
			AttendanceRate: rate(present, total),
		})
	}
	return summaries, nil
}

// Search returns every record whose name contains query
// (case-insensitive), across all sheets, newest date first.
func (s *Service) Search(ctx context.Context, query string) ([]Match, error) {
	sheets, err := s.sortedSheets(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	matches := []Match{}
	for _, sheet := range sheets {
		for _, rec := range sheet.Records {
			if strings.Contains(strings.ToLower(rec.Name), needle) {
				matches = append(matches, Match{
					Date:      sheet.Date,
					Name:      rec.Name,
					Status:    rec.Status,
					Timestamp: rec.Timestamp,
				})
			}
		}
	}
	return matches, nil
}

// Overview aggregates presence across every sheet.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	sheets, err := s.store.ListSheets(ctx)
	if err != nil {
		return Overview{}, err
	}
	var totalStudents, totalPresent int
	for _, sheet := range sheets {
		total, present := countPresent(sheet.Records)
		totalStudents += total
		totalPresent += present
	}
	return Overview{
		TotalRecords:      len(sheets),
		TotalClasses:      len(sheets),
		AverageAttendance: rate(totalPresent, totalStudents),
		TotalStudents:     totalStudents,
		TotalPresent:      totalPresent,
	}, nil
}

func (s *Service) sortedSheets(ctx context.Context) ([]Sheet, error) {
	sheets, err := s.store.ListSheets(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(sheets, func(i, j int) bool {
		return dateAfter(sheets[i].Date, sheets[j].Date)
	})
	return sheets, nil
}

func countPresent(records []Record) (total, present int) {
	total = len(records)
	for _, rec := range records {
		if rec.Status == StatusPresent {
			present++
		}
	}
	return total, present
}

// rate is round(present/total*100), 0 when total is 0.
func rate(present, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// dateAfter orders dates chronologically so month and day boundaries sort
// correctly; unparseable dates fall back to string comparison.
func dateAfter(a, b string) bool {
	ta, errA := time.Parse(dateLayout, a)
	tb, errB := time.Parse(dateLayout, b)
	if errA == nil && errB == nil {
		return ta.After(tb)
	}
	return a > b
}
