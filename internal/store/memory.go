package store

import (
	"context"
	"sort"
	"sync"

	"rollbook/internal/attendance"
	"rollbook/internal/roster"
)

// Memory keeps everything in process memory. It backs tests and local
// development; the mutex is its whole consistency story.
type Memory struct {
	mu       sync.RWMutex
	students []roster.Student
	sheets   map[string]attendance.Sheet
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sheets: make(map[string]attendance.Sheet)}
}

func (m *Memory) ListStudents(ctx context.Context) ([]roster.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]roster.Student, len(m.students))
	copy(out, m.students)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ReplaceRoster(ctx context.Context, students []roster.Student) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students = make([]roster.Student, len(students))
	copy(m.students, students)
	return len(students), nil
}

func (m *Memory) DeleteAllStudents(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.students)
	m.students = nil
	return int64(n), nil
}

func (m *Memory) DeleteStudent(ctx context.Context, identifier string) (*roster.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, st := range m.students {
		if st.ID == identifier {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i, st := range m.students {
			if st.StudentID == identifier {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return nil, nil
	}
	deleted := m.students[idx]
	m.students = append(m.students[:idx], m.students[idx+1:]...)
	return &deleted, nil
}

func (m *Memory) UpsertSheet(ctx context.Context, sheet attendance.Sheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]attendance.Record, len(sheet.Records))
	copy(records, sheet.Records)
	sheet.Records = records
	m.sheets[sheet.Date] = sheet
	return nil
}

func (m *Memory) GetSheet(ctx context.Context, date string) (*attendance.Sheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sheet, ok := m.sheets[date]
	if !ok {
		return nil, nil
	}
	records := make([]attendance.Record, len(sheet.Records))
	copy(records, sheet.Records)
	sheet.Records = records
	return &sheet, nil
}

func (m *Memory) ListDates(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dates := make([]string, 0, len(m.sheets))
	for date := range m.sheets {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (m *Memory) ListSheets(ctx context.Context) ([]attendance.Sheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sheets := make([]attendance.Sheet, 0, len(m.sheets))
	for _, sheet := range m.sheets {
		records := make([]attendance.Record, len(sheet.Records))
		copy(records, sheet.Records)
		sheet.Records = records
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func (m *Memory) Ping(ctx context.Context) error  { return nil }
func (m *Memory) Close(ctx context.Context) error { return nil }
