package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"rollbook/internal/attendance"
	"rollbook/internal/roster"
)

const (
	rosterFile  = "students.json"
	sheetPrefix = "attendance-"
	sheetSuffix = ".json"
)

// File persists the roster and one file per attendance date as JSON under a
// data directory. Writes go through a temp file and rename, so a single
// save either fully succeeds or leaves the previous file intact.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates (if needed) the data directory and returns a file store.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (f *File) readRoster() ([]roster.Student, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, rosterFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var students []roster.Student
	if err := json.Unmarshal(data, &students); err != nil {
		return nil, fmt.Errorf("decode %s: %w", rosterFile, err)
	}
	return students, nil
}

func (f *File) ListStudents(ctx context.Context) ([]roster.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	students, err := f.readRoster()
	if err != nil {
		return nil, err
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (f *File) ReplaceRoster(ctx context.Context, students []roster.Student) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if students == nil {
		students = []roster.Student{}
	}
	if err := f.writeJSON(filepath.Join(f.dir, rosterFile), students); err != nil {
		return 0, err
	}
	return len(students), nil
}

func (f *File) DeleteAllStudents(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	students, err := f.readRoster()
	if err != nil {
		return 0, err
	}
	if err := f.writeJSON(filepath.Join(f.dir, rosterFile), []roster.Student{}); err != nil {
		return 0, err
	}
	return int64(len(students)), nil
}

func (f *File) DeleteStudent(ctx context.Context, identifier string) (*roster.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	students, err := f.readRoster()
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, st := range students {
		if st.ID == identifier {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i, st := range students {
			if st.StudentID == identifier {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return nil, nil
	}
	deleted := students[idx]
	students = append(students[:idx], students[idx+1:]...)
	if err := f.writeJSON(filepath.Join(f.dir, rosterFile), students); err != nil {
		return nil, err
	}
	return &deleted, nil
}

func (f *File) sheetPath(date string) (string, error) {
	// Dates become file names; keep them from escaping the data dir.
	if strings.ContainsAny(date, `/\`) || strings.Contains(date, "..") {
		return "", fmt.Errorf("invalid date %q", date)
	}
	return filepath.Join(f.dir, sheetPrefix+date+sheetSuffix), nil
}

func (f *File) UpsertSheet(ctx context.Context, sheet attendance.Sheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path, err := f.sheetPath(sheet.Date)
	if err != nil {
		return err
	}
	return f.writeJSON(path, sheet)
}

func (f *File) GetSheet(ctx context.Context, date string) (*attendance.Sheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path, err := f.sheetPath(date)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var sheet attendance.Sheet
	if err := json.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("decode sheet %s: %w", date, err)
	}
	return &sheet, nil
}

func (f *File) ListDates(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listDates()
}

func (f *File) listDates() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(f.dir, sheetPrefix+"*"+sheetSuffix))
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		dates = append(dates, strings.TrimSuffix(strings.TrimPrefix(name, sheetPrefix), sheetSuffix))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (f *File) ListSheets(ctx context.Context) ([]attendance.Sheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dates, err := f.listDates()
	if err != nil {
		return nil, err
	}
	sheets := make([]attendance.Sheet, 0, len(dates))
	for _, date := range dates {
		path, err := f.sheetPath(date)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // removed mid-scan
			}
			return nil, err
		}
		var sheet attendance.Sheet
		if err := json.Unmarshal(data, &sheet); err != nil {
			return nil, fmt.Errorf("decode sheet %s: %w", date, err)
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func (f *File) Ping(ctx context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

func (f *File) Close(ctx context.Context) error { return nil }
