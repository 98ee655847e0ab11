package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"rollbook/internal/attendance"
	"rollbook/internal/roster"
)

// Postgres persists the roster in a students table and each sheet as one
// row with a JSONB record set, upserted with ON CONFLICT.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a pgx-backed connection with sane pool defaults and
// applies the schema.
func NewPostgres(connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			student_id TEXT UNIQUE NOT NULL,
			class      TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS attendance_sheets (
			date    TEXT PRIMARY KEY,
			records JSONB NOT NULL
		);
	`)
	return err
}

func (p *Postgres) ListStudents(ctx context.Context) ([]roster.Student, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, student_id, class FROM students ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []roster.Student
	for rows.Next() {
		var st roster.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.StudentID, &st.Class); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

func (p *Postgres) ReplaceRoster(ctx context.Context, students []roster.Student) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM students`); err != nil {
		return 0, err
	}
	for _, st := range students {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO students (id, name, student_id, class) VALUES ($1, $2, $3, $4)`,
			st.ID, st.Name, st.StudentID, st.Class)
		if err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(students), nil
}

func (p *Postgres) DeleteAllStudents(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM students`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *Postgres) DeleteStudent(ctx context.Context, identifier string) (*roster.Student, error) {
	var st roster.Student
	err := p.db.QueryRowContext(ctx,
		`DELETE FROM students WHERE id = $1 RETURNING id, name, student_id, class`,
		identifier).Scan(&st.ID, &st.Name, &st.StudentID, &st.Class)
	if errors.Is(err, sql.ErrNoRows) {
		err = p.db.QueryRowContext(ctx,
			`DELETE FROM students WHERE student_id = $1 RETURNING id, name, student_id, class`,
			identifier).Scan(&st.ID, &st.Name, &st.StudentID, &st.Class)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (p *Postgres) UpsertSheet(ctx context.Context, sheet attendance.Sheet) error {
	records, err := json.Marshal(sheet.Records)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO attendance_sheets (date, records)
		VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET records = EXCLUDED.records
	`, sheet.Date, records)
	return err
}

func (p *Postgres) GetSheet(ctx context.Context, date string) (*attendance.Sheet, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT records FROM attendance_sheets WHERE date = $1`, date).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sheet := attendance.Sheet{Date: date}
	if err := json.Unmarshal(raw, &sheet.Records); err != nil {
		return nil, err
	}
	return &sheet, nil
}

func (p *Postgres) ListDates(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT date FROM attendance_sheets ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	dates := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (p *Postgres) ListSheets(ctx context.Context) ([]attendance.Sheet, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT date, records FROM attendance_sheets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sheets []attendance.Sheet
	for rows.Next() {
		var sheet attendance.Sheet
		var raw []byte
		if err := rows.Scan(&sheet.Date, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &sheet.Records); err != nil {
			return nil, err
		}
		sheets = append(sheets, sheet)
	}
	return sheets, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close(ctx context.Context) error {
	return p.db.Close()
}
