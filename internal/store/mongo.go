package store

import (
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rollbook/internal/attendance"
	"rollbook/internal/roster"
)

// Mongo persists the roster in a students collection and each sheet as one
// document keyed by date, so per-date upserts are atomic last-writer-wins.
type Mongo struct {
	client   *mongo.Client
	students *mongo.Collection
	sheets   *mongo.Collection
}

// NewMongo connects, pings, and ensures the studentId unique index.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	db := client.Database(database)
	m := &Mongo{
		client:   client,
		students: db.Collection("students"),
		sheets:   db.Collection("attendance"),
	}
	_, err = m.students.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "studentId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ListStudents(ctx context.Context) ([]roster.Student, error) {
	cur, err := m.students.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var students []roster.Student
	if err := cur.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (m *Mongo) ReplaceRoster(ctx context.Context, students []roster.Student) (int, error) {
	if _, err := m.students.DeleteMany(ctx, bson.D{}); err != nil {
		return 0, err
	}
	if len(students) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(students))
	for i, st := range students {
		docs[i] = st
	}
	res, err := m.students.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return len(res.InsertedIDs), nil
}

func (m *Mongo) DeleteAllStudents(ctx context.Context) (int64, error) {
	res, err := m.students.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *Mongo) DeleteStudent(ctx context.Context, identifier string) (*roster.Student, error) {
	var st roster.Student
	err := m.students.FindOneAndDelete(ctx, bson.M{"_id": identifier}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = m.students.FindOneAndDelete(ctx, bson.M{"studentId": identifier}).Decode(&st)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (m *Mongo) UpsertSheet(ctx context.Context, sheet attendance.Sheet) error {
	_, err := m.sheets.ReplaceOne(ctx,
		bson.M{"_id": sheet.Date}, sheet, options.Replace().SetUpsert(true))
	return err
}

func (m *Mongo) GetSheet(ctx context.Context, date string) (*attendance.Sheet, error) {
	var sheet attendance.Sheet
	err := m.sheets.FindOne(ctx, bson.M{"_id": date}).Decode(&sheet)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

func (m *Mongo) ListDates(ctx context.Context) ([]string, error) {
	raw, err := m.sheets.Distinct(ctx, "_id", bson.D{})
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			dates = append(dates, s)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (m *Mongo) ListSheets(ctx context.Context) ([]attendance.Sheet, error) {
	cur, err := m.sheets.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	var sheets []attendance.Sheet
	if err := cur.All(ctx, &sheets); err != nil {
		return nil, err
	}
	return sheets, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
