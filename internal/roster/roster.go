package roster

import "context"

// Student is one roster entry. ID is the storage-assigned identity;
// StudentID is the school-issued identifier and is unique within a roster.
type Student struct {
	ID        string `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string `json:"name" bson:"name" validate:"required"`
	StudentID string `json:"studentId" bson:"studentId" validate:"required"`
	Class     string `json:"class" bson:"class" validate:"required"`
}

// Store is the persistence collaborator for the roster. The roster is
// wholesale-replaced on every save; there is no partial update.
type Store interface {
	// ListStudents returns all current students, ordered by name where the
	// backend supports ordering.
	ListStudents(ctx context.Context) ([]Student, error)
	// ReplaceRoster discards the previous roster and stores students,
	// returning the inserted count.
	ReplaceRoster(ctx context.Context, students []Student) (int, error)
	// DeleteAllStudents removes every student and returns how many were removed.
	DeleteAllStudents(ctx context.Context) (int64, error)
	// DeleteStudent removes the student matching identifier, trying the
	// storage identity first and the studentId field second. It returns the
	// deleted student, or nil when nothing matched.
	DeleteStudent(ctx context.Context, identifier string) (*Student, error)
}

// BatchResult reports the outcome of a batch delete. Identifiers that did
// not resolve are counted, not treated as an error.
type BatchResult struct {
	DeletedCount    int       `json:"deletedCount"`
	NotFoundCount   int       `json:"notFoundCount"`
	DeletedStudents []Student `json:"deletedStudents"`
}
