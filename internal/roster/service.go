package roster

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"rollbook/internal/apperr"
)

// Service applies roster semantics on top of a Store. In strict mode every
// submitted student must carry name, studentId and class, and studentIds must
// be unique within the submitted roster; in lax mode entries are stored as
// given and uniqueness is left to the backend.
type Service struct {
	store    Store
	strict   bool
	validate *validator.Validate
}

// NewService creates a roster service backed by store.
func NewService(store Store, strict bool) *Service {
	return &Service{store: store, strict: strict, validate: validator.New()}
}

// List returns the current roster.
func (s *Service) List(ctx context.Context) ([]Student, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

// Replace validates and saves a whole new roster, returning the stored count.
func (s *Service) Replace(ctx context.Context, students []Student) (int, error) {
	if s.strict {
		invalid := 0
		for _, st := range students {
			if err := s.validate.Struct(st); err != nil {
				invalid++
			}
		}
		if invalid > 0 {
			return 0, apperr.Validationf("%d student(s) missing required fields (name, studentId, class)", invalid)
		}
		seen := make(map[string]bool, len(students))
		for _, st := range students {
			if seen[st.StudentID] {
				return 0, apperr.Conflictf("duplicate studentId %q in request", st.StudentID)
			}
			seen[st.StudentID] = true
		}
	}
	for i := range students {
		if students[i].ID == "" {
			students[i].ID = uuid.NewString()
		}
	}
	return s.store.ReplaceRoster(ctx, students)
}

// DeleteAll removes every student.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	return s.store.DeleteAllStudents(ctx)
}

// DeleteOne removes the student matching identifier (storage id or studentId).
func (s *Service) DeleteOne(ctx context.Context, identifier string) (*Student, error) {
	if identifier == "" {
		return nil, apperr.Validationf("student id required")
	}
	st, err := s.store.DeleteStudent(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, apperr.NotFoundf("student %q not found", identifier)
	}
	return st, nil
}

// DeleteBatch attempts each identifier independently. Unresolved identifiers
// are reported in the result, not as an error; only storage failures abort.
func (s *Service) DeleteBatch(ctx context.Context, identifiers []string) (BatchResult, error) {
	if len(identifiers) == 0 {
		return BatchResult{}, apperr.Validationf("studentIds must be a non-empty array")
	}
	res := BatchResult{DeletedStudents: []Student{}}
	for _, id := range identifiers {
		st, err := s.store.DeleteStudent(ctx, id)
		if err != nil {
			return BatchResult{}, err
		}
		if st == nil {
			res.NotFoundCount++
			continue
		}
		res.DeletedCount++
		res.DeletedStudents = append(res.DeletedStudents, *st)
	}
	return res, nil
}
