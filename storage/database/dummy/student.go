package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, st := range repo.db.table {
		students = append(students, *st)
	}
	return students
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	repo.db.table[st.ID] = &st
	return st, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.table[id]; ok {
		return *st, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := repo.query()
	if filter != nil {
		filtered := students[:0]
		for _, st := range students {
			if filter.Search != "" && !strings.Contains(strings.ToLower(st.Name), strings.ToLower(filter.Search)) {
				continue
			}
			if filter.ClassLevel != "" && !strings.EqualFold(st.ClassLevel, filter.ClassLevel) {
				continue
			}
			if filter.Stream != "" && !strings.EqualFold(st.Stream, filter.Stream) {
				continue
			}
			filtered = append(filtered, st)
		}
		students = filtered
	}

	sort.Slice(students, func(i, j int) bool {
		if students[i].ClassLevel != students[j].ClassLevel {
			return students[i].ClassLevel < students[j].ClassLevel
		}
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
	return students, nil
}
