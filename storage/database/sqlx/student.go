package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/student"
)

const studentColumns = "id, name, class_level, stream, guardian_email, created_at"

type studentRow struct {
	ID            string      `db:"id"`
	Name          string      `db:"name"`
	ClassLevel    string      `db:"class_level"`
	Stream        string      `db:"stream"`
	GuardianEmail null.String `db:"guardian_email"`
	CreatedAt     time.Time   `db:"created_at"`
}

func (r studentRow) toStudent() student.Student {
	return student.Student{
		ID:            r.ID,
		Name:          r.Name,
		ClassLevel:    r.ClassLevel,
		Stream:        r.Stream,
		GuardianEmail: r.GuardianEmail.String,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

type studentRepository struct {
	base
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor, engine string) student.Repository {
	return &studentRepository{base: newBase(exec, engine)}
}

// trapNoRowsErr maps "no rows" err to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CreateStudent(ctx context.Context, st student.Student, exec ...core.DBExecutor) (student.Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now()
	}
	st.CreatedAt = st.CreatedAt.UTC()

	q := repo.rebind("INSERT INTO students (" + studentColumns + ") VALUES (?, ?, ?, ?, ?, ?)")
	_, err := repo.getExec(exec).ExecContext(
		ctx, q,
		st.ID, st.Name, st.ClassLevel, st.Stream, null.NewString(st.GuardianEmail, st.GuardianEmail != ""), st.CreatedAt,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error) {
	q := repo.rebind("SELECT " + studentColumns + " FROM students WHERE id = ?")
	var r studentRow
	err := repo.getExec(exec).QueryRowContext(ctx, q, id).Scan(
		&r.ID, &r.Name, &r.ClassLevel, &r.Stream, &r.GuardianEmail, &r.CreatedAt,
	)
	if err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "getting student")
	}
	return r.toStudent(), nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, exec ...core.DBExecutor) ([]student.Student, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, "LOWER(name) LIKE ?")
			args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		}
		if filter.ClassLevel != "" {
			conds = append(conds, "LOWER(class_level) = ?")
			args = append(args, strings.ToLower(filter.ClassLevel))
		}
		if filter.Stream != "" {
			conds = append(conds, "LOWER(stream) = ?")
			args = append(args, strings.ToLower(filter.Stream))
		}
	}

	q := "SELECT " + studentColumns + " FROM students"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY class_level, name, id"

	rows, err := repo.getExec(exec).QueryContext(ctx, repo.rebind(q), args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	defer func() { _ = rows.Close() }()

	var dbRows []studentRow
	if err = sqlx.StructScan(rows, &dbRows); err != nil {
		return nil, errors.Wrap(err, "scanning students")
	}
	students := make([]student.Student, 0, len(dbRows))
	for _, r := range dbRows {
		students = append(students, r.toStudent())
	}
	return students, nil
}
