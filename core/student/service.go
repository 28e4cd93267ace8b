package student

import (
	"context"
	"errors"
	"time"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Student.Name.
		QueryStudents(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Student, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, ns NewStudent) (Student, error)
		Get(ctx context.Context, id string) (Student, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Student, error)
		LookupStudent(ctx context.Context, id string) (Student, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	s := Student{
		Name:          ns.Name,
		ClassLevel:    ns.ClassLevel,
		Stream:        ns.Stream,
		GuardianEmail: ns.GuardianEmail,
		CreatedAt:     time.Now().UTC(),
	}
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Student, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryStudents(ctx, filter)
}

// LookupStudent resolves a student for the ledger; unknown IDs return ErrNotFound.
func (svc *Service) LookupStudent(ctx context.Context, id string) (Student, error) {
	return svc.Get(ctx, id)
}
