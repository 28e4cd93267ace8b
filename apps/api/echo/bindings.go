package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
)

var (
	studentIDParam = "student_id"
	termParam      = "term"
	sessionParam   = "session"
)

// PeriodQuery reads `?term=&session=`; both are required.
type PeriodQuery struct {
	Term    string
	Session string
}

func (pq *PeriodQuery) Bind(ctx echo.Context) {
	pq.Term = ctx.QueryParam(termParam)
	pq.Session = ctx.QueryParam(sessionParam)
}

func (pq PeriodQuery) Period() (ledger.Period, error) {
	return ledger.ParsePeriod(pq.Term, pq.Session)
}

// StudentPeriodQuery reads `?student_id=&term=&session=`.
type StudentPeriodQuery struct {
	PeriodQuery
	StudentID string
}

func (spq *StudentPeriodQuery) Bind(ctx echo.Context) {
	spq.PeriodQuery.Bind(ctx)
	spq.StudentID = core.CleanString(ctx.QueryParam(studentIDParam))
}
