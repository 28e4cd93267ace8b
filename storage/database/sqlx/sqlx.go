package sqlxrepos

import (
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

// base holds what every repository needs: a default executor and the engine's bind type.
type base struct {
	exec     core.DBExecutor
	bindType int
}

func newBase(exec core.DBExecutor, engine string) base {
	return base{exec: exec, bindType: sqlx.BindType(engine)}
}

// getExec prefers the caller's executor (usually a transaction) over the repository's default.
func (b base) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return b.exec
}

// rebind converts `?` placeholders to the engine's bind vars.
func (b base) rebind(query string) string {
	return sqlx.Rebind(b.bindType, query)
}

func (b base) useIndexPlaceholders() bool {
	return b.bindType == sqlx.DOLLAR
}

func isUniqueViolation(err error) bool {
	switch e := err.(type) {
	case *pq.Error:
		return e.Code == "23505"
	case sqlite3.Error:
		return e.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
