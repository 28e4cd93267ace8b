package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
)

type (
	ledgerApi struct {
		svc        ledger.ServiceInterface
		validate   *validator.Validate
		translator ut.Translator
	}

	PeriodRequest struct {
		Term    string `json:"term" validate:"required,term"`
		Session string `json:"session" validate:"required,session"`
	}

	RecordEntryRequest struct {
		StudentID   string          `json:"student_id" validate:"required"`
		Term        string          `json:"term" validate:"required,term"`
		Session     string          `json:"session" validate:"required,session"`
		EntryType   string          `json:"entry_type" validate:"required,entrytype"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description" validate:"max=255"`
		Method      string          `json:"method" validate:"omitempty,paymethod"`
	}

	CarryForwardRequest struct {
		From       PeriodRequest `json:"from"`
		To         PeriodRequest `json:"to"`
		StudentIDs []string      `json:"student_ids"`
	}

	BulkSettleRequest struct {
		StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
		Term       string   `json:"term" validate:"required,term"`
		Session    string   `json:"session" validate:"required,session"`
		Method     string   `json:"method" validate:"omitempty,paymethod"`
	}
)

func (pr PeriodRequest) period() (ledger.Period, error) {
	return ledger.ParsePeriod(pr.Term, pr.Session)
}

func (req *RecordEntryRequest) Validate(validate *validator.Validate, translator ut.Translator) (ledger.NewEntry, error) {
	if err := validate.Struct(req); err != nil {
		return ledger.NewEntry{}, core.TranslateValidationErrors(err, translator)
	}
	period, err := ledger.ParsePeriod(req.Term, req.Session)
	if err != nil {
		return ledger.NewEntry{}, err
	}
	et, err := ledger.ParseEntryType(req.EntryType)
	if err != nil {
		return ledger.NewEntry{}, core.NewFieldError("entry_type", err.Error())
	}
	return ledger.NewEntry{
		StudentID:   req.StudentID,
		Period:      period,
		Type:        et,
		Amount:      req.Amount,
		Description: req.Description,
		Method:      req.Method,
	}, nil
}

func (req *CarryForwardRequest) Validate(validate *validator.Validate, translator ut.Translator) (ledger.CarryForwardRequest, error) {
	if err := validate.Struct(req); err != nil {
		return ledger.CarryForwardRequest{}, core.TranslateValidationErrors(err, translator)
	}
	from, err := req.From.period()
	if err != nil {
		return ledger.CarryForwardRequest{}, err
	}
	to, err := req.To.period()
	if err != nil {
		return ledger.CarryForwardRequest{}, err
	}
	return ledger.CarryForwardRequest{From: from, To: to, StudentIDs: req.StudentIDs}, nil
}

func (req *BulkSettleRequest) Validate(validate *validator.Validate, translator ut.Translator) (ledger.BulkSettleRequest, error) {
	req.StudentIDs = core.CleanStrings(req.StudentIDs)
	if err := validate.Struct(req); err != nil {
		return ledger.BulkSettleRequest{}, core.TranslateValidationErrors(err, translator)
	}
	period, err := ledger.ParsePeriod(req.Term, req.Session)
	if err != nil {
		return ledger.BulkSettleRequest{}, err
	}
	return ledger.BulkSettleRequest{StudentIDs: req.StudentIDs, Period: period, Method: req.Method}, nil
}

func registerLedgerAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc ledger.ServiceInterface,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := ledgerApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	fg := g.Group("/fees", jwt)

	// student portal
	fg.GET("/balance", api.balance, ctxStudentOrAdminMiddleware(studentIDFromQuery))
	fg.GET("/statement", api.statement, ctxStudentOrAdminMiddleware(studentIDFromQuery))

	// admin portal
	fg.GET("/summary", api.summary, adminMiddleware())
	fg.POST("/entries", api.recordEntry, adminMiddleware())
	fg.POST("/carry-forward", api.carryForward, adminMiddleware(RoleAdmin))
	fg.POST("/bulk-settle", api.bulkSettle, adminMiddleware())
}

// Handlers

func (api *ledgerApi) balance(ctx echo.Context) error {
	var q StudentPeriodQuery
	q.Bind(ctx)
	period, err := q.Period()
	if err != nil {
		return err
	}

	bal, err := api.svc.GetBalance(ctx.Request().Context(), q.StudentID, period)
	if err != nil {
		return errors.Wrap(err, "getting balance")
	}
	return ctx.JSON(http.StatusOK, bal)
}

func (api *ledgerApi) statement(ctx echo.Context) error {
	var q StudentPeriodQuery
	q.Bind(ctx)
	period, err := q.Period()
	if err != nil {
		return err
	}

	stmt, err := api.svc.GetStatement(ctx.Request().Context(), q.StudentID, period)
	if err != nil {
		return errors.Wrap(err, "getting statement")
	}
	return ctx.JSON(http.StatusOK, stmt)
}

func (api *ledgerApi) summary(ctx echo.Context) error {
	var q PeriodQuery
	q.Bind(ctx)
	period, err := q.Period()
	if err != nil {
		return err
	}

	summary, err := api.svc.GetClassSummary(ctx.Request().Context(), period)
	if err != nil {
		return errors.Wrap(err, "getting class summary")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *ledgerApi) recordEntry(ctx echo.Context) error {
	var data RecordEntryRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordEntryRequest")
	}
	ne, err := data.Validate(api.validate, api.translator)
	if err != nil {
		return err
	}

	entry, err := api.svc.RecordEntry(ctx.Request().Context(), ne)
	if err != nil {
		return errors.Wrap(err, "recording entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *ledgerApi) carryForward(ctx echo.Context) error {
	var data CarryForwardRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CarryForwardRequest")
	}
	req, err := data.Validate(api.validate, api.translator)
	if err != nil {
		return err
	}

	res, err := api.svc.CarryForward(ctx.Request().Context(), req)
	if err != nil {
		return errors.Wrap(err, "carrying forward balances")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *ledgerApi) bulkSettle(ctx echo.Context) error {
	var data BulkSettleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkSettleRequest")
	}
	req, err := data.Validate(api.validate, api.translator)
	if err != nil {
		return err
	}

	res, err := api.svc.BulkSettle(ctx.Request().Context(), req)
	if err != nil {
		return errors.Wrap(err, "settling balances")
	}
	return ctx.JSON(http.StatusOK, res)
}
