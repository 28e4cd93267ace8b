package dig_container

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/davidobonyano/yano-school-next-sub001/apps/api/echo"
	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
	"github.com/davidobonyano/yano-school-next-sub001/core/student"
	emailsvc "github.com/davidobonyano/yano-school-next-sub001/services/email"
	"github.com/davidobonyano/yano-school-next-sub001/services/events"
	logsvc "github.com/davidobonyano/yano-school-next-sub001/services/logger"
	"github.com/davidobonyano/yano-school-next-sub001/storage/database"
	sqlxrepos "github.com/davidobonyano/yano-school-next-sub001/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	serverParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		LedgerSvc  ledger.ServiceInterface
		StudentSvc student.ServiceInterface
		Validate   *validator.Validate
		Translator ut.Translator
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sql.DB, core.DB) {
	setUp := func() (*sql.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, conf.Database.Engine); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newStudentRepository(db core.DB, conf *core.Config) student.Repository {
	return sqlxrepos.NewStudentRepository(db, conf.Database.Engine)
}

func newLedgerRepository(db core.DB, conf *core.Config) ledger.Repository {
	return sqlxrepos.NewLedgerRepository(db, conf.Database.Engine)
}

func newStudentService(repo student.Repository) (student.ServiceInterface, ledger.StudentDirectory) {
	svc := student.NewService(repo)
	return svc, svc
}

func newLedgerService(
	db core.DB,
	repo ledger.Repository,
	students ledger.StudentDirectory,
	mailSvc core.EmailService,
	publisher core.EventPublisher,
	logger core.Logger,
) ledger.ServiceInterface {
	return ledger.NewService(database.NewTransactor(db), repo, students, mailSvc, publisher, logger)
}

func newValidate(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	ledger.RegisterValidators(validate, translator)
	return validate
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		LedgerSvc:  p.LedgerSvc,
		StudentSvc: p.StudentSvc,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(events.NewPublisher))
	must(c.Provide(newStudentRepository))
	must(c.Provide(newLedgerRepository))
	must(c.Provide(newStudentService))
	must(c.Provide(newLedgerService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidate))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
