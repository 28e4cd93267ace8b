package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
	"github.com/davidobonyano/yano-school-next-sub001/core/student"
	"github.com/davidobonyano/yano-school-next-sub001/storage/database"
	sqlxrepos "github.com/davidobonyano/yano-school-next-sub001/storage/database/sqlx"
)

var (
	isTerminalFunc           = term.IsTerminal // mockable
	stdin          io.Reader = os.Stdin        // mockable

	errHelp           = errors.New("help provided")
	errAborted        = errors.New("aborted")
	errNotInteractive = errors.New("not a terminal: pass -yes to confirm")
)

type commandLine struct {
	db         *sql.DB
	conf       *core.Config
	out        io.Writer
	studentSvc student.ServiceInterface
	ledgerSvc  ledger.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func newCommandLine(
	db *sql.DB,
	conf *core.Config,
	logger core.Logger,
	mailSvc core.EmailService,
	publisher core.EventPublisher,
	out io.Writer,
) *commandLine {
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db, conf.Database.Engine))
	ledgerSvc := ledger.NewService(
		database.NewTransactor(db),
		sqlxrepos.NewLedgerRepository(db, conf.Database.Engine),
		studentSvc,
		mailSvc,
		publisher,
		logger,
	)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	ledger.RegisterValidators(validate, translator)

	return &commandLine{
		db:         db,
		conf:       conf,
		out:        out,
		studentSvc: studentSvc,
		ledgerSvc:  ledgerSvc,
		validate:   validate,
		translator: translator,
	}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]  - run goose migrations (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  student add -name NAME -class CLASS [-stream S] [-guardian-email E]")
	fmt.Fprintln(cli.out, "  balance -student ID [-term T -session S]")
	fmt.Fprintln(cli.out, "  carryforward [-from-term T -from-session S] [-to-term T -to-session S] [-students a,b] [-yes]")
	fmt.Fprintln(cli.out, "  settle -students a,b [-term T -session S] [-method M]")
	fmt.Fprintln(cli.out, "  token -subject SUB [-username U] [-roles admin:,student:] [-student ID]")
	fmt.Fprintln(cli.out, "  reset -types Bill,Payment [-term T -session S] [-yes] - delete a period's entries")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "student":
		if len(args) < 3 || args[2] != "add" {
			cli.printUsage()
			return errHelp
		}
		return cli.runAddStudent(args[3:])
	case "balance":
		return cli.runBalance(args[2:])
	case "carryforward":
		return cli.runCarryForward(args[2:])
	case "settle":
		return cli.runSettle(args[2:])
	case "token":
		return cli.runToken(args[2:])
	case "reset":
		return cli.runReset(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

// period resolves term and session flags, falling back on the configured current period when both are empty.
func (cli *commandLine) period(term, session string) (ledger.Period, error) {
	if core.CleanString(term) == "" && core.CleanString(session) == "" {
		term, session = cli.conf.Ledger.CurrentTerm, cli.conf.Ledger.CurrentSession
	}
	return ledger.ParsePeriod(term, session)
}

// confirm asks for a y/N answer on a terminal; without one, -yes is the only way through.
func (cli *commandLine) confirm(prompt string, yes bool) error {
	if yes {
		return nil
	}
	if !isTerminalFunc(int(os.Stdin.Fd())) {
		return errNotInteractive
	}
	fmt.Fprintf(cli.out, "%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}

func (cli *commandLine) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, string(data))
	return err
}

func splitList(s string) []string {
	return core.CleanStrings(strings.Split(s, ","))
}
