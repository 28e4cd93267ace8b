package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
	"github.com/davidobonyano/yano-school-next-sub001/core/student"
	emailsvc "github.com/davidobonyano/yano-school-next-sub001/services/email"
	"github.com/davidobonyano/yano-school-next-sub001/services/events"
	logsvc "github.com/davidobonyano/yano-school-next-sub001/services/logger"
	sqlxrepos "github.com/davidobonyano/yano-school-next-sub001/storage/database/sqlx"
	"github.com/davidobonyano/yano-school-next-sub001/tests"
)

var (
	first2024  = ledger.MustParsePeriod("First Term", "2024/2025")
	second2024 = ledger.MustParsePeriod("Second Term", "2024/2025")
)

type testCLI struct {
	*commandLine
	buf         *bytes.Buffer
	studentRepo student.Repository
	ledgerRepo  ledger.Repository
	mail        *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) testCLI {
	// set up DB & repos
	db, conf := testutil.PrepareDB(t)
	conf.Ledger.CurrentTerm = "First Term"
	conf.Ledger.CurrentSession = "2024/2025"

	logger := logsvc.NewDiscardLogger()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	buf := new(bytes.Buffer)

	// start CLI
	return testCLI{
		commandLine: newCommandLine(db, conf, logger, mailSvc, events.NewMemoryPublisher(), buf),
		buf:         buf,
		studentRepo: sqlxrepos.NewStudentRepository(db, conf.Database.Engine),
		ledgerRepo:  sqlxrepos.NewLedgerRepository(db, conf.Database.Engine),
		mail:        mailSvc,
	}
}

// seed: s1 owes 30000 in First Term, s2 has paid in full.
func (cli testCLI) seed(t *testing.T) {
	testutil.CreateStudent(t, cli.studentRepo, "s1", "Ada Obi", "JSS1", "A", "obi@test.ng")
	testutil.CreateStudent(t, cli.studentRepo, "s2", "Bayo Ade", "JSS1", "B")
	testutil.AddEntry(t, cli.ledgerRepo, "s1", first2024, ledger.Bill, "90000")
	testutil.AddEntry(t, cli.ledgerRepo, "s1", first2024, ledger.Payment, "60000", ledger.MethodCash)
	testutil.AddEntry(t, cli.ledgerRepo, "s2", first2024, ledger.Bill, "50000")
	testutil.AddEntry(t, cli.ledgerRepo, "s2", first2024, ledger.Payment, "50000", ledger.MethodTransfer)
}

func (cli testCLI) balance(t *testing.T, studentID string, period ledger.Period) ledger.PeriodBalance {
	t.Helper()
	bal, err := cli.ledgerSvc.GetBalance(context.Background(), studentID, period)
	require.NoError(t, err)
	return bal
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli testCLI, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, want an error")
			}
		})
	}
}

func Test_commandLine_help(t *testing.T) {
	cli := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "student without subcommand", args: []string{"student"}, wantErr: errHelp},
		{name: "student unknown subcommand", args: []string{"student", "remove"}, wantErr: errHelp},
	})
	assert.Contains(t, cli.buf.String(), "Usage:")
	assert.Contains(t, cli.buf.String(), "  student add -name NAME -class CLASS [-stream S] [-guardian-email E]\n")
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, engine string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		if engine != "sqlite3" {
			return fmt.Errorf("unexpected engine %q", engine)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "fee_schedules", "sql"}},
	})
}

func Test_commandLine_addStudent(t *testing.T) {
	cli := setup(t)

	err := cli.run([]string{"admin", "student", "add", "-name", "  ", "-guardian-email", "nope"})
	require.Error(t, err)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "got %T", err)
	fields := make(map[string]string)
	for _, fld := range vErr.Fields {
		fields[fld.Field] = fld.Error
	}
	assert.Equal(t, map[string]string{
		"name":           "this field is required",
		"class_level":    "this field is required",
		"guardian_email": "guardian_email must be a valid email address",
	}, fields)

	err = cli.run([]string{"admin", "student", "add", "-name", " Ada Obi ", "-class", "JSS1", "-stream", "A", "-guardian-email", "Obi@Test.ng"})
	require.NoError(t, err)
	assert.Contains(t, cli.buf.String(), `student "Ada Obi" (JSS1 A) created with ID `)

	students, err := cli.studentSvc.Query(context.Background(), &student.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "obi@test.ng", students[0].GuardianEmail)
}

func Test_commandLine_balance(t *testing.T) {
	cli := setup(t)
	cli.seed(t)

	runCLITests(t, cli, []cliTest{
		{name: "unknown student", args: []string{"balance", "-student", "ghost"}, wantErrStr: `student "ghost" not found`},
		{name: "bad flag", args: []string{"balance", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
	})

	cli.buf.Reset()
	require.NoError(t, cli.run([]string{"admin", "balance", "-student", "s1"}))
	var bal ledger.PeriodBalance
	require.NoError(t, json.Unmarshal(cli.buf.Bytes(), &bal))
	assert.Equal(t, first2024, bal.Period)
	assert.True(t, bal.Outstanding.Equal(decimal.NewFromInt(30000)), "outstanding = %s", bal.Outstanding)
	assert.Equal(t, ledger.StatusPartial, bal.Status)

	cli.buf.Reset()
	require.NoError(t, cli.run([]string{"admin", "balance", "-student", "s1", "-term", "2nd", "-session", "2024-2025"}))
	bal = ledger.PeriodBalance{}
	require.NoError(t, json.Unmarshal(cli.buf.Bytes(), &bal))
	assert.Equal(t, second2024, bal.Period)
	assert.Equal(t, ledger.StatusPending, bal.Status)
}

func Test_commandLine_carryForward(t *testing.T) {
	cli := setup(t)
	cli.seed(t)

	type extra struct {
		terminal bool
		answer   string
	}
	tests := []cliTest{
		{name: "not a terminal", args: []string{"carryforward"}, wantErr: errNotInteractive},
		{name: "declined", args: []string{"carryforward"}, extra: extra{terminal: true, answer: "n\n"}, wantErr: errAborted},
		{name: "same period", args: []string{"carryforward", "-to-term", "First Term", "-to-session", "2024/2025", "-yes"}, wantErrStr: "invalid carry-forward request"},
		{name: "confirmed", args: []string{"carryforward"}, extra: extra{terminal: true, answer: "yes\n"}},
		{name: "re-run", args: []string{"carryforward", "-yes"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		isTerminalFunc = func(fd int) bool {
			e, ok := tt.extra.(extra)
			return ok && e.terminal
		}
		if e, ok := tt.extra.(extra); ok {
			stdin = strings.NewReader(e.answer)
		}

		t.Run(tt.name, func(t *testing.T) {
			cli.buf.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				require.NoError(t, err)
			}
		})

		switch tt.name {
		case "confirmed":
			assert.Contains(t, cli.buf.String(),
				"carried 1 balance(s) totalling 30000.00 from 2024/2025 First Term to 2024/2025 Second Term; skipped 0")
		case "re-run":
			assert.Contains(t, cli.buf.String(), "carried 0 balance(s) totalling 0.00")
			assert.Contains(t, cli.buf.String(), "skipped 1")
		}
	}

	bal := cli.balance(t, "s1", second2024)
	assert.True(t, bal.Outstanding.Equal(decimal.NewFromInt(30000)), "outstanding = %s", bal.Outstanding)
	bal = cli.balance(t, "s2", second2024)
	assert.Equal(t, ledger.StatusPending, bal.Status)
}

func Test_commandLine_settle(t *testing.T) {
	cli := setup(t)
	cli.seed(t)

	runCLITests(t, cli, []cliTest{
		{name: "no students", args: []string{"settle"}, wantErrStr: "invalid settlement request"},
		{name: "bad method", args: []string{"settle", "-students", "s1", "-method", "barter"}, wantErrStr: "invalid settlement request"},
	})

	cli.buf.Reset()
	err := cli.run([]string{"admin", "settle", "-students", "s1, s2,ghost", "-method", "POS"})
	pErr, ok := err.(*core.PartialBatchError)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 1, pErr.Failed)
	assert.Equal(t, 3, pErr.Total)

	var res ledger.SettlementResult
	require.NoError(t, json.Unmarshal(cli.buf.Bytes(), &res))
	assert.Equal(t, ledger.MethodPOS, res.Method)
	assert.Equal(t, 1, res.SettledCount)
	require.Len(t, res.Results, 3)
	assert.Equal(t, ledger.Settled, res.Results[0].Status)
	assert.Equal(t, ledger.AlreadySettled, res.Results[1].Status)
	assert.Equal(t, ledger.SettleFailed, res.Results[2].Status)
	assert.Len(t, cli.mail.SentMessages(), 1)

	bal := cli.balance(t, "s1", first2024)
	assert.Equal(t, ledger.StatusPaid, bal.Status)
}

func Test_commandLine_token(t *testing.T) {
	cli := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no subject", args: []string{"token"}, wantErrStr: "this field is required"},
		{name: "unknown role", args: []string{"token", "-subject", "u1", "-roles", "lol"}, wantErrStr: "unknown role lol"},
	})

	err := cli.run([]string{"admin", "token", "-subject", "u1", "-roles", "student:"})
	assert.Error(t, err, "student tokens need a student ID")

	cli.buf.Reset()
	require.NoError(t, cli.run([]string{"admin", "token", "-subject", "u1", "-roles", "student:", "-student", "s1"}))
	token := strings.TrimSpace(cli.buf.String())
	assert.Len(t, strings.Split(token, "."), 3)
}

func Test_commandLine_reset(t *testing.T) {
	cli := setup(t)
	cli.seed(t)
	isTerminalFunc = func(fd int) bool { return false }

	runCLITests(t, cli, []cliTest{
		{name: "no types", args: []string{"reset", "-yes"}, wantErrStr: "at least one entry type is required"},
		{name: "unknown type", args: []string{"reset", "-types", "Fine", "-yes"}, wantErrStr: `unknown entry type "Fine"`},
		{name: "unconfirmed", args: []string{"reset", "-types", "Payment"}, wantErr: errNotInteractive},
	})
	assert.Equal(t, ledger.StatusPartial, cli.balance(t, "s1", first2024).Status)

	cli.buf.Reset()
	require.NoError(t, cli.run([]string{"admin", "reset", "-types", "payment", "-yes"}))
	assert.Contains(t, cli.buf.String(), "deleted 2 entries of 2024/2025 First Term")

	bal := cli.balance(t, "s1", first2024)
	assert.Equal(t, ledger.StatusOutstanding, bal.Status)
	assert.True(t, bal.Outstanding.Equal(decimal.NewFromInt(90000)), "outstanding = %s", bal.Outstanding)
}
