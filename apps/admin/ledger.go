package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
)

func (cli *commandLine) runBalance(args []string) error {
	fs := cli.newFlagSet("balance")
	studentID := fs.String("student", "", "student ID")
	term := fs.String("term", "", "term (defaults to the current term)")
	session := fs.String("session", "", "session, e.g. 2024/2025 (defaults to the current session)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	period, err := cli.period(*term, *session)
	if err != nil {
		return err
	}
	bal, err := cli.ledgerSvc.GetBalance(context.Background(), core.CleanString(*studentID), period)
	if err != nil {
		return err
	}
	return cli.printJSON(bal)
}

func (cli *commandLine) runCarryForward(args []string) error {
	fs := cli.newFlagSet("carryforward")
	fromTerm := fs.String("from-term", "", "source term (defaults to the current term)")
	fromSession := fs.String("from-session", "", "source session (defaults to the current session)")
	toTerm := fs.String("to-term", "", "target term (defaults to the term after the source)")
	toSession := fs.String("to-session", "", "target session (defaults to the session of the next term)")
	students := fs.String("students", "", "comma-separated student IDs; empty means everyone owing")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	from, err := cli.period(*fromTerm, *fromSession)
	if err != nil {
		return errors.Wrap(err, "from")
	}
	to := from.Next()
	if core.CleanString(*toTerm) != "" || core.CleanString(*toSession) != "" {
		if to, err = ledger.ParsePeriod(*toTerm, *toSession); err != nil {
			return errors.Wrap(err, "to")
		}
	}

	prompt := fmt.Sprintf("Carry outstanding balances from %s to %s?", from, to)
	if err = cli.confirm(prompt, *yes); err != nil {
		return err
	}

	res, err := cli.ledgerSvc.CarryForward(context.Background(), ledger.CarryForwardRequest{
		From:       from,
		To:         to,
		StudentIDs: splitList(*students),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "carried %d balance(s) totalling %s from %s to %s; skipped %d\n",
		res.CarriedCount, res.TotalAmount.StringFixed(2), res.From, res.To, res.Skipped)
	return nil
}

func (cli *commandLine) runSettle(args []string) error {
	fs := cli.newFlagSet("settle")
	students := fs.String("students", "", "comma-separated student IDs")
	term := fs.String("term", "", "term (defaults to the current term)")
	session := fs.String("session", "", "session (defaults to the current session)")
	method := fs.String("method", ledger.MethodBulk, "payment method")
	if err := fs.Parse(args); err != nil {
		return err
	}

	period, err := cli.period(*term, *session)
	if err != nil {
		return err
	}

	res, err := cli.ledgerSvc.BulkSettle(context.Background(), ledger.BulkSettleRequest{
		StudentIDs: splitList(*students),
		Period:     period,
		Method:     *method,
	})
	if err != nil {
		if _, ok := err.(*core.PartialBatchError); !ok {
			return err
		}
	}
	if pErr := cli.printJSON(res); pErr != nil {
		return pErr
	}
	return err
}

func (cli *commandLine) runReset(args []string) error {
	fs := cli.newFlagSet("reset")
	term := fs.String("term", "", "term (defaults to the current term)")
	session := fs.String("session", "", "session (defaults to the current session)")
	types := fs.String("types", "", "comma-separated entry types to delete, e.g. Bill,Payment")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	period, err := cli.period(*term, *session)
	if err != nil {
		return err
	}

	var entryTypes []ledger.EntryType
	for _, t := range splitList(*types) {
		et, err := ledger.ParseEntryType(t)
		if err != nil {
			return err
		}
		entryTypes = append(entryTypes, et)
	}
	if len(entryTypes) == 0 {
		return core.NewFieldError("types", "at least one entry type is required")
	}

	names := make([]string, 0, len(entryTypes))
	for _, et := range entryTypes {
		names = append(names, string(et))
	}
	prompt := fmt.Sprintf("Delete every %s entry of %s? This cannot be undone.", strings.Join(names, ", "), period)
	if err = cli.confirm(prompt, *yes); err != nil {
		return err
	}

	deleted, err := cli.ledgerSvc.ResetPeriod(context.Background(), period, entryTypes...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "deleted %d entries of %s\n", deleted, period)
	return nil
}
