package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	emailsvc "github.com/davidobonyano/yano-school-next-sub001/services/email"
	"github.com/davidobonyano/yano-school-next-sub001/services/events"
	logsvc "github.com/davidobonyano/yano-school-next-sub001/services/logger"
	"github.com/davidobonyano/yano-school-next-sub001/storage/database"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	publisher := events.NewPublisher(conf, logger)

	// start CLI
	cli := newCommandLine(db, conf, logger, emailsvc.NewService(conf, logger), publisher, os.Stdout)
	err = cli.run(os.Args)

	if c, ok := publisher.(io.Closer); ok {
		_ = c.Close()
	}
	_ = db.Close()

	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", describe(err))
		}
		os.Exit(1)
	}
}

// describe expands validation errors into one line per field.
func describe(err error) string {
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok || len(vErr.Fields) == 0 {
		return err.Error()
	}
	msg := err.Error()
	for _, fld := range vErr.Fields {
		msg += fmt.Sprintf("\n  %s: %s", fld.Field, fld.Error)
	}
	return msg
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
