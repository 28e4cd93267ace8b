package main

import (
	"context"
	"fmt"

	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/student"
)

func (cli *commandLine) runAddStudent(args []string) error {
	fs := cli.newFlagSet("student add")
	name := fs.String("name", "", "full name")
	class := fs.String("class", "", "class level, e.g. JSS1")
	stream := fs.String("stream", "", "stream or arm, e.g. A")
	email := fs.String("guardian-email", "", "guardian email for receipts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return cli.addStudent(*name, *class, *stream, *email)
}

func (cli *commandLine) addStudent(name, class, stream, email string) error {
	ns := student.NewStudent{Name: name, ClassLevel: class, Stream: stream, GuardianEmail: email}
	if err := ns.Validate(cli.validate); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}

	st, err := cli.studentSvc.Create(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "student %q (%s) created with ID %s\n", st.Name, st.ClassLabel(), st.ID)
	return nil
}
