package main

import (
	"fmt"

	echoapi "github.com/davidobonyano/yano-school-next-sub001/apps/api/echo"
	"github.com/davidobonyano/yano-school-next-sub001/core"
)

// runToken issues an API token, mainly for staff tooling and local testing.
func (cli *commandLine) runToken(args []string) error {
	fs := cli.newFlagSet("token")
	subject := fs.String("subject", "", "token subject")
	username := fs.String("username", "", "username (defaults to the subject)")
	roles := fs.String("roles", echoapi.RoleAdmin, "comma-separated roles")
	studentID := fs.String("student", "", "student ID, required for the student role")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sub := core.CleanString(*subject)
	if sub == "" {
		return core.NewFieldError("subject", "this field is required")
	}
	name := core.CleanString(*username)
	if name == "" {
		name = sub
	}

	claims, err := echoapi.NewClaims(cli.conf, sub, name, core.CleanString(*studentID), splitList(*roles)...)
	if err != nil {
		return err
	}
	token, err := echoapi.GenerateToken(cli.conf, claims)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
