package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/announcement"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	store     core.Store
	usrRepo   user.Repository
	usrSvc    user.Service
	classRepo classroom.Repository
	gradeRepo grading.Repository
	attRepo   attendance.Repository
	annRepo   announcement.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  deluser -email EMAIL - hard-delete a user, leaving their references dangling")
	fmt.Println("  promote -email EMAIL - grant a user the admin role")
	fmt.Println("  sweep                - resolve every governed reference and report repairs")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	delUserCmd := flag.NewFlagSet("deluser", flag.ExitOnError)
	delUserEmail := delUserCmd.String("email", "", "The user's email.")

	promoteCmd := flag.NewFlagSet("promote", flag.ExitOnError)
	promoteEmail := promoteCmd.String("email", "", "The user's email.")

	sweepCmd := flag.NewFlagSet("sweep", flag.ExitOnError)

	switch args[1] {
	case "deluser":
		if err := delUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *delUserEmail == "" {
			delUserCmd.Usage()
			return errHelp
		}
		return cli.delUser(*delUserEmail)
	case "promote":
		if err := promoteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *promoteEmail == "" {
			promoteCmd.Usage()
			return errHelp
		}
		return cli.promote(*promoteEmail)
	case "sweep":
		if err := sweepCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.sweep()
	default:
		cli.printUsage()
		return errHelp
	}
}
