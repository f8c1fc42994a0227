package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/mongodb"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.LoadConfig()
	errAndDie(err)

	// set up DB
	db, err := mongodb.Open(context.Background(), conf)
	errAndDie(err)
	defer db.Close(context.Background())

	// start CLI
	cli := commandLine{
		store:     db,
		usrRepo:   mongodb.NewUserRepository(db),
		usrSvc:    user.NewService(mongodb.NewUserRepository(db)),
		classRepo: mongodb.NewClassroomRepository(db),
		gradeRepo: mongodb.NewGradingRepository(db),
		attRepo:   mongodb.NewAttendanceRepository(db),
		annRepo:   mongodb.NewAnnouncementRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
