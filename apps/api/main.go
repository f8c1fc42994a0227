package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/announcement"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/integrity"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/mongodb"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.LoadConfig()
	if err != nil {
		log.Fatalf("loading config: %+v", err)
	}

	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := mongodb.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(context.Background()); err != nil {
			logger.Error("closing database", err)
		}
	}()
	if err = db.EnsureIndexes(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("ensuring indexes: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	engine := integrity.NewEngine(db, integrity.NewLogSink(logger))
	resolver := integrity.NewResolver(db, engine)

	usrSvc := user.NewService(mongodb.NewUserRepository(db))
	classSvc := classroom.NewService(mongodb.NewClassroomRepository(db), usrSvc, resolver)
	gradeSvc := grading.NewService(mongodb.NewGradingRepository(db), usrSvc, resolver)
	attSvc := attendance.NewService(mongodb.NewAttendanceRepository(db), usrSvc, resolver)
	annSvc := announcement.NewService(mongodb.NewAnnouncementRepository(db), usrSvc, mailSvc, resolver)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		Store:           db,
		Verifier:        echoapi.NewGoogleVerifier(conf),
		UserSvc:         usrSvc,
		ClassroomSvc:    classSvc,
		GradingSvc:      gradeSvc,
		AttendanceSvc:   attSvc,
		AnnouncementSvc: annSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	case <-server.ShutdownSignal():
		logger.Info("integrity violation: Start shutdown...")
	}

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
