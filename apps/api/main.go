package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	echoapi "github.com/nexora/backend/apps/api/echo"
	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/quiz"
	"github.com/nexora/backend/core/task"
	"github.com/nexora/backend/core/user"
	emailsvc "github.com/nexora/backend/services/email"
	logsvc "github.com/nexora/backend/services/logger"
	"github.com/nexora/backend/storage/database"
	sqlxrepos "github.com/nexora/backend/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if err := run(std); err != nil {
		std.Fatalf("%+v", err)
	}
}

func run(std *log.Logger) error {
	workDir, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "getting working directory")
	}
	conf, err := core.NewConfig(workDir)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	// set up logging
	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	quizSvc := quiz.NewService(sqlxrepos.NewQuizRepository(db), usrSvc)
	taskSvc := task.NewService(sqlxrepos.NewTaskRepository(db), usrSvc, usrSvc, mailSvc)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address: conf.Server.Addr,
			Conf:    conf,
			Logger:  logger,
			UserSvc: usrSvc,
			QuizSvc: quizSvc,
			TaskSvc: taskSvc,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening on " + conf.Server.Addr)
		serverErrors <- app.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err = <-serverErrors:
		return errors.Wrap(err, "server error")
	case <-app.ShutdownSignal():
		logger.Warn("integrity issue caught, shutting down")
	case sig := <-shutdown:
		logger.Info("shutdown started", map[string]interface{}{"signal": sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err = app.Stop(ctx); err != nil {
		return errors.Wrap(err, "stopping server gracefully")
	}
	return nil
}
