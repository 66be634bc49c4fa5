package main

import (
	"log"
	"os"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/quiz"
	"github.com/nexora/backend/core/task"
	"github.com/nexora/backend/core/user"
	emailsvc "github.com/nexora/backend/services/email"
	"github.com/nexora/backend/storage/database"
	sqlxrepos "github.com/nexora/backend/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	workDir, err := os.Getwd()
	errAndDie(err)
	conf, err := core.NewConfig(workDir)
	errAndDie(err)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())

	// set up services
	mailSvc := emailsvc.NewConsoleService(conf)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	quizSvc := quiz.NewService(sqlxrepos.NewQuizRepository(db), usrSvc)
	taskSvc := task.NewService(sqlxrepos.NewTaskRepository(db), usrSvc, usrSvc, mailSvc)

	// start CLI
	cli := commandLine{
		db:      db,
		usrSvc:  usrSvc,
		quizSvc: quizSvc,
		taskSvc: taskSvc,
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
