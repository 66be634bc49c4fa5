package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"testing"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/quiz"
	"github.com/nexora/backend/core/task"
	"github.com/nexora/backend/core/user"
	emailsvc "github.com/nexora/backend/services/email"
	inmemdb "github.com/nexora/backend/storage/database/inmem"
)

func setup(t *testing.T) *commandLine {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags)

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf := &core.Config{AppName: "Nexora", TestMode: true}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf)

	return &commandLine{
		usrSvc:  usrSvc,
		quizSvc: quiz.NewService(inmemdb.NewQuizRepository(db), usrSvc),
		taskSvc: task.NewService(inmemdb.NewTaskRepository(db), usrSvc, usrSvc, mailSvc),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "badge", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
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
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"adduser", "-name", "Teacher One"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Teacher One", "-email", "t1@test.com"}, wantErr: errHelp},
		{name: "create teacher", args: []string{"adduser", "-name", "Teacher One", "-email", "t1@test.com", "-role", "teacher"}, extra: extra{pwd: "s3cr3t pwd"}},
		{name: "role defaults to student", args: []string{"adduser", "-name", "Student One", "-email", "s1@test.com"}, extra: extra{pwd: "s3cr3t pwd"}},
		{name: "duplicate email", args: []string{"adduser", "-name", "Imposter", "-email", "t1@test.com"}, extra: extra{pwd: "s3cr3t pwd"}, wantErrStr: "a user with this email already exists"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if tt.wantErrStr != "" {
				if err == nil {
					t.Fatalf("cli.run() error = nil, wantErrStr %s", tt.wantErrStr)
				}
				vErr, ok := err.(*core.ValidationError)
				if !ok {
					t.Fatalf("cli.run() error = %v, want *core.ValidationError", err)
				}
				if len(vErr.Fields) == 0 || vErr.Fields[0].Error != tt.wantErrStr {
					t.Errorf("cli.run() fields = %+v, wantErrStr %s", vErr.Fields, tt.wantErrStr)
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}
		})
	}

	// created users are queryable with the expected roles
	ctx := context.Background()
	teacher, err := cli.usrSvc.GetByEmail(ctx, "t1@test.com")
	if err != nil {
		t.Fatalf("GetByEmail() failed: %v", err)
	}
	if !teacher.IsTeacher() {
		t.Errorf("role = %s, want %s", teacher.Role, user.RoleTeacher)
	}
	student, err := cli.usrSvc.GetByEmail(ctx, "s1@test.com")
	if err != nil {
		t.Fatalf("GetByEmail() failed: %v", err)
	}
	if !student.IsStudent() {
		t.Errorf("role = %s, want %s", student.Role, user.RoleStudent)
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	if err := cli.run([]string{"admin", "seed"}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}

	admin, err := cli.usrSvc.GetByEmail(ctx, "admin@nexora.com")
	if err != nil {
		t.Fatalf("GetByEmail() failed: %v", err)
	}
	if !admin.IsAdmin() {
		t.Errorf("role = %s, want %s", admin.Role, user.RoleAdmin)
	}

	quizzes, err := cli.quizSvc.Query(ctx, quiz.QueryFilter{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(quizzes) != 2 {
		t.Errorf("quizzes = %d, want 2", len(quizzes))
	}

	tasks, err := cli.taskSvc.Query(ctx, task.QueryFilter{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(tasks) != 4 {
		t.Errorf("tasks = %d, want 4", len(tasks))
	}

	// the perfect attempt and the approved submission both paid out
	board, err := cli.usrSvc.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("Leaderboard() failed: %v", err)
	}
	if len(board) != 3 {
		t.Fatalf("leaderboard = %d entries, want 3", len(board))
	}
	if board[0].Email != "student1@nexora.com" {
		t.Errorf("top student = %s, want student1@nexora.com", board[0].Email)
	}
	if want := 25 + 20; board[0].Points != want {
		t.Errorf("top points = %d, want %d", board[0].Points, want)
	}
}
