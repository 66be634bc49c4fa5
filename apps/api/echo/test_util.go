package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/quiz"
	"github.com/nexora/backend/core/task"
	"github.com/nexora/backend/core/user"
	emailsvc "github.com/nexora/backend/services/email"
	logsvc "github.com/nexora/backend/services/logger"
	inmemdb "github.com/nexora/backend/storage/database/inmem"
)

var errMissingToken = []byte(`{"success":false,"message":"missing or malformed jwt"}`)

type testEnv struct {
	server  Server
	usrSvc  *user.Service
	quizSvc *quiz.Service
	taskSvc *task.Service
}

func setupServer(t *testing.T) *testEnv {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setupServer() failed: %v", err)
	}

	conf := &core.Config{
		TestMode:  true,
		AppName:   "Nexora",
		SecretKey: []byte("secret"),
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf)
	quizSvc := quiz.NewService(inmemdb.NewQuizRepository(db), usrSvc)
	taskSvc := task.NewService(inmemdb.NewTaskRepository(db), usrSvc, usrSvc, mailSvc)

	server := NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags)),
		UserSvc:        usrSvc,
		QuizSvc:        quizSvc,
		TaskSvc:        taskSvc,
	})
	return &testEnv{server: server, usrSvc: usrSvc, quizSvc: quizSvc, taskSvc: taskSvc}
}

func (env *testEnv) createUser(t *testing.T, name, email, role string) user.User {
	usr, err := env.usrSvc.Create(context.Background(), user.NewUser{
		Name:            name,
		Email:           email,
		Password:        "s3cr3t pwd",
		PasswordConfirm: "s3cr3t pwd",
		Role:            role,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// successData wraps data in the success envelope.
func successData(t *testing.T, data interface{}) []byte {
	return marchallObj(t, Response{Success: true, Data: data})
}

func successList(t *testing.T, data interface{}, count int) []byte {
	return marchallObj(t, Response{Success: true, Data: data, Count: &count})
}

func successMessage(t *testing.T, msg string, data interface{}) []byte {
	return marchallObj(t, Response{Success: true, Message: msg, Data: data})
}

func failureMessage(t *testing.T, msg string) []byte {
	return marchallObj(t, Response{Success: false, Message: msg})
}

func failureFields(t *testing.T, fields map[string]string) []byte {
	return marchallObj(t, Response{Success: false, Message: "validation failed", Data: fields})
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// decodeResponse parses the envelope and re-marshals Data into out.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) Response {
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decodeResponse() failed: %v", err)
	}
	if out != nil {
		data, err := json.Marshal(resp.Data)
		if err != nil {
			t.Fatalf("decodeResponse() failed: %v", err)
		}
		if err = json.Unmarshal(data, out); err != nil {
			t.Fatalf("decodeResponse() failed: %v", err)
		}
	}
	return resp
}
