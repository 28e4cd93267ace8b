package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/davidobonyano/yano-school-next-sub001/apps/api/echo"
	"github.com/davidobonyano/yano-school-next-sub001/core"
	"github.com/davidobonyano/yano-school-next-sub001/core/ledger"
	"github.com/davidobonyano/yano-school-next-sub001/core/student"
	emailsvc "github.com/davidobonyano/yano-school-next-sub001/services/email"
	"github.com/davidobonyano/yano-school-next-sub001/services/events"
	logsvc "github.com/davidobonyano/yano-school-next-sub001/services/logger"
	"github.com/davidobonyano/yano-school-next-sub001/storage/database"
	sqlxrepos "github.com/davidobonyano/yano-school-next-sub001/storage/database/sqlx"
	"github.com/davidobonyano/yano-school-next-sub001/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testApp struct {
	*Server
	conf        *core.Config
	studentRepo student.Repository
	ledgerRepo  ledger.Repository
	events      *events.MemoryPublisher
	mail        *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) testApp {
	// set up DB & repos
	db, conf := testutil.PrepareDB(t)
	studentRepo := sqlxrepos.NewStudentRepository(db, conf.Database.Engine)
	ledgerRepo := sqlxrepos.NewLedgerRepository(db, conf.Database.Engine)

	// set up services
	logger := logsvc.NewDiscardLogger()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	pub := events.NewMemoryPublisher()
	studentSvc := student.NewService(studentRepo)
	ledgerSvc := ledger.NewService(database.NewTransactor(db), ledgerRepo, studentSvc, mailSvc, pub, logger)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	ledger.RegisterValidators(validate, translator)

	// set up server
	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		LedgerSvc:  ledgerSvc,
		StudentSvc: studentSvc,
		Validate:   validate,
		Translator: translator,
	})

	return testApp{
		Server:      server,
		conf:        conf,
		studentRepo: studentRepo,
		ledgerRepo:  ledgerRepo,
		events:      pub,
		mail:        mailSvc,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func (app testApp) serve(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func (app testApp) adminToken(t *testing.T, roles ...string) string {
	if len(roles) == 0 {
		roles = []string{RoleAdmin}
	}
	return app.token(t, "admin-1", "bursar", "", roles...)
}

func (app testApp) studentToken(t *testing.T, studentID string) string {
	return app.token(t, "user-"+studentID, studentID, studentID, RoleStudent)
}

func (app testApp) token(t *testing.T, subject, username, studentID string, roles ...string) string {
	claims, err := NewClaims(app.conf, subject, username, studentID, roles...)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	token, err := GenerateToken(app.conf, claims)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
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

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
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
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
