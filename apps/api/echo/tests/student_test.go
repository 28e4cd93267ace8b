package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidobonyano/yano-school-next-sub001/core/student"
	"github.com/davidobonyano/yano-school-next-sub001/tests"
)

func studentIDs(students []student.Student) []string {
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	return ids
}

func Test_studentApi_create(t *testing.T) {
	app := setup(t)
	adminToken := app.adminToken(t)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/students",
			body:     marchallObj(t, student.NewStudent{Name: "Ada Obi", ClassLevel: "JSS1"}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required", method: http.MethodPost, path: "/v1/students", token: app.studentToken(t, "s1"),
			body:     marchallObj(t, student.NewStudent{Name: "Ada Obi", ClassLevel: "JSS1"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Required fields", method: http.MethodPost, path: "/v1/students", token: adminToken,
			body:     marchallObj(t, student.NewStudent{Name: "   ", GuardianEmail: "not-an-email"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":           "this field is required",
				"class_level":    "this field is required",
				"guardian_email": "guardian_email must be a valid email address",
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(tt)
			checkCodeAndData(t, tt, rec)
		})
	}

	rec := app.serve(httpTest{
		method: http.MethodPost, path: "/v1/students", token: adminToken,
		body: marchallObj(t, student.NewStudent{Name: " Ada Obi ", ClassLevel: "JSS1", Stream: "A", GuardianEmail: "Obi@Test.ng"}),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var st student.Student
	unmarshal(t, rec, &st)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, "Ada Obi", st.Name)
	assert.Equal(t, "obi@test.ng", st.GuardianEmail)
	assert.Equal(t, "JSS1 A", st.ClassLabel())
}

func Test_studentApi_query(t *testing.T) {
	app := setup(t)
	testutil.CreateStudent(t, app.studentRepo, "s1", "Ada Obi", "JSS1", "A")
	testutil.CreateStudent(t, app.studentRepo, "s2", "Bayo Ade", "JSS1", "B")
	testutil.CreateStudent(t, app.studentRepo, "s3", "Chika Eze", "SSS2", "")
	adminToken := app.adminToken(t)

	tests := []struct {
		name    string
		path    string
		wantIDs []string
	}{
		{name: "all", path: "/v1/students", wantIDs: []string{"s1", "s2", "s3"}},
		{name: "by class", path: "/v1/students?class_level=jss1", wantIDs: []string{"s1", "s2"}},
		{name: "by class and stream", path: "/v1/students?class_level=JSS1&stream=b", wantIDs: []string{"s2"}},
		{name: "search", path: "/v1/students?search=EZE", wantIDs: []string{"s3"}},
		{name: "no match", path: "/v1/students?search=zzz", wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(httpTest{path: tt.path, token: adminToken})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var students []student.Student
			unmarshal(t, rec, &students)
			assert.Equal(t, tt.wantIDs, studentIDs(students))
		})
	}

	rec := app.serve(httpTest{path: "/v1/students", token: app.studentToken(t, "s1")})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_studentApi_retrieve(t *testing.T) {
	app := setup(t)
	testutil.CreateStudent(t, app.studentRepo, "s1", "Ada Obi", "JSS1", "A")
	testutil.CreateStudent(t, app.studentRepo, "s2", "Bayo Ade", "JSS1", "B")

	tests := []httpTest{
		{name: "Auth required", path: "/v1/students/s1", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Own record", path: "/v1/students/s1", token: app.studentToken(t, "s1"), wantCode: http.StatusOK},
		{
			name: "Someone else's record", path: "/v1/students/s2", token: app.studentToken(t, "s1"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "Admin", path: "/v1/students/s2", token: app.adminToken(t), wantCode: http.StatusOK},
		{
			name: "Unknown", path: "/v1/students/ghost", token: app.adminToken(t),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(tt)
			checkCodeAndData(t, tt, rec)
			if tt.wantCode == http.StatusOK {
				var st student.Student
				unmarshal(t, rec, &st)
				assert.Equal(t, tt.path[len("/v1/students/"):], st.ID)
			}
		})
	}
}
