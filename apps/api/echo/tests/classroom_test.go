package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
)

func createClassroom(t *testing.T, instructor user.User) classroom.Classroom {
	t.Helper()
	c, err := classSvc.Create(context.Background(), instructor, classroom.NewClassroom{Name: "Biology 101", Term: "Fall 2026"})
	if err != nil {
		t.Fatalf("createClassroom(): %v", err)
	}
	return c
}

func joinClassroom(t *testing.T, c classroom.Classroom, student user.User) {
	t.Helper()
	if _, err := classSvc.Join(context.Background(), student, c.JoinCode); err != nil {
		t.Fatalf("joinClassroom(): %v", err)
	}
}

func Test_classroomApi_create(t *testing.T) {
	prof := createUser(t, "Prof", "prof-cc@test.test", user.RoleInstructor)
	stu := createUser(t, "Stu", "stu-cc@test.test", user.RoleStudent)

	body := []byte(`{"name": "Biology 101", "term": "Fall 2026"}`)
	tests := []httpTest{
		{name: "anonymous", body: body, wantCode: http.StatusUnauthorized},
		{name: "student forbidden", body: body, token: getToken(t, stu), wantCode: http.StatusForbidden},
		{name: "missing term", body: []byte(`{"name": "Biology 101"}`), token: getToken(t, prof), wantCode: http.StatusBadRequest},
		{name: "instructor", body: body, token: getToken(t, prof), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCode(t, tt, rec)

			if tt.wantCode != http.StatusCreated {
				return
			}
			var c classroom.Classroom
			if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if c.InstructorID != prof.ID || c.JoinCode == "" || c.Status != classroom.StatusActive {
				t.Errorf("classroom = %+v", c)
			}
		})
	}
}

func Test_classroomApi_join(t *testing.T) {
	prof := createUser(t, "Prof", "prof-join@test.test", user.RoleInstructor)
	stu := createUser(t, "Stu", "stu-join@test.test", user.RoleStudent)
	c := createClassroom(t, prof)

	token := getToken(t, stu)

	req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms/join", token, []byte(`{"code": "WRONG1"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad code = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	body := marchallObj(t, map[string]string{"code": c.JoinCode})
	req, rec = newAuthRequest(http.MethodPost, "/v1/classrooms/join", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("join = %d: %s", rec.Code, rec.Body.String())
	}

	// joined classrooms show up in the member listing
	req, rec = newAuthRequest(http.MethodGet, "/v1/classrooms", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query = %d: %s", rec.Code, rec.Body.String())
	}
	var cs []classroom.Classroom
	if err := json.Unmarshal(rec.Body.Bytes(), &cs); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(cs) != 1 || cs[0].ID != c.ID {
		t.Errorf("classrooms = %+v, want [%s]", cs, c.ID)
	}

	// archived classrooms refuse joins
	if _, err := classSvc.Archive(context.Background(), c.ID); err != nil {
		t.Fatalf("Archive(): %v", err)
	}
	other := createUser(t, "Other", "other-join@test.test", user.RoleStudent)
	req, rec = newAuthRequest(http.MethodPost, "/v1/classrooms/join", getToken(t, other), body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("join archived = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func Test_classroomApi_retrieve(t *testing.T) {
	prof := createUser(t, "Prof", "prof-ret@test.test", user.RoleInstructor)
	stu := createUser(t, "Stu", "stu-ret@test.test", user.RoleStudent)
	outsider := createUser(t, "Out", "out-ret@test.test", user.RoleStudent)
	c := createClassroom(t, prof)
	joinClassroom(t, c, stu)

	tests := []httpTest{
		{name: "unknown classroom", path: "/v1/classrooms/nope", token: getToken(t, prof), wantCode: http.StatusNotFound},
		{name: "outsider forbidden", path: "/v1/classrooms/" + c.ID, token: getToken(t, outsider), wantCode: http.StatusForbidden},
		{name: "member", path: "/v1/classrooms/" + c.ID, token: getToken(t, stu), wantCode: http.StatusOK},
		{name: "instructor", path: "/v1/classrooms/" + c.ID, token: getToken(t, prof), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCode(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				instructor := jsonField(t, rec.Body.Bytes(), "instructor").(map[string]interface{})
				if instructor["id"] != prof.ID {
					t.Errorf("instructor = %v", instructor)
				}
			}
		})
	}
}

func Test_classroomApi_roster(t *testing.T) {
	prof := createUser(t, "Prof", "prof-rost@test.test", user.RoleInstructor)
	stu := createUser(t, "Stu", "stu-rost@test.test", user.RoleStudent)
	c := createClassroom(t, prof)
	joinClassroom(t, c, stu)

	profToken := getToken(t, prof)

	// manual add enrolls by email
	body := []byte(`{"email": "manual@test.test", "name": "Manual Kid"}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms/"+c.ID+"/students", profToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add student = %d: %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/classrooms/"+c.ID+"/students", profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("roster = %d: %s", rec.Code, rec.Body.String())
	}
	var roster []user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &roster); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	emails := make([]string, len(roster))
	for i, s := range roster {
		emails[i] = s.Email
	}
	assert.ElementsMatch(t, []string{stu.Email, "manual@test.test"}, emails)

	// students cannot manage the roster
	req, rec = newAuthRequest(http.MethodDelete, "/v1/classrooms/"+c.ID+"/students/"+stu.ID, getToken(t, stu))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student remove = %d, want 403", rec.Code)
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/classrooms/"+c.ID+"/students/"+stu.ID, profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("remove = %d, want 204: %s", rec.Code, rec.Body.String())
	}
}

func Test_classroomApi_importExportRoster(t *testing.T) {
	prof := createUser(t, "Prof", "prof-imp@test.test", user.RoleInstructor)
	c := createClassroom(t, prof)
	profToken := getToken(t, prof)

	// no file attached
	req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms/"+c.ID+"/students/import", profToken)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no file = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "roster.csv")
	if err != nil {
		t.Fatalf("CreateFormFile(): %v", err)
	}
	fmt.Fprint(fw, "email,name\nimp1@test.test,Imp One\nimp2@test.test,Imp Two\n")
	mw.Close()

	req = httptest.NewRequest(http.MethodPost, "/v1/classrooms/"+c.ID+"/students/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+profToken)
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d: %s", rec.Code, rec.Body.String())
	}
	if added := jsonField(t, rec.Body.Bytes(), "added"); added != float64(2) {
		t.Errorf("added = %v, want 2", added)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/classrooms/"+c.ID+"/students/export", profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if out := rec.Body.String(); !strings.Contains(out, "imp1@test.test") || !strings.Contains(out, "imp2@test.test") {
		t.Errorf("export body = %q", out)
	}
}

func Test_gradingApi(t *testing.T) {
	prof := createUser(t, "Prof", "prof-gr@test.test", user.RoleInstructor)
	stu := createUser(t, "Stu", "stu-gr@test.test", user.RoleStudent)
	c := createClassroom(t, prof)
	joinClassroom(t, c, stu)

	profToken := getToken(t, prof)
	stuToken := getToken(t, stu)

	// students cannot create assignments
	body := []byte(`{"title": "HW 1", "points_possible": 20}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms/"+c.ID+"/assignments", stuToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student create = %d, want 403", rec.Code)
	}

	// points must be positive
	req, rec = newAuthRequest(http.MethodPost, "/v1/classrooms/"+c.ID+"/assignments", profToken, []byte(`{"title": "HW 1"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no points = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/classrooms/"+c.ID+"/assignments", profToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create assignment = %d: %s", rec.Code, rec.Body.String())
	}
	assignmentID := jsonField(t, rec.Body.Bytes(), "id").(string)

	// grade the student
	gradeBody := marchallObj(t, map[string]interface{}{"student_id": stu.ID, "score": 18, "feedback": "nice"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/assignments/"+assignmentID+"/grades", profToken, gradeBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert grade = %d: %s", rec.Code, rec.Body.String())
	}

	// grading an unknown student is a 404
	ghostBody := marchallObj(t, map[string]interface{}{"student_id": "ghost", "score": 1})
	req, rec = newAuthRequest(http.MethodPost, "/v1/assignments/"+assignmentID+"/grades", profToken, ghostBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("ghost grade = %d, want 404: %s", rec.Code, rec.Body.String())
	}

	// the student sees their own score on the assignment listing
	req, rec = newAuthRequest(http.MethodGet, "/v1/classrooms/"+c.ID+"/assignments", stuToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query assignments = %d: %s", rec.Code, rec.Body.String())
	}
	var assignments []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &assignments); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(assignments) != 1 || assignments[0]["score"] != float64(18) {
		t.Errorf("assignments = %+v", assignments)
	}

	// and on the grade endpoint; the instructor sees everyone
	req, rec = newAuthRequest(http.MethodGet, "/v1/assignments/"+assignmentID+"/grades", stuToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || jsonField(t, rec.Body.Bytes(), "score") != float64(18) {
		t.Errorf("student grades = %d: %s", rec.Code, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/assignments/"+assignmentID+"/grades", profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("instructor grades = %d: %s", rec.Code, rec.Body.String())
	}
	var results []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %+v", results)
	}

	// gradebook export
	req, rec = newAuthRequest(http.MethodGet, "/v1/classrooms/"+c.ID+"/grades/export", profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "HW 1 (/20)") {
		t.Errorf("export = %d: %s", rec.Code, rec.Body.String())
	}
}

func Test_attendanceApi(t *testing.T) {
	prof := createUser(t, "Prof", "prof-att@test.test", user.RoleInstructor)
	stu := createUser(t, "Stu", "stu-att@test.test", user.RoleStudent)
	outsider := createUser(t, "Out", "out-att@test.test", user.RoleStudent)
	c := createClassroom(t, prof)
	joinClassroom(t, c, stu)

	profToken := getToken(t, prof)
	stuToken := getToken(t, stu)

	req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms/"+c.ID+"/attendance/sessions", profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session = %d: %s", rec.Code, rec.Body.String())
	}
	sessionID := jsonField(t, rec.Body.Bytes(), "id").(string)
	code := jsonField(t, rec.Body.Bytes(), "code").(string)

	// students never see the code on the session listing
	req, rec = newAuthRequest(http.MethodGet, "/v1/classrooms/"+c.ID+"/attendance/sessions", stuToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query sessions = %d: %s", rec.Code, rec.Body.String())
	}
	var sessions []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %+v", sessions)
	}
	if sessions[0]["code"] != "" || sessions[0]["has_checked_in"] != false {
		t.Errorf("student view = %+v", sessions[0])
	}

	// the instructor sees the code while the session is open
	req, rec = newAuthRequest(http.MethodGet, "/v1/classrooms/"+c.ID+"/attendance/sessions", profToken)
	app.ServeHTTP(rec, req)
	sessions = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if sessions[0]["code"] != code {
		t.Errorf("instructor view = %+v, want code %q", sessions[0], code)
	}

	checkInBody := func(code string) []byte {
		return marchallObj(t, map[string]string{"session_id": sessionID, "code": code})
	}

	tests := []httpTest{
		{name: "outsider", body: checkInBody(code), token: getToken(t, outsider), wantCode: http.StatusForbidden},
		{name: "wrong code", body: checkInBody("XXXX"), token: stuToken, wantCode: http.StatusBadRequest},
		{name: "ok", body: checkInBody(code), token: stuToken, wantCode: http.StatusOK},
		{name: "twice", body: checkInBody(code), token: stuToken, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/checkin", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCode(t, tt, rec)
		})
	}

	// instructors can fix the record by hand
	manual := marchallObj(t, map[string]string{"student_id": stu.ID, "status": "late"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/sessions/"+sessionID+"/manual-checkin", profToken, manual)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("manual checkin = %d: %s", rec.Code, rec.Body.String())
	}

	// session details are instructor-only
	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/sessions/"+sessionID, stuToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student details = %d, want 403", rec.Code)
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/sessions/"+sessionID, profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("details = %d: %s", rec.Code, rec.Body.String())
	}

	// closing the session blocks further check-ins
	req, rec = newAuthRequest(http.MethodPatch, "/v1/attendance/sessions/"+sessionID, profToken, []byte(`{"is_open": false}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("close session = %d: %s", rec.Code, rec.Body.String())
	}
	late := createUser(t, "Late", "late-att@test.test", user.RoleStudent)
	joinClassroom(t, c, late)
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/checkin", getToken(t, late), checkInBody(code))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("closed checkin = %d, want 404: %s", rec.Code, rec.Body.String())
	}

	// and retires the code from the session listing
	req, rec = newAuthRequest(http.MethodGet, "/v1/classrooms/"+c.ID+"/attendance/sessions", profToken)
	app.ServeHTTP(rec, req)
	sessions = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if sessions[0]["code"] != "" {
		t.Errorf("closed session view = %+v, want no code", sessions[0])
	}

	// attendance sheet export
	req, rec = newAuthRequest(http.MethodGet, "/v1/classrooms/"+c.ID+"/attendance/export", profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Attendance Rate") {
		t.Errorf("export = %d: %s", rec.Code, rec.Body.String())
	}
}

func Test_announcementApi(t *testing.T) {
	prof := createUser(t, "Prof", "prof-ann@test.test", user.RoleInstructor)
	stu := createUser(t, "Stu", "stu-ann@test.test", user.RoleStudent)
	c := createClassroom(t, prof)
	joinClassroom(t, c, stu)

	profToken := getToken(t, prof)
	stuToken := getToken(t, stu)
	emailsvc.SentMessages = emailsvc.SentMessages[:0]

	// students cannot post
	body := []byte(`{"title": "Exam moved", "content": "Friday now."}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/classrooms/"+c.ID+"/announcements", stuToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student post = %d, want 403", rec.Code)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/classrooms/"+c.ID+"/announcements", profToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	annID := jsonField(t, rec.Body.Bytes(), "id").(string)

	// the roster got notified
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("got %d messages, want 1", len(emailsvc.SentMessages))
	}
	if subj := emailsvc.SentMessages[0].Subject; subj != "[Biology 101] Exam moved" {
		t.Errorf("Subject = %q", subj)
	}

	// members read the feed with authors resolved
	req, rec = newAuthRequest(http.MethodGet, "/v1/classrooms/"+c.ID+"/announcements", stuToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query = %d: %s", rec.Code, rec.Body.String())
	}
	var details []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &details); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(details) != 1 {
		t.Errorf("details = %+v", details)
	}

	// edits and deletes are author-classroom-instructor only
	req, rec = newAuthRequest(http.MethodPut, "/v1/announcements/"+annID, stuToken, []byte(`{"content": "hacked"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student edit = %d, want 403", rec.Code)
	}

	req, rec = newAuthRequest(http.MethodPut, "/v1/announcements/"+annID, profToken, []byte(`{"content": "Friday, room 2."}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || jsonField(t, rec.Body.Bytes(), "content") != "Friday, room 2." {
		t.Errorf("edit = %d: %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/announcements/"+annID, profToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204: %s", rec.Code, rec.Body.String())
	}
}
