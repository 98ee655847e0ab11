package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"rollbook/internal/attendance"
	"rollbook/internal/auth"
	"rollbook/internal/httpapi"
	"rollbook/internal/roster"
	"rollbook/internal/store"
)

func newServer(t *testing.T, adminKey string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	h := httpapi.NewHandler(
		roster.NewService(mem, true),
		attendance.NewService(mem, true),
		mem,
		adminKey, "rollbook-test", "test-signing-key", time.Hour,
	)

	r := gin.New()
	var guard gin.HandlerFunc
	if adminKey != "" {
		guard = auth.AdminAuth("test-signing-key", "rollbook-test")
	}
	httpapi.Register(r, h, guard)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func seedStudents(t *testing.T, r *gin.Engine) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/students", []map[string]string{
		{"name": "Ana Lee", "studentId": "S1", "class": "10A"},
		{"name": "Bob", "studentId": "S2", "class": "10B"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("seed roster: status %d, body %s", w.Code, w.Body.String())
	}
}

func TestStudentsRoundtrip(t *testing.T) {
	r := newServer(t, "")
	seedStudents(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/students", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var students []map[string]any
	decode(t, w, &students)
	if len(students) != 2 {
		t.Fatalf("got %d students, want 2", len(students))
	}
	if students[0]["name"] != "Ana Lee" {
		t.Errorf("first student = %v, want Ana Lee (name order)", students[0]["name"])
	}
}

func TestSaveStudentsRejectsNonArray(t *testing.T) {
	r := newServer(t, "")
	w := doJSON(t, r, http.MethodPost, "/api/students", map[string]string{"name": "Ana"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
	var body map[string]any
	decode(t, w, &body)
	if body["error"] == nil {
		t.Error("error body missing error field")
	}
}

func TestSaveStudentsDuplicateIdConflict(t *testing.T) {
	r := newServer(t, "")
	w := doJSON(t, r, http.MethodPost, "/api/students", []map[string]string{
		{"name": "Ana", "studentId": "S1", "class": "10A"},
		{"name": "Bob", "studentId": "S1", "class": "10B"},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409", w.Code)
	}
}

func TestDeleteStudentEndpoints(t *testing.T) {
	r := newServer(t, "")
	seedStudents(t, r)

	w := doJSON(t, r, http.MethodDelete, "/api/students/S1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status %d, body %s", w.Code, w.Body.String())
	}
	var body map[string]any
	decode(t, w, &body)
	deleted, _ := body["deletedStudent"].(map[string]any)
	if deleted == nil || deleted["name"] != "Ana Lee" {
		t.Errorf("deletedStudent = %v, want Ana Lee", body["deletedStudent"])
	}

	w = doJSON(t, r, http.MethodDelete, "/api/students/doesnotexist", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown student: status %d, want 404", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/students", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete all: status %d", w.Code)
	}
	decode(t, w, &body)
	if body["deletedCount"] != float64(1) {
		t.Errorf("deletedCount = %v, want 1", body["deletedCount"])
	}
}

func TestDeleteStudentsBatch(t *testing.T) {
	r := newServer(t, "")
	seedStudents(t, r)

	w := doJSON(t, r, http.MethodDelete, "/api/students/batch/delete",
		map[string]any{"studentIds": []string{"S1", "S2", "doesnotexist"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var body map[string]any
	decode(t, w, &body)
	if body["deletedCount"] != float64(2) || body["notFoundCount"] != float64(1) {
		t.Errorf("counts = %v/%v, want 2/1", body["deletedCount"], body["notFoundCount"])
	}

	w = doJSON(t, r, http.MethodDelete, "/api/students/batch/delete",
		map[string]any{"studentIds": []string{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty list: status %d, want 400", w.Code)
	}
}

func seedSheets(t *testing.T, r *gin.Engine) {
	t.Helper()
	sheets := []map[string]any{
		{
			"date": "2024-01-10",
			"records": []map[string]string{
				{"name": "Ana Lee", "status": "Present"},
			},
		},
		{
			"date": "2024-01-11",
			"records": []map[string]string{
				{"name": "banana", "status": "Absent"},
			},
		},
	}
	for _, sheet := range sheets {
		w := doJSON(t, r, http.MethodPost, "/api/attendance", sheet)
		if w.Code != http.StatusOK {
			t.Fatalf("seed sheet: status %d, body %s", w.Code, w.Body.String())
		}
	}
}

func TestAttendanceRoundtrip(t *testing.T) {
	r := newServer(t, "")
	seedSheets(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/attendance/2024-01-10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var sheet map[string]any
	decode(t, w, &sheet)
	if sheet["date"] != "2024-01-10" {
		t.Errorf("date = %v", sheet["date"])
	}

	w = doJSON(t, r, http.MethodGet, "/api/attendance/2030-01-01", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown date: status %d, want 404", w.Code)
	}
}

func TestAttendanceRejectsMissingFields(t *testing.T) {
	r := newServer(t, "")

	w := doJSON(t, r, http.MethodPost, "/api/attendance", map[string]any{
		"records": []map[string]string{{"name": "Ana", "status": "Present"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing date: status %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/attendance", map[string]any{"date": "2024-01-10"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing records: status %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/attendance", map[string]any{
		"date":    "2024-01-10",
		"records": []map[string]string{{"name": "Ana", "status": "Vacation"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad status: status %d, want 400", w.Code)
	}
}

func TestAttendanceDates(t *testing.T) {
	r := newServer(t, "")
	seedSheets(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/attendance/dates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var dates []string
	decode(t, w, &dates)
	if len(dates) != 2 || dates[0] != "2024-01-11" || dates[1] != "2024-01-10" {
		t.Errorf("dates = %v, want descending", dates)
	}
}

func TestAttendanceSummaries(t *testing.T) {
	r := newServer(t, "")
	seedSheets(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/attendance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var summaries []map[string]any
	decode(t, w, &summaries)
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	first := summaries[0]
	if first["date"] != "2024-01-11" {
		t.Errorf("first summary date = %v, want 2024-01-11", first["date"])
	}
	if first["attendanceRate"] != float64(0) || first["totalStudents"] != float64(1) {
		t.Errorf("summary = %v", first)
	}
}

func TestAttendanceSearch(t *testing.T) {
	r := newServer(t, "")
	seedSheets(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/attendance/search/ana", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var matches []map[string]any
	decode(t, w, &matches)
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0]["date"] != "2024-01-11" || matches[0]["name"] != "banana" {
		t.Errorf("first match = %v, want banana on 2024-01-11", matches[0])
	}
}

func TestAttendanceOverview(t *testing.T) {
	r := newServer(t, "")
	seedSheets(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/attendance/stats/overview", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var overview map[string]any
	decode(t, w, &overview)
	if overview["totalRecords"] != float64(2) || overview["totalClasses"] != float64(2) {
		t.Errorf("overview = %v", overview)
	}
	if overview["averageAttendance"] != float64(50) {
		t.Errorf("averageAttendance = %v, want 50", overview["averageAttendance"])
	}
}

func TestHealth(t *testing.T) {
	r := newServer(t, "")
	w := doJSON(t, r, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body map[string]any
	decode(t, w, &body)
	for _, field := range []string{"status", "timestamp", "uptime", "database"} {
		if body[field] == nil {
			t.Errorf("health response missing %s", field)
		}
	}
}

func TestAdminGuardOnDestructiveEndpoints(t *testing.T) {
	r := newServer(t, "sesame")
	seedStudents(t, r)

	w := doJSON(t, r, http.MethodDelete, "/api/students/S1", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated delete: status %d, want 401", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/auth/token", map[string]string{"adminKey": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong admin key: status %d, want 401", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/auth/token", map[string]string{"adminKey": "sesame"})
	if w.Code != http.StatusCreated {
		t.Fatalf("token issue: status %d, body %s", w.Code, w.Body.String())
	}
	var body map[string]any
	decode(t, w, &body)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("no token in response")
	}

	w = doJSON(t, r, http.MethodDelete, "/api/students/S1", nil, "Authorization", "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated delete: status %d, body %s", w.Code, w.Body.String())
	}

	// Reads stay open.
	w = doJSON(t, r, http.MethodGet, "/api/students", nil)
	if w.Code != http.StatusOK {
		t.Errorf("read with guard enabled: status %d", w.Code)
	}
}
