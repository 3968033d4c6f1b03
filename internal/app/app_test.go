package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studenthub-portal/internal/apiclient/apiclienttest"
	"github.com/noah-isme/studenthub-portal/internal/config"
	"github.com/noah-isme/studenthub-portal/internal/dashboard"
	"github.com/noah-isme/studenthub-portal/internal/handler"
	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/session"
	"github.com/noah-isme/studenthub-portal/internal/workflow"
)

type fixture struct {
	portal  *Portal
	backend *apiclienttest.Backend
	student models.Principal
	faculty models.Principal
	admin   models.Principal
}

func testConfig(apiURL string) config.Config {
	return config.Config{
		AppName:          "portal-test",
		AppEnv:           "test",
		APIBaseURL:       apiURL,
		APITimeout:       2 * time.Second,
		SessionBackend:   config.SessionBackendMemory,
		SessionTTL:       time.Hour,
		EventChannel:     "studenthub:activities",
		ProofStorage:     config.ProofStorageBackend,
		ProofMaxSizeMB:   1,
		ReportSystemName: "smart_student_hub",
		LoginRateLimit:   1000,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newLoggedFixture(t, zerolog.Nop())
}

func newLoggedFixture(t *testing.T, logger zerolog.Logger) *fixture {
	t.Helper()
	backend := apiclienttest.NewBackend()
	t.Cleanup(backend.Close)

	cs := "CS"
	year := "2"
	f := &fixture{backend: backend}
	f.student = backend.AddAccount("secret", models.Principal{Email: "ana@example.com", FullName: "Ana", Role: models.RoleStudent, Department: &cs, Year: &year})
	f.faculty = backend.AddAccount("secret", models.Principal{Email: "fay@example.com", FullName: "Fay", Role: models.RoleFaculty, Department: &cs})
	f.admin = backend.AddAccount("secret", models.Principal{Email: "root@example.com", FullName: "Root", Role: models.RoleAdmin})

	backend.SetActivities(f.student.ID, []models.Activity{
		{ID: "a1", Title: "Hackathon", Status: models.ActivityStatusApproved, UserID: f.student.ID},
		{ID: "a2", Title: "Workshop", Status: models.ActivityStatusPending, UserID: f.student.ID},
	})
	backend.SetRecords(f.student.ID, []models.AcademicRecord{
		{Semester: "1", GPA: 3.5, CreditsEarned: 20, TotalCredits: 20},
		{Semester: "2", GPA: 3.7, CreditsEarned: 22, TotalCredits: 24},
	})
	backend.SetPending([]models.Activity{
		{ID: "act-1", Title: "Hackathon", Status: models.ActivityStatusPending, UserID: f.student.ID},
		{ID: "act-2", Title: "Seminar", Status: models.ActivityStatusPending, UserID: f.student.ID},
	})
	backend.SetStudents([]models.Student{{ID: f.student.ID, FullName: "Ana", Department: "CS"}})
	backend.SetAnalytics(`{"total_students":12,"total_activities":340,"department_wise":{"CS":200,"EE":140}}`)

	portal, err := Build(testConfig(backend.URL()), logger, Options{Quiet: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = portal.Close() })
	f.portal = portal
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request, cookie string) *http.Response {
	t.Helper()
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookie})
	}
	resp, err := f.portal.App.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func loginRequest(email, password string) *http.Request {
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (f *fixture) login(t *testing.T, email string) string {
	t.Helper()
	resp := f.do(t, loginRequest(email, "secret"), "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	for _, cookie := range resp.Cookies() {
		if cookie.Name == session.CookieName && cookie.Value != "" {
			return cookie.Value
		}
	}
	t.Fatalf("login for %s set no session cookie", email)
	return ""
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details map[string]any  `json:"details"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func decodeView(t *testing.T, resp *http.Response) dashboard.View {
	t.Helper()
	payload := decodeEnvelope(t, resp)
	require.True(t, payload.Success)
	var view dashboard.View
	require.NoError(t, json.Unmarshal(payload.Data, &view))
	return view
}

func TestLoginRedirectsToRoleLanding(t *testing.T) {
	f := newFixture(t)

	cases := map[string]string{
		"ana@example.com":  "/student",
		"fay@example.com":  "/faculty",
		"root@example.com": "/admin",
	}
	for email, landing := range cases {
		resp := f.do(t, loginRequest(email, "secret"), "")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode, email)
		require.Equal(t, landing, resp.Header.Get("Location"), email)
	}
}

func TestLoginWithWrongPasswordStaysOnLogin(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, loginRequest("ana@example.com", "wrong"), "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Location"))
	for _, cookie := range resp.Cookies() {
		require.NotEqual(t, session.CookieName, cookie.Name)
	}

	payload := decodeEnvelope(t, resp)
	require.False(t, payload.Success)
	require.Equal(t, "Incorrect email or password", payload.Message)
}

func TestLoginAcceptsJSON(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"fay@example.com","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := f.do(t, req, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/faculty", resp.Header.Get("Location"))
}

func TestLoginWithBackendDownShowsNetworkError(t *testing.T) {
	f := newFixture(t)
	f.backend.Close()

	resp := f.do(t, loginRequest("ana@example.com", "secret"), "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	payload := decodeEnvelope(t, resp)
	require.Contains(t, payload.Message, "Network error")
}

func TestStudentDashboard(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "ana@example.com")

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/student", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeView(t, resp)

	require.Equal(t, "Ana", view.Principal.FullName)
	require.Len(t, view.Activities, 2)
	require.Equal(t, 1, view.Metrics.ApprovedActivities)
	require.Equal(t, 1, view.Metrics.PendingActivities)
	require.Equal(t, 42, view.Metrics.Academic.CreditsEarned)
	require.InDelta(t, 3.6, view.Metrics.Academic.AverageGPA, 0.001)
	require.Empty(t, view.Degraded)
}

func TestStudentOnFacultyPageIsRedirected(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "ana@example.com")

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/faculty", nil), cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?notice=access_denied", resp.Header.Get("Location"))
}

func TestAdminMayOpenFacultyPage(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "root@example.com")

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/faculty", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDashboardWithoutSessionRedirectsToLogin(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/student", nil), "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?notice=session_expired", resp.Header.Get("Location"))

	resp = f.do(t, httptest.NewRequest(http.MethodPost, "/student/activities", strings.NewReader(`{"title":"Hackathon"}`)), "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	payload := decodeEnvelope(t, resp)
	require.Equal(t, "/login?notice=session_expired", payload.Details["redirect"])
}

func TestRejectedCredentialEndsSession(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "ana@example.com")

	f.backend.Fail("GET /auth/me", http.StatusUnauthorized)
	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/student", nil), cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?notice=session_expired", resp.Header.Get("Location"))

	f.backend.Fail("GET /auth/me", 0)
	resp = f.do(t, httptest.NewRequest(http.MethodGet, "/student", nil), cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?notice=session_expired", resp.Header.Get("Location"))
}

func TestDegradedSliceStillRenders(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "fay@example.com")

	f.backend.Fail("GET /academic/students/", http.StatusInternalServerError)
	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/faculty", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeView(t, resp)

	require.Equal(t, []dashboard.Slice{dashboard.SliceStudents}, view.Degraded)
	require.Len(t, view.Pending, 2)
	require.Empty(t, view.Students)
}

func TestAdminEngagementBars(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "root@example.com")

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/admin", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeView(t, resp)

	require.NotNil(t, view.Metrics.Engagement)
	bars := view.Metrics.Engagement.Bars
	require.Len(t, bars, 2)
	require.Equal(t, "CS", bars[0].Department)
	require.InDelta(t, 100.0, bars[0].Percent, 0.001)
	require.Equal(t, "EE", bars[1].Department)
	require.InDelta(t, 70.0, bars[1].Percent, 0.001)
}

func TestReportExportUsesLoadedSnapshot(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "root@example.com")

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/admin", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	analyticsCalls := countCalls(f.backend.Calls(), "GET /analytics/")

	resp = f.do(t, httptest.NewRequest(http.MethodGet, "/admin/reports/naac?format=csv", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `attachment; filename="smart_student_hub_NAAC_report.csv"`, resp.Header.Get("Content-Disposition"))
	require.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "department,CS,200\ndepartment,EE,140\n")
	require.Equal(t, analyticsCalls, countCalls(f.backend.Calls(), "GET /analytics/"))
}

func TestReportExportRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "root@example.com")

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/reports/qs", nil), cookie)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportExportIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "fay@example.com")

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/reports/naac", nil), cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?notice=access_denied", resp.Header.Get("Location"))
}

func TestFacultyDecisionsUpdateQueueAfterAck(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "fay@example.com")
	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/faculty", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, httptest.NewRequest(http.MethodPost, "/faculty/activities/act-1/approve", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload := decodeEnvelope(t, resp)
	require.Equal(t, "activity approved", payload.Message)
	require.JSONEq(t, `{"pending_remaining":1}`, string(payload.Meta))
	require.Len(t, f.backend.Pending(), 1)

	// A failed reject leaves the queue as it was.
	f.backend.Fail("PUT /activities/act-2/reject", http.StatusInternalServerError)
	resp = f.do(t, httptest.NewRequest(http.MethodPost, "/faculty/activities/act-2/reject", nil), cookie)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp = f.do(t, httptest.NewRequest(http.MethodGet, "/faculty", nil), cookie)
	view := decodeView(t, resp)
	require.Len(t, view.Pending, 1)
	require.Equal(t, "act-2", view.Pending[0].ID)
}

func TestFacultyDecisionLogsReviewer(t *testing.T) {
	var logs bytes.Buffer
	f := newLoggedFixture(t, zerolog.New(&logs))
	cookie := f.login(t, "fay@example.com")

	resp := f.do(t, httptest.NewRequest(http.MethodPost, "/faculty/activities/act-1/reject", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var recorded map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) != nil {
			continue
		}
		if entry["message"] == "review decision recorded" {
			recorded = entry
		}
	}
	require.NotNil(t, recorded)
	require.Equal(t, float64(f.faculty.ID), recorded["reviewer_id"])
	require.Equal(t, "act-1", recorded["activity_id"])
	require.Equal(t, "reject", recorded["decision"])
}

func TestFacultyDecisionOnUnknownActivity(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "fay@example.com")

	resp := f.do(t, httptest.NewRequest(http.MethodPost, "/faculty/activities/nope/approve", nil), cookie)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, httptest.NewRequest(http.MethodPost, "/faculty/activities/act-1/escalate", nil), cookie)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStudentSubmitsActivityWithProof(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "ana@example.com")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("title", "Robotics <b>Cup</b>"))
	require.NoError(t, writer.WriteField("description", "Built a line follower"))
	require.NoError(t, writer.WriteField("category", "Competition"))
	require.NoError(t, writer.WriteField("skills", "Embedded, C, Embedded"))
	part, err := writer.CreateFormFile("proof", "certificate.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n%%EOF\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/student/activities", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := f.do(t, req, cookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	var created models.Activity
	require.NoError(t, json.Unmarshal(payload.Data, &created))
	require.Equal(t, "Robotics Cup", created.Title)
	require.Equal(t, []string{"Embedded", "C"}, created.SkillsGained)
	require.NotNil(t, created.ProofURL)
	require.Equal(t, "uploads/1_certificate.pdf", *created.ProofURL)

	calls := f.backend.Calls()
	require.Less(t, indexOf(calls, "POST /activities/upload-proof"), indexOf(calls, "POST /activities/"))
}

func TestStudentSubmitValidationSkipsBackend(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "ana@example.com")
	before := len(f.backend.Calls())

	req := httptest.NewRequest(http.MethodPost, "/student/activities", strings.NewReader(`{"title":"  ","description":""}`))
	req.Header.Set("Content-Type", "application/json")
	resp := f.do(t, req, cookie)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Only the gate's profile check and the page load reach the backend.
	for _, call := range f.backend.Calls()[before:] {
		require.NotEqual(t, "POST /activities/", call)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "ana@example.com")

	resp := f.do(t, httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	resp = f.do(t, httptest.NewRequest(http.MethodGet, "/student", nil), cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?notice=session_expired", resp.Header.Get("Location"))
}

func TestRegisterNormalizesByRole(t *testing.T) {
	f := newFixture(t)

	registration := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(
			`{"full_name":"Ada","email":"ada@example.com","password":"secret1","role":"Admin","department":"CS","year":"3"}`))
		req.Header.Set("Content-Type", "application/json")
		return req
	}
	resp := f.do(t, registration(), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	var principal models.Principal
	require.NoError(t, json.Unmarshal(payload.Data, &principal))
	require.Equal(t, models.RoleAdmin, principal.Role)
	require.Nil(t, principal.Department)
	require.Nil(t, principal.Year)

	resp = f.do(t, registration(), "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Email already registered", decodeEnvelope(t, resp).Message)
}

func TestProfileUpdate(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "ana@example.com")

	req := httptest.NewRequest(http.MethodPut, "/profile", strings.NewReader(`{"full_name":"Ana Maria"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := f.do(t, req, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	var principal models.Principal
	require.NoError(t, json.Unmarshal(payload.Data, &principal))
	require.Equal(t, "Ana Maria", principal.FullName)
}

func TestHealthReportsBackendReachability(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health handler.HealthResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &health))
	require.Equal(t, "reachable", health.Backend)

	f.backend.Close()
	resp = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &health))
	require.Equal(t, "unreachable", health.Backend)
}

func TestLiveDashboardStream(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "ana@example.com")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = f.portal.App.Listener(ln) }()
	t.Cleanup(func() { _ = f.portal.App.Shutdown() })

	header := http.Header{}
	header.Set("Cookie", session.CookieName+"="+cookie)
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/dashboard?page=student", header)
	require.NoError(t, err)
	defer conn.Close()

	var frames []handler.LiveFrame
	for i := 0; i < 3; i++ {
		var frame handler.LiveFrame
		require.NoError(t, conn.ReadJSON(&frame))
		frames = append(frames, frame)
	}
	require.Equal(t, handler.FrameLoading, frames[0].Type)
	require.True(t, *frames[0].Loading)
	require.Equal(t, handler.FrameView, frames[1].Type)
	require.Equal(t, "Ana", frames[1].View.Principal.FullName)
	require.Equal(t, handler.FrameLoading, frames[2].Type)
	require.False(t, *frames[2].Loading)

	// The subscription starts after the view is sent, so keep publishing until
	// the event arrives.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.portal.Events.Publish(ctx, workflow.NewEvent(workflow.EventDecided, models.Activity{
					ID: "a2", Status: models.ActivityStatusApproved, UserID: f.student.ID,
				}))
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event handler.LiveFrame
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, handler.FrameEvent, event.Type)
	require.Equal(t, "a2", event.Event.ActivityID)
	require.Equal(t, workflow.EventDecided, event.Event.Type)
}

func TestLiveDashboardDeniedRole(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "ana@example.com")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = f.portal.App.Listener(ln) }()
	t.Cleanup(func() { _ = f.portal.App.Shutdown() })

	header := http.Header{}
	header.Set("Cookie", session.CookieName+"="+cookie)
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/dashboard?page=admin", header)
	require.NoError(t, err)
	defer conn.Close()

	var frames []handler.LiveFrame
	for i := 0; i < 3; i++ {
		var frame handler.LiveFrame
		require.NoError(t, conn.ReadJSON(&frame))
		frames = append(frames, frame)
	}
	require.Equal(t, handler.FrameLoading, frames[0].Type)
	require.Equal(t, handler.FrameError, frames[1].Type)
	require.Equal(t, "/login?notice=access_denied", frames[1].Redirect)
	require.Equal(t, handler.FrameLoading, frames[2].Type)
	require.False(t, *frames[2].Loading)
}

func TestBuildRejectsUnknownSessionBackend(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.SessionBackend = "etcd"
	_, err := Build(cfg, zerolog.Nop(), Options{Quiet: true})
	require.Error(t, err)
}

func TestBuildWithSQLiteSessions(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.SessionBackend = config.SessionBackendSQLite
	cfg.DatabaseURL = "file::memory:"

	portal, err := Build(cfg, zerolog.Nop(), Options{Quiet: true})
	require.NoError(t, err)
	defer portal.Close()

	sess, err := portal.Sessions.Create(context.Background(), "token-x")
	require.NoError(t, err)
	got, err := portal.Sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, "token-x", got.Credential)
}

func countCalls(calls []string, route string) int {
	count := 0
	for _, call := range calls {
		if call == route {
			count++
		}
	}
	return count
}

func indexOf(calls []string, route string) int {
	for i, call := range calls {
		if call == route {
			return i
		}
	}
	return -1
}
