// Package apiclienttest provides an in-process fake of the Student Hub API.
package apiclienttest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/studenthub-portal/internal/models"
)

// Account is a user known to the fake backend.
type Account struct {
	Password  string
	Principal models.Principal
}

// Backend is an httptest server answering the Student Hub routes from memory.
type Backend struct {
	Server *httptest.Server

	mu         sync.Mutex
	accounts   map[string]Account
	activities map[uint][]models.Activity
	pending    []models.Activity
	students   []models.Student
	records    map[uint][]models.AcademicRecord
	analytics  string
	failures   map[string]int
	delays     map[string]time.Duration
	calls      []string
	correlated []string
	nextID     int
}

// NewBackend starts a fake backend. Call Close when done.
func NewBackend() *Backend {
	b := &Backend{
		accounts:   map[string]Account{},
		activities: map[uint][]models.Activity{},
		records:    map[uint][]models.AcademicRecord{},
		failures:   map[string]int{},
		delays:     map[string]time.Duration{},
		analytics:  `{"total_students":0,"total_activities":0,"department_wise":{}}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Smart Student Hub API"})
	})
	mux.HandleFunc("POST /auth/token", b.token)
	mux.HandleFunc("POST /auth/register", b.register)
	mux.HandleFunc("GET /auth/me", b.authed(b.me))
	mux.HandleFunc("PUT /auth/profile", b.authed(b.profile))
	mux.HandleFunc("GET /activities/{$}", b.authed(b.listActivities))
	mux.HandleFunc("POST /activities/{$}", b.authed(b.createActivity))
	mux.HandleFunc("GET /activities/pending", b.authed(b.listPending))
	mux.HandleFunc("PUT /activities/{id}/approve", b.authed(b.decide(models.ActivityStatusApproved)))
	mux.HandleFunc("PUT /activities/{id}/reject", b.authed(b.decide(models.ActivityStatusRejected)))
	mux.HandleFunc("POST /activities/upload-proof", b.authed(b.uploadProof))
	mux.HandleFunc("GET /academic/students/", b.authed(b.listStudents))
	mux.HandleFunc("GET /academic/academic-records/", b.authed(b.listRecords))
	mux.HandleFunc("GET /analytics/", b.authed(b.getAnalytics))

	b.Server = httptest.NewServer(b.intercept(mux))
	return b
}

// URL returns the backend root.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Close stops the server.
func (b *Backend) Close() {
	b.Server.Close()
}

// TokenFor returns the bearer token the backend issues for email.
func TokenFor(email string) string {
	return "token-" + strings.ToLower(strings.TrimSpace(email))
}

// AddAccount registers a user and returns its principal.
func (b *Backend) AddAccount(password string, principal models.Principal) models.Principal {
	b.mu.Lock()
	defer b.mu.Unlock()
	if principal.ID == 0 {
		principal.ID = uint(len(b.accounts) + 1)
	}
	principal.IsActive = true
	b.accounts[strings.ToLower(principal.Email)] = Account{Password: password, Principal: principal}
	return principal
}

// SetActivities replaces the activities owned by a user.
func (b *Backend) SetActivities(userID uint, activities []models.Activity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activities[userID] = append([]models.Activity(nil), activities...)
}

// SetPending replaces the pending review queue.
func (b *Backend) SetPending(activities []models.Activity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append([]models.Activity(nil), activities...)
}

// SetStudents replaces the roster.
func (b *Backend) SetStudents(students []models.Student) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.students = append([]models.Student(nil), students...)
}

// SetRecords replaces a user's academic records.
func (b *Backend) SetRecords(userID uint, records []models.AcademicRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[userID] = append([]models.AcademicRecord(nil), records...)
}

// SetAnalytics sets the raw analytics JSON so key order is under test control.
func (b *Backend) SetAnalytics(raw string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.analytics = raw
}

// Fail makes "METHOD /path" answer with status until cleared with status 0.
func (b *Backend) Fail(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, route)
		return
	}
	b.failures[route] = status
}

// Delay holds "METHOD /path" for d before answering.
func (b *Backend) Delay(route string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[route] = d
}

// Calls returns the "METHOD /path" log of received requests.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// CorrelationIDs returns the X-Correlation-ID header of each received request,
// aligned with Calls.
func (b *Backend) CorrelationIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.correlated...)
}

// Pending returns the backend's current pending queue.
func (b *Backend) Pending() []models.Activity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Activity(nil), b.pending...)
}

func (b *Backend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.calls = append(b.calls, route)
		b.correlated = append(b.correlated, r.Header.Get("X-Correlation-ID"))
		status := b.failures[route]
		delay := b.delays[route]
		b.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if status != 0 {
			writeJSON(w, status, map[string]string{"detail": fmt.Sprintf("forced failure %d", status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authed(next func(http.ResponseWriter, *http.Request, models.Principal)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		b.mu.Lock()
		var principal *models.Principal
		for email, account := range b.accounts {
			if TokenFor(email) == token {
				p := account.Principal
				principal = &p
				break
			}
		}
		b.mu.Unlock()
		if principal == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		next(w, r, *principal)
	}
}

func requireRole(w http.ResponseWriter, principal models.Principal, roles ...string) bool {
	for _, role := range roles {
		if principal.Role == role {
			return true
		}
	}
	writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Not enough permissions"})
	return false
}

func (b *Backend) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid form"})
		return
	}
	email := strings.ToLower(r.PostFormValue("username"))
	b.mu.Lock()
	account, ok := b.accounts[email]
	b.mu.Unlock()
	if !ok || account.Password != r.PostFormValue("password") {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
		return
	}
	writeJSON(w, http.StatusOK, models.Token{AccessToken: TokenFor(email), TokenType: "bearer"})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": "invalid body"}}})
		return
	}
	b.mu.Lock()
	_, exists := b.accounts[strings.ToLower(reg.Email)]
	b.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Email already registered"})
		return
	}
	principal := b.AddAccount(reg.Password, models.Principal{
		FullName:   reg.FullName,
		Email:      reg.Email,
		Role:       reg.Role,
		Department: reg.Department,
		Year:       reg.Year,
		CreatedAt:  time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, principal)
}

func (b *Backend) me(w http.ResponseWriter, _ *http.Request, principal models.Principal) {
	writeJSON(w, http.StatusOK, principal)
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request, principal models.Principal) {
	var update models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	if update.FullName != nil {
		principal.FullName = *update.FullName
	}
	if update.Department != nil {
		principal.Department = update.Department
	}
	if update.Year != nil {
		principal.Year = update.Year
	}
	b.mu.Lock()
	account := b.accounts[strings.ToLower(principal.Email)]
	account.Principal = principal
	b.accounts[strings.ToLower(principal.Email)] = account
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, principal)
}

func (b *Backend) listActivities(w http.ResponseWriter, _ *http.Request, principal models.Principal) {
	b.mu.Lock()
	activities := append([]models.Activity{}, b.activities[principal.ID]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, activities)
}

func (b *Backend) createActivity(w http.ResponseWriter, r *http.Request, principal models.Principal) {
	if !requireRole(w, principal, models.RoleStudent) {
		return
	}
	var payload models.ActivityCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	now := time.Now().UTC()
	b.mu.Lock()
	b.nextID++
	activity := models.Activity{
		ID:           fmt.Sprintf("act-%d", b.nextID),
		Title:        payload.Title,
		Description:  payload.Description,
		Category:     payload.Category,
		Duration:     payload.Duration,
		Status:       models.ActivityStatusPending,
		UserID:       principal.ID,
		SkillsGained: payload.SkillsGained,
		ProofURL:     payload.ProofURL,
		CreatedAt:    &now,
	}
	b.activities[principal.ID] = append(b.activities[principal.ID], activity)
	b.pending = append(b.pending, activity)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, activity)
}

func (b *Backend) listPending(w http.ResponseWriter, _ *http.Request, principal models.Principal) {
	if !requireRole(w, principal, models.RoleFaculty, models.RoleAdmin) {
		return
	}
	b.mu.Lock()
	pending := append([]models.Activity{}, b.pending...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, pending)
}

func (b *Backend) decide(status models.ActivityStatus) func(http.ResponseWriter, *http.Request, models.Principal) {
	return func(w http.ResponseWriter, r *http.Request, principal models.Principal) {
		if !requireRole(w, principal, models.RoleFaculty, models.RoleAdmin) {
			return
		}
		id := r.PathValue("id")
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, activity := range b.pending {
			if activity.ID == id {
				b.pending = append(b.pending[:i], b.pending[i+1:]...)
				activity.Status = status
				for owner, list := range b.activities {
					for j := range list {
						if list[j].ID == id {
							b.activities[owner][j].Status = status
						}
					}
				}
				writeJSON(w, http.StatusOK, map[string]string{"message": "Activity " + string(status)})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Activity not found"})
	}
}

func (b *Backend) uploadProof(w http.ResponseWriter, r *http.Request, principal models.Principal) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "file is required"})
		return
	}
	defer file.Close()
	_, _ = io.Copy(io.Discard, file)
	writeJSON(w, http.StatusOK, map[string]string{"url": fmt.Sprintf("uploads/%d_%s", principal.ID, header.Filename)})
}

func (b *Backend) listStudents(w http.ResponseWriter, _ *http.Request, principal models.Principal) {
	if !requireRole(w, principal, models.RoleFaculty, models.RoleAdmin) {
		return
	}
	b.mu.Lock()
	students := append([]models.Student{}, b.students...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, students)
}

func (b *Backend) listRecords(w http.ResponseWriter, _ *http.Request, principal models.Principal) {
	b.mu.Lock()
	records := append([]models.AcademicRecord{}, b.records[principal.ID]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, records)
}

func (b *Backend) getAnalytics(w http.ResponseWriter, _ *http.Request, principal models.Principal) {
	if !requireRole(w, principal, models.RoleAdmin) {
		return
	}
	b.mu.Lock()
	raw := b.analytics
	b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
