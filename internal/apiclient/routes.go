package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/session"
)

// Operation names, also used as metric route labels.
const (
	opLogin           = "auth.token"
	opRegister        = "auth.register"
	opMe              = "auth.me"
	opProfile         = "auth.profile"
	opActivities      = "activities.list"
	opPending         = "activities.pending"
	opApprove         = "activities.approve"
	opReject          = "activities.reject"
	opCreateActivity  = "activities.create"
	opUploadProof     = "activities.upload_proof"
	opStudents        = "academic.students"
	opAcademicRecords = "academic.records"
	opAnalytics       = "analytics.summary"
	opPing            = "root.ping"
)

// Login exchanges email and password for a bearer token. The backend expects an
// OAuth2 password form with the email in the username field.
func (c *Client) Login(ctx context.Context, email, password string) (models.Token, error) {
	form := url.Values{}
	form.Set("username", strings.TrimSpace(email))
	form.Set("password", password)

	var token models.Token
	err := c.do(ctx, call{
		op:          opLogin,
		method:      http.MethodPost,
		path:        "/auth/token",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		out:         &token,
	})
	if err != nil {
		return models.Token{}, err
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return models.Token{}, apperr.E(apperr.KindRemote, opLogin, "token response carried no access token")
	}
	return token, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, registration models.Registration) (models.Principal, error) {
	body, err := jsonBody(registration.Normalize())
	if err != nil {
		return models.Principal{}, apperr.Wrap(apperr.KindInvalidInput, opRegister, err)
	}
	var principal models.Principal
	err = c.do(ctx, call{
		op:          opRegister,
		method:      http.MethodPost,
		path:        "/auth/register",
		body:        body,
		contentType: "application/json",
		out:         &principal,
	})
	return principal, err
}

// Me returns the principal the session's credential belongs to.
func (c *Client) Me(ctx context.Context, sess session.Session) (models.Principal, error) {
	var principal models.Principal
	err := c.do(ctx, call{op: opMe, method: http.MethodGet, path: "/auth/me", protected: true, sess: &sess, out: &principal})
	return principal, err
}

// UpdateProfile changes the caller's profile fields.
func (c *Client) UpdateProfile(ctx context.Context, sess session.Session, update models.ProfileUpdate) (models.Principal, error) {
	body, err := jsonBody(update)
	if err != nil {
		return models.Principal{}, apperr.Wrap(apperr.KindInvalidInput, opProfile, err)
	}
	var principal models.Principal
	err = c.do(ctx, call{
		op:          opProfile,
		method:      http.MethodPut,
		path:        "/auth/profile",
		protected:   true,
		sess:        &sess,
		body:        body,
		contentType: "application/json",
		out:         &principal,
	})
	return principal, err
}

// ListActivities returns the caller's own activities.
func (c *Client) ListActivities(ctx context.Context, sess session.Session) ([]models.Activity, error) {
	activities := []models.Activity{}
	err := c.do(ctx, call{op: opActivities, method: http.MethodGet, path: "/activities/", protected: true, sess: &sess, out: &activities})
	return activities, err
}

// ListPending returns every activity awaiting review.
func (c *Client) ListPending(ctx context.Context, sess session.Session) ([]models.Activity, error) {
	activities := []models.Activity{}
	err := c.do(ctx, call{op: opPending, method: http.MethodGet, path: "/activities/pending", protected: true, sess: &sess, out: &activities})
	return activities, err
}

// Approve marks a pending activity approved.
func (c *Client) Approve(ctx context.Context, sess session.Session, id string) error {
	return c.decide(ctx, sess, opApprove, id, "approve")
}

// Reject marks a pending activity rejected.
func (c *Client) Reject(ctx context.Context, sess session.Session, id string) error {
	return c.decide(ctx, sess, opReject, id, "reject")
}

func (c *Client) decide(ctx context.Context, sess session.Session, op, id, action string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.E(apperr.KindInvalidInput, op, "activity id is required")
	}
	return c.do(ctx, call{
		op:        op,
		method:    http.MethodPut,
		path:      fmt.Sprintf("/activities/%s/%s", url.PathEscape(id), action),
		protected: true,
		sess:      &sess,
	})
}

// CreateActivity submits a new activity for review.
func (c *Client) CreateActivity(ctx context.Context, sess session.Session, payload models.ActivityCreate) (models.Activity, error) {
	if payload.SkillsGained == nil {
		payload.SkillsGained = []string{}
	}
	body, err := jsonBody(payload)
	if err != nil {
		return models.Activity{}, apperr.Wrap(apperr.KindInvalidInput, opCreateActivity, err)
	}
	var activity models.Activity
	err = c.do(ctx, call{
		op:          opCreateActivity,
		method:      http.MethodPost,
		path:        "/activities/",
		protected:   true,
		sess:        &sess,
		body:        body,
		contentType: "application/json",
		out:         &activity,
	})
	return activity, err
}

// UploadProof stores a proof document on the backend and returns its reference.
func (c *Client) UploadProof(ctx context.Context, sess session.Session, filename string, content io.Reader) (string, error) {
	if content == nil {
		return "", apperr.E(apperr.KindInvalidInput, opUploadProof, "proof content is required")
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		filename = "proof"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, opUploadProof, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, opUploadProof, err)
	}
	if err := writer.Close(); err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, opUploadProof, err)
	}

	var result struct {
		URL string `json:"url"`
	}
	err = c.do(ctx, call{
		op:          opUploadProof,
		method:      http.MethodPost,
		path:        "/activities/upload-proof",
		protected:   true,
		sess:        &sess,
		body:        &buf,
		contentType: writer.FormDataContentType(),
		out:         &result,
	})
	if err != nil {
		return "", err
	}
	return result.URL, nil
}

// ListStudents returns the student roster.
func (c *Client) ListStudents(ctx context.Context, sess session.Session) ([]models.Student, error) {
	students := []models.Student{}
	err := c.do(ctx, call{op: opStudents, method: http.MethodGet, path: "/academic/students/", protected: true, sess: &sess, out: &students})
	return students, err
}

// ListAcademicRecords returns the caller's semester records.
func (c *Client) ListAcademicRecords(ctx context.Context, sess session.Session) ([]models.AcademicRecord, error) {
	records := []models.AcademicRecord{}
	err := c.do(ctx, call{op: opAcademicRecords, method: http.MethodGet, path: "/academic/academic-records/", protected: true, sess: &sess, out: &records})
	return records, err
}

// Analytics returns the institution summary.
func (c *Client) Analytics(ctx context.Context, sess session.Session) (models.Analytics, error) {
	var analytics models.Analytics
	err := c.do(ctx, call{op: opAnalytics, method: http.MethodGet, path: "/analytics/", protected: true, sess: &sess, out: &analytics})
	return analytics, err
}

// Ping checks that the API root answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, call{op: opPing, method: http.MethodGet, path: "/"})
}
