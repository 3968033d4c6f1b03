// Package apperr defines the portal's typed failures and their HTTP mapping.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a failure for propagation and user-visible handling.
type Kind string

const (
	KindUnknown             Kind = "unknown"
	KindUnauthenticated     Kind = "unauthenticated"
	KindAccessDenied        Kind = "access_denied"
	KindPartialFetchFailure Kind = "partial_fetch_failure"
	KindMutationFailure     Kind = "mutation_failure"
	KindNetworkUnreachable  Kind = "network_unreachable"
	KindInvalidInput        Kind = "invalid_input"
	KindRemote              Kind = "remote"
)

// Error is a typed portal failure.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

// Error renders the human-readable message.
func (e *Error) Error() string {
	if e == nil {
		return string(KindUnknown)
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by kind so errors.Is(err, apperr.Unauthenticated) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	Unauthenticated     = &Error{Kind: KindUnauthenticated}
	AccessDenied        = &Error{Kind: KindAccessDenied}
	PartialFetchFailure = &Error{Kind: KindPartialFetchFailure}
	MutationFailure     = &Error{Kind: KindMutationFailure}
	NetworkUnreachable  = &Error{Kind: KindNetworkUnreachable}
	InvalidInput        = &Error{Kind: KindInvalidInput}
)

// E builds a typed error.
func E(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds a typed error around a cause.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Remote describes a non-2xx backend answer.
func Remote(op string, status int, detail string) error {
	kind := KindRemote
	switch status {
	case http.StatusUnauthorized:
		kind = KindUnauthenticated
	case http.StatusForbidden:
		kind = KindAccessDenied
	}
	if strings.TrimSpace(detail) == "" {
		detail = http.StatusText(status)
	}
	return &Error{Kind: kind, Op: op, Status: status, Message: detail}
}

// Mutation re-classifies a failed write. Authorization and reachability kinds are
// kept so callers can still redirect or show the connectivity message.
func Mutation(op string, err error) error {
	if err == nil {
		return nil
	}
	switch KindOf(err) {
	case KindUnauthenticated, KindAccessDenied, KindNetworkUnreachable, KindInvalidInput:
		return err
	}
	return &Error{Kind: KindMutationFailure, Op: op, Status: StatusOf(err), Err: err}
}

// KindOf returns the outermost kind in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Kind
	}
	return KindUnknown
}

// StatusOf returns the backend status carried by err, if any.
func StatusOf(err error) int {
	var appErr *Error
	for errors.As(err, &appErr) && appErr != nil {
		if appErr.Status != 0 {
			return appErr.Status
		}
		err = appErr.Err
		if err == nil {
			break
		}
	}
	return 0
}

// Detail returns the message the backend attached to the failure, if any.
func Detail(err error) string {
	var appErr *Error
	for errors.As(err, &appErr) && appErr != nil {
		if appErr.Message != "" {
			return appErr.Message
		}
		err = appErr.Err
		if err == nil {
			break
		}
	}
	return ""
}

// IsAuthorization reports whether err must end in a redirect to login.
func IsAuthorization(err error) bool {
	switch KindOf(err) {
	case KindUnauthenticated, KindAccessDenied:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an error to the status the portal answers with.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if Unreachable(err) {
		return http.StatusServiceUnavailable
	}
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindAccessDenied:
		return http.StatusForbidden
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNetworkUnreachable:
		return http.StatusServiceUnavailable
	case KindMutationFailure, KindRemote, KindPartialFetchFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Notice maps an authorization failure to the login page notice code.
func Notice(err error) string {
	if Unreachable(err) {
		return "backend_unreachable"
	}
	switch KindOf(err) {
	case KindAccessDenied:
		return "access_denied"
	case KindUnauthenticated:
		return "session_expired"
	default:
		return ""
	}
}

// UserMessage returns the message shown to the user for err.
func UserMessage(err error) string {
	if Unreachable(err) {
		return "Network error: no response from server. Is the backend running?"
	}
	switch KindOf(err) {
	case KindUnauthenticated:
		return "Your session has expired. Please log in again."
	case KindAccessDenied:
		return "Access denied for your role."
	}
	if detail := Detail(err); detail != "" {
		return detail
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Unreachable reports whether the backend never answered, at any depth of
// err's chain. Guard failures wrap it as Unauthenticated.
func Unreachable(err error) bool {
	return errors.Is(err, NetworkUnreachable)
}

// CredentialRejected reports whether err means the stored credential is no
// longer usable, as opposed to the backend being unreachable.
func CredentialRejected(err error) bool {
	return errors.Is(err, Unauthenticated) && !Unreachable(err)
}
