package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoteMapsAuthorizationStatuses(t *testing.T) {
	err := Remote("GET /auth/me", http.StatusUnauthorized, "Could not validate credentials")
	require.True(t, errors.Is(err, Unauthenticated))
	require.Equal(t, KindUnauthenticated, KindOf(err))
	require.Equal(t, "Could not validate credentials", Detail(err))

	err = Remote("GET /analytics/", http.StatusForbidden, "")
	require.True(t, errors.Is(err, AccessDenied))
	require.Equal(t, "Forbidden", Detail(err))

	err = Remote("GET /activities/", http.StatusInternalServerError, "boom")
	require.Equal(t, KindRemote, KindOf(err))
	require.Equal(t, http.StatusInternalServerError, StatusOf(err))
}

func TestMutationKeepsAuthorizationAndReachability(t *testing.T) {
	unreachable := Wrap(KindNetworkUnreachable, "PUT /activities/1/approve", errors.New("dial tcp: refused"))
	require.Equal(t, KindNetworkUnreachable, KindOf(Mutation("approve", unreachable)))

	denied := Remote("PUT /activities/1/approve", http.StatusForbidden, "Not enough permissions")
	require.Equal(t, KindAccessDenied, KindOf(Mutation("approve", denied)))

	notFound := Remote("PUT /activities/1/approve", http.StatusNotFound, "Activity not found")
	wrapped := Mutation("approve", notFound)
	require.True(t, errors.Is(wrapped, MutationFailure))
	require.Equal(t, http.StatusNotFound, StatusOf(wrapped))
	require.Equal(t, "Activity not found", Detail(wrapped))
}

func TestKindOfUntypedError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	require.Equal(t, Kind(""), KindOf(nil))
	require.Equal(t, KindInvalidInput, KindOf(fmt.Errorf("ctx: %w", E(KindInvalidInput, "draft", "title is required"))))
}

func TestHTTPStatusAndNotice(t *testing.T) {
	cases := []struct {
		err    error
		status int
		notice string
	}{
		{nil, http.StatusOK, ""},
		{E(KindUnauthenticated, "", ""), http.StatusUnauthorized, "session_expired"},
		{E(KindAccessDenied, "", ""), http.StatusForbidden, "access_denied"},
		{E(KindInvalidInput, "", ""), http.StatusBadRequest, ""},
		{E(KindNetworkUnreachable, "", ""), http.StatusServiceUnavailable, "backend_unreachable"},
		{Wrap(KindUnauthenticated, "guard.student", Wrap(KindNetworkUnreachable, "GET /auth/me", errors.New("dial"))), http.StatusServiceUnavailable, "backend_unreachable"},
		{E(KindMutationFailure, "", ""), http.StatusBadGateway, ""},
		{errors.New("plain"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.status, HTTPStatus(tc.err))
		require.Equal(t, tc.notice, Notice(tc.err))
	}
}

func TestUserMessageDistinguishesNetworkFailures(t *testing.T) {
	msg := UserMessage(Wrap(KindNetworkUnreachable, "POST /auth/token", errors.New("connection refused")))
	require.Contains(t, msg, "no response from server")

	msg = UserMessage(Wrap(KindUnauthenticated, "guard.faculty", Wrap(KindNetworkUnreachable, "GET /auth/me", errors.New("i/o timeout"))))
	require.Contains(t, msg, "no response from server")

	msg = UserMessage(Wrap(KindUnauthenticated, "guard.faculty", Remote("GET /auth/me", http.StatusUnauthorized, "")))
	require.Equal(t, "Your session has expired. Please log in again.", msg)

	msg = UserMessage(Remote("POST /auth/token", http.StatusBadRequest, "Incorrect email or password"))
	require.Equal(t, "Incorrect email or password", msg)
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindMutationFailure, Op: "approve", Err: errors.New("timeout")}
	require.Equal(t, "approve: timeout", err.Error())
	require.Equal(t, "access_denied", (&Error{Kind: KindAccessDenied}).Error())
}

func TestCredentialRejected(t *testing.T) {
	require.True(t, CredentialRejected(Remote("auth.me", http.StatusUnauthorized, "")))
	require.False(t, CredentialRejected(Wrap(KindUnauthenticated, "guard", Wrap(KindNetworkUnreachable, "auth.me", errors.New("dial")))))
	require.False(t, CredentialRejected(Remote("auth.me", http.StatusForbidden, "")))
}
