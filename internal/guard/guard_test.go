package guard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/models"
)

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name      string
		principal *models.Principal
		fetchErr  error
		policy    Policy
		want      error
	}{
		{"student on student page", &models.Principal{Role: "student"}, nil, StudentPage, nil},
		{"faculty on faculty page", &models.Principal{Role: "faculty"}, nil, FacultyPage, nil},
		{"admin on faculty page", &models.Principal{Role: "Admin"}, nil, FacultyPage, nil},
		{"admin on admin page", &models.Principal{Role: "admin"}, nil, AdminPage, nil},
		{"faculty on admin page", &models.Principal{Role: "faculty"}, nil, AdminPage, apperr.AccessDenied},
		{"student on faculty page", &models.Principal{Role: "student"}, nil, FacultyPage, apperr.AccessDenied},
		{"admin on student page", &models.Principal{Role: "admin"}, nil, StudentPage, apperr.AccessDenied},
		{"unknown role", &models.Principal{Role: "guest"}, nil, StudentPage, apperr.AccessDenied},
		{"unknown role on dashboard", &models.Principal{Role: "alumni"}, nil, AnyRolePage, nil},
		{"nil principal on dashboard", nil, nil, AnyRolePage, apperr.Unauthenticated},
		{"nil principal", nil, nil, StudentPage, apperr.Unauthenticated},
		{"fetch failure", nil, errors.New("boom"), AdminPage, apperr.Unauthenticated},
		{"fetch network failure", nil, apperr.Wrap(apperr.KindNetworkUnreachable, "me", errors.New("dial")), AdminPage, apperr.Unauthenticated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.principal, tc.fetchErr, tc.policy)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLandingPath(t *testing.T) {
	require.Equal(t, "/student", LandingPath("student"))
	require.Equal(t, "/faculty", LandingPath(" Faculty "))
	require.Equal(t, "/admin", LandingPath("admin"))
	require.Equal(t, "/dashboard", LandingPath("alumni"))
	require.Equal(t, "/dashboard", LandingPath(""))
}

func TestForPage(t *testing.T) {
	policy, ok := ForPage("Faculty")
	require.True(t, ok)
	require.True(t, policy.Allows("admin"))

	_, ok = ForPage("registrar")
	require.False(t, ok)
}

func TestLoginRedirect(t *testing.T) {
	require.Equal(t, "/login?notice=access_denied", LoginRedirect(apperr.AccessDenied))
	require.Equal(t, "/login?notice=session_expired", LoginRedirect(apperr.E(apperr.KindUnauthenticated, "x", "y")))
	require.Equal(t, "/login", LoginRedirect(errors.New("other")))
}

func TestLoginRedirectForUnreachableBackend(t *testing.T) {
	err := Authorize(nil, apperr.Wrap(apperr.KindNetworkUnreachable, "GET /auth/me", errors.New("connection refused")), StudentPage)
	require.ErrorIs(t, err, apperr.Unauthenticated)
	require.False(t, apperr.CredentialRejected(err))
	require.Equal(t, "/login?notice=backend_unreachable", LoginRedirect(err))
	require.Contains(t, apperr.UserMessage(err), "no response from server")
}
