// Package guard decides whether a principal may view a role-scoped page.
package guard

import (
	"net/url"
	"strings"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/models"
)

// Policy is the set of roles allowed to view a page.
type Policy struct {
	Name  string
	roles map[string]struct{}
	any   bool
}

// NewPolicy builds a policy allowing the given roles.
func NewPolicy(name string, roles ...string) Policy {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := models.NormalizeRole(role)
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}
	return Policy{Name: name, roles: allowed}
}

// Allows reports whether role is in the policy.
func (p Policy) Allows(role string) bool {
	if p.any {
		return true
	}
	_, ok := p.roles[models.NormalizeRole(role)]
	return ok
}

// Page policies. Admins may open the faculty page.
var (
	StudentPage = NewPolicy("student", models.RoleStudent)
	FacultyPage = NewPolicy("faculty", models.RoleFaculty, models.RoleAdmin)
	AdminPage   = NewPolicy("admin", models.RoleAdmin)
	// AnyRolePage admits every authenticated principal, including unknown roles.
	AnyRolePage = Policy{Name: "dashboard", any: true}
)

// ForPage returns the policy for a page name.
func ForPage(page string) (Policy, bool) {
	switch strings.ToLower(strings.TrimSpace(page)) {
	case StudentPage.Name:
		return StudentPage, true
	case FacultyPage.Name:
		return FacultyPage, true
	case AdminPage.Name:
		return AdminPage, true
	case AnyRolePage.Name:
		return AnyRolePage, true
	default:
		return Policy{}, false
	}
}

// Authorize applies policy to the result of fetching the current principal.
// A fetch failure or missing principal is Unauthenticated; a role outside the
// policy is AccessDenied.
func Authorize(principal *models.Principal, fetchErr error, policy Policy) error {
	if fetchErr != nil {
		if apperr.KindOf(fetchErr) == apperr.KindUnauthenticated {
			return fetchErr
		}
		return apperr.Wrap(apperr.KindUnauthenticated, "guard."+policy.Name, fetchErr)
	}
	if principal == nil {
		return apperr.E(apperr.KindUnauthenticated, "guard."+policy.Name, "no principal")
	}
	if !policy.Allows(principal.Role) {
		return apperr.E(apperr.KindAccessDenied, "guard."+policy.Name, "role "+principal.NormalizedRole()+" may not view this page")
	}
	return nil
}

// LandingPath returns the page a principal lands on after login.
func LandingPath(role string) string {
	switch models.NormalizeRole(role) {
	case models.RoleStudent:
		return "/student"
	case models.RoleFaculty:
		return "/faculty"
	case models.RoleAdmin:
		return "/admin"
	default:
		return "/dashboard"
	}
}

// LoginRedirect returns the login URL for an authorization failure.
func LoginRedirect(err error) string {
	notice := apperr.Notice(err)
	if notice == "" {
		return "/login"
	}
	return "/login?notice=" + url.QueryEscape(notice)
}
