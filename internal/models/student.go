package models

import (
	"strings"
	"time"
)

// Roles a principal can hold.
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

// Principal is the authenticated user as returned by GET /auth/me.
type Principal struct {
	ID         uint      `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department *string   `json:"department"`
	Year       *string   `json:"year"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// NormalizedRole returns the lower-cased, trimmed role.
func (p Principal) NormalizedRole() string {
	return NormalizeRole(p.Role)
}

// DepartmentLabel returns the department or "General" when unset.
func (p Principal) DepartmentLabel() string {
	if p.Department == nil || strings.TrimSpace(*p.Department) == "" {
		return "General"
	}
	return strings.TrimSpace(*p.Department)
}

// YearLabel returns the academic year or "N/A" when unset.
func (p Principal) YearLabel() string {
	if p.Year == nil || strings.TrimSpace(*p.Year) == "" {
		return "N/A"
	}
	return strings.TrimSpace(*p.Year)
}

// NormalizeRole lower-cases and trims a role string.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// Student is one roster entry returned by GET /academic/students/.
type Student struct {
	ID         uint   `json:"id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// Initial returns the first letter of the student's name for avatar badges.
func (s Student) Initial() string {
	for _, r := range strings.TrimSpace(s.FullName) {
		return strings.ToUpper(string(r))
	}
	return ""
}

// Registration is the payload for POST /auth/register.
type Registration struct {
	FullName   string  `json:"full_name" form:"full_name" validate:"required"`
	Email      string  `json:"email" form:"email" validate:"required,email"`
	Password   string  `json:"password" form:"password" validate:"required,min=6"`
	Role       string  `json:"role" form:"role" validate:"required,oneof=student faculty admin"`
	Department *string `json:"department" form:"department"`
	Year       *string `json:"year" form:"year"`
}

// Normalize clears fields that do not apply to the chosen role: admins carry no
// department and only students carry a year.
func (r Registration) Normalize() Registration {
	r.Role = NormalizeRole(r.Role)
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	if r.Role == RoleAdmin {
		r.Department = nil
	}
	if r.Role != RoleStudent {
		r.Year = nil
	}
	return r
}

// ProfileUpdate is the payload for PUT /auth/profile. Nil fields are left unchanged.
type ProfileUpdate struct {
	FullName   *string `json:"full_name,omitempty" form:"full_name"`
	Department *string `json:"department,omitempty" form:"department"`
	Year       *string `json:"year,omitempty" form:"year"`
}

// Token is the response of POST /auth/token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
