package models

import "time"

// ActivityStatus is the approval state of an activity.
type ActivityStatus string

const (
	ActivityStatusPending  ActivityStatus = "pending"
	ActivityStatusApproved ActivityStatus = "approved"
	ActivityStatusRejected ActivityStatus = "rejected"
)

// Terminal reports whether no further transition is exposed from s.
func (s ActivityStatus) Terminal() bool {
	return s == ActivityStatusApproved || s == ActivityStatusRejected
}

// CanTransition reports whether s may move to next.
func (s ActivityStatus) CanTransition(next ActivityStatus) bool {
	return s == ActivityStatusPending && next.Terminal()
}

// Activity is a student achievement submitted for review.
type Activity struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Category     string         `json:"category"`
	Duration     string         `json:"duration"`
	Status       ActivityStatus `json:"status"`
	UserID       uint           `json:"user_id"`
	SkillsGained []string       `json:"skills_gained"`
	ProofURL     *string        `json:"proof_url"`
	CreatedAt    *time.Time     `json:"created_at,omitempty"`
	ApprovedAt   *time.Time     `json:"approved_at,omitempty"`
	FacultyID    *uint          `json:"faculty_id,omitempty"`
}

// ActivityCreate is the payload for POST /activities/.
type ActivityCreate struct {
	Category     string   `json:"category"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Duration     string   `json:"duration"`
	SkillsGained []string `json:"skills_gained"`
	ProofURL     *string  `json:"proof_url"`
}

// CountByStatus counts activities in the given status.
func CountByStatus(activities []Activity, status ActivityStatus) int {
	count := 0
	for _, activity := range activities {
		if activity.Status == status {
			count++
		}
	}
	return count
}
