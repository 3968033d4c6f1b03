package dashboard

import (
	"github.com/noah-isme/studenthub-portal/internal/engagement"
	"github.com/noah-isme/studenthub-portal/internal/models"
)

// Slice names one independently fetched piece of a dashboard.
type Slice string

const (
	SliceProfile         Slice = "profile"
	SliceActivities      Slice = "activities"
	SlicePending         Slice = "pending"
	SliceStudents        Slice = "students"
	SliceAcademicRecords Slice = "academic_records"
	SliceAnalytics       Slice = "analytics"
)

// Critical reports whether a failure of s fails the whole page.
func (s Slice) Critical() bool {
	return s == SliceProfile
}

// Layout returns the slices a page loads.
func Layout(page string) []Slice {
	switch page {
	case "student":
		return []Slice{SliceProfile, SliceActivities, SliceAcademicRecords}
	case "faculty":
		return []Slice{SliceProfile, SlicePending, SliceStudents}
	case "admin":
		return []Slice{SliceProfile, SliceAnalytics}
	default:
		return []Slice{SliceProfile, SliceActivities}
	}
}

// Outcome is the settled result of one slice.
type Outcome struct {
	Slice Slice
	Err   error
}

// Metrics are the derived figures shown on dashboard cards.
type Metrics struct {
	ApprovedActivities int                   `json:"approved_activities"`
	PendingActivities  int                   `json:"pending_activities"`
	RejectedActivities int                   `json:"rejected_activities"`
	TotalActivities    int                   `json:"total_activities"`
	Academic           models.AcademicTotals `json:"academic"`
	PendingQueueLength int                   `json:"pending_queue_length"`
	RosterSize         int                   `json:"roster_size"`
	Engagement         *engagement.Chart     `json:"engagement,omitempty"`
}

// View is the state of a fully settled dashboard page. Failed non-critical
// slices keep their empty defaults and are listed in Degraded.
type View struct {
	Page            string                  `json:"page"`
	Principal       *models.Principal       `json:"principal"`
	Activities      []models.Activity       `json:"activities"`
	Pending         []models.Activity       `json:"pending"`
	Students        []models.Student        `json:"students"`
	AcademicRecords []models.AcademicRecord `json:"academic_records"`
	Analytics       *models.Analytics       `json:"analytics,omitempty"`
	Degraded        []Slice                 `json:"degraded"`
	Metrics         Metrics                 `json:"metrics"`
	Outcomes        []Outcome               `json:"-"`
}

func newView(page string) View {
	return View{
		Page:            page,
		Activities:      []models.Activity{},
		Pending:         []models.Activity{},
		Students:        []models.Student{},
		AcademicRecords: []models.AcademicRecord{},
		Degraded:        []Slice{},
	}
}

// IsDegraded reports whether slice failed to load.
func (v View) IsDegraded(slice Slice) bool {
	for _, degraded := range v.Degraded {
		if degraded == slice {
			return true
		}
	}
	return false
}

func (v *View) computeMetrics() {
	v.Metrics = Metrics{
		ApprovedActivities: models.CountByStatus(v.Activities, models.ActivityStatusApproved),
		PendingActivities:  models.CountByStatus(v.Activities, models.ActivityStatusPending),
		RejectedActivities: models.CountByStatus(v.Activities, models.ActivityStatusRejected),
		TotalActivities:    len(v.Activities),
		Academic:           models.SumAcademicRecords(v.AcademicRecords),
		PendingQueueLength: len(v.Pending),
		RosterSize:         len(v.Students),
	}
	if v.Analytics != nil {
		chart := engagement.Build(v.Analytics.DepartmentWise)
		v.Metrics.Engagement = &chart
	}
}
