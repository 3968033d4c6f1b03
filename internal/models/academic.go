package models

// AcademicRecord is one semester row from GET /academic/academic-records/.
type AcademicRecord struct {
	Semester      string  `json:"semester"`
	GPA           float64 `json:"gpa"`
	CreditsEarned int     `json:"credits_earned"`
	TotalCredits  int     `json:"total_credits"`
}

// AcademicTotals aggregates records for display.
type AcademicTotals struct {
	Semesters     int     `json:"semesters"`
	CreditsEarned int     `json:"credits_earned"`
	TotalCredits  int     `json:"total_credits"`
	AverageGPA    float64 `json:"average_gpa"`
}

// SumAcademicRecords totals credits and averages GPA across records.
func SumAcademicRecords(records []AcademicRecord) AcademicTotals {
	totals := AcademicTotals{Semesters: len(records)}
	var gpaTotal float64
	for _, record := range records {
		totals.CreditsEarned += record.CreditsEarned
		totals.TotalCredits += record.TotalCredits
		gpaTotal += record.GPA
	}
	if len(records) > 0 {
		totals.AverageGPA = gpaTotal / float64(len(records))
	}
	return totals
}
