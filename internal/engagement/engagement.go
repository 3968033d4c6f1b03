// Package engagement turns department activity counts into a bar chart.
package engagement

import (
	"strings"

	"github.com/noah-isme/studenthub-portal/internal/models"
)

// EmptyMessage is shown when there is nothing to chart.
const EmptyMessage = "No activity data available yet."

// UnassignedLabel replaces blank department names.
const UnassignedLabel = "Unassigned"

// Bar is one department entry scaled against the largest count.
type Bar struct {
	Department string  `json:"department"`
	Count      int     `json:"count"`
	Percent    float64 `json:"percent"`
}

// Chart is the engagement view model.
type Chart struct {
	Bars    []Bar  `json:"bars"`
	Max     int    `json:"max"`
	Empty   bool   `json:"empty"`
	Message string `json:"message,omitempty"`
}

// Build scales every department against the maximum count, keeping the order
// the backend reported. An empty mapping, or one where every count is zero,
// yields an empty chart.
func Build(departmentWise models.OrderedCounts) Chart {
	if len(departmentWise) == 0 {
		return Chart{Bars: []Bar{}, Empty: true, Message: EmptyMessage}
	}

	highest := departmentWise.Max()
	bars := make([]Bar, 0, len(departmentWise))
	for _, entry := range departmentWise {
		name := strings.TrimSpace(entry.Department)
		if name == "" {
			name = UnassignedLabel
		}
		bar := Bar{Department: name, Count: entry.Count}
		if highest > 0 && entry.Count > 0 {
			bar.Percent = float64(entry.Count) / float64(highest) * 100
		}
		bars = append(bars, bar)
	}

	chart := Chart{Bars: bars, Max: highest}
	if highest == 0 {
		chart.Empty = true
		chart.Message = EmptyMessage
	}
	return chart
}
