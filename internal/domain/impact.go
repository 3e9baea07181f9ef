package domain

import "math"

// CategoryImpact is the per-category slice of the dashboard.
type CategoryImpact struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Successful int `json:"successful"`
}

// ImpactDashboard rolls up suggestion outcomes for a store.
type ImpactDashboard struct {
	StoreID         string                     `json:"store_id"`
	Total           int                        `json:"total"`
	Completed       int                        `json:"completed"`
	InProgress      int                        `json:"in_progress"`
	Ignored         int                        `json:"ignored"`
	Successful      int                        `json:"successful"`
	Unsuccessful    int                        `json:"unsuccessful"`
	PendingFeedback int                        `json:"pending_feedback"`
	SuccessRate     float64                    `json:"success_rate"`
	ByCategory      map[string]*CategoryImpact `json:"by_category"`
}

// BuildDashboard aggregates suggestions; it has no dependency on analyses.
func BuildDashboard(storeID string, suggestions []*Suggestion) *ImpactDashboard {
	d := &ImpactDashboard{StoreID: storeID, ByCategory: map[string]*CategoryImpact{}}
	for _, s := range suggestions {
		d.Total++
		cat := s.Category
		if cat == "" {
			cat = "uncategorized"
		}
		c, ok := d.ByCategory[cat]
		if !ok {
			c = &CategoryImpact{}
			d.ByCategory[cat] = c
		}
		c.Total++

		switch s.Status {
		case SuggestionCompleted:
			d.Completed++
			c.Completed++
		case SuggestionInProgress:
			d.InProgress++
		case SuggestionIgnored:
			d.Ignored++
		}

		switch {
		case s.WasSuccessful == nil:
			if s.Status == SuggestionCompleted {
				d.PendingFeedback++
			}
		case *s.WasSuccessful:
			d.Successful++
			c.Successful++
		default:
			d.Unsuccessful++
		}
	}
	if rated := d.Successful + d.Unsuccessful; rated > 0 {
		d.SuccessRate = math.Round(float64(d.Successful)/float64(rated)*10000) / 100
	}
	return d
}
