package models

import (
	"time"
)

// EventType represents the type of statistical event
type EventType string

const (
	EventPropertyView EventType = "property_view"
	EventProjectView  EventType = "project_view"
	EventLeadCreated  EventType = "lead_created"
	EventSearch       EventType = "search"
)

// Statistics is a per-day counter of one event type, optionally scoped
// to a subject (property or project id). An empty SubjectID is the global counter.
type Statistics struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	EventType EventType `gorm:"type:varchar(50);not null;uniqueIndex:idx_statistics_event_subject_date" json:"event_type"`
	SubjectID string    `gorm:"type:varchar(36);not null;default:'';uniqueIndex:idx_statistics_event_subject_date" json:"subject_id,omitempty"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_statistics_event_subject_date" json:"date"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Statistics) TableName() string {
	return "statistics"
}

// StatisticsSummary represents aggregated platform statistics
type StatisticsSummary struct {
	TotalPropertyViews int64 `json:"total_property_views"`
	TotalProjectViews  int64 `json:"total_project_views"`
	TotalLeads         int64 `json:"total_leads"`
	TotalSearches      int64 `json:"total_searches"`
}

// TimeSeriesPoint represents a single point in time-based statistics
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// TimeSeriesData represents time-based statistics for a specific event type
type TimeSeriesData struct {
	EventType  string            `json:"event_type"`
	DataPoints []TimeSeriesPoint `json:"data_points"`
	Total      int64             `json:"total"`
}

// BuilderDashboard is the summary shown on a builder's landing page.
type BuilderDashboard struct {
	TotalProjects    int64 `json:"total_projects"`
	VerifiedProjects int64 `json:"verified_projects"`
	PendingProjects  int64 `json:"pending_projects"`
	TotalProperties  int64 `json:"total_properties"`
	TotalLeads       int64 `json:"total_leads"`
	NewLeads         int64 `json:"new_leads"`
	TotalViews       int64 `json:"total_views"`
}
