package services

import (
	"context"
	"fmt"
	"time"

	"keywe-backend/internal"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type StatisticsService struct {
	now func() time.Time
}

func NewStatisticsService() *StatisticsService {
	return &StatisticsService{now: time.Now}
}

// IncrementStat bumps today's counter for eventType and subjectID, creating it on first use.
func (s *StatisticsService) IncrementStat(ctx context.Context, eventType models.EventType, subjectID string) error {
	today := s.now().UTC().Truncate(24 * time.Hour)
	db := internal.DB.WithContext(ctx)

	var stat models.Statistics
	err := db.Where("event_type = ? AND subject_id = ? AND date = ?", eventType, subjectID, today).First(&stat).Error
	if err == nil {
		return db.Model(&stat).UpdateColumn("count", gorm.Expr("count + 1")).Error
	}

	stat = models.Statistics{
		ID:        newID(),
		EventType: eventType,
		SubjectID: subjectID,
		Date:      today,
		Count:     1,
	}
	if err := db.Create(&stat).Error; err != nil {
		// Another request created today's row first.
		return db.Model(&models.Statistics{}).
			Where("event_type = ? AND subject_id = ? AND date = ?", eventType, subjectID, today).
			UpdateColumn("count", gorm.Expr("count + 1")).Error
	}
	return nil
}

// record bumps the global counter and, when subjectID is set, the per-subject one.
func (s *StatisticsService) record(ctx context.Context, eventType models.EventType, subjectID string) error {
	if err := s.IncrementStat(ctx, eventType, ""); err != nil {
		log.Warn().Err(err).Str("event", string(eventType)).Msg("failed to record global stat")
	}
	if subjectID == "" {
		return nil
	}
	if err := s.IncrementStat(ctx, eventType, subjectID); err != nil {
		return fmt.Errorf("failed to record %s stat: %w", eventType, err)
	}
	return nil
}

// RecordPropertyView counts one listing view
func (s *StatisticsService) RecordPropertyView(ctx context.Context, propertyID string) error {
	return s.record(ctx, models.EventPropertyView, propertyID)
}

// RecordLead counts one enquiry
func (s *StatisticsService) RecordLead(ctx context.Context, projectID string) error {
	return s.record(ctx, models.EventLeadCreated, projectID)
}

// RecordSearch counts one keyword search
func (s *StatisticsService) RecordSearch(ctx context.Context) error {
	return s.record(ctx, models.EventSearch, "")
}

func (s *StatisticsService) totalFor(ctx context.Context, eventType models.EventType, subjectIDs ...string) (int64, error) {
	var total int64
	q := internal.DB.WithContext(ctx).Model(&models.Statistics{}).Where("event_type = ?", eventType)
	if len(subjectIDs) > 0 {
		q = q.Where("subject_id IN ?", subjectIDs)
	} else {
		q = q.Where("subject_id = ''")
	}
	err := q.Select("COALESCE(SUM(count), 0)").Scan(&total).Error
	return total, err
}

// GetSummary returns platform-wide totals.
func (s *StatisticsService) GetSummary(ctx context.Context) (*models.StatisticsSummary, error) {
	var summary models.StatisticsSummary
	targets := []struct {
		event models.EventType
		dest  *int64
	}{
		{models.EventPropertyView, &summary.TotalPropertyViews},
		{models.EventProjectView, &summary.TotalProjectViews},
		{models.EventLeadCreated, &summary.TotalLeads},
		{models.EventSearch, &summary.TotalSearches},
	}
	for _, t := range targets {
		total, err := s.totalFor(ctx, t.event)
		if err != nil {
			return nil, utils.WrapInternal(err, "failed to load statistics")
		}
		*t.dest = total
	}
	return &summary, nil
}

// GetTimeSeries returns daily global counts of eventType for the last days days.
func (s *StatisticsService) GetTimeSeries(ctx context.Context, eventType models.EventType, days int) (*models.TimeSeriesData, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	since := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))

	var rows []models.Statistics
	err := internal.DB.WithContext(ctx).
		Where("event_type = ? AND subject_id = '' AND date >= ?", eventType, since).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to load statistics")
	}

	byDay := make(map[string]int64, len(rows))
	for _, r := range rows {
		byDay[r.Date.UTC().Format("2006-01-02")] += r.Count
	}

	data := &models.TimeSeriesData{EventType: string(eventType), DataPoints: make([]models.TimeSeriesPoint, 0, days)}
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		data.DataPoints = append(data.DataPoints, models.TimeSeriesPoint{Date: day, Count: byDay[day]})
		data.Total += byDay[day]
	}
	return data, nil
}

// BuilderDashboard aggregates the actor's projects, listings, leads and views.
func (s *StatisticsService) BuilderDashboard(ctx context.Context, actor *models.User) (*models.BuilderDashboard, error) {
	db := internal.DB.WithContext(ctx)
	var d models.BuilderDashboard

	var projectIDs []string
	if err := db.Model(&models.Project{}).Where("user_id = ?", actor.ID).Pluck("id", &projectIDs).Error; err != nil {
		return nil, utils.WrapInternal(err, "failed to load dashboard")
	}
	d.TotalProjects = int64(len(projectIDs))

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&d.VerifiedProjects, db.Model(&models.Project{}).Where("user_id = ? AND verification_status = ?", actor.ID, models.VerificationVerified)},
		{&d.PendingProjects, db.Model(&models.Project{}).Where("user_id = ? AND verification_status = ?", actor.ID, models.VerificationPending)},
		{&d.TotalProperties, db.Model(&models.Property{}).Where("partner_id = ?", actor.ID)},
		{&d.TotalLeads, db.Model(&models.Lead{}).Where("project_id IN ?", nonEmpty(projectIDs))},
		{&d.NewLeads, db.Model(&models.Lead{}).Where("project_id IN ? AND status = ?", nonEmpty(projectIDs), models.LeadNew)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, utils.WrapInternal(err, "failed to load dashboard")
		}
	}

	err := db.Model(&models.Project{}).Where("user_id = ?", actor.ID).
		Select("COALESCE(SUM(views_count), 0)").Scan(&d.TotalViews).Error
	if err != nil {
		return nil, utils.WrapInternal(err, "failed to load dashboard")
	}
	return &d, nil
}

// nonEmpty keeps IN clauses valid when a builder has no projects yet.
func nonEmpty(ids []string) []string {
	if len(ids) == 0 {
		return []string{""}
	}
	return ids
}
