package services

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/mapping"
	"github.com/bddaily/bddaily-server/pkg/models"
)

const (
	reasonOverdue = "已过下次跟进日期"
	oneDay        = 24 * time.Hour
)

// ReminderService computes the project follow-up list.
type ReminderService interface {
	// List returns projects in a reminder stage whose next follow-up date has
	// passed or whose last update is older than the stale threshold.
	List(ctx context.Context) ([]models.ReminderItem, error)

	// Followup records a follow-up request for a project. It is a placeholder
	// until a notification channel exists and always succeeds.
	Followup(ctx context.Context, projectID string) (bool, error)
}

type reminderService struct {
	projects  ProjectService
	staleDays int
	now       func() time.Time
	logger    *zap.Logger
}

// NewReminderService creates a new reminder service.
func NewReminderService(projects ProjectService, staleDays int, logger *zap.Logger) ReminderService {
	return &reminderService{
		projects:  projects,
		staleDays: staleDays,
		now:       time.Now,
		logger:    logger.Named("reminders"),
	}
}

var _ ReminderService = (*reminderService)(nil)

func (s *reminderService) List(ctx context.Context) ([]models.ReminderItem, error) {
	projects, err := s.projects.List(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("list projects for reminders: %w", err)
	}

	now := s.now()
	items := make([]models.ReminderItem, 0)
	for _, p := range projects {
		if !slices.Contains(models.ReminderStages, p.Stage) {
			continue
		}
		reason := s.reason(p, now)
		if reason == "" {
			continue
		}
		items = append(items, models.ReminderItem{
			ProjectID:      p.ProjectID,
			ProjectName:    p.ProjectName,
			ShortName:      p.ShortName,
			BD:             p.BD,
			Stage:          p.Stage,
			LastUpdateDate: p.LastUpdateDate,
			NextFollowDate: p.NextFollowDate,
			Reason:         reason,
		})
	}
	return items, nil
}

// reason returns why p needs a follow-up, or "" when it does not. An overdue
// follow-up date takes precedence over staleness.
func (s *reminderService) reason(p models.Project, now time.Time) string {
	if follow, ok := mapping.ParseDate(p.NextFollowDate); ok && follow.Before(now) {
		return reasonOverdue
	}
	if updated, ok := mapping.ParseDate(p.LastUpdateDate); ok {
		days := int(math.Floor(float64(now.Sub(updated)) / float64(oneDay)))
		if days > s.staleDays {
			return fmt.Sprintf("%d 天未更新", days)
		}
	}
	return ""
}

func (s *reminderService) Followup(ctx context.Context, projectID string) (bool, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return false, validationError("missing projectId")
	}
	s.logger.Info("Follow-up reminder requested", zap.String("project_id", projectID))
	return true, nil
}
