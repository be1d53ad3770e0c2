package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/mapping"
	"github.com/bddaily/bddaily-server/pkg/models"
)

// ProjectService defines the interface for project operations.
type ProjectService interface {
	// List returns projects. keyword matches project or short name case-insensitively;
	// customerID, when set, must equal the project's customer id.
	List(ctx context.Context, keyword, customerID string) ([]models.Project, error)

	// Get returns a project by its business project id (or record id fallback).
	Get(ctx context.Context, projectID string) (*models.Project, error)

	// Create writes a new project. An unresolvable AM becomes a warning.
	Create(ctx context.Context, in *models.ProjectInput) (*WriteResult, error)

	// Update writes the non-blank fields of in. The project id column is never written.
	Update(ctx context.Context, projectID string, in *models.ProjectInput) (*WriteResult, error)
}

type projectService struct {
	client   BitableClient
	persons  *PersonResolver
	table    feishu.Table
	scanSize int
	dates    mapping.DateThresholds
	logger   *zap.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(
	client BitableClient,
	persons *PersonResolver,
	tables Tables,
	scanSize int,
	dates mapping.DateThresholds,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		client:   client,
		persons:  persons,
		table:    tables.Project,
		scanSize: scanSize,
		dates:    dates,
		logger:   logger.Named("projects"),
	}
}

// Ensure projectService implements ProjectService at compile time.
var _ ProjectService = (*projectService)(nil)

// MapProject flattens a project row.
func MapProject(rec feishu.Record, dates mapping.DateThresholds) models.Project {
	cells := mapping.CellsOf(rec)
	f := models.ProjectField

	return models.Project{
		RecordID:        rec.RecordID,
		ProjectID:       projectIdentifier(rec),
		CustomerID:      cells.Text(f.CustomerID, "customerId"),
		ShortName:       cells.Text(f.ShortName, "shortName"),
		ProjectName:     cells.Text(f.ProjectName, "projectName"),
		ServiceType:     mapping.PickSingle(cells.First(f.ServiceType, "serviceType")),
		ProjectType:     mapping.PickSingle(cells.First(f.ProjectType, "projectType")),
		Stage:           mapping.PickSingle(cells.First(f.Stage, "stage")),
		Priority:        mapping.PickSingle(cells.First(f.Priority, "priority")),
		BD:              mapping.PickSingle(cells.First(f.BD, "bd")),
		AM:              mapping.PickSingle(cells.First(f.AM, "am")),
		Month:           cells.Text(f.Month, "month"),
		NextFollowDate:  dates.Format(cells.First(f.NextFollowDate, "nextFollowDate")),
		CampaignName:    cells.Text(f.CampaignName, "campaignName"),
		DeliverableName: cells.Text(f.DeliverableName, "deliverableName"),
		ExpectedAmount:  mapping.PickNumber(cells.First(f.ExpectedAmount, "expectedAmount")),
		TotalBDHours:    mapping.PickNumber(cells.First(f.TotalBDHours, "totalBdHours")),
		LastUpdateDate:  dates.Format(cells.First(f.LastUpdateDate, "lastUpdateDate")),
	}
}

func projectIdentifier(rec feishu.Record) string {
	return mapping.Identifier(rec, models.ProjectField.ProjectID, "projectId")
}

func (s *projectService) List(ctx context.Context, keyword, customerID string) ([]models.Project, error) {
	if err := requireTable(s.table, projectTableMissing); err != nil {
		return nil, err
	}

	records, err := s.client.ListRecords(ctx, s.table, s.scanSize)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	keyword = strings.ToLower(strings.TrimSpace(keyword))
	customerID = strings.TrimSpace(customerID)

	projects := make([]models.Project, 0, len(records))
	for _, rec := range records {
		p := MapProject(rec, s.dates)
		if keyword != "" &&
			!strings.Contains(strings.ToLower(p.ProjectName), keyword) &&
			!strings.Contains(strings.ToLower(p.ShortName), keyword) {
			continue
		}
		if customerID != "" && p.CustomerID != customerID {
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func (s *projectService) Get(ctx context.Context, projectID string) (*models.Project, error) {
	if err := requireTable(s.table, projectTableMissing); err != nil {
		return nil, err
	}

	rec, err := s.find(ctx, projectID)
	if err != nil {
		return nil, err
	}
	p := MapProject(*rec, s.dates)
	return &p, nil
}

// find scans one page of projects for a matching business id.
func (s *projectService) find(ctx context.Context, projectID string) (*feishu.Record, error) {
	projectID = strings.TrimSpace(projectID)

	records, err := s.client.ListRecords(ctx, s.table, s.scanSize)
	if err != nil {
		return nil, fmt.Errorf("scan projects: %w", err)
	}
	for i := range records {
		if projectIdentifier(records[i]) == projectID {
			return &records[i], nil
		}
	}
	return nil, notFoundError("project not found")
}

func (s *projectService) Create(ctx context.Context, in *models.ProjectInput) (*WriteResult, error) {
	if err := requireTable(s.table, projectTableMissing); err != nil {
		return nil, err
	}

	projectName := in.ProjectName.Text()
	if projectName == "" {
		return nil, validationError("缺少 projectName")
	}

	fields := fieldSet{}
	fields.setText(models.ProjectField.ProjectID, in.ProjectID.Text())
	warnings, err := s.buildFields(ctx, fields, in)
	if err != nil {
		return nil, err
	}

	payload := feishu.Fields(fields)
	s.logger.Info("Creating project", zap.Any("fields", payload))

	rec, err := createOne(ctx, s.client, s.table, payload)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	target := s.table
	return &WriteResult{
		RecordID: rec.RecordID,
		Target:   &target,
		Fields:   payload,
		Warnings: warnings,
		Data:     rec,
	}, nil
}

func (s *projectService) Update(ctx context.Context, projectID string, in *models.ProjectInput) (*WriteResult, error) {
	if err := requireTable(s.table, projectTableMissing); err != nil {
		return nil, err
	}

	rec, err := s.find(ctx, projectID)
	if err != nil {
		return nil, err
	}

	fields := fieldSet{}
	warnings, err := s.buildFields(ctx, fields, in)
	if err != nil {
		return nil, err
	}

	payload := feishu.Fields(fields)
	s.logger.Info("Updating project",
		zap.String("record_id", rec.RecordID),
		zap.Any("fields", payload))

	updated, err := s.client.UpdateRecord(ctx, s.table, rec.RecordID, payload)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	return &WriteResult{
		RecordID: rec.RecordID,
		Fields:   payload,
		Warnings: warnings,
		Data:     updated,
	}, nil
}

// buildFields fills every writable column except the project id.
func (s *projectService) buildFields(ctx context.Context, fields fieldSet, in *models.ProjectInput) ([]string, error) {
	f := models.ProjectField
	warnings := []string{}

	fields.setText(f.ProjectName, in.ProjectName.Text())
	fields.setText(f.CustomerID, in.CustomerID.Text())
	fields.setText(f.ShortName, in.ShortName.Text())
	fields.setAny(f.ServiceType, in.ServiceType.Interface())
	fields.setAny(f.ProjectType, in.ProjectType.Interface())
	fields.setAny(f.Stage, in.Stage.Interface())
	fields.setAny(f.Priority, in.Priority.Interface())
	fields.setAny(f.Month, in.Month.Interface())
	fields.setAny(f.NextFollowDate, in.NextFollowDate.Interface())
	fields.setAny(f.CampaignName, in.CampaignName.Interface())
	fields.setAny(f.DeliverableName, in.DeliverableName.Interface())
	fields.setAny(f.TotalBDHours, in.TotalBDHours.Interface())
	fields.setAny(f.LastUpdateDate, in.LastUpdateDate.Interface())
	if !in.ExpectedAmount.IsBlank() {
		if n, ok := in.ExpectedAmount.Number(); ok {
			fields[f.ExpectedAmount] = n
		}
	}

	bdScope := PersonScope{Table: s.table, FieldName: f.BD}
	if !in.BD.IsBlank() {
		value, ok, err := s.persons.Resolve(ctx, bdScope, in.BD)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, s.persons.unresolved(ctx, bdScope, "BD", in.BD.Text())
		}
		fields[f.BD] = value
	}

	amScope := PersonScope{Table: s.table, FieldName: f.AM}
	if !in.AM.IsBlank() {
		value, ok, err := s.persons.Resolve(ctx, amScope, in.AM)
		if err != nil {
			return nil, err
		}
		if ok {
			fields[f.AM] = value
		} else {
			warning := fmt.Sprintf("无法解析人员字段 AM='%s'（请确保该人员在飞书表里出现过一次，或配置 FEISHU_PERSON_ID_MAP）；已忽略该字段以避免写入失败。", in.AM.Text())
			warnings = append(warnings, warning)

			known, _ := s.persons.KnownNames(ctx, amScope)
			s.logger.Warn("Ignoring unresolved AM",
				zap.String("input", in.AM.Text()),
				zap.Strings("known_names", known))
		}
	}

	return warnings, nil
}
