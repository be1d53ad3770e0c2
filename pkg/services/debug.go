package services

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/config"
	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/logging"
	"github.com/bddaily/bddaily-server/pkg/models"
)

// ProjectPersons lists the people seen in the project table's person columns.
type ProjectPersons struct {
	BD     []PersonEntry     `json:"bd"`
	AM     []PersonEntry     `json:"am"`
	EnvMap map[string]string `json:"env_map"`
}

// EnvReport describes the running process for troubleshooting deployments.
type EnvReport struct {
	BuildID string             `json:"buildId"`
	Cwd     string             `json:"cwd"`
	Env     map[string]*string `json:"env"`
}

// DebugService backs the diagnostic endpoints.
type DebugService interface {
	// CustomerFields lists the customer table's columns.
	CustomerFields(ctx context.Context) ([]feishu.Field, error)
	// ProjectFields lists the project table's columns.
	ProjectFields(ctx context.Context) ([]feishu.Field, error)
	// DealFields lists the deal table's columns.
	DealFields(ctx context.Context) ([]feishu.Field, error)
	// Record fetches a raw customer record to confirm a write landed.
	Record(ctx context.Context, recordID string) (*feishu.Record, error)
	// ProjectPersons scans the project table for BD and AM people.
	ProjectPersons(ctx context.Context) (*ProjectPersons, error)
	// Env reports build and configuration state with secrets masked.
	Env() EnvReport
}

type debugService struct {
	client   BitableClient
	persons  *PersonResolver
	tables   Tables
	scanSize int
	cfg      *config.Config
	logger   *zap.Logger
}

// NewDebugService creates a new debug service.
func NewDebugService(
	client BitableClient,
	persons *PersonResolver,
	tables Tables,
	scanSize int,
	cfg *config.Config,
	logger *zap.Logger,
) DebugService {
	return &debugService{
		client:   client,
		persons:  persons,
		tables:   tables,
		scanSize: scanSize,
		cfg:      cfg,
		logger:   logger.Named("debug"),
	}
}

var _ DebugService = (*debugService)(nil)

func (s *debugService) CustomerFields(ctx context.Context) ([]feishu.Field, error) {
	return s.fields(ctx, s.tables.Customer, "missing env appToken/tableId")
}

func (s *debugService) ProjectFields(ctx context.Context) ([]feishu.Field, error) {
	return s.fields(ctx, s.tables.Project, projectTableMissing)
}

func (s *debugService) DealFields(ctx context.Context) ([]feishu.Field, error) {
	return s.fields(ctx, s.tables.Deal, dealTableMissing)
}

func (s *debugService) fields(ctx context.Context, table feishu.Table, missing string) ([]feishu.Field, error) {
	if err := requireTable(table, missing); err != nil {
		return nil, err
	}
	fields, err := s.client.ListFields(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	if fields == nil {
		fields = []feishu.Field{}
	}
	return fields, nil
}

func (s *debugService) Record(ctx context.Context, recordID string) (*feishu.Record, error) {
	if err := requireTable(s.tables.Customer, "missing env appToken/tableId"); err != nil {
		return nil, err
	}
	rec, err := s.client.GetRecord(ctx, s.tables.Customer, recordID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// ProjectPersons scans the table directly rather than through the cached
// indexes so the report always reflects the current rows.
func (s *debugService) ProjectPersons(ctx context.Context) (*ProjectPersons, error) {
	if err := requireTable(s.tables.Project, projectTableMissing); err != nil {
		return nil, err
	}

	records, err := s.client.ListRecords(ctx, s.tables.Project, s.scanSize)
	if err != nil {
		return nil, fmt.Errorf("scan project persons: %w", err)
	}

	return &ProjectPersons{
		BD:     SortEntries(BuildPersonIndex(records, models.ProjectField.BD).Entries),
		AM:     SortEntries(BuildPersonIndex(records, models.ProjectField.AM).Entries),
		EnvMap: s.persons.Overrides(),
	}, nil
}

func (s *debugService) Env() EnvReport {
	cwd, err := os.Getwd()
	if err != nil {
		s.logger.Warn("Failed to read working directory", zap.Error(err))
	}

	f := s.cfg.Feishu
	return EnvReport{
		BuildID: s.cfg.BuildID,
		Cwd:     cwd,
		Env: map[string]*string{
			"FEISHU_APP_ID":                   orNil(f.AppID),
			"FEISHU_APP_SECRET":               orNil(logging.MaskSecret(f.AppSecret)),
			"FEISHU_BITABLE_APP_TOKEN":        orNil(f.BitableAppToken),
			"FEISHU_BITABLE_TABLE_ID":         orNil(f.BitableTableID),
			"FEISHU_PROJECT_APP_TOKEN":        orNil(f.ProjectAppToken),
			"FEISHU_BITABLE_PROJECT_TABLE_ID": orNil(f.ProjectTableID),
			"FEISHU_DEAL_APP_TOKEN":           orNil(f.DealAppToken),
			"FEISHU_BITABLE_DEAL_TABLE_ID":    orNil(f.DealTableID),
			"REDIS_HOST":                      orNil(s.cfg.Redis.Host),
			"PORT":                            orNil(s.cfg.Port),
			"ENVIRONMENT":                     orNil(s.cfg.Env),
		},
	}
}

// orNil reports empty settings as JSON null.
func orNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
