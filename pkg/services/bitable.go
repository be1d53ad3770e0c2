// Package services composes the Feishu client, caches and record mapping into
// the customer, project and deal operations served over HTTP.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bddaily/bddaily-server/pkg/apperrors"
	"github.com/bddaily/bddaily-server/pkg/config"
	"github.com/bddaily/bddaily-server/pkg/feishu"
)

// BitableClient is the subset of the Feishu API the services use.
type BitableClient interface {
	ListFields(ctx context.Context, table feishu.Table) ([]feishu.Field, error)
	ListRecords(ctx context.Context, table feishu.Table, pageSize int) ([]feishu.Record, error)
	GetRecord(ctx context.Context, table feishu.Table, recordID string) (*feishu.Record, error)
	BatchCreateRecords(ctx context.Context, table feishu.Table, records []feishu.Fields) ([]feishu.Record, error)
	UpdateRecord(ctx context.Context, table feishu.Table, recordID string, fields feishu.Fields) (*feishu.Record, error)
}

var _ BitableClient = (*feishu.Client)(nil)

// recordIDPattern matches vendor record ids such as "recu7Xk2Lm".
var recordIDPattern = regexp.MustCompile(`^rec[A-Za-z0-9]+$`)

// IsRecordID reports whether id looks like a vendor record id rather than a business id.
func IsRecordID(id string) bool {
	return recordIDPattern.MatchString(id)
}

// Tables holds the coordinates of every configured table.
type Tables struct {
	Customer feishu.Table
	Project  feishu.Table
	Deal     feishu.Table
}

// TablesFromConfig resolves table coordinates after config fallbacks are applied.
func TablesFromConfig(cfg *config.FeishuConfig) Tables {
	return Tables{
		Customer: feishu.Table{AppToken: cfg.BitableAppToken, TableID: cfg.BitableTableID},
		Project:  feishu.Table{AppToken: cfg.ProjectAppToken, TableID: cfg.ProjectTableID},
		Deal:     feishu.Table{AppToken: cfg.DealAppToken, TableID: cfg.DealTableID},
	}
}

// Messages for tables that are missing from the environment.
const (
	customerTableMissing = "缺少 FEISHU_BITABLE_APP_TOKEN 或 FEISHU_BITABLE_TABLE_ID"
	projectTableMissing  = "missing project appToken/tableId"
	dealTableMissing     = "missing deal appToken/tableId (FEISHU_DEAL_APP_TOKEN/FEISHU_BITABLE_DEAL_TABLE_ID)"
)

func requireTable(table feishu.Table, message string) error {
	if !table.Configured() {
		return fmt.Errorf("%w: %s", apperrors.ErrNotConfigured, message)
	}
	return nil
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrNotFound, fmt.Sprintf(format, args...))
}

// WriteResult describes a completed create or update.
type WriteResult struct {
	RecordID string         `json:"record_id"`
	Target   *feishu.Table  `json:"target,omitempty"`
	Fields   feishu.Fields  `json:"fields"`
	Warnings []string       `json:"warnings"`
	Data     *feishu.Record `json:"data,omitempty"`
}

// createOne creates a single record and insists on a record id in the reply.
func createOne(ctx context.Context, client BitableClient, table feishu.Table, fields feishu.Fields) (*feishu.Record, error) {
	created, err := client.BatchCreateRecords(ctx, table, []feishu.Fields{fields})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 || strings.TrimSpace(created[0].RecordID) == "" {
		return nil, fmt.Errorf("%w: 飞书返回异常：未生成 record_id", apperrors.ErrUpstream)
	}
	return &created[0], nil
}

// fieldSet accumulates a write payload, skipping blank values so an update never
// clears a vendor field.
type fieldSet feishu.Fields

func (f fieldSet) setText(label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	f[label] = strings.TrimSpace(value)
}

func (f fieldSet) setAny(label string, value any) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		f.setText(label, v)
	default:
		f[label] = v
	}
}
