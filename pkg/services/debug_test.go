package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/apperrors"
	"github.com/bddaily/bddaily-server/pkg/cache"
	"github.com/bddaily/bddaily-server/pkg/config"
	"github.com/bddaily/bddaily-server/pkg/feishu"
)

func newTestDebugService(client *mockBitable, tables Tables, cfg *config.Config) DebugService {
	persons := NewPersonResolver(client, map[string]string{"赵六": "ou_zhao"}, cache.NewMemoryStore(), time.Minute, 200, tables, zap.NewNop())
	if cfg == nil {
		cfg = &config.Config{}
	}
	return NewDebugService(client, persons, tables, 200, cfg, zap.NewNop())
}

func TestDebugService_Fields(t *testing.T) {
	client := newMockBitable().
		withFields(testCustomerTable, "客户ID").
		withFields(testProjectTable, "项目ID", "BD").
		withFields(testDealTable, "立项ID")
	svc := newTestDebugService(client, testTables, nil)

	customer, err := svc.CustomerFields(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []feishu.Field{{FieldID: "fld1", FieldName: "客户ID", Type: 1}}, customer)

	project, err := svc.ProjectFields(context.Background())
	require.NoError(t, err)
	assert.Len(t, project, 2)

	deal, err := svc.DealFields(context.Background())
	require.NoError(t, err)
	assert.Len(t, deal, 1)
}

func TestDebugService_FieldsEmptyListIsNotNil(t *testing.T) {
	svc := newTestDebugService(newMockBitable(), testTables, nil)

	fields, err := svc.DealFields(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, fields)
	assert.Empty(t, fields)
}

func TestDebugService_NotConfigured(t *testing.T) {
	svc := newTestDebugService(newMockBitable(), Tables{}, nil)

	_, err := svc.CustomerFields(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNotConfigured)
	assert.Contains(t, err.Error(), "missing env appToken/tableId")

	_, err = svc.Record(context.Background(), "recC1")
	require.ErrorIs(t, err, apperrors.ErrNotConfigured)

	_, err = svc.ProjectPersons(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNotConfigured)
}

func TestDebugService_Record(t *testing.T) {
	client := newMockBitable().withRecords(testCustomerTable, record(t, "recC1", `{"客户ID":"C001"}`))
	svc := newTestDebugService(client, testTables, nil)

	rec, err := svc.Record(context.Background(), "recC1")
	require.NoError(t, err)
	assert.Equal(t, "recC1", rec.RecordID)

	_, err = svc.Record(context.Background(), "recMissing")
	var apiErr *feishu.APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestDebugService_ProjectPersons(t *testing.T) {
	svc := newTestDebugService(projectPeopleClient(t), testTables, nil)

	persons, err := svc.ProjectPersons(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []PersonEntry{
		{Name: "李四", ID: "u_li"},
		{Name: "张三", ID: "ou_zhang"},
	}, persons.BD)
	assert.Equal(t, []PersonEntry{{Name: "王五", ID: "ou_wang"}}, persons.AM)
	assert.Equal(t, map[string]string{"赵六": "ou_zhao"}, persons.EnvMap)
}

func TestDebugService_EnvMasksSecret(t *testing.T) {
	cfg := &config.Config{
		Port:    "4000",
		BuildID: "BDdaily-test",
		Feishu: config.FeishuConfig{
			AppID:     "cli_123",
			AppSecret: "super-secret",
		},
	}
	svc := newTestDebugService(newMockBitable(), testTables, cfg)

	report := svc.Env()
	assert.Equal(t, "BDdaily-test", report.BuildID)
	assert.NotEmpty(t, report.Cwd)

	require.NotNil(t, report.Env["FEISHU_APP_SECRET"])
	assert.Equal(t, "***", *report.Env["FEISHU_APP_SECRET"])
	assert.Equal(t, "cli_123", *report.Env["FEISHU_APP_ID"])
	assert.Nil(t, report.Env["FEISHU_BITABLE_TABLE_ID"])
}
