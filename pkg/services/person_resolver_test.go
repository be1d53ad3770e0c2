package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/cache"
	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/jsonutil"
	"github.com/bddaily/bddaily-server/pkg/models"
)

func projectPeopleClient(t *testing.T) *mockBitable {
	return newMockBitable().withRecords(testProjectTable,
		record(t, "rec1", `{"BD":[{"name":"张三","id":"ou_zhang"}],"AM":[{"name":"王五","open_id":"ou_wang"}]}`),
		record(t, "rec2", `{"BD":[{"name":"张三","id":"ou_other"},{"name":"李四","user_id":"u_li"}]}`),
		record(t, "rec3", `{"BD":"not a list"}`),
	)
}

func TestBuildPersonIndex_FirstIDWins(t *testing.T) {
	idx := BuildPersonIndex([]feishu.Record{
		record(t, "rec1", `{"BD":[{"name":" 张三 ","id":"ou_zhang"}]}`),
		record(t, "rec2", `{"BD":[{"name":"张三","id":"ou_other"},{"name":"","id":"ou_blank"},{"name":"赵六"}]}`),
	}, "BD")

	assert.Equal(t, []PersonEntry{{Name: "张三", ID: "ou_zhang"}}, idx.Entries)
}

func TestPickPersonID_KeyPriority(t *testing.T) {
	rec := record(t, "rec1", `{"p":[{"union_id":"on_1","open_id":"ou_1","user_id":null}]}`)
	items, ok := rec.Fields["p"].Items()
	require.True(t, ok)
	assert.Equal(t, "ou_1", pickPersonID(items[0]))
}

func TestPersonResolver_Resolve(t *testing.T) {
	scope := PersonScope{Table: testProjectTable, FieldName: models.ProjectField.BD}

	tests := []struct {
		name   string
		input  string
		want   any
		wantOK bool
	}{
		{"override wins", `"李四"`, []feishu.PersonRef{{ID: "override_li"}}, true},
		{"scanned index", `" 张三 "`, []feishu.PersonRef{{ID: "ou_zhang"}}, true},
		{"list passes through", `[{"id":"ou_x"}]`, []any{map[string]any{"id": "ou_x"}}, true},
		{"blank", `"  "`, nil, false},
		{"unknown", `"钱七"`, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestPersons(projectPeopleClient(t), map[string]string{"李四": "override_li"})

			got, ok, err := r.Resolve(context.Background(), scope, jsonutil.NewValue(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPersonResolver_IndexIsCached(t *testing.T) {
	client := projectPeopleClient(t)
	r := newTestPersons(client, nil)
	scope := PersonScope{Table: testProjectTable, FieldName: models.ProjectField.BD}

	for range 3 {
		_, ok, err := r.ResolveName(context.Background(), scope, "张三")
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 1, client.listCalls[testProjectTable.Key()])
	assert.Equal(t, 200, client.lastPageSize)
}

func TestPersonResolver_OverrideSkipsScan(t *testing.T) {
	client := projectPeopleClient(t)
	r := newTestPersons(client, map[string]string{"张三": "ou_override"})

	got, ok, err := r.ResolveName(context.Background(), PersonScope{Table: testProjectTable, FieldName: "BD"}, "张三")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []feishu.PersonRef{{ID: "ou_override"}}, got)
	assert.Zero(t, client.listCalls[testProjectTable.Key()])
}

func TestPersonResolver_KnownNamesSorted(t *testing.T) {
	r := newTestPersons(projectPeopleClient(t), nil)

	names, err := r.KnownNames(context.Background(), PersonScope{Table: testProjectTable, FieldName: "BD"})
	require.NoError(t, err)
	assert.Equal(t, []string{"李四", "张三"}, names)
}

func TestPersonResolver_ResolveCustomerBD_FallsBackToProjectTable(t *testing.T) {
	client := projectPeopleClient(t).withRecords(testCustomerTable,
		record(t, "recC1", `{"主BD负责人":[{"name":"王五","id":"ou_wang_c"}]}`),
	)
	r := newTestPersons(client, nil)

	got, err := r.ResolveCustomerBD(context.Background(), "王五")
	require.NoError(t, err)
	assert.Equal(t, []feishu.PersonRef{{ID: "ou_wang_c"}}, got)

	got, err = r.ResolveCustomerBD(context.Background(), "李四")
	require.NoError(t, err)
	assert.Equal(t, []feishu.PersonRef{{ID: "u_li"}}, got)
}

func TestPersonResolver_ResolveCustomerBD_MergedKnownNames(t *testing.T) {
	client := projectPeopleClient(t).withRecords(testCustomerTable,
		record(t, "recC1", `{"主BD负责人":[{"name":"王五","id":"ou_wang_c"},{"name":"张三","id":"ou_zhang_c"}]}`),
	)
	r := newTestPersons(client, nil)

	_, err := r.ResolveCustomerBD(context.Background(), "钱七")
	require.Error(t, err)

	var unresolved *UnresolvedPersonError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "BD", unresolved.Field)
	assert.Equal(t, "钱七", unresolved.Input)
	assert.True(t, unresolved.CrossTable)
	assert.Equal(t, []string{"李四", "王五", "张三"}, unresolved.KnownNames)
	assert.Contains(t, err.Error(), "飞书表/项目表")
}

func TestPersonResolver_ResolveCustomerBD_ProjectTableNotConfigured(t *testing.T) {
	client := newMockBitable().withRecords(testCustomerTable,
		record(t, "recC1", `{"主BD负责人":[{"name":"王五","id":"ou_wang_c"}]}`),
	)
	tables := testTables
	tables.Project = feishu.Table{}
	r := NewPersonResolver(client, nil, cache.NewMemoryStore(), time.Minute, 200, tables, zap.NewNop())

	_, err := r.ResolveCustomerBD(context.Background(), "李四")

	var unresolved *UnresolvedPersonError
	require.True(t, errors.As(err, &unresolved))
	assert.False(t, unresolved.CrossTable)
	assert.Equal(t, []string{"王五"}, unresolved.KnownNames)
	assert.Len(t, client.listCalls, 1)
}

func TestPersonResolver_ScanError(t *testing.T) {
	client := newMockBitable()
	client.listErr = errors.New("vendor down")
	r := newTestPersons(client, nil)

	_, _, err := r.ResolveName(context.Background(), PersonScope{Table: testProjectTable, FieldName: "BD"}, "张三")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vendor down")
}
