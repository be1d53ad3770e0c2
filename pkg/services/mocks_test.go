package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/cache"
	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/mapping"
)

var (
	testCustomerTable = feishu.Table{AppToken: "appCustomer", TableID: "tblCustomer"}
	testProjectTable  = feishu.Table{AppToken: "appProject", TableID: "tblProject"}
	testDealTable     = feishu.Table{AppToken: "appProject", TableID: "tblDeal"}

	testTables = Tables{
		Customer: testCustomerTable,
		Project:  testProjectTable,
		Deal:     testDealTable,
	}
)

// mockBitable is a configurable in-memory BitableClient.
type mockBitable struct {
	mu sync.Mutex

	fields  map[string][]feishu.Field
	records map[string][]feishu.Record

	listErr   error
	fieldsErr error
	createErr error
	updateErr error
	// noRecordID makes BatchCreateRecords answer without a record id.
	noRecordID bool

	listCalls   map[string]int
	fieldsCalls map[string]int

	// Capture inputs for verification
	created        []feishu.Fields
	createdTable   feishu.Table
	updatedID      string
	updatedFields  feishu.Fields
	updatedTable   feishu.Table
	lastPageSize   int
	requestedRecID string
}

func newMockBitable() *mockBitable {
	return &mockBitable{
		fields:      make(map[string][]feishu.Field),
		records:     make(map[string][]feishu.Record),
		listCalls:   make(map[string]int),
		fieldsCalls: make(map[string]int),
	}
}

func (m *mockBitable) withRecords(table feishu.Table, records ...feishu.Record) *mockBitable {
	m.records[table.Key()] = append(m.records[table.Key()], records...)
	return m
}

func (m *mockBitable) withFields(table feishu.Table, names ...string) *mockBitable {
	for i, name := range names {
		m.fields[table.Key()] = append(m.fields[table.Key()], feishu.Field{
			FieldID:   fmt.Sprintf("fld%d", i+1),
			FieldName: name,
			Type:      1,
		})
	}
	return m
}

func (m *mockBitable) ListFields(ctx context.Context, table feishu.Table) ([]feishu.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fieldsCalls[table.Key()]++
	if m.fieldsErr != nil {
		return nil, m.fieldsErr
	}
	return m.fields[table.Key()], nil
}

func (m *mockBitable) ListRecords(ctx context.Context, table feishu.Table, pageSize int) ([]feishu.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls[table.Key()]++
	m.lastPageSize = pageSize
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records[table.Key()], nil
}

func (m *mockBitable) GetRecord(ctx context.Context, table feishu.Table, recordID string) (*feishu.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestedRecID = recordID
	for _, rec := range m.records[table.Key()] {
		if rec.RecordID == recordID {
			return &rec, nil
		}
	}
	return nil, &feishu.APIError{Code: 1254043, Msg: "RecordIdNotFound", HTTPStatus: 200, Path: "records/" + recordID}
}

func (m *mockBitable) BatchCreateRecords(ctx context.Context, table feishu.Table, records []feishu.Fields) ([]feishu.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdTable = table
	m.created = append(m.created, records...)
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.noRecordID {
		return []feishu.Record{}, nil
	}
	out := make([]feishu.Record, len(records))
	for i := range records {
		out[i] = feishu.Record{RecordID: fmt.Sprintf("recNew%d", i+1)}
	}
	return out, nil
}

func (m *mockBitable) UpdateRecord(ctx context.Context, table feishu.Table, recordID string, fields feishu.Fields) (*feishu.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatedTable = table
	m.updatedID = recordID
	m.updatedFields = fields
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &feishu.Record{RecordID: recordID}, nil
}

var _ BitableClient = (*mockBitable)(nil)

// record decodes a vendor-shaped row so tests exercise the real cell decoding.
func record(t *testing.T, recordID, fieldsJSON string) feishu.Record {
	t.Helper()
	var rec feishu.Record
	raw := fmt.Sprintf(`{"record_id":%q,"fields":%s}`, recordID, fieldsJSON)
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

// decodeInput decodes a request body the way the handlers do.
func decodeInput[T any](t *testing.T, body string) *T {
	t.Helper()
	var in T
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	return &in
}

func newTestPersons(client BitableClient, overrides map[string]string) *PersonResolver {
	return NewPersonResolver(client, overrides, cache.NewMemoryStore(), 5*time.Minute, 200, testTables, zap.NewNop())
}

func newTestProjectService(client BitableClient, persons *PersonResolver) ProjectService {
	return NewProjectService(client, persons, testTables, 200, mapping.DefaultDateThresholds, zap.NewNop())
}
