package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/models"
	"github.com/bddaily/bddaily-server/pkg/services"
)

var (
	testProjectTable = feishu.Table{AppToken: "appProject", TableID: "tblProject"}
	testTables       = services.Tables{
		Customer: feishu.Table{AppToken: "appCustomer", TableID: "tblCustomer"},
		Project:  testProjectTable,
		Deal:     feishu.Table{AppToken: "appProject", TableID: "tblDeal"},
	}
)

// fakeBitable is an in-memory services.BitableClient keyed by table id.
type fakeBitable struct {
	mu      sync.Mutex
	records map[string][]feishu.Record
	created []feishu.Fields
}

func newFakeBitable() *fakeBitable {
	return &fakeBitable{records: make(map[string][]feishu.Record)}
}

func (f *fakeBitable) withRecord(t *testing.T, table feishu.Table, id, fieldsJSON string) *fakeBitable {
	t.Helper()
	var rec feishu.Record
	require.NoError(t, json.Unmarshal([]byte(`{"record_id":"`+id+`","fields":`+fieldsJSON+`}`), &rec))
	f.records[table.TableID] = append(f.records[table.TableID], rec)
	return f
}

func (f *fakeBitable) ListFields(ctx context.Context, table feishu.Table) ([]feishu.Field, error) {
	return []feishu.Field{}, nil
}

func (f *fakeBitable) ListRecords(ctx context.Context, table feishu.Table, pageSize int) ([]feishu.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[table.TableID], nil
}

func (f *fakeBitable) GetRecord(ctx context.Context, table feishu.Table, recordID string) (*feishu.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records[table.TableID] {
		if rec.RecordID == recordID {
			return &rec, nil
		}
	}
	return nil, &feishu.APIError{Code: 1254043, Msg: "RecordIdNotFound", HTTPStatus: http.StatusOK, Path: "records/" + recordID}
}

func (f *fakeBitable) BatchCreateRecords(ctx context.Context, table feishu.Table, records []feishu.Fields) ([]feishu.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]feishu.Record, 0, len(records))
	for range records {
		out = append(out, feishu.Record{RecordID: fmt.Sprintf("recNew%d", len(f.created)+len(out)+1)})
	}
	f.created = append(f.created, records...)
	return out, nil
}

func (f *fakeBitable) UpdateRecord(ctx context.Context, table feishu.Table, recordID string, fields feishu.Fields) (*feishu.Record, error) {
	return &feishu.Record{RecordID: recordID}, nil
}

var _ services.BitableClient = (*fakeBitable)(nil)

// mockCustomerService implements services.CustomerService for handler tests.
type mockCustomerService struct {
	customers []models.Customer
	customer  *models.Customer
	result    *services.WriteResult
	err       error

	// Capture inputs for verification
	keyword    string
	customerID string
	input      *models.CustomerInput
}

func (m *mockCustomerService) List(ctx context.Context, keyword string) ([]models.Customer, error) {
	m.keyword = keyword
	return m.customers, m.err
}

func (m *mockCustomerService) Get(ctx context.Context, customerID string) (*models.Customer, error) {
	m.customerID = customerID
	return m.customer, m.err
}

func (m *mockCustomerService) Create(ctx context.Context, in *models.CustomerInput) (*services.WriteResult, error) {
	m.input = in
	return m.result, m.err
}

func (m *mockCustomerService) Update(ctx context.Context, customerID string, in *models.CustomerInput) (*services.WriteResult, error) {
	m.customerID = customerID
	m.input = in
	return m.result, m.err
}

// mockDealService implements services.DealService for handler tests.
type mockDealService struct {
	deals  []models.Deal
	deal   *models.Deal
	result *services.WriteResult
	err    error

	keyword   string
	projectID string
	dealID    string
	input     *models.DealInput
}

func (m *mockDealService) List(ctx context.Context, keyword, projectID string) ([]models.Deal, error) {
	m.keyword, m.projectID = keyword, projectID
	return m.deals, m.err
}

func (m *mockDealService) Get(ctx context.Context, dealID string) (*models.Deal, error) {
	m.dealID = dealID
	return m.deal, m.err
}

func (m *mockDealService) Create(ctx context.Context, in *models.DealInput) (*services.WriteResult, error) {
	m.input = in
	return m.result, m.err
}

func (m *mockDealService) Update(ctx context.Context, dealID string, in *models.DealInput) (*services.WriteResult, error) {
	m.dealID = dealID
	m.input = in
	return m.result, m.err
}

// mockReminderService implements services.ReminderService for handler tests.
type mockReminderService struct {
	items     []models.ReminderItem
	err       error
	projectID string
}

func (m *mockReminderService) List(ctx context.Context) ([]models.ReminderItem, error) {
	return m.items, m.err
}

func (m *mockReminderService) Followup(ctx context.Context, projectID string) (bool, error) {
	m.projectID = projectID
	return m.err == nil, m.err
}

// serve routes req through a fresh mux holding only the given handler.
func serve(h interface{ RegisterRoutes(*http.ServeMux) }, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
