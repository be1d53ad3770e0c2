package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/apperrors"
	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/models"
	"github.com/bddaily/bddaily-server/pkg/services"
)

func TestDealsHandler_List(t *testing.T) {
	income := 1000.0
	svc := &mockDealService{deals: []models.Deal{
		{RecordID: "recD1", DealID: "D001", ProjectID: "P001", ProjectName: "春季发布会", IncomeWithTax: &income},
	}}
	h := NewDealsHandler(svc, zap.NewNop())

	rec := serve(h, http.MethodGet, "/api/deals?keyword=%E5%8F%91%E5%B8%83&projectId=P001", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "发布", svc.keyword)
	assert.Equal(t, "P001", svc.projectID)

	data := decodeMap(t, rec)["data"].([]any)
	require.Len(t, data, 1)
	deal := data[0].(map[string]any)
	assert.Equal(t, "D001", deal["dealId"])
	assert.Equal(t, 1000.0, deal["incomeWithTax"])
	assert.NotContains(t, deal, "grossProfit")
}

func TestDealsHandler_Get(t *testing.T) {
	svc := &mockDealService{deal: &models.Deal{DealID: "D001"}}
	h := NewDealsHandler(svc, zap.NewNop())

	rec := serve(h, http.MethodGet, "/api/deals/D001", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "D001", svc.dealID)
}

func TestDealsHandler_Create(t *testing.T) {
	target := feishu.Table{AppToken: "appProject", TableID: "tblDeal"}
	svc := &mockDealService{result: &services.WriteResult{
		RecordID: "recNew1",
		Target:   &target,
		Fields:   feishu.Fields{"立项ID": "D010", "所属月份": 5},
		Warnings: []string{},
	}}
	h := NewDealsHandler(svc, zap.NewNop())

	rec := serve(h, http.MethodPost, "/api/deals", `{"dealId":"D010","month":"2024.05"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.input)
	assert.Equal(t, "D010", svc.input.DealID.Text())

	body := decodeMap(t, rec)
	assert.Equal(t, "recNew1", body["record_id"])
	assert.Equal(t, map[string]any{"立项ID": "D010", "所属月份": 5.0}, body["fields"])
}

func TestDealsHandler_Create_MissingDealID(t *testing.T) {
	svc := &mockDealService{err: fmt.Errorf("%w: missing dealId", apperrors.ErrValidation)}
	h := NewDealsHandler(svc, zap.NewNop())

	rec := serve(h, http.MethodPost, "/api/deals", `{"projectId":"P001"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing dealId", decodeMap(t, rec)["error"])
}

func TestDealsHandler_Update_UpstreamFailure(t *testing.T) {
	svc := &mockDealService{err: fmt.Errorf("update deal: %w", &feishu.APIError{
		Code: 1254045, Msg: "FieldNameNotFound", HTTPStatus: http.StatusOK, Path: "records/recD1",
	})}
	h := NewDealsHandler(svc, zap.NewNop())

	rec := serve(h, http.MethodPut, "/api/deals/D001", `{"signCompany":"乙公司"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "D001", svc.dealID)
	assert.Contains(t, decodeMap(t, rec)["error"], "FieldNameNotFound")
}
