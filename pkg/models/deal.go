package models

import (
	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/jsonutil"
)

// DealField maps Deal JSON keys to the deal (立项) table's column labels.
// Some columns carry an older alternate label, tried second on reads.
var DealField = struct {
	SerialNo            string
	DealID              string
	ProjectID           string
	CustomerID          string
	ProjectName         string
	Month               string
	StartDate           string
	EndDate             string
	IsFinished          string
	IsFinishedAlt       string
	SignCompany         string
	SignCompanyAlt      string
	IncomeWithTax       string
	IncomeWithoutTax    string
	EstimatedCost       string
	PaidThirdPartyCost  string
	GrossProfit         string
	GrossMargin         string
	FirstPaymentDate    string
	FinalPaymentDate    string
	ReceivedAmount      string
	RemainingReceivable string
}{
	SerialNo:            "编号",
	DealID:              "立项ID",
	ProjectID:           "项目ID",
	CustomerID:          "客户ID",
	ProjectName:         "项目名称",
	Month:               "所属月份",
	StartDate:           "项目开始时间",
	EndDate:             "项目结束时间",
	IsFinished:          "是否完结",
	IsFinishedAlt:       "是否完成",
	SignCompany:         "签约公司主体",
	SignCompanyAlt:      "签约主体",
	IncomeWithTax:       "含税收入",
	IncomeWithoutTax:    "不含税收入",
	EstimatedCost:       "预估成本",
	PaidThirdPartyCost:  "已付三方成本",
	GrossProfit:         "毛利",
	GrossMargin:         "毛利率",
	FirstPaymentDate:    "预计首款时间",
	FinalPaymentDate:    "预计尾款时间",
	ReceivedAmount:      "已收金额",
	RemainingReceivable: "剩余应收金额",
}

// Deal is one row of the deal table. Money fields are omitted when the cell is
// empty or not numeric.
type Deal struct {
	RecordID            string       `json:"recordId"`
	SerialNo            string       `json:"serialNo"`
	DealID              string       `json:"dealId"`
	ProjectID           string       `json:"projectId"`
	CustomerID          string       `json:"customerId"`
	ProjectName         string       `json:"projectName"`
	Month               string       `json:"month"`
	StartDate           string       `json:"startDate"`
	EndDate             string       `json:"endDate"`
	IsFinished          feishu.Value `json:"isFinished"` // checkbox or single select, passed through
	SignCompany         string       `json:"signCompany"`
	IncomeWithTax       *float64     `json:"incomeWithTax,omitempty"`
	IncomeWithoutTax    *float64     `json:"incomeWithoutTax,omitempty"`
	EstimatedCost       *float64     `json:"estimatedCost,omitempty"`
	PaidThirdPartyCost  *float64     `json:"paidThirdPartyCost,omitempty"`
	GrossProfit         *float64     `json:"grossProfit,omitempty"`
	GrossMargin         *float64     `json:"grossMargin,omitempty"`
	FirstPaymentDate    string       `json:"firstPaymentDate"`
	FinalPaymentDate    string       `json:"finalPaymentDate"`
	ReceivedAmount      *float64     `json:"receivedAmount,omitempty"`
	RemainingReceivable *float64     `json:"remainingReceivable,omitempty"`
}

// DealInput is the create/update body for a deal.
type DealInput struct {
	DealID              jsonutil.Value `json:"dealId"`
	ProjectID           jsonutil.Value `json:"projectId"`
	CustomerID          jsonutil.Value `json:"customerId"`
	Month               jsonutil.Value `json:"month"`
	StartDate           jsonutil.Value `json:"startDate"`
	EndDate             jsonutil.Value `json:"endDate"`
	IsFinished          jsonutil.Value `json:"isFinished"`
	SignCompany         jsonutil.Value `json:"signCompany"`
	IncomeWithTax       jsonutil.Value `json:"incomeWithTax"`
	IncomeWithoutTax    jsonutil.Value `json:"incomeWithoutTax"`
	EstimatedCost       jsonutil.Value `json:"estimatedCost"`
	PaidThirdPartyCost  jsonutil.Value `json:"paidThirdPartyCost"`
	ThirdPartyCost      jsonutil.Value `json:"thirdPartyCost"` // alias of paidThirdPartyCost, wins when both are sent
	ReceivedAmount      jsonutil.Value `json:"receivedAmount"`
	GrossProfit         jsonutil.Value `json:"grossProfit"`
	GrossMargin         jsonutil.Value `json:"grossMargin"`
	RemainingReceivable jsonutil.Value `json:"remainingReceivable"`
	FirstPaymentDate    jsonutil.Value `json:"firstPaymentDate"`
	FinalPaymentDate    jsonutil.Value `json:"finalPaymentDate"`
}
