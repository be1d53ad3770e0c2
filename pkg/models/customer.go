package models

import "github.com/bddaily/bddaily-server/pkg/jsonutil"

// CustomerField maps Customer JSON keys to the customer table's column labels.
var CustomerField = struct {
	CustomerID        string
	ShortName         string
	BrandName         string
	CompanyName       string
	HQ                string
	CustomerType      string
	Level             string
	CooperationStatus string
	Industry          string
	IsAnnual          string
	BDOwner           string
}{
	CustomerID:        "客户ID",
	ShortName:         "客户/部门简称",
	BrandName:         "品牌名称",
	CompanyName:       "企业名称",
	HQ:                "公司总部地区",
	CustomerType:      "客户类型",
	Level:             "客户等级",
	CooperationStatus: "合作状态",
	Industry:          "行业大类",
	IsAnnual:          "年框客户",
	BDOwner:           "主BD负责人",
}

// Customer is one row of the customer table.
type Customer struct {
	ID                string `json:"id"` // vendor record id
	CustomerID        string `json:"customerId"`
	ShortName         string `json:"shortName"`
	BrandName         string `json:"brandName"`
	CompanyName       string `json:"companyName"`
	HQ                string `json:"hq"`
	CustomerType      string `json:"customerType"`
	Level             string `json:"level"`
	CooperationStatus string `json:"cooperationStatus"`
	Industry          string `json:"industry"`
	IsAnnual          bool   `json:"isAnnual"`
	BDOwner           string `json:"bdOwner"`
	OwnerUserID       string `json:"ownerUserId,omitempty"`
}

// CustomerInput is the create/update body for a customer.
type CustomerInput struct {
	ShortName         jsonutil.Value `json:"shortName"`
	Name              jsonutil.Value `json:"name"` // alias of shortName on create
	CompanyName       jsonutil.Value `json:"companyName"`
	HQ                jsonutil.Value `json:"hq"`
	CustomerType      jsonutil.Value `json:"customerType"`
	Level             jsonutil.Value `json:"level"`
	CooperationStatus jsonutil.Value `json:"cooperationStatus"`
	Industry          jsonutil.Value `json:"industry"`
	IsAnnual          jsonutil.Value `json:"isAnnual"`
	OwnerUserID       jsonutil.Value `json:"ownerUserId"`
	OwnerBD           jsonutil.Value `json:"ownerBd"`
	Owner             jsonutil.Value `json:"owner"` // alias of ownerBd
}

// OwnerName returns the BD owner display name, preferring ownerBd over owner.
func (in *CustomerInput) OwnerName() string {
	if name := in.OwnerBD.Text(); name != "" {
		return name
	}
	return in.Owner.Text()
}
