// Package models contains domain types for the BD Daily server.
package models

import "github.com/bddaily/bddaily-server/pkg/jsonutil"

// ProjectField maps Project JSON keys to the project table's column labels.
var ProjectField = struct {
	ProjectID       string
	CustomerID      string
	ProjectName     string
	ShortName       string
	CampaignName    string
	DeliverableName string
	Month           string
	ServiceType     string
	ProjectType     string
	Stage           string
	Priority        string
	ExpectedAmount  string
	BD              string
	AM              string
	TotalBDHours    string
	LastUpdateDate  string
	NextFollowDate  string
}{
	ProjectID:       "项目ID",
	CustomerID:      "客户ID",
	ProjectName:     "项目名称",
	ShortName:       "客户/部门简称",
	CampaignName:    "活动名称",
	DeliverableName: "交付名称",
	Month:           "所属年月",
	ServiceType:     "服务类型",
	ProjectType:     "项目类别",
	Stage:           "项目进度",
	Priority:        "优先级",
	ExpectedAmount:  "预估项目金额",
	BD:              "BD",
	AM:              "AM",
	TotalBDHours:    "累计商务时间（hr）",
	LastUpdateDate:  "最新更新日期",
	NextFollowDate:  "下次跟进日期",
}

// Project is one row of the project table.
type Project struct {
	RecordID        string  `json:"recordId"`
	ProjectID       string  `json:"projectId"`
	CustomerID      string  `json:"customerId"`
	ShortName       string  `json:"shortName"`
	ProjectName     string  `json:"projectName"`
	ServiceType     string  `json:"serviceType"`
	ProjectType     string  `json:"projectType"`
	Stage           string  `json:"stage"`
	Priority        string  `json:"priority"`
	BD              string  `json:"bd"`
	AM              string  `json:"am"`
	Month           string  `json:"month"`
	NextFollowDate  string  `json:"nextFollowDate"`
	CampaignName    string  `json:"campaignName"`
	DeliverableName string  `json:"deliverableName"`
	ExpectedAmount  float64 `json:"expectedAmount"`
	TotalBDHours    float64 `json:"totalBdHours"`
	LastUpdateDate  string  `json:"lastUpdateDate"`
}

// ProjectInput is the create/update body for a project.
// BD and AM accept a display name or an already-resolved person list.
type ProjectInput struct {
	ProjectID       jsonutil.Value `json:"projectId"`
	CustomerID      jsonutil.Value `json:"customerId"`
	ProjectName     jsonutil.Value `json:"projectName"`
	ShortName       jsonutil.Value `json:"shortName"`
	ServiceType     jsonutil.Value `json:"serviceType"`
	ProjectType     jsonutil.Value `json:"projectType"`
	Stage           jsonutil.Value `json:"stage"`
	Priority        jsonutil.Value `json:"priority"`
	Month           jsonutil.Value `json:"month"`
	NextFollowDate  jsonutil.Value `json:"nextFollowDate"`
	CampaignName    jsonutil.Value `json:"campaignName"`
	DeliverableName jsonutil.Value `json:"deliverableName"`
	TotalBDHours    jsonutil.Value `json:"totalBdHours"`
	LastUpdateDate  jsonutil.Value `json:"lastUpdateDate"`
	ExpectedAmount  jsonutil.Value `json:"expectedAmount"`
	BD              jsonutil.Value `json:"bd"`
	AM              jsonutil.Value `json:"am"`
}
