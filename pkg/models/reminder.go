package models

// ReminderItem is a project that needs a follow-up.
type ReminderItem struct {
	ProjectID      string `json:"projectId"`
	ProjectName    string `json:"projectName"`
	ShortName      string `json:"shortName"`
	BD             string `json:"bd"`
	Stage          string `json:"stage"`
	LastUpdateDate string `json:"lastUpdateDate"`
	NextFollowDate string `json:"nextFollowDate"`
	Reason         string `json:"reason"`
}

// ReminderStages are the project stages that still need follow-ups.
var ReminderStages = []string{"未开始", "进行中", "FA", "停滞"}
