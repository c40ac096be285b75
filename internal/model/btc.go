package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BTCEvent BTC 日历源的单条活动记录（抓取后不可变，生命周期为一次导入）
type BTCEvent struct {
	ID           int            `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	StartDate    string         `json:"startDate"`              // 本地时间 "2006-01-02 15:04:05"
	EndDate      string         `json:"endDate"`                // 本地时间
	UTCStartDate string         `json:"utcStartDate,omitempty"` // 源侧显式 UTC 时间（优先使用）
	UTCEndDate   string         `json:"utcEndDate,omitempty"`
	AllDay       bool           `json:"allDay"`
	Venue        BTCVenue       `json:"venue"`
	Organizer    BTCOrganizers  `json:"organizer"`
	Categories   []BTCCategory  `json:"categories"`
}

// BTCVenue BTC 活动的嵌套场地信息
type BTCVenue struct {
	ID      int    `json:"id,omitempty"`
	Name    string `json:"venue"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"stateProvince,omitempty"`
	Zip     string `json:"zip,omitempty"`
}

// BTCOrganizer BTC 活动的组织者信息
type BTCOrganizer struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"organizer"`
	Email string `json:"email,omitempty"`
}

// BTCOrganizers 组织者字段：源侧可能返回单个对象，也可能返回非空数组（首个为准）
type BTCOrganizers []BTCOrganizer

// UnmarshalJSON 兼容对象与数组两种组织者表示
func (o *BTCOrganizers) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*o = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []BTCOrganizer
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("failed to decode organizer list: %w", err)
		}
		*o = list
		return nil
	}
	var single BTCOrganizer
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("failed to decode organizer object: %w", err)
	}
	*o = BTCOrganizers{single}
	return nil
}

// First 返回权威组织者（列表时取首个），不存在时返回 nil
func (o BTCOrganizers) First() *BTCOrganizer {
	if len(o) == 0 {
		return nil
	}
	return &o[0]
}

// BTCCategory BTC 分类（有序，首个为主分类，次个为副分类）
type BTCCategory struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
}

// PrimaryCategory 主分类名称，缺失时返回空串
func (e *BTCEvent) PrimaryCategory() string {
	if len(e.Categories) == 0 {
		return ""
	}
	return e.Categories[0].Name
}

// SecondaryCategory 副分类名称，缺失时返回空串
func (e *BTCEvent) SecondaryCategory() string {
	if len(e.Categories) < 2 {
		return ""
	}
	return e.Categories[1].Name
}
