package model

// TTEvent TT 平台的活动记录（映射完成后不再修改；同日期重导入时删除重建）
type TTEvent struct {
	ID          string `json:"_id,omitempty"`
	AppID       string `json:"appId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	StartDate string `json:"startDate"` // UTC, RFC3339
	EndDate   string `json:"endDate"`   // UTC, RFC3339
	AllDay    bool   `json:"allDayEvent"`

	CategoryFirst    string `json:"categoryFirst"`
	CategoryFirstID  string `json:"categoryFirstId"`
	CategorySecond   string `json:"categorySecond,omitempty"`
	CategorySecondID string `json:"categorySecondId,omitempty"`

	OwnerOrganizerID   string `json:"ownerOrganizerID"`
	OwnerOrganizerName string `json:"ownerOrganizerName"`
	VenueID            string `json:"venueID"`

	VenueGeolocation    GeoPoint `json:"venueGeolocation"`
	MasteredCityID      string   `json:"masteredCityId"`
	MasteredCityName    string   `json:"masteredCityName"`
	MasteredDivisionID  string   `json:"masteredDivisionId"`
	MasteredDivisionName string  `json:"masteredDivisionName"`
	MasteredRegionID    string   `json:"masteredRegionId"`
	MasteredRegionName  string   `json:"masteredRegionName"`

	// 导入元数据
	IsDiscovered        bool   `json:"isDiscovered"`   // 恒为 true
	IsOwnerManaged      bool   `json:"isOwnerManaged"` // 恒为 false
	DiscoveredFirstDate string `json:"discoveredFirstDate"`
	DiscoveredLastDate  string `json:"discoveredLastDate"`
	DiscoveredComments  string `json:"discoveredComments"` // 引用 BTC 源 ID
	ExpiresAt           string `json:"expiresAt"`          // 结束日期 + 1 天
}
