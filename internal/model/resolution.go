package model

// 哨兵值：解析失败时的占位标识，保证流水线总能继续
const (
	SentinelVenueID       = "UNKNOWN"
	SentinelOrganizerID   = "UNKNOWN_ORGANIZER_ID"
	SentinelOrganizerName = "Unknown"
	FallbackCategoryName  = "Other"
)

// ResolutionStatus 实体解析状态
type ResolutionStatus string

const (
	ResolutionMatched  ResolutionStatus = "matched"  // 按名称命中目标平台记录
	ResolutionFallback ResolutionStatus = "fallback" // 未命中，使用哨兵/默认值
)

// Resolution 单个实体的解析结果。调用方通过 Status 区分真实命中与兜底值，
// 但两种情况下 ID/Name 都保证可用。
type Resolution struct {
	Status ResolutionStatus `json:"status"`
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Reason string           `json:"reason,omitempty"` // 仅 fallback 时填写
}

// Matched 构造命中结果
func Matched(id, name string) Resolution {
	return Resolution{Status: ResolutionMatched, ID: id, Name: name}
}

// Fallback 构造兜底结果
func Fallback(id, name, reason string) Resolution {
	return Resolution{Status: ResolutionFallback, ID: id, Name: name, Reason: reason}
}

// IsFallback 是否为兜底值
func (r Resolution) IsFallback() bool {
	return r.Status == ResolutionFallback
}

// GeoPoint GeoJSON Point 几何
type GeoPoint struct {
	Type        string    `json:"type"`        // 固定 "Point"
	Coordinates []float64 `json:"coordinates"` // [经度, 纬度]
}

// NewGeoPoint 构造 Point 几何
func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Geography 场地地理层级（城市/分区/大区）解析结果
type Geography struct {
	Location                 GeoPoint `json:"location"`
	CityID                   string   `json:"cityId"`
	CityName                 string   `json:"cityName"`
	DivisionID               string   `json:"divisionId"`
	DivisionName             string   `json:"divisionName"`
	RegionID                 string   `json:"regionId"`
	RegionName               string   `json:"regionName"`
	IsErrorFallbackGeography bool     `json:"isErrorFallbackGeography"`
	CoordinatesValid         bool     `json:"coordinatesValid"`
}

// ResolvedEntities 单条活动的实体解析汇总
type ResolvedEntities struct {
	Venue          Resolution  `json:"venue"`
	Organizer      Resolution  `json:"organizer"`
	CategoryFirst  Resolution  `json:"categoryFirst"`
	CategorySecond *Resolution `json:"categorySecond,omitempty"`
	Geography      Geography   `json:"geography"`

	// Resolved 要求场地、组织者名称、主分类、地理信息全部非空（允许兜底值）；
	// PartialResolution 表示其中存在兜底。
	Resolved          bool     `json:"resolved"`
	PartialResolution bool     `json:"partialResolution"`
	Errors            []string `json:"errors,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Finalize 根据各实体结果推导 Resolved / PartialResolution。
// 解析成功的判据采用组织者名称（而非仅 ID）：失败路径同样填充名称哨兵，
// 因此该检查在两条路径上都有意义。
func (r *ResolvedEntities) Finalize() {
	r.Resolved = r.Venue.ID != "" &&
		r.Organizer.Name != "" &&
		r.CategoryFirst.ID != "" && r.CategoryFirst.Name != "" &&
		r.Geography.CityID != ""
	r.PartialResolution = r.Venue.IsFallback() ||
		r.Organizer.IsFallback() ||
		r.CategoryFirst.IsFallback() ||
		r.Geography.IsErrorFallbackGeography
}
