package mapper

import (
	"fmt"
	"strings"
	"time"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
)

// Mapper BTC 活动到 TT 活动的纯转换（无 I/O）
type Mapper struct {
	appID string
	loc   *time.Location // 源侧本地时间的时区
}

// New 创建映射器；loc 为 nil 时按源日历所在的美东时区处理
func New(appID string, loc *time.Location) *Mapper {
	if loc == nil {
		var err error
		loc, err = time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.UTC
		}
	}
	return &Mapper{appID: appID, loc: loc}
}

// MapEvent 转换单条活动。时间解析失败返回错误并上抛 ——
// 畸形日期属于源数据缺陷，由编排层的单事件边界捕获。
func (m *Mapper) MapEvent(ev *model.BTCEvent, resolved *model.ResolvedEntities, importedAt time.Time) (*model.TTEvent, error) {
	start, err := m.parseUTC(ev.UTCStartDate, ev.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start date of event %d: %w", ev.ID, err)
	}
	end, err := m.parseUTC(ev.UTCEndDate, ev.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse end date of event %d: %w", ev.ID, err)
	}

	importDay := importedAt.UTC().Format("2006-01-02")

	out := &model.TTEvent{
		AppID:       m.appID,
		Title:       ev.Title,
		Description: ev.Description,
		StartDate:   start.Format(time.RFC3339),
		EndDate:     end.Format(time.RFC3339),
		AllDay:      ev.AllDay,

		CategoryFirst:   resolved.CategoryFirst.Name,
		CategoryFirstID: resolved.CategoryFirst.ID,

		OwnerOrganizerID:   resolved.Organizer.ID,
		OwnerOrganizerName: resolved.Organizer.Name,
		VenueID:            resolved.Venue.ID,

		VenueGeolocation:     resolved.Geography.Location,
		MasteredCityID:       resolved.Geography.CityID,
		MasteredCityName:     resolved.Geography.CityName,
		MasteredDivisionID:   resolved.Geography.DivisionID,
		MasteredDivisionName: resolved.Geography.DivisionName,
		MasteredRegionID:     resolved.Geography.RegionID,
		MasteredRegionName:   resolved.Geography.RegionName,

		IsDiscovered:        true,
		IsOwnerManaged:      false,
		DiscoveredFirstDate: importDay,
		DiscoveredLastDate:  importDay,
		DiscoveredComments:  fmt.Sprintf("Imported from BTC event %d", ev.ID),
		// 过期时间 = 结束日期 + 1 个日历日
		ExpiresAt: end.AddDate(0, 0, 1).Format(time.RFC3339),
	}

	if resolved.CategorySecond != nil {
		out.CategorySecond = resolved.CategorySecond.Name
		out.CategorySecondID = resolved.CategorySecond.ID
	}

	return out, nil
}

// parseUTC 优先使用源侧显式 UTC 字段，否则按本地时区解析后归一化为 UTC
func (m *Mapper) parseUTC(utcField, localField string) (time.Time, error) {
	if s := strings.TrimSpace(utcField); s != "" {
		t, err := parseAny(s, time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}
	s := strings.TrimSpace(localField)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := parseAny(s, m.loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseAny 支持 RFC3339 与 "2006-01-02 15:04:05" / "2006-01-02" 三种常见布局
func parseAny(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time: %s", s)
}
