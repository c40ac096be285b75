package validator

import (
	"fmt"
	"time"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
)

// ValidateEvent 写入前校验 TT 活动记录，返回违反的规则列表。
// 不修改输入；零违规即为有效，任何违规不影响其他活动的处理。
func ValidateEvent(ev *model.TTEvent) []string {
	if ev == nil {
		return []string{"event 不能为空"}
	}

	errs := make([]string, 0, 4)

	// 必填字段
	required := []struct {
		field string
		value string
	}{
		{"appId", ev.AppID},
		{"title", ev.Title},
		{"startDate", ev.StartDate},
		{"endDate", ev.EndDate},
		{"ownerOrganizerID", ev.OwnerOrganizerID},
		{"ownerOrganizerName", ev.OwnerOrganizerName},
		{"venueID", ev.VenueID},
		{"expiresAt", ev.ExpiresAt},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Sprintf("%s 不能为空", r.field))
		}
	}

	// 日期可解析性
	start, startOK := parseDate(ev.StartDate)
	end, endOK := parseDate(ev.EndDate)
	dateFields := []struct {
		field string
		value string
		ok    bool
	}{
		{"startDate", ev.StartDate, startOK},
		{"endDate", ev.EndDate, endOK},
	}
	for _, d := range dateFields {
		if d.value != "" && !d.ok {
			errs = append(errs, fmt.Sprintf("%s 无法解析: %s", d.field, d.value))
		}
	}
	if ev.ExpiresAt != "" {
		if _, ok := parseDate(ev.ExpiresAt); !ok {
			errs = append(errs, fmt.Sprintf("expiresAt 无法解析: %s", ev.ExpiresAt))
		}
	}

	// 起止顺序
	if startOK && endOK && !start.Before(end) {
		errs = append(errs, "startDate 必须早于 endDate")
	}

	// 分类交叉一致性：有 ID 必须有名称
	if ev.CategoryFirstID != "" && ev.CategoryFirst == "" {
		errs = append(errs, "categoryFirstId 已填但 categoryFirst 为空")
	}
	if ev.CategorySecondID != "" && ev.CategorySecond == "" {
		errs = append(errs, "categorySecondId 已填但 categorySecond 为空")
	}

	return errs
}

// IsValid 零违规即有效
func IsValid(ev *model.TTEvent) bool {
	return len(ValidateEvent(ev)) == 0
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
