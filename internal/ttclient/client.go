package ttclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
	"github.com/ybotman/calendaradmin-sub000/internal/retry"
)

// Venue TT 平台场地记录
type Venue struct {
	ID                      string          `json:"_id"`
	Name                    string          `json:"name"`
	Address                 string          `json:"address,omitempty"`
	Latitude                float64         `json:"latitude,omitempty"`
	Longitude               float64         `json:"longitude,omitempty"`
	Geolocation             *model.GeoPoint `json:"geolocation,omitempty"`
	MasteredCityID          string          `json:"masteredCityId,omitempty"`
	MasteredCityName        string          `json:"masteredCityName,omitempty"`
	MasteredDivisionID      string          `json:"masteredDivisionId,omitempty"`
	MasteredDivisionName    string          `json:"masteredDivisionName,omitempty"`
	MasteredRegionID        string          `json:"masteredRegionId,omitempty"`
	MasteredRegionName      string          `json:"masteredRegionName,omitempty"`
	MasteredCityGeolocation *model.GeoPoint `json:"masteredCityGeolocation,omitempty"`
	// 坐标有效性三态：nil 表示尚未校验
	IsValidVenueGeolocation *bool `json:"isValidVenueGeolocation,omitempty"`
}

// Organizer TT 平台组织者记录
type Organizer struct {
	ID   string `json:"_id"`
	Name string `json:"fullName"`
}

// Category TT 平台分类记录
type Category struct {
	ID   string `json:"_id"`
	Name string `json:"categoryName"`
}

// Client TT 平台 API 客户端。token 为空时请求以未认证方式发出，
// 通常会得到 auth 类错误，由重试层按策略处理。
type Client struct {
	http  *resty.Client
	exec  *retry.Executor
	appID string
}

// New 创建 TT 客户端
func New(baseURL, appID, authToken string, timeout time.Duration, exec *retry.Executor) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if authToken != "" {
		c.SetAuthToken(authToken)
	}
	return &Client{http: c, exec: exec, appID: appID}
}

// lookupFirst 按名称查询端点返回数组，取首个匹配；空数组视为未命中（nil, nil）
func lookupFirst[T any](ctx context.Context, c *Client, op, path, name string) (*T, error) {
	resp, err := c.exec.Do(ctx, op, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetQueryParam("appId", c.appID).
			SetQueryParam("name", name).
			Get(path)
	})
	if err != nil {
		return nil, err
	}
	var list []T
	if err := json.Unmarshal(resp.Body(), &list); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// LookupVenueByName 按名称查场地；未命中返回 (nil, nil)
func (c *Client) LookupVenueByName(ctx context.Context, name string) (*Venue, error) {
	return lookupFirst[Venue](ctx, c, "tt.venue_lookup", "/api/venues", name)
}

// LookupOrganizerByName 按名称查组织者；未命中返回 (nil, nil)
func (c *Client) LookupOrganizerByName(ctx context.Context, name string) (*Organizer, error) {
	return lookupFirst[Organizer](ctx, c, "tt.organizer_lookup", "/api/organizers", name)
}

// LookupCategoryByName 按名称查分类；未命中返回 (nil, nil)
func (c *Client) LookupCategoryByName(ctx context.Context, name string) (*Category, error) {
	return lookupFirst[Category](ctx, c, "tt.category_lookup", "/api/categories", name)
}

// GetVenue 按 ID 获取场地（地理信息解析用）
func (c *Client) GetVenue(ctx context.Context, id string) (*Venue, error) {
	resp, err := c.exec.Do(ctx, "tt.venue_get", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetQueryParam("appId", c.appID).
			Get("/api/venues/" + url.PathEscape(id))
	})
	if err != nil {
		return nil, err
	}
	var v Venue
	if err := json.Unmarshal(resp.Body(), &v); err != nil {
		return nil, fmt.Errorf("failed to decode venue %s: %w", id, err)
	}
	return &v, nil
}

// UpdateVenue 回写场地（用于持久化坐标有效性标志）
func (c *Client) UpdateVenue(ctx context.Context, v *Venue) error {
	_, err := c.exec.Do(ctx, "tt.venue_update", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetQueryParam("appId", c.appID).
			SetBody(v).
			Put("/api/venues/" + url.PathEscape(v.ID))
	})
	return err
}

// eventsQueryResponse 按日期区间查询活动的响应
type eventsQueryResponse struct {
	Events []model.TTEvent `json:"events"`
}

// QueryEventsByDate 查询目标日历日内的现存活动（删除阶段使用）
func (c *Client) QueryEventsByDate(ctx context.Context, day time.Time) ([]model.TTEvent, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	resp, err := c.exec.Do(ctx, "tt.events_query", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"appId": c.appID,
				"start": dayStart.Format(time.RFC3339),
				"end":   dayEnd.Format(time.RFC3339),
			}).
			Get("/api/events")
	})
	if err != nil {
		return nil, err
	}
	var body eventsQueryResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode tt events query: %w", err)
	}
	return body.Events, nil
}

// DeleteEvent 按 ID 删除活动
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	_, err := c.exec.Do(ctx, "tt.event_delete", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetQueryParam("appId", c.appID).
			Delete("/api/events/" + url.PathEscape(id))
	})
	return err
}

// CreateEvent 创建活动，返回平台侧的规范记录
func (c *Client) CreateEvent(ctx context.Context, ev *model.TTEvent) (*model.TTEvent, error) {
	resp, err := c.exec.Do(ctx, "tt.event_create", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetBody(ev).
			Post("/api/events")
	})
	if err != nil {
		return nil, err
	}
	var created model.TTEvent
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return nil, fmt.Errorf("failed to decode created event: %w", err)
	}
	return &created, nil
}
