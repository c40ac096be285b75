package btcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
	"github.com/ybotman/calendaradmin-sub000/internal/retry"
)

// Client BTC 日历源 API 客户端
type Client struct {
	http     *resty.Client
	exec     *retry.Executor
	pageSize int
}

// New 创建 BTC 客户端
func New(baseURL string, timeout time.Duration, pageSize int, exec *retry.Executor) *Client {
	if pageSize <= 0 {
		pageSize = 50
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c, exec: exec, pageSize: pageSize}
}

// eventsPage 分页活动响应
type eventsPage struct {
	Events []model.BTCEvent `json:"events"`
	Total  int              `json:"total"`
}

// categoriesResponse 分类列表响应
type categoriesResponse struct {
	Categories []model.BTCCategory `json:"categories"`
}

// organizersResponse 组织者列表响应
type organizersResponse struct {
	Organizers []model.BTCOrganizer `json:"organizers"`
}

// FetchEvents 按日期区间分页抓取活动；当某页返回数量小于页大小时终止翻页。
// 同时返回每页的原始 JSON，供原始产物落盘。
func (c *Client) FetchEvents(ctx context.Context, start, end time.Time) ([]model.BTCEvent, []json.RawMessage, error) {
	var (
		all      []model.BTCEvent
		rawPages []json.RawMessage
	)

	for page := 1; ; page++ {
		req := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"start_date": start.Format("2006-01-02"),
				"end_date":   end.Format("2006-01-02"),
				"per_page":   strconv.Itoa(c.pageSize),
				"page":       strconv.Itoa(page),
			})

		resp, err := c.exec.Do(ctx, fmt.Sprintf("btc.events page=%d", page), func(ctx context.Context) (*resty.Response, error) {
			return req.Get("/events")
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch btc events: %w", err)
		}

		var body eventsPage
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, nil, fmt.Errorf("failed to decode btc events page %d: %w", page, err)
		}

		rawPages = append(rawPages, json.RawMessage(append([]byte(nil), resp.Body()...)))
		all = append(all, body.Events...)

		if len(body.Events) < c.pageSize {
			break
		}
	}

	return all, rawPages, nil
}

// FetchCategories 抓取源侧分类列表（用于缓存预热）
func (c *Client) FetchCategories(ctx context.Context) ([]model.BTCCategory, error) {
	resp, err := c.exec.Do(ctx, "btc.categories", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().SetContext(ctx).Get("/categories")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch btc categories: %w", err)
	}
	var body categoriesResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode btc categories: %w", err)
	}
	return body.Categories, nil
}

// FetchOrganizers 抓取源侧组织者列表（导入周边工具使用）
func (c *Client) FetchOrganizers(ctx context.Context) ([]model.BTCOrganizer, error) {
	resp, err := c.exec.Do(ctx, "btc.organizers", func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().SetContext(ctx).Get("/organizers")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch btc organizers: %w", err)
	}
	var body organizersResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode btc organizers: %w", err)
	}
	return body.Organizers, nil
}
