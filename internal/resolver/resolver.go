package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ybotman/calendaradmin-sub000/internal/config"
	"github.com/ybotman/calendaradmin-sub000/internal/model"
	"github.com/ybotman/calendaradmin-sub000/internal/ttclient"
)

// Resolver 实体解析器：把 BTC 活动中的场地/组织者/分类/地理引用解析为
// TT 平台的规范记录。所有失败路径都产出可用的兜底值，流水线不因解析失败中断。
type Resolver struct {
	tt         *ttclient.Client
	cache      *Cache
	defaultLoc config.LocationConfig
}

// New 创建解析器
func New(tt *ttclient.Client, cache *Cache, defaultLoc config.LocationConfig) *Resolver {
	return &Resolver{tt: tt, cache: cache, defaultLoc: defaultLoc}
}

// Cache 返回解析器持有的缓存（未匹配报告用）
func (r *Resolver) Cache() *Cache { return r.cache }

// PrewarmCategories 用源侧分类列表预热分类缓存，逐条活动处理时不再
// 重复发起分类查询。尽力而为，单个失败不影响其余预热。
func (r *Resolver) PrewarmCategories(ctx context.Context, names []string) {
	var scratch model.ResolvedEntities
	for _, name := range names {
		r.resolveCategory(ctx, name, &scratch)
	}
}

// ResolveEvent 解析单条活动的全部实体引用
func (r *Resolver) ResolveEvent(ctx context.Context, ev *model.BTCEvent) model.ResolvedEntities {
	var out model.ResolvedEntities

	out.Venue = r.resolveVenue(ctx, ev.Venue, &out)
	out.Organizer = r.resolveOrganizer(ctx, ev.Organizer.First(), &out)

	// 主分类先于副分类；副分类失败仅记警告
	out.CategoryFirst = r.resolveCategory(ctx, ev.PrimaryCategory(), &out)
	if second := ev.SecondaryCategory(); second != "" {
		res := r.resolveCategory(ctx, second, &out)
		out.CategorySecond = &res
		if res.IsFallback() {
			out.Warnings = append(out.Warnings, fmt.Sprintf("secondary category %q fell back to %s", second, res.Name))
		}
	}

	out.Geography = r.resolveGeography(ctx, out.Venue, &out)

	out.Finalize()
	return out
}

// resolveVenue 场地解析：缓存 → 按名称远程查询 → 哨兵兜底。从不新建场地。
func (r *Resolver) resolveVenue(ctx context.Context, v model.BTCVenue, out *model.ResolvedEntities) model.Resolution {
	name := strings.TrimSpace(v.Name)
	if name == "" {
		out.Warnings = append(out.Warnings, "event has no venue name")
		return model.Fallback(model.SentinelVenueID, "", "missing venue name")
	}

	if ref, ok := r.cache.Venue(name); ok {
		return refToResolution(ref, "venue not found in TT")
	}

	venue, err := r.tt.LookupVenueByName(ctx, name)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("venue lookup failed for %q: %v", name, err))
		ref := entityRef{ID: model.SentinelVenueID, Name: name, Fallback: true}
		r.cache.PutVenue(name, ref)
		return model.Fallback(ref.ID, name, "venue lookup failed")
	}
	if venue == nil {
		ref := entityRef{ID: model.SentinelVenueID, Name: name, Fallback: true}
		r.cache.PutVenue(name, ref)
		return model.Fallback(ref.ID, name, "venue not found in TT")
	}

	ref := entityRef{ID: venue.ID, Name: venue.Name}
	r.cache.PutVenue(name, ref)
	return model.Matched(venue.ID, venue.Name)
}

// resolveOrganizer 组织者解析：列表时仅首个权威；失败时使用哨兵 ID/原名对
func (r *Resolver) resolveOrganizer(ctx context.Context, org *model.BTCOrganizer, out *model.ResolvedEntities) model.Resolution {
	if org == nil || strings.TrimSpace(org.Name) == "" {
		out.Warnings = append(out.Warnings, "event has no organizer")
		return model.Fallback(model.SentinelOrganizerID, model.SentinelOrganizerName, "missing organizer")
	}
	name := strings.TrimSpace(org.Name)

	if ref, ok := r.cache.Organizer(name); ok {
		return refToResolution(ref, "organizer not found in TT")
	}

	found, err := r.tt.LookupOrganizerByName(ctx, name)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("organizer lookup failed for %q: %v", name, err))
		ref := entityRef{ID: model.SentinelOrganizerID, Name: name, Fallback: true}
		r.cache.PutOrganizer(name, ref)
		return model.Fallback(ref.ID, name, "organizer lookup failed")
	}
	if found == nil {
		ref := entityRef{ID: model.SentinelOrganizerID, Name: name, Fallback: true}
		r.cache.PutOrganizer(name, ref)
		return model.Fallback(ref.ID, name, "organizer not found in TT")
	}

	ref := entityRef{ID: found.ID, Name: found.Name}
	r.cache.PutOrganizer(name, ref)
	return model.Matched(found.ID, found.Name)
}

// resolveCategory 分类解析：映射表纯查找 + TT 分类 ID 查询。总能成功 ——
// 未匹配时落到本地 mock ID 与 Other 标签。
func (r *Resolver) resolveCategory(ctx context.Context, btcName string, out *model.ResolvedEntities) model.Resolution {
	cacheKey := btcName
	if cacheKey == "" {
		cacheKey = "(none)"
	}

	if ref, ok := r.cache.Category(cacheKey); ok {
		return refToResolution(ref, "category not found in TT")
	}

	ttName := MapToTTCategory(btcName)

	found, err := r.tt.LookupCategoryByName(ctx, ttName)
	if err != nil || found == nil {
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("category lookup failed for %q: %v", ttName, err))
		}
		ref := entityRef{ID: mockCategoryID(), Name: model.FallbackCategoryName, Fallback: true}
		r.cache.PutCategory(cacheKey, ref)
		return model.Fallback(ref.ID, ref.Name, "category not found in TT")
	}

	ref := entityRef{ID: found.ID, Name: ttName}
	r.cache.PutCategory(cacheKey, ref)
	return model.Matched(found.ID, ttName)
}

// mockCategoryID 本地生成的 mock 分类标识
func mockCategoryID() string {
	return fmt.Sprintf("mock-category-%s", uuid.New().String()[:8])
}

func refToResolution(ref entityRef, reason string) model.Resolution {
	if ref.Fallback {
		return model.Fallback(ref.ID, ref.Name, reason)
	}
	return model.Matched(ref.ID, ref.Name)
}
