package resolver

import (
	"sort"
	"sync"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
)

// entityRef 名称到目标平台记录的缓存项
type entityRef struct {
	ID       string
	Name     string
	Fallback bool
}

// Cache 实体解析缓存：源名称 → TT 标识，外加未匹配名称集合。
// 进程生命周期内不淘汰；写入需持锁，以便并发解析只读查询时安全。
type Cache struct {
	mu         sync.Mutex
	venues     map[string]entityRef
	organizers map[string]entityRef
	categories map[string]entityRef

	unmatchedVenues     map[string]struct{}
	unmatchedOrganizers map[string]struct{}
	unmatchedCategories map[string]struct{}
}

// NewCache 创建空缓存
func NewCache() *Cache {
	return &Cache{
		venues:              make(map[string]entityRef),
		organizers:          make(map[string]entityRef),
		categories:          make(map[string]entityRef),
		unmatchedVenues:     make(map[string]struct{}),
		unmatchedOrganizers: make(map[string]struct{}),
		unmatchedCategories: make(map[string]struct{}),
	}
}

func (c *Cache) lookup(m map[string]entityRef, name string) (entityRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := m[name]
	return ref, ok
}

// Venue 查询场地缓存
func (c *Cache) Venue(name string) (entityRef, bool) { return c.lookup(c.venues, name) }

// Organizer 查询组织者缓存
func (c *Cache) Organizer(name string) (entityRef, bool) { return c.lookup(c.organizers, name) }

// Category 查询分类缓存（键为源侧分类名）
func (c *Cache) Category(name string) (entityRef, bool) { return c.lookup(c.categories, name) }

// PutVenue 写入场地缓存；兜底结果同样缓存，避免同名重复远程查询
func (c *Cache) PutVenue(name string, ref entityRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.venues[name] = ref
	if ref.Fallback {
		c.unmatchedVenues[name] = struct{}{}
	}
}

// PutOrganizer 写入组织者缓存
func (c *Cache) PutOrganizer(name string, ref entityRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.organizers[name] = ref
	if ref.Fallback {
		c.unmatchedOrganizers[name] = struct{}{}
	}
}

// PutCategory 写入分类缓存
func (c *Cache) PutCategory(name string, ref entityRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories[name] = ref
	if ref.Fallback {
		c.unmatchedCategories[name] = struct{}{}
	}
}

// UnmatchedReport 生成未匹配实体报告（名称排序，附计数）
func (c *Cache) UnmatchedReport() model.UnmatchedReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := model.UnmatchedReport{
		Venues:     sortedKeys(c.unmatchedVenues),
		Organizers: sortedKeys(c.unmatchedOrganizers),
		Categories: sortedKeys(c.unmatchedCategories),
	}
	report.Summary = model.UnmatchedSummary{
		Venues:     len(report.Venues),
		Organizers: len(report.Organizers),
		Categories: len(report.Categories),
	}
	return report
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
