package resolver

import "strings"

// TT 平台固定分类集合
const (
	CategoryMilonga  = "Milonga"
	CategoryPractica = "Practica"
	CategoryClass    = "Class"
	CategoryWorkshop = "Workshop"
	CategoryFestival = "Festival"
	CategoryConcert  = "Concert"
	CategoryOther    = "Other"
)

// directCategoryMap BTC 分类到 TT 分类的直接映射表
var directCategoryMap = map[string]string{
	"Milonga":              CategoryMilonga,
	"Practica":             CategoryPractica,
	"Práctica":             CategoryPractica,
	"Guided Practica":      CategoryPractica,
	"Class":                CategoryClass,
	"Drop-in Class":        CategoryClass,
	"Progressive Class":    CategoryClass,
	"Beginner Class":       CategoryClass,
	"Workshop":             CategoryWorkshop,
	"Weekend Workshop":     CategoryWorkshop,
	"Festival":             CategoryFestival,
	"Marathon":             CategoryFestival,
	"Encuentro":            CategoryFestival,
	"Special Event":        CategoryFestival,
	"Concert/Show":         CategoryConcert,
	"Live Music":           CategoryConcert,
	"Live Orchestra":       CategoryConcert,
	"Performance":          CategoryConcert,
	"First Timer Friendly": CategoryClass,
}

// categoryPatterns 直接映射未命中时的关键词引导（按序匹配）
var categoryPatterns = []struct {
	keyword string
	tt      string
}{
	{"milonga", CategoryMilonga},
	{"practica", CategoryPractica},
	{"práctica", CategoryPractica},
	{"class", CategoryClass},
	{"lesson", CategoryClass},
	{"beginner", CategoryClass},
	{"workshop", CategoryWorkshop},
	{"bootcamp", CategoryWorkshop},
	{"festival", CategoryFestival},
	{"marathon", CategoryFestival},
	{"encuentro", CategoryFestival},
	{"concert", CategoryConcert},
	{"orchestra", CategoryConcert},
	{"show", CategoryConcert},
	{"music", CategoryConcert},
}

// MapToTTCategory 将 BTC 分类名映射为 TT 分类名。全函数：任何输入都返回
// 非空分类，未知一律归入 Other。
func MapToTTCategory(btcName string) string {
	name := strings.TrimSpace(btcName)
	if name == "" {
		return CategoryOther
	}
	if tt, ok := directCategoryMap[name]; ok {
		return tt
	}
	lower := strings.ToLower(name)
	for _, p := range categoryPatterns {
		if strings.Contains(lower, p.keyword) {
			return p.tt
		}
	}
	return CategoryOther
}
