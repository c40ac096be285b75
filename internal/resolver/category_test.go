package resolver

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMapToTTCategory(t *testing.T) {
	t.Parallel()
	cases := []struct {
		btc  string
		want string
	}{
		{"Milonga", CategoryMilonga},
		{"Práctica", CategoryPractica},
		{"Guided Practica", CategoryPractica},
		{"Drop-in Class", CategoryClass},
		{"First Timer Friendly", CategoryClass},
		{"Weekend Workshop", CategoryWorkshop},
		{"Marathon", CategoryFestival},
		{"Encuentro", CategoryFestival},
		{"Live Orchestra", CategoryConcert},
		// 关键词兜底
		{"Sunday Milonga at MIT", CategoryMilonga},
		{"Tango lesson series", CategoryClass},
		{"Boston Tango Marathon 2026", CategoryFestival},
		// 未知一律 Other
		{"", CategoryOther},
		{"   ", CategoryOther},
		{"Potluck", CategoryOther},
	}

	for _, tc := range cases {
		if got := MapToTTCategory(tc.btc); got != tc.want {
			t.Errorf("MapToTTCategory(%q) = %q, want %q", tc.btc, got, tc.want)
		}
	}
}

// 映射必须是全函数：任意输入都产出固定集合内的非空分类
func TestMapToTTCategory_Total(t *testing.T) {
	t.Parallel()
	known := map[string]bool{
		CategoryMilonga:  true,
		CategoryPractica: true,
		CategoryClass:    true,
		CategoryWorkshop: true,
		CategoryFestival: true,
		CategoryConcert:  true,
		CategoryOther:    true,
	}

	properties := gopter.NewProperties(nil)
	properties.Property("any input maps into the fixed category set", prop.ForAll(
		func(s string) bool {
			return known[MapToTTCategory(s)]
		},
		gen.AnyString(),
	))
	properties.TestingRun(t)
}
