package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ybotman/calendaradmin-sub000/internal/config"
	"github.com/ybotman/calendaradmin-sub000/internal/model"
	"github.com/ybotman/calendaradmin-sub000/internal/retry"
	"github.com/ybotman/calendaradmin-sub000/internal/ttclient"
)

func testLocation() config.LocationConfig {
	return config.LocationConfig{
		CityID:       "boston",
		CityName:     "Boston",
		DivisionID:   "new-england",
		DivisionName: "New England",
		RegionID:     "northeast",
		RegionName:   "Northeast",
		Latitude:     42.3601,
		Longitude:    -71.0589,
	}
}

func newTestResolver(t *testing.T, handler http.Handler) (*Resolver, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	exec := retry.NewExecutor(retry.Config{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})
	tt := ttclient.New(srv.URL, "1", "", 5*time.Second, exec)
	return New(tt, NewCache(), testLocation()), srv
}

func sampleEvent() *model.BTCEvent {
	return &model.BTCEvent{
		ID:        101,
		Title:     "Sunday Milonga",
		StartDate: "2026-07-05 19:00:00",
		EndDate:   "2026-07-05 23:00:00",
		Venue:     model.BTCVenue{Name: "Dance Union"},
		Organizer: model.BTCOrganizers{{Name: "Boston Tango Society"}},
		Categories: []model.BTCCategory{
			{Name: "Milonga"},
		},
	}
}

// ttHandler 固定数据集的 TT 测试服务，按名称统计查询次数
type ttHandler struct {
	lookups map[string]int
}

func (h *ttHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if h.lookups == nil {
		h.lookups = map[string]int{}
	}

	switch {
	case r.URL.Path == "/api/venues" && r.Method == http.MethodGet:
		h.lookups["venue:"+name]++
		if name != "Dance Union" {
			fmt.Fprint(w, "[]")
			return
		}
		valid := true
		json.NewEncoder(w).Encode([]ttclient.Venue{{
			ID:                      "v42",
			Name:                    "Dance Union",
			Geolocation:             &model.GeoPoint{Type: "Point", Coordinates: []float64{-71.10, 42.38}},
			MasteredCityID:          "somerville",
			MasteredCityName:        "Somerville",
			MasteredDivisionID:      "new-england",
			MasteredDivisionName:    "New England",
			MasteredRegionID:        "northeast",
			MasteredRegionName:      "Northeast",
			IsValidVenueGeolocation: &valid,
		}})
	case strings.HasPrefix(r.URL.Path, "/api/venues/") && r.Method == http.MethodGet:
		valid := true
		json.NewEncoder(w).Encode(ttclient.Venue{
			ID:                      "v42",
			Name:                    "Dance Union",
			Geolocation:             &model.GeoPoint{Type: "Point", Coordinates: []float64{-71.10, 42.38}},
			MasteredCityID:          "somerville",
			MasteredCityName:        "Somerville",
			IsValidVenueGeolocation: &valid,
		})
	case r.URL.Path == "/api/organizers":
		h.lookups["organizer:"+name]++
		if name != "Boston Tango Society" {
			fmt.Fprint(w, "[]")
			return
		}
		fmt.Fprint(w, `[{"_id":"o7","fullName":"Boston Tango Society"}]`)
	case r.URL.Path == "/api/categories":
		h.lookups["category:"+name]++
		if name != "Milonga" {
			fmt.Fprint(w, "[]")
			return
		}
		fmt.Fprint(w, `[{"_id":"c1","categoryName":"Milonga"}]`)
	default:
		http.NotFound(w, r)
	}
}

func TestResolveEvent_AllMatched(t *testing.T) {
	h := &ttHandler{}
	r, _ := newTestResolver(t, h)

	out := r.ResolveEvent(context.Background(), sampleEvent())

	if !out.Resolved {
		t.Fatalf("resolved = false, warnings: %v", out.Warnings)
	}
	if out.PartialResolution {
		t.Fatalf("partial resolution with all entities matched: %+v", out)
	}
	if out.Venue.ID != "v42" || out.Venue.Status != model.ResolutionMatched {
		t.Fatalf("venue = %+v", out.Venue)
	}
	if out.Organizer.ID != "o7" || out.Organizer.Name != "Boston Tango Society" {
		t.Fatalf("organizer = %+v", out.Organizer)
	}
	if out.CategoryFirst.ID != "c1" || out.CategoryFirst.Name != "Milonga" {
		t.Fatalf("category = %+v", out.CategoryFirst)
	}
	if out.Geography.CityID != "somerville" {
		t.Fatalf("geography city = %q, want somerville", out.Geography.CityID)
	}
	if out.Geography.IsErrorFallbackGeography {
		t.Fatal("matched venue should not use fallback geography")
	}
}

func TestResolveEvent_CacheAvoidsSecondLookup(t *testing.T) {
	h := &ttHandler{}
	r, _ := newTestResolver(t, h)

	ev := sampleEvent()
	r.ResolveEvent(context.Background(), ev)
	r.ResolveEvent(context.Background(), ev)

	for _, key := range []string{"venue:Dance Union", "organizer:Boston Tango Society", "category:Milonga"} {
		if h.lookups[key] != 1 {
			t.Fatalf("lookups[%s] = %d, want 1", key, h.lookups[key])
		}
	}
}

func TestResolveEvent_UnknownVenueFallsBackButResolves(t *testing.T) {
	h := &ttHandler{}
	r, _ := newTestResolver(t, h)

	ev := sampleEvent()
	ev.Venue.Name = "Secret Loft"
	out := r.ResolveEvent(context.Background(), ev)

	if out.Venue.ID != model.SentinelVenueID {
		t.Fatalf("venue id = %q, want sentinel", out.Venue.ID)
	}
	if !out.Venue.IsFallback() {
		t.Fatal("venue should be fallback")
	}
	// 兜底值齐备：流水线仍视为解析成功，但标记为部分解析
	if !out.Resolved {
		t.Fatal("resolved = false, sentinel values should keep the event resolvable")
	}
	if !out.PartialResolution {
		t.Fatal("partial resolution flag not set")
	}
	if !out.Geography.IsErrorFallbackGeography || out.Geography.CityID != "boston" {
		t.Fatalf("geography = %+v, want default boston fallback", out.Geography)
	}

	report := r.Cache().UnmatchedReport()
	if len(report.Venues) != 1 || report.Venues[0] != "Secret Loft" {
		t.Fatalf("unmatched venues = %v", report.Venues)
	}
	if report.Summary.Venues != 1 {
		t.Fatalf("unmatched summary = %+v", report.Summary)
	}
}

func TestResolveEvent_MissingOrganizerUsesSentinelPair(t *testing.T) {
	h := &ttHandler{}
	r, _ := newTestResolver(t, h)

	ev := sampleEvent()
	ev.Organizer = nil
	out := r.ResolveEvent(context.Background(), ev)

	if out.Organizer.ID != model.SentinelOrganizerID || out.Organizer.Name != model.SentinelOrganizerName {
		t.Fatalf("organizer = %+v, want sentinel pair", out.Organizer)
	}
	if !out.Resolved {
		t.Fatal("resolved = false, sentinel organizer name should satisfy the check")
	}
}

func TestResolveEvent_UnknownCategoryMocksOther(t *testing.T) {
	h := &ttHandler{}
	r, _ := newTestResolver(t, h)

	ev := sampleEvent()
	ev.Categories = []model.BTCCategory{{Name: "Potluck"}}
	out := r.ResolveEvent(context.Background(), ev)

	if out.CategoryFirst.Name != model.FallbackCategoryName {
		t.Fatalf("category name = %q, want Other", out.CategoryFirst.Name)
	}
	if !strings.HasPrefix(out.CategoryFirst.ID, "mock-category-") {
		t.Fatalf("category id = %q, want mock-category- prefix", out.CategoryFirst.ID)
	}
	if !out.Resolved {
		t.Fatal("resolved = false, mock category should keep the event resolvable")
	}
}

func TestResolveEvent_SecondaryCategoryFailureIsWarningOnly(t *testing.T) {
	h := &ttHandler{}
	r, _ := newTestResolver(t, h)

	ev := sampleEvent()
	ev.Categories = append(ev.Categories, model.BTCCategory{Name: "Potluck"})
	out := r.ResolveEvent(context.Background(), ev)

	if out.CategorySecond == nil || !out.CategorySecond.IsFallback() {
		t.Fatalf("category second = %+v, want fallback", out.CategorySecond)
	}
	if !out.Resolved {
		t.Fatal("secondary category failure must not block resolution")
	}
	found := false
	for _, w := range out.Warnings {
		if strings.Contains(w, "secondary category") {
			found = true
		}
	}
	if !found {
		t.Fatalf("warnings = %v, want secondary category warning", out.Warnings)
	}
}
