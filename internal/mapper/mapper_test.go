package mapper

import (
	"strings"
	"testing"
	"time"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
)

func resolvedFixture() *model.ResolvedEntities {
	r := &model.ResolvedEntities{
		Venue:         model.Matched("v42", "Dance Union"),
		Organizer:     model.Matched("o7", "Boston Tango Society"),
		CategoryFirst: model.Matched("c1", "Milonga"),
		Geography: model.Geography{
			Location: model.NewGeoPoint(-71.10, 42.38),
			CityID:   "somerville",
			CityName: "Somerville",
		},
	}
	r.Finalize()
	return r
}

func TestMapEvent_PrefersExplicitUTC(t *testing.T) {
	t.Parallel()
	m := New("1", time.UTC)
	ev := &model.BTCEvent{
		ID:           101,
		Title:        "Sunday Milonga",
		StartDate:    "2026-07-05 19:00:00",
		EndDate:      "2026-07-05 23:00:00",
		UTCStartDate: "2026-07-05 23:00:00",
		UTCEndDate:   "2026-07-06 03:00:00",
	}

	out, err := m.MapEvent(ev, resolvedFixture(), time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if out.StartDate != "2026-07-05T23:00:00Z" {
		t.Fatalf("startDate = %q", out.StartDate)
	}
	if out.EndDate != "2026-07-06T03:00:00Z" {
		t.Fatalf("endDate = %q", out.EndDate)
	}
}

func TestMapEvent_LocalTimeNormalizedToUTC(t *testing.T) {
	t.Parallel()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	m := New("1", loc)
	ev := &model.BTCEvent{
		ID:        102,
		Title:     "Practica",
		StartDate: "2026-01-10 19:00:00", // EST = UTC-5
		EndDate:   "2026-01-10 22:00:00",
	}

	out, err := m.MapEvent(ev, resolvedFixture(), time.Now())
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if out.StartDate != "2026-01-11T00:00:00Z" {
		t.Fatalf("startDate = %q, want 2026-01-11T00:00:00Z", out.StartDate)
	}
}

func TestMapEvent_CanonicalFields(t *testing.T) {
	t.Parallel()
	m := New("1", time.UTC)
	importedAt := time.Date(2026, 7, 4, 23, 30, 0, 0, time.UTC)
	ev := &model.BTCEvent{
		ID:           101,
		Title:        "Sunday Milonga",
		UTCStartDate: "2026-07-05 23:00:00",
		UTCEndDate:   "2026-07-06 03:00:00",
	}

	out, err := m.MapEvent(ev, resolvedFixture(), importedAt)
	if err != nil {
		t.Fatalf("map: %v", err)
	}

	if !out.IsDiscovered {
		t.Fatal("isDiscovered must be true")
	}
	if out.IsOwnerManaged {
		t.Fatal("isOwnerManaged must be false")
	}
	if out.DiscoveredFirstDate != "2026-07-04" || out.DiscoveredLastDate != "2026-07-04" {
		t.Fatalf("discovered dates = %q / %q", out.DiscoveredFirstDate, out.DiscoveredLastDate)
	}
	if !strings.Contains(out.DiscoveredComments, "101") {
		t.Fatalf("discoveredComments = %q, want source id", out.DiscoveredComments)
	}
	// 过期时间 = 结束日期 + 1 天
	if out.ExpiresAt != "2026-07-07T03:00:00Z" {
		t.Fatalf("expiresAt = %q", out.ExpiresAt)
	}
	if out.VenueID != "v42" || out.OwnerOrganizerID != "o7" || out.CategoryFirstID != "c1" {
		t.Fatalf("entity ids = %q / %q / %q", out.VenueID, out.OwnerOrganizerID, out.CategoryFirstID)
	}
	if out.MasteredCityID != "somerville" {
		t.Fatalf("masteredCityId = %q", out.MasteredCityID)
	}
}

func TestMapEvent_UnparseableDateFails(t *testing.T) {
	t.Parallel()
	m := New("1", time.UTC)
	ev := &model.BTCEvent{
		ID:        103,
		Title:     "Broken",
		StartDate: "next sunday",
		EndDate:   "2026-07-05 23:00:00",
	}

	if _, err := m.MapEvent(ev, resolvedFixture(), time.Now()); err == nil {
		t.Fatal("expected error for unparseable start date")
	}
}

func TestMapEvent_SecondaryCategoryCarriedOver(t *testing.T) {
	t.Parallel()
	m := New("1", time.UTC)
	resolved := resolvedFixture()
	second := model.Matched("c2", "Class")
	resolved.CategorySecond = &second

	ev := &model.BTCEvent{
		ID:           104,
		Title:        "Milonga with lesson",
		UTCStartDate: "2026-07-05 19:00:00",
		UTCEndDate:   "2026-07-05 23:00:00",
	}
	out, err := m.MapEvent(ev, resolved, time.Now())
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if out.CategorySecond != "Class" || out.CategorySecondID != "c2" {
		t.Fatalf("categorySecond = %q / %q", out.CategorySecond, out.CategorySecondID)
	}
}
