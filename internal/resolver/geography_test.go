package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
	"github.com/ybotman/calendaradmin-sub000/internal/ttclient"
)

// geoVenueHandler 场地坐标有效性尚未建立（IsValidVenueGeolocation 为 nil）
// 的 TT 测试服务，记录回写的 PUT 请求
type geoVenueHandler struct {
	coords   []float64
	flag     *bool
	putPaths []string
	puts     []ttclient.Venue
}

func (h *geoVenueHandler) venue() ttclient.Venue {
	return ttclient.Venue{
		ID:                      "v42",
		Name:                    "Dance Union",
		Geolocation:             &model.GeoPoint{Type: "Point", Coordinates: h.coords},
		MasteredCityID:          "somerville",
		MasteredCityName:        "Somerville",
		MasteredDivisionID:      "new-england",
		MasteredDivisionName:    "New England",
		MasteredRegionID:        "northeast",
		MasteredRegionName:      "Northeast",
		IsValidVenueGeolocation: h.flag,
	}
}

func (h *geoVenueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/venues" && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode([]ttclient.Venue{h.venue()})
	case strings.HasPrefix(r.URL.Path, "/api/venues/") && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(h.venue())
	case strings.HasPrefix(r.URL.Path, "/api/venues/") && r.Method == http.MethodPut:
		var v ttclient.Venue
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.putPaths = append(h.putPaths, r.URL.Path)
		h.puts = append(h.puts, v)
		json.NewEncoder(w).Encode(v)
	case r.URL.Path == "/api/organizers":
		fmt.Fprint(w, `[{"_id":"o7","fullName":"Boston Tango Society"}]`)
	case r.URL.Path == "/api/categories":
		fmt.Fprint(w, `[{"_id":"c1","categoryName":"Milonga"}]`)
	default:
		http.NotFound(w, r)
	}
}

func TestResolveGeography_UnverifiedNearbyVenuePersistsValid(t *testing.T) {
	// Somerville，与默认城市中心相距数公里
	h := &geoVenueHandler{coords: []float64{-71.10, 42.38}}
	r, _ := newTestResolver(t, h)

	out := r.ResolveEvent(context.Background(), sampleEvent())

	if !out.Geography.CoordinatesValid {
		t.Fatalf("coordinates valid = false for nearby venue, geography: %+v", out.Geography)
	}
	if len(h.puts) != 1 {
		t.Fatalf("venue PUTs = %d, want 1", len(h.puts))
	}
	if h.putPaths[0] != "/api/venues/v42" {
		t.Fatalf("PUT path = %q, want /api/venues/v42", h.putPaths[0])
	}
	flag := h.puts[0].IsValidVenueGeolocation
	if flag == nil || !*flag {
		t.Fatalf("persisted isValidVenueGeolocation = %v, want true", flag)
	}
}

func TestResolveGeography_UnverifiedFarVenueMarksInvalid(t *testing.T) {
	// 洛杉矶坐标，远超城市中心距离阈值
	h := &geoVenueHandler{coords: []float64{-118.24, 34.05}}
	r, _ := newTestResolver(t, h)

	out := r.ResolveEvent(context.Background(), sampleEvent())

	if out.Geography.CoordinatesValid {
		t.Fatal("coordinates valid = true for venue far from its city center")
	}
	if len(h.puts) != 1 {
		t.Fatalf("venue PUTs = %d, want 1", len(h.puts))
	}
	flag := h.puts[0].IsValidVenueGeolocation
	if flag == nil || *flag {
		t.Fatalf("persisted isValidVenueGeolocation = %v, want false", flag)
	}
	// 距离校验仅影响有效性标志，城市关联照常保留
	if out.Geography.CityID != "somerville" {
		t.Fatalf("geography city = %q, want somerville", out.Geography.CityID)
	}
}

func TestResolveGeography_EstablishedFlagSkipsVerification(t *testing.T) {
	// 已有标志，即便坐标离谱也直接采信，不再回写
	invalid := false
	h := &geoVenueHandler{coords: []float64{-118.24, 34.05}, flag: &invalid}
	r, _ := newTestResolver(t, h)

	out := r.ResolveEvent(context.Background(), sampleEvent())

	if out.Geography.CoordinatesValid {
		t.Fatal("coordinates valid = true, stored false flag should be trusted")
	}
	if len(h.puts) != 0 {
		t.Fatalf("venue PUTs = %d, want 0 when validity already established", len(h.puts))
	}
}
