package resolver

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
	"github.com/ybotman/calendaradmin-sub000/internal/ttclient"
)

// proximityThresholdKm 坐标有效性校验的距离阈值：场地坐标与其城市中心
// 的球面距离超过该值即视为坐标可疑
const proximityThresholdKm = 150.0

// defaultGeography 默认地理位置兜底
func (r *Resolver) defaultGeography() model.Geography {
	return model.Geography{
		Location:                 model.NewGeoPoint(r.defaultLoc.Longitude, r.defaultLoc.Latitude),
		CityID:                   r.defaultLoc.CityID,
		CityName:                 r.defaultLoc.CityName,
		DivisionID:               r.defaultLoc.DivisionID,
		DivisionName:             r.defaultLoc.DivisionName,
		RegionID:                 r.defaultLoc.RegionID,
		RegionName:               r.defaultLoc.RegionName,
		IsErrorFallbackGeography: true,
		CoordinatesValid:         true,
	}
}

// resolveGeography 场地地理解析。哨兵/mock 场地直接短路到默认位置，
// 不发起远程调用。
func (r *Resolver) resolveGeography(ctx context.Context, venue model.Resolution, out *model.ResolvedEntities) model.Geography {
	if venue.ID == model.SentinelVenueID || strings.HasPrefix(venue.ID, "mock-") {
		return r.defaultGeography()
	}

	v, err := r.tt.GetVenue(ctx, venue.ID)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("venue geography fetch failed for %s: %v", venue.ID, err))
		return r.defaultGeography()
	}

	point := normalizePoint(v)

	// 缺失城市/分区/大区关联时，整体退回默认位置（含默认坐标）
	if v.MasteredCityID == "" {
		out.Warnings = append(out.Warnings, fmt.Sprintf("venue %s has no mastered city, using default location", venue.ID))
		return r.defaultGeography()
	}

	geo := model.Geography{
		Location:     point,
		CityID:       v.MasteredCityID,
		CityName:     v.MasteredCityName,
		DivisionID:   v.MasteredDivisionID,
		DivisionName: v.MasteredDivisionName,
		RegionID:     v.MasteredRegionID,
		RegionName:   v.MasteredRegionName,
	}

	if v.IsValidVenueGeolocation != nil {
		geo.CoordinatesValid = *v.IsValidVenueGeolocation
		return geo
	}

	// 有效性未曾建立：按与城市中心的距离校验一次，并回写到 TT 场地记录
	geo.CoordinatesValid = r.verifyProximity(point, v)
	valid := geo.CoordinatesValid
	v.IsValidVenueGeolocation = &valid
	if err := r.tt.UpdateVenue(ctx, v); err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("failed to persist geolocation validity for venue %s: %v", v.ID, err))
	}

	return geo
}

// normalizePoint 把场地的坐标表示（geolocation 点或裸经纬度字段）统一为 Point
func normalizePoint(v *ttclient.Venue) model.GeoPoint {
	if v.Geolocation != nil && len(v.Geolocation.Coordinates) == 2 {
		return model.NewGeoPoint(v.Geolocation.Coordinates[0], v.Geolocation.Coordinates[1])
	}
	return model.NewGeoPoint(v.Longitude, v.Latitude)
}

// verifyProximity 校验场地坐标是否在其城市中心阈值距离内；
// 城市中心未知时退而与默认位置比较
func (r *Resolver) verifyProximity(point model.GeoPoint, v *ttclient.Venue) bool {
	if len(point.Coordinates) != 2 {
		return false
	}
	centerLng, centerLat := r.defaultLoc.Longitude, r.defaultLoc.Latitude
	if v.MasteredCityGeolocation != nil && len(v.MasteredCityGeolocation.Coordinates) == 2 {
		centerLng = v.MasteredCityGeolocation.Coordinates[0]
		centerLat = v.MasteredCityGeolocation.Coordinates[1]
	}
	dist := haversineKm(point.Coordinates[1], point.Coordinates[0], centerLat, centerLng)
	return dist <= proximityThresholdKm
}

// haversineKm 两点间球面距离（公里）
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
