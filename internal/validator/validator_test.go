package validator

import (
	"strings"
	"testing"

	"github.com/ybotman/calendaradmin-sub000/internal/model"
)

func validEvent() *model.TTEvent {
	return &model.TTEvent{
		AppID:              "1",
		Title:              "Sunday Milonga",
		StartDate:          "2026-07-05T23:00:00Z",
		EndDate:            "2026-07-06T03:00:00Z",
		CategoryFirst:      "Milonga",
		CategoryFirstID:    "c1",
		OwnerOrganizerID:   "o7",
		OwnerOrganizerName: "Boston Tango Society",
		VenueID:            "v42",
		ExpiresAt:          "2026-07-07T03:00:00Z",
	}
}

func TestValidateEvent_Valid(t *testing.T) {
	t.Parallel()
	if errs := ValidateEvent(validEvent()); len(errs) != 0 {
		t.Fatalf("unexpected violations: %v", errs)
	}
}

func TestValidateEvent_Violations(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*model.TTEvent)
		want   string
	}{
		{"missing title", func(ev *model.TTEvent) { ev.Title = "" }, "title 不能为空"},
		{"missing appId", func(ev *model.TTEvent) { ev.AppID = "" }, "appId 不能为空"},
		{"missing organizer name", func(ev *model.TTEvent) { ev.OwnerOrganizerName = "" }, "ownerOrganizerName 不能为空"},
		{"missing venue", func(ev *model.TTEvent) { ev.VenueID = "" }, "venueID 不能为空"},
		{"missing expiresAt", func(ev *model.TTEvent) { ev.ExpiresAt = "" }, "expiresAt 不能为空"},
		{"garbage startDate", func(ev *model.TTEvent) { ev.StartDate = "garbage" }, "startDate 无法解析"},
		{"start not before end", func(ev *model.TTEvent) {
			ev.StartDate = "2026-07-06T03:00:00Z"
			ev.EndDate = "2026-07-05T23:00:00Z"
		}, "startDate 必须早于 endDate"},
		{"equal start and end", func(ev *model.TTEvent) {
			ev.EndDate = ev.StartDate
		}, "startDate 必须早于 endDate"},
		{"category id without name", func(ev *model.TTEvent) { ev.CategoryFirst = "" }, "categoryFirstId 已填但 categoryFirst 为空"},
		{"second category id without name", func(ev *model.TTEvent) {
			ev.CategorySecondID = "c2"
		}, "categorySecondId 已填但 categorySecond 为空"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := validEvent()
			tc.mutate(ev)

			errs := ValidateEvent(ev)
			found := false
			for _, e := range errs {
				if strings.Contains(e, tc.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("violations = %v, want one containing %q", errs, tc.want)
			}
		})
	}
}

func TestValidateEvent_NilEvent(t *testing.T) {
	t.Parallel()
	if errs := ValidateEvent(nil); len(errs) != 1 {
		t.Fatalf("violations = %v, want single nil-event error", errs)
	}
}

func TestValidateEvent_AccumulatesAllViolations(t *testing.T) {
	t.Parallel()
	ev := validEvent()
	ev.Title = ""
	ev.VenueID = ""
	ev.StartDate = "garbage"

	errs := ValidateEvent(ev)
	if len(errs) < 3 {
		t.Fatalf("violations = %v, want at least 3", errs)
	}
}

func TestIsValid(t *testing.T) {
	t.Parallel()
	if !IsValid(validEvent()) {
		t.Fatal("valid event rejected")
	}
	ev := validEvent()
	ev.Title = ""
	if IsValid(ev) {
		t.Fatal("invalid event accepted")
	}
}
