package model

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEntityMetric(t *testing.T) {
	Convey("Given broadcasts in arbitrary order", t, func() {
		m := NewEntityMetric(Entity{ID: "1", Name: "Hades"}, []Broadcast{
			{ViewerCount: 5}, {ViewerCount: 120}, {ViewerCount: -3}, {ViewerCount: 40},
		})

		Convey("Then viewers should be sorted descending with negatives clamped", func() {
			So(m.Viewers, ShouldResemble, []int{120, 40, 5, 0})
			So(m.TotalViewers(), ShouldEqual, 165)
			So(m.Channels(), ShouldEqual, 4)
			So(m.TopViewers(), ShouldEqual, 120)
		})
	})

	Convey("Given no broadcasts", t, func() {
		m := NewEntityMetric(Entity{ID: "2"}, nil)

		So(m.TotalViewers(), ShouldEqual, 0)
		So(m.TopViewers(), ShouldEqual, 0)
		So(m.Channels(), ShouldEqual, 0)
	})
}

func TestSnapshot(t *testing.T) {
	Convey("Given a snapshot generated two minutes ago", t, func() {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		s := &Snapshot{
			GeneratedAt:     now.Add(-2 * time.Minute),
			RefreshInterval: 10 * time.Minute,
			Opportunities:   []Opportunity{{Rank: 1}, {Rank: 2}, {Rank: 3}},
		}

		So(s.Age(now), ShouldEqual, 2*time.Minute)
		So(s.NextRefreshIn(now), ShouldEqual, 8*time.Minute)
		So(s.NextRefreshIn(now.Add(time.Hour)), ShouldEqual, 0)

		Convey("Top should truncate without allowing appends into the shared array", func() {
			top := s.Top(2)
			So(len(top), ShouldEqual, 2)
			top = append(top, Opportunity{Rank: 99})
			So(s.Opportunities[2].Rank, ShouldEqual, 3)
			So(len(s.Top(50)), ShouldEqual, 3)
			So(s.Top(0), ShouldBeNil)
		})
	})

	Convey("Given a nil snapshot", t, func() {
		var s *Snapshot
		So(s.Age(time.Now()), ShouldEqual, 0)
		So(s.Top(5), ShouldBeNil)
	})
}

func TestRefreshStatusInFlight(t *testing.T) {
	Convey("Given a refresh status", t, func() {
		now := time.Now()

		So(RefreshStatus{}.InFlight(now, time.Minute), ShouldBeFalse)
		So(RefreshStatus{IsRefreshing: true}.InFlight(now, time.Minute), ShouldBeTrue)
		So(RefreshStatus{IsRefreshing: true, StartedAt: now.Add(-30 * time.Second)}.InFlight(now, time.Minute), ShouldBeTrue)
		So(RefreshStatus{IsRefreshing: true, StartedAt: now.Add(-2 * time.Minute)}.InFlight(now, time.Minute), ShouldBeFalse)
		So(RefreshStatus{IsRefreshing: true, StartedAt: now.Add(-2 * time.Minute)}.InFlight(now, 0), ShouldBeTrue)
	})
}

func TestNewRefreshRequest(t *testing.T) {
	Convey("Given two requests", t, func() {
		now := time.Now()
		a := NewRefreshRequest(ReasonForce, now)
		b := NewRefreshRequest(ReasonSchedule, now)

		So(a.ID, ShouldNotBeEmpty)
		So(a.ID, ShouldNotEqual, b.ID)
		So(a.Reason, ShouldEqual, ReasonForce)
		So(a.RequestedAt, ShouldEqual, now)
	})
}
