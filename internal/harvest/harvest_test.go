package harvest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/streamscout/internal/adapters/catalog"
	"github.com/okian/streamscout/internal/adapters/upstream"
	"github.com/okian/streamscout/internal/domain/model"
)

type fakeConnector struct {
	top        []model.Entity
	topErr     error
	connectErr error
	asked      int
	closed     bool
}

func (f *fakeConnector) Connect(context.Context) (upstream.Session, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f, nil
}

func (f *fakeConnector) Validate(context.Context, []string) ([]model.Entity, error) { return nil, nil }

func (f *fakeConnector) ListTop(_ context.Context, count int) ([]model.Entity, error) {
	f.asked = count
	if f.topErr != nil {
		return nil, f.topErr
	}
	return f.top[:min(count, len(f.top))], nil
}

func (f *fakeConnector) ListBroadcasts(context.Context, string, int) ([]model.Broadcast, error) {
	return nil, nil
}

func (f *fakeConnector) Close() error {
	f.closed = true
	return nil
}

func TestHarvester(t *testing.T) {
	Convey("Given a harvester and an upstream top listing", t, func() {
		ctx := context.Background()
		fixed := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
		conn := &fakeConnector{top: []model.Entity{
			{ID: "1", Name: "Alpha", BoxArtURL: "https://img/{width}x{height}.jpg"},
			{ID: "2", Name: "  Beta  "},
			{ID: "1", Name: "Alpha again"},
			{ID: "3", Name: ""},
			{ID: "4", Name: "Delta"},
		}}
		h := New(WithTarget(10), WithClock(func() time.Time { return fixed }))

		Convey("Fetch asks for the target and cleans the listing", func() {
			doc, err := h.Fetch(ctx, conn)
			So(err, ShouldBeNil)
			So(conn.asked, ShouldEqual, 10)
			So(conn.closed, ShouldBeTrue)
			So(doc.TotalGames, ShouldEqual, 3)
			So(doc.Names(), ShouldResemble, []string{"Alpha", "Beta", "Delta"})
			So(doc.Games[0].BoxArtURL, ShouldBeEmpty)
			So(doc.FetchedAt.Equal(fixed), ShouldBeTrue)
		})

		Convey("Run writes a catalog that loads back", func() {
			path := filepath.Join(t.TempDir(), "nested", "top_games.json")
			_, err := h.Run(ctx, conn, path)
			So(err, ShouldBeNil)

			loaded, err := catalog.Load(path)
			So(err, ShouldBeNil)
			So(loaded.Names(), ShouldResemble, []string{"Alpha", "Beta", "Delta"})
			So(loaded.TotalGames, ShouldEqual, 3)
		})

		Convey("An empty listing is an error and writes nothing", func() {
			conn.top = nil
			path := filepath.Join(t.TempDir(), "top_games.json")
			_, err := h.Run(ctx, conn, path)
			So(errors.Is(err, ErrNoGames), ShouldBeTrue)

			_, err = catalog.Load(path)
			So(errors.Is(err, catalog.ErrNotFound), ShouldBeTrue)
		})

		Convey("Upstream failures are wrapped", func() {
			conn.topErr = &upstream.CallError{Op: "list_top", Status: 502, Err: errors.New("bad gateway")}
			_, err := h.Fetch(ctx, conn)
			var callErr *upstream.CallError
			So(errors.As(err, &callErr), ShouldBeTrue)
			So(conn.closed, ShouldBeTrue)
		})

		Convey("Connect failures are wrapped", func() {
			conn.connectErr = upstream.ErrAuth
			_, err := h.Fetch(ctx, conn)
			So(errors.Is(err, upstream.ErrAuth), ShouldBeTrue)
		})
	})

	Convey("Given no options", t, func() {
		So(New().target, ShouldEqual, DefaultTarget)
	})
}
