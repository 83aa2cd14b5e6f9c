package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/streamscout/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When recording the same id twice", func() {
			first := d.SeenAndRecord(ctx, "509658")
			second := d.SeenAndRecord(ctx, "509658")

			Convey("Then only the second should report seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an id is unrecorded", func() {
			d.SeenAndRecord(ctx, "a")
			d.Unrecord(ctx, "a")
			d.Unrecord(ctx, "missing")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("Then keys should be case sensitive by default", func() {
			So(d.SeenAndRecord(ctx, "Hades"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "hades"), ShouldBeFalse)
		})
	})

	Convey("Given a case folding deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithCaseFolding())

		So(d.SeenAndRecord(ctx, "Hades"), ShouldBeFalse)
		So(d.SeenAndRecord(ctx, " HADES "), ShouldBeTrue)
		d.Unrecord(ctx, "hAdEs")
		So(d.Size(), ShouldEqual, 0)
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))

		d.SeenAndRecord(ctx, "a")
		d.SeenAndRecord(ctx, "b")
		d.SeenAndRecord(ctx, "c")

		Convey("Then the oldest key should be evicted", func() {
			So(d.Size(), ShouldEqual, 2)
			So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})

		Convey("Then unrecording keeps the eviction order consistent", func() {
			d.Unrecord(ctx, "b")
			d.SeenAndRecord(ctx, "d")
			d.SeenAndRecord(ctx, "e")
			So(d.Size(), ShouldEqual, 2)
			So(d.SeenAndRecord(ctx, "e"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
		})
	})

	Convey("Given concurrent recorders", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var fresh atomic.Int64
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i)) {
						fresh.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then every id should be fresh exactly once", func() {
			So(fresh.Load(), ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
