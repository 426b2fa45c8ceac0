package notify_test

import (
	"context"
	"testing"

	"github.com/okian/fifteen/internal/adapters/notify"
	"github.com/okian/fifteen/internal/domain/model"
	"github.com/okian/fifteen/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestHub(t *testing.T) {
	ctx := context.Background()

	Convey("Given a hub with two streams for one player", t, func() {
		h := notify.NewHub(notify.WithBuffer(2))
		a, closeA := h.Subscribe("alice")
		b, closeB := h.Subscribe("alice")
		other, closeOther := h.Subscribe("bob")
		defer closeB()
		defer closeOther()
		So(h.Connected(), ShouldEqual, 3)

		Convey("When a notification is pushed", func() {
			So(h.Push(ctx, "alice", model.Notification{Kind: model.NotifyState, MatchID: "m-1"}), ShouldBeNil)

			Convey("Then both of the player's streams get it", func() {
				So((<-a).MatchID, ShouldEqual, "m-1")
				So((<-b).MatchID, ShouldEqual, "m-1")
				So(len(other), ShouldEqual, 0)
			})
		})

		Convey("When a stream falls behind", func() {
			for i := 0; i < 5; i++ {
				So(h.Push(ctx, "bob", model.Notification{Kind: model.NotifyState}), ShouldBeNil)
			}

			Convey("Then extra notifications are dropped without blocking", func() {
				So(len(other), ShouldEqual, 2)
			})
		})

		Convey("When a stream is closed", func() {
			closeA()
			closeA()

			Convey("Then it stops receiving and its channel is closed", func() {
				_, open := <-a
				So(open, ShouldBeFalse)
				So(h.Connected(), ShouldEqual, 2)
				So(h.Push(ctx, "alice", model.Notification{MatchID: "m-2"}), ShouldBeNil)
				So((<-b).MatchID, ShouldEqual, "m-2")
			})
		})

		Convey("When pushing to a player nobody listens for", func() {
			So(h.Push(ctx, "carol", model.Notification{}), ShouldBeNil)
		})
	})
}
