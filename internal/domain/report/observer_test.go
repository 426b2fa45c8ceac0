package report_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/fifteen/internal/adapters/mq/queue"
	"github.com/okian/fifteen/internal/adapters/notify"
	"github.com/okian/fifteen/internal/adapters/repository"
	"github.com/okian/fifteen/internal/domain/game"
	"github.com/okian/fifteen/internal/domain/match"
	"github.com/okian/fifteen/internal/domain/model"
	"github.com/okian/fifteen/internal/domain/rating"
	"github.com/okian/fifteen/internal/domain/report"
	"github.com/okian/fifteen/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type fixture struct {
	ladder *repository.Ladder
	queue  *queue.InMemoryQueue
	hub    *notify.Hub
}

func newFixture() *fixture {
	return &fixture{
		ladder: repository.NewLadder(),
		queue:  queue.NewInMemoryQueue(queue.WithCapacity(8)),
		hub:    notify.NewHub(notify.WithBuffer(16)),
	}
}

func (f *fixture) observer(opts ...report.Option) *report.Observer {
	base := []report.Option{
		report.WithRatingStore(f.ladder),
		report.WithStaticRatingConfig(rating.DefaultConfig()),
		report.WithSink(f.queue),
		report.WithNotifier(f.hub),
		report.WithLeader(func() string {
			e, ok := f.ladder.Leader(context.Background(), isMaster)
			if !ok {
				return ""
			}
			return e.PlayerID
		}),
	}
	return report.NewObserver(append(base, opts...)...)
}

func isMaster(r rating.Record) bool {
	e, err := rating.New(rating.DefaultConfig())
	if err != nil {
		return false
	}
	return e.Present(r).League == rating.Master
}

// flakyStore fails every write for one player.
type flakyStore struct {
	*repository.Ladder
	failFor string
}

func (s *flakyStore) Put(ctx context.Context, playerID string, r rating.Record) error {
	if playerID == s.failFor {
		return errors.New("disk full")
	}
	return s.Ladder.Put(ctx, playerID, r)
}

// playOrderWin seats alice as Order and bob as Chaos; Order takes 9, 2, 4.
func playOrderWin(ctx context.Context, o *report.Observer, mode game.Mode) *match.Match {
	m, err := match.New("m-1", "alice", "bob", 30*time.Second, mode, match.WithFirstMover(game.Order))
	So(err, ShouldBeNil)
	o.Attach(ctx, m)
	So(m.Start(), ShouldBeNil)
	for _, p := range []struct {
		team   game.Team
		choice game.Choice
	}{
		{game.Order, 9}, {game.Chaos, 1}, {game.Order, 2}, {game.Chaos, 3}, {game.Order, 4},
	} {
		So(m.Pick(p.team, p.choice), ShouldBeNil)
	}
	So(m.State().Winner, ShouldEqual, game.Order)
	return m
}

func drain(ch <-chan model.Notification) []model.Notification {
	var out []model.Notification
	for {
		select {
		case n := <-ch:
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestRankedFinish(t *testing.T) {
	ctx := context.Background()

	Convey("Given a ranked match between two new players", t, func() {
		f := newFixture()
		alice, closeAlice := f.hub.Subscribe("alice")
		defer closeAlice()
		bob, closeBob := f.hub.Subscribe("bob")
		defer closeBob()

		o := f.observer()
		m := playOrderWin(ctx, o, game.Ranked)

		Convey("Then one rated record is queued", func() {
			So(f.queue.Len(ctx), ShouldEqual, 1)
			rec := <-f.queue.Dequeue(ctx)

			So(rec.MatchID, ShouldEqual, "m-1")
			So(rec.Rated, ShouldBeTrue)
			So(rec.Winner, ShouldEqual, game.Order)
			So(rec.Outcome, ShouldEqual, "win")
			So(rec.Events, ShouldHaveLength, 5)
			So(rec.Order.Choices, ShouldResemble, []game.Choice{9, 2, 4})
			So(rec.Order.Score, ShouldEqual, 1.0)
			So(rec.Chaos.Score, ShouldEqual, 0.0)

			So(rec.Order.LPDelta, ShouldBeGreaterThan, 0)
			So(rec.Chaos.LPDelta, ShouldBeLessThanOrEqualTo, 0)
			So(rec.Order.RatingAfter.Score, ShouldBeGreaterThan, rec.Order.RatingBefore.Score)
			So(rec.Chaos.RatingAfter.Score, ShouldBeLessThan, rec.Chaos.RatingBefore.Score)
			So(rec.Order.Presentation.League, ShouldEqual, rating.Provisional)
			So(rec.Order.Presentation.Progress, ShouldEqual, 10)
		})

		Convey("Then both ratings are stored", func() {
			a, ok, err := f.ladder.Get(ctx, "alice")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(a.Matches, ShouldEqual, 1)
			So(a.Score, ShouldBeGreaterThan, 1500)
			So(f.ladder.Count(ctx), ShouldEqual, 2)
		})

		Convey("Then each human gets every state and then the report", func() {
			got := drain(alice)
			So(got, ShouldHaveLength, 7)
			So(got[0].Kind, ShouldEqual, model.NotifyState)
			So(got[0].Event.Kind, ShouldEqual, game.EventStarted)
			So(got[5].State.Finished, ShouldBeTrue)
			last := got[6]
			So(last.Kind, ShouldEqual, model.NotifyReport)
			So(last.Report.Winner, ShouldEqual, game.Order)
			So(last.Report.Order.LPDelta, ShouldBeGreaterThan, 0)
			So(drain(bob), ShouldHaveLength, 7)
		})

		Convey("When the same finish is reported again", func() {
			_, ok := o.Finish(ctx, m.State())

			Convey("Then nothing happens", func() {
				So(ok, ShouldBeFalse)
				So(f.queue.Len(ctx), ShouldEqual, 1)
				a, _, _ := f.ladder.Get(ctx, "alice")
				So(a.Matches, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a placed leader in Master", t, func() {
		f := newFixture()
		So(f.ladder.Put(ctx, "alice", rating.Record{Score: 2800, KFactor: 16, Matches: 20}), ShouldBeNil)
		So(f.ladder.Put(ctx, "bob", rating.Record{Score: 2000, KFactor: 16, Matches: 20}), ShouldBeNil)

		playOrderWin(ctx, f.observer(), game.Ranked)

		Convey("Then the winner is shown as Challenger", func() {
			rec := <-f.queue.Dequeue(ctx)
			So(rec.Order.Presentation.League, ShouldEqual, rating.Challenger)
			So(rec.Chaos.Presentation.League, ShouldEqual, rating.Gold)
		})
	})

	Convey("Given a provisional player above the best Master", t, func() {
		f := newFixture()
		So(f.ladder.Put(ctx, "carol", rating.Record{Score: 3200, KFactor: 40, Matches: 2}), ShouldBeNil)
		So(f.ladder.Put(ctx, "alice", rating.Record{Score: 2800, KFactor: 16, Matches: 20}), ShouldBeNil)
		So(f.ladder.Put(ctx, "bob", rating.Record{Score: 2000, KFactor: 16, Matches: 20}), ShouldBeNil)

		playOrderWin(ctx, f.observer(), game.Ranked)

		Convey("Then the highest-rated Master is still Challenger", func() {
			rec := <-f.queue.Dequeue(ctx)
			So(rec.Order.Presentation.League, ShouldEqual, rating.Challenger)
		})
	})

	Convey("Given two Masters sharing the top score", t, func() {
		f := newFixture()
		So(f.ladder.Put(ctx, "dave", rating.Record{Score: 3000, KFactor: 16, Matches: 20}), ShouldBeNil)
		So(f.ladder.Put(ctx, "erin", rating.Record{Score: 3000, KFactor: 16, Matches: 20}), ShouldBeNil)
		So(f.ladder.Put(ctx, "alice", rating.Record{Score: 2800, KFactor: 16, Matches: 20}), ShouldBeNil)
		So(f.ladder.Put(ctx, "bob", rating.Record{Score: 2000, KFactor: 16, Matches: 20}), ShouldBeNil)

		playOrderWin(ctx, f.observer(), game.Ranked)

		Convey("Then nobody below them is promoted", func() {
			rec := <-f.queue.Dequeue(ctx)
			So(rec.Order.Presentation.League, ShouldEqual, rating.Master)
		})
	})
}

func TestCasualFinish(t *testing.T) {
	ctx := context.Background()

	Convey("Given a casual match", t, func() {
		f := newFixture()
		So(f.ladder.Put(ctx, "bob", rating.Record{Score: 2000, KFactor: 16, Matches: 20}), ShouldBeNil)

		playOrderWin(ctx, f.observer(), game.Casual)

		Convey("Then ratings are untouched but history is still written", func() {
			rec := <-f.queue.Dequeue(ctx)
			So(rec.Rated, ShouldBeFalse)
			So(rec.Order.Score, ShouldEqual, 1.0)
			So(rec.Order.LPDelta, ShouldEqual, 0)
			So(rec.Chaos.Presentation.League, ShouldEqual, rating.Gold)
			So(rec.Chaos.RatingAfter.Matches, ShouldEqual, 20)

			_, known, _ := f.ladder.Get(ctx, "alice")
			So(known, ShouldBeFalse)
			So(rec.Order.Presentation.League, ShouldEqual, rating.Provisional)
			So(rec.Order.Presentation.Progress, ShouldEqual, 0)
		})
	})

	Convey("Given a casual match between two unrated players", t, func() {
		f := newFixture()
		playOrderWin(ctx, f.observer(), game.Casual)

		Convey("Then both show as Provisional", func() {
			rec := <-f.queue.Dequeue(ctx)
			So(rec.Order.Presentation.League, ShouldEqual, rating.Provisional)
			So(rec.Chaos.Presentation.League, ShouldEqual, rating.Provisional)
			So(f.ladder.Count(ctx), ShouldEqual, 0)
		})
	})
}

func TestRatingFailure(t *testing.T) {
	ctx := context.Background()

	Convey("Given a ranked match and a broken rating config", t, func() {
		f := newFixture()
		alice, closeAlice := f.hub.Subscribe("alice")
		defer closeAlice()

		o := f.observer(report.WithRatingConfig(func() (rating.Config, error) {
			return rating.Config{}, errors.New("config service down")
		}))
		playOrderWin(ctx, o, game.Ranked)

		Convey("Then the match is still persisted and reported, unrated", func() {
			rec := <-f.queue.Dequeue(ctx)
			So(rec.Rated, ShouldBeFalse)
			So(rec.Winner, ShouldEqual, game.Order)
			So(rec.Events, ShouldHaveLength, 5)
			So(rec.Order.Presentation.League, ShouldEqual, rating.Provisional)
			So(rec.Chaos.Presentation.League, ShouldEqual, rating.Provisional)
			So(f.ladder.Count(ctx), ShouldEqual, 0)

			got := drain(alice)
			So(got[len(got)-1].Kind, ShouldEqual, model.NotifyReport)
		})
	})

	Convey("Given an invalid config snapshot", t, func() {
		f := newFixture()
		o := f.observer(report.WithStaticRatingConfig(rating.Config{Algorithm: "trueskill"}))
		playOrderWin(ctx, o, game.Ranked)

		Convey("Then the match is persisted unrated", func() {
			rec := <-f.queue.Dequeue(ctx)
			So(rec.Rated, ShouldBeFalse)
		})
	})

	Convey("Given a store that cannot write the second side", t, func() {
		f := newFixture()
		before := rating.Record{Score: 1700, KFactor: 16, Matches: 20}
		So(f.ladder.Put(ctx, "alice", before), ShouldBeNil)
		store := &flakyStore{Ladder: f.ladder, failFor: "bob"}

		playOrderWin(ctx, f.observer(report.WithRatingStore(store)), game.Ranked)

		Convey("Then the first side is rolled back and the record is unrated", func() {
			rec := <-f.queue.Dequeue(ctx)
			So(rec.Rated, ShouldBeFalse)
			So(rec.Order.LPDelta, ShouldEqual, 0)
			So(rec.Order.RatingAfter, ShouldResemble, before)

			a, ok, err := f.ladder.Get(ctx, "alice")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(a, ShouldResemble, before)
			So(f.ladder.Count(ctx), ShouldEqual, 1)
		})
	})

	Convey("Given a first-time player and a store that fails the opponent", t, func() {
		f := newFixture()
		store := &flakyStore{Ladder: f.ladder, failFor: "bob"}

		playOrderWin(ctx, f.observer(report.WithRatingStore(store)), game.Ranked)

		Convey("Then the first-time player is not left on the ladder", func() {
			rec := <-f.queue.Dequeue(ctx)
			So(rec.Rated, ShouldBeFalse)
			_, known, _ := f.ladder.Get(ctx, "alice")
			So(known, ShouldBeFalse)
			So(f.ladder.Count(ctx), ShouldEqual, 0)
		})
	})
}

func TestBotsGetNoPushes(t *testing.T) {
	ctx := context.Background()

	Convey("Given bob is a bot", t, func() {
		f := newFixture()
		alice, closeAlice := f.hub.Subscribe("alice")
		defer closeAlice()
		bob, closeBob := f.hub.Subscribe("bob")
		defer closeBob()

		o := f.observer(report.WithIsBot(func(id string) bool { return id == "bob" }))
		playOrderWin(ctx, o, game.Ranked)

		Convey("Then only alice is notified", func() {
			So(drain(alice), ShouldHaveLength, 7)
			So(drain(bob), ShouldBeEmpty)

			rec := <-f.queue.Dequeue(ctx)
			So(rec.Chaos.Bot, ShouldBeTrue)
			So(rec.Order.Bot, ShouldBeFalse)
		})
	})
}

func TestSurrenderAndUnfinished(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running match", t, func() {
		f := newFixture()
		o := f.observer()
		m, err := match.New("m-2", "alice", "bob", 30*time.Second, game.Ranked, match.WithFirstMover(game.Chaos))
		So(err, ShouldBeNil)
		o.Attach(ctx, m)
		So(m.Start(), ShouldBeNil)

		Convey("When it is reported before it ends", func() {
			_, ok := o.Finish(ctx, m.State())
			So(ok, ShouldBeFalse)
			So(f.queue.Len(ctx), ShouldEqual, 0)
		})

		Convey("When Chaos surrenders", func() {
			So(m.Surrender(game.Chaos), ShouldBeNil)

			Convey("Then the record carries the surrender", func() {
				rec := <-f.queue.Dequeue(ctx)
				So(rec.Outcome, ShouldEqual, "surrender")
				So(rec.Winner, ShouldEqual, game.Order)
				So(rec.Starter, ShouldEqual, game.Chaos)
				So(rec.Rated, ShouldBeTrue)
			})
		})
	})
}
