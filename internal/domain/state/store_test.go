package state_test

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/herobans/internal/adapters/repository"
	"github.com/okian/herobans/internal/domain/model"
	"github.com/okian/herobans/internal/domain/state"
	. "github.com/smartystreets/goconvey/convey"
)

type memoryCache struct {
	mu      sync.Mutex
	loaded  any
	loadErr error
	saveErr error
	saved   []model.State
}

func (c *memoryCache) Load(_ context.Context) (any, error) {
	return c.loaded, c.loadErr
}

func (c *memoryCache) Save(_ context.Context, s model.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = append(c.saved, s)
	return c.saveErr
}

func frozenClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStoreGetSet(t *testing.T) {
	Convey("Given a store without cache", t, func() {
		ctx := context.Background()
		s := state.NewStore(ctx, state.WithClock(frozenClock(fixedNow)))

		Convey("Then it should start with defaults", func() {
			So(s.Get(ctx), ShouldResemble, state.Default(fixedNow))
		})

		Convey("When setting bans", func() {
			before := s.Get(ctx)
			stored := s.Set(ctx, map[string]any{
				"team1": map[string]any{"ban": "Reinhardt"},
				"team2": map[string]any{"ban": "Widowmaker"},
			})

			Convey("Then get should return the stored copy", func() {
				So(s.Get(ctx), ShouldResemble, stored)
				So(stored.Team1.Ban, ShouldEqual, "Reinhardt")
				So(stored.Team2.Ban, ShouldEqual, "Widowmaker")
			})

			Convey("And updatedAt should advance even on a frozen clock", func() {
				So(stored.UpdatedAt, ShouldBeGreaterThan, before.UpdatedAt)
			})

			Convey("And a later set should replace rather than merge", func() {
				s.Set(ctx, map[string]any{"team2": map[string]any{"ban": "Ana"}})
				got := s.Get(ctx)
				So(got.Team1.Ban, ShouldEqual, "")
				So(got.Team2.Ban, ShouldEqual, "Ana")
			})
		})

		Convey("When mutating a returned copy", func() {
			got := s.Get(ctx)
			got.Team1.Ban = "Sigma"

			Convey("Then the store should be unaffected", func() {
				So(s.Get(ctx).Team1.Ban, ShouldEqual, "")
			})
		})
	})
}

func TestStoreCache(t *testing.T) {
	Convey("Given a cache holding a previous record", t, func() {
		ctx := context.Background()
		cache := &memoryCache{loaded: map[string]any{
			"team1":      map[string]any{"ban": "Mercy"},
			"scoreboard": map[string]any{"team1": map[string]any{"score": 2.0}},
		}}
		s := state.NewStore(ctx, state.WithCache(cache), state.WithClock(frozenClock(fixedNow)))

		Convey("Then the store should start from the sanitized cache", func() {
			got := s.Get(ctx)
			So(got.Team1.Ban, ShouldEqual, "Mercy")
			So(got.Scoreboard.Team1.Score, ShouldEqual, 2)
			So(got.Scoreboard.Team1.NameColor, ShouldEqual, model.DefaultNameColor)
		})

		Convey("When setting", func() {
			stored := s.Set(ctx, map[string]any{"team2": map[string]any{"ban": "Sombra"}})

			Convey("Then the cache should receive the stored record", func() {
				So(cache.saved, ShouldHaveLength, 1)
				So(cache.saved[0], ShouldResemble, stored)
			})
		})
	})

	Convey("Given an unreadable cache", t, func() {
		ctx := context.Background()
		for name, err := range map[string]error{"missing": fs.ErrNotExist, "corrupt": errors.New("unexpected EOF")} {
			cache := &memoryCache{loaded: map[string]any{"team1": map[string]any{"ban": "Mercy"}}, loadErr: err}
			s := state.NewStore(ctx, state.WithCache(cache), state.WithClock(frozenClock(fixedNow)))

			Convey("Then a "+name+" cache should fall back to defaults", func() {
				So(s.Get(ctx), ShouldResemble, state.Default(fixedNow))
			})
		}
	})

	Convey("Given a cache that fails to save", t, func() {
		ctx := context.Background()
		cache := &memoryCache{saveErr: errors.New("disk full")}
		s := state.NewStore(ctx, state.WithCache(cache))

		Convey("When setting", func() {
			stored := s.Set(ctx, map[string]any{"team1": map[string]any{"ban": "Kiriko"}})

			Convey("Then the write should still succeed", func() {
				So(stored.Team1.Ban, ShouldEqual, "Kiriko")
				So(s.Get(ctx).Team1.Ban, ShouldEqual, "Kiriko")
			})
		})
	})

	Convey("Given a file cache and a caller that has gone away", t, func() {
		cache := repository.NewFileCache(filepath.Join(t.TempDir(), "data", "cache.json"))
		s := state.NewStore(context.Background(), state.WithCache(cache))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		stored := s.Set(ctx, map[string]any{"team2": map[string]any{"ban": "Lucio"}})

		Convey("Then the file should still match memory", func() {
			raw, err := cache.Load(context.Background())
			So(err, ShouldBeNil)
			So(state.Sanitize(raw, fixedNow).Team2.Ban, ShouldEqual, stored.Team2.Ban)
			So(s.Get(context.Background()).Team2.Ban, ShouldEqual, "Lucio")
		})
	})
}

func TestStoreSubscribe(t *testing.T) {
	Convey("Given a subscriber", t, func() {
		ctx := context.Background()
		s := state.NewStore(ctx)
		ch, cancel := s.Subscribe(4)
		Reset(cancel)

		Convey("Then it should receive the current record first", func() {
			first := <-ch
			So(first, ShouldResemble, s.Get(ctx))
			So(s.Subscribers(), ShouldEqual, 1)
		})

		Convey("When a write happens", func() {
			<-ch
			stored := s.Set(ctx, map[string]any{"team1": map[string]any{"ban": "Lucio"}})

			Convey("Then the subscriber should receive it", func() {
				So(<-ch, ShouldResemble, stored)
			})
		})

		Convey("When cancelled twice", func() {
			cancel()
			cancel()

			Convey("Then the channel should be closed and the subscriber gone", func() {
				<-ch
				_, open := <-ch
				So(open, ShouldBeFalse)
				So(s.Subscribers(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a subscriber that never reads", t, func() {
		ctx := context.Background()
		s := state.NewStore(ctx)
		ch, cancel := s.Subscribe(1)
		Reset(cancel)

		Convey("When writes overflow its buffer", func() {
			s.Set(ctx, map[string]any{})

			Convey("Then it should be dropped", func() {
				So(s.Subscribers(), ShouldEqual, 0)
				<-ch
				_, open := <-ch
				So(open, ShouldBeFalse)
			})
		})
	})

	Convey("Given a closed store", t, func() {
		ctx := context.Background()
		s := state.NewStore(ctx)
		ch, _ := s.Subscribe(2)
		s.Close()

		Convey("Then subscribers should be released", func() {
			<-ch
			_, open := <-ch
			So(open, ShouldBeFalse)
			So(s.Subscribers(), ShouldEqual, 0)
		})
	})
}

func TestStoreConcurrentWriters(t *testing.T) {
	Convey("Given concurrent writers and readers", t, func() {
		ctx := context.Background()
		s := state.NewStore(ctx)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					s.Set(ctx, map[string]any{"team1": map[string]any{"ban": "Tracer"}, "team2": map[string]any{"ban": "Genji"}})
				}
			}()
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					got := s.Get(ctx)
					if got.Team1.Ban != "" && got.Team2.Ban == "" {
						t.Error("observed a partially written record")
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then the last write should be visible", func() {
			got := s.Get(ctx)
			So(got.Team1.Ban, ShouldEqual, "Tracer")
			So(got.Team2.Ban, ShouldEqual, "Genji")
		})
	})
}
