package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/okian/herobans/internal/adapters/assets"
	"github.com/okian/herobans/internal/adapters/http/api"
	"github.com/okian/herobans/internal/domain/catalog"
	"github.com/okian/herobans/internal/domain/model"
	"github.com/okian/herobans/internal/domain/state"
	. "github.com/smartystreets/goconvey/convey"
)

// bridgeDeps backs handlers with a real store and fixed assets.
type bridgeDeps struct {
	*state.Store
	heroes   *catalog.Catalog
	fonts    []assets.Font
	fontsErr error
}

func (d *bridgeDeps) GetState(ctx context.Context) model.State { return d.Get(ctx) }

func (d *bridgeDeps) SetState(ctx context.Context, payload any) model.State {
	return d.Set(ctx, payload)
}

func (d *bridgeDeps) Fonts(context.Context) ([]assets.Font, error) { return d.fonts, d.fontsErr }

func (d *bridgeDeps) SuggestHeroes(term string, limit int) []catalog.Hero {
	return d.heroes.Suggest(term, limit)
}

type staticStats map[string]interface{}

func (s staticStats) GetStats() map[string]interface{} { return s }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newBridge() (*bridgeDeps, http.Handler) {
	c := &clock{now: time.UnixMilli(1_700_000_000_000)}
	deps := &bridgeDeps{
		Store:  state.NewStore(context.Background(), state.WithClock(c.Now)),
		heroes: catalog.FromHeroes(catalog.Hero{Name: "Sigma"}, catalog.Hero{Name: "Reinhardt"}, catalog.Hero{Name: "Widowmaker"}),
		fonts: []assets.Font{
			{ID: "file:assets/Fonts/Anton.otf", Path: "assets/Fonts/Anton.otf", Label: "Anton"},
		},
	}
	mux := http.NewServeMux()
	api.NewServer(deps, staticStats{"started": true}, api.WithMaxBodyBytes(256)).Register(context.Background(), mux)
	return deps, api.Wrap(mux, nil)
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeState(w *httptest.ResponseRecorder) model.State {
	var st model.State
	So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
	return st
}

func TestStateEndpoint(t *testing.T) {
	Convey("Given a bridge", t, func() {
		_, h := newBridge()

		Convey("When reading the initial state", func() {
			w := do(h, http.MethodGet, "/api/state", "")

			Convey("Then it should return defaults as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				st := decodeState(w)
				So(st.Team1.Ban, ShouldEqual, "")
				So(st.Scoreboard.Team1.NameFont, ShouldEqual, "varsity")
			})
		})

		Convey("When posting both bans", func() {
			before := decodeState(do(h, http.MethodGet, "/api/state", ""))
			w := do(h, http.MethodPost, "/api/state", `{"team1":{"ban":"Reinhardt"},"team2":{"ban":"Widowmaker"}}`)

			Convey("Then the response should echo the sanitized record", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				st := decodeState(w)
				So(st.Team1.Ban, ShouldEqual, "Reinhardt")
				So(st.Team2.Ban, ShouldEqual, "Widowmaker")
			})

			Convey("And a following GET should return it with a newer timestamp", func() {
				st := decodeState(do(h, http.MethodGet, "/api/state", ""))
				So(st.Team1.Ban, ShouldEqual, "Reinhardt")
				So(st.Team2.Ban, ShouldEqual, "Widowmaker")
				So(st.UpdatedAt, ShouldBeGreaterThan, before.UpdatedAt)
			})
		})

		Convey("When posting styling out of range", func() {
			w := do(h, http.MethodPost, "/api/state", `{"scoreboard":{"team1":{"score":-5,"nameScale":1000,"logoScale":"-9999"}}}`)

			Convey("Then values should be clamped", func() {
				st := decodeState(w)
				So(st.Scoreboard.Team1.Score, ShouldEqual, 0)
				So(st.Scoreboard.Team1.NameScale, ShouldEqual, 300)
				So(st.Scoreboard.Team1.LogoScale, ShouldEqual, -300)
			})
		})

		Convey("When posting invalid bodies", func() {
			do(h, http.MethodPost, "/api/state", `{"team1":{"ban":"Sigma"}}`)
			before := do(h, http.MethodGet, "/api/state", "").Body.String()

			for _, body := range []string{`{"team1":`, `[1,2]`, `"text"`, `{"a":1} {"b":2}`, `  `} {
				w := do(h, http.MethodPost, "/api/state", body)

				Convey("Then "+body+" should be rejected and state kept", func() {
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(w.Body.String(), ShouldContainSubstring, `"error":"Invalid JSON"`)
					So(do(h, http.MethodGet, "/api/state", "").Body.String(), ShouldEqual, before)
				})
			}
		})

		Convey("When posting an empty body", func() {
			do(h, http.MethodPost, "/api/state", `{"team1":{"ban":"Sigma"}}`)
			w := do(h, http.MethodPost, "/api/state", "")

			Convey("Then the record should reset to defaults", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeState(w).Team1.Ban, ShouldEqual, "")
			})
		})

		Convey("When posting an oversized body", func() {
			w := do(h, http.MethodPost, "/api/state", `{"team1":{"ban":"`+strings.Repeat("x", 400)+`"}}`)

			Convey("Then it should be refused", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			})
		})

		Convey("When using an unsupported method", func() {
			w := do(h, http.MethodPut, "/api/state", `{}`)

			Convey("Then it should answer 405 with the allowed methods", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Header().Get("Allow"), ShouldEqual, "GET, POST, OPTIONS")
			})
		})
	})
}

func TestBridgePolicy(t *testing.T) {
	Convey("Given a bridge", t, func() {
		_, h := newBridge()

		Convey("When sending a preflight request to any path", func() {
			w := do(h, http.MethodOptions, "/anything", "")

			Convey("Then it should answer 204 with CORS headers", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
				So(w.Header().Get("Access-Control-Allow-Methods"), ShouldEqual, "GET, POST, OPTIONS")
				So(w.Header().Get("Access-Control-Allow-Headers"), ShouldEqual, "Content-Type")
			})
		})

		Convey("When reading any endpoint", func() {
			w := do(h, http.MethodGet, "/api/fonts", "")

			Convey("Then caching should be disabled", func() {
				So(w.Header().Get("Cache-Control"), ShouldEqual, "no-store, no-cache, must-revalidate, max-age=0")
				So(w.Header().Get("Pragma"), ShouldEqual, "no-cache")
				So(w.Header().Get("Expires"), ShouldEqual, "0")
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			})

			Convey("And a request id should be assigned", func() {
				So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
			})
		})

		Convey("When the client sends its own request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/state", http.NoBody)
			req.Header.Set("X-Request-ID", "overlay-42")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then a well-formed id should be kept", func() {
				So(w.Header().Get("X-Request-ID"), ShouldEqual, "overlay-42")
			})
		})

		Convey("When the client sends a malformed request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/state", http.NoBody)
			req.Header.Set("X-Request-ID", "bad id\n")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it should be replaced", func() {
				So(w.Header().Get("X-Request-ID"), ShouldNotEqual, "bad id\n")
				So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
			})
		})

		Convey("When hitting an unknown API route", func() {
			for _, method := range []string{http.MethodGet, http.MethodPost} {
				w := do(h, method, "/api/nope", "{}")

				Convey("Then "+method+" should get a JSON 404", func() {
					So(w.Code, ShouldEqual, http.StatusNotFound)
					So(w.Body.String(), ShouldContainSubstring, `"error":"Not found"`)
				})
			}
		})
	})
}

func TestAssetEndpoints(t *testing.T) {
	Convey("Given a bridge", t, func() {
		deps, h := newBridge()

		Convey("When listing fonts", func() {
			w := do(h, http.MethodGet, "/api/fonts", "")

			Convey("Then the fonts should be wrapped in an object", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `{"fonts":[{"id":"file:assets/Fonts/Anton.otf","path":"assets/Fonts/Anton.otf","label":"Anton"}]}`)
			})
		})

		Convey("When no fonts exist", func() {
			deps.fonts = nil
			w := do(h, http.MethodGet, "/api/fonts", "")

			Convey("Then an empty list should be returned", func() {
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"fonts":[]}`)
			})
		})

		Convey("When listing fonts fails", func() {
			deps.fontsErr = errors.New("permission denied")
			w := do(h, http.MethodGet, "/api/fonts", "")

			Convey("Then it should answer 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When asking for hero suggestions", func() {
			w := do(h, http.MethodGet, "/api/heroes?q=rein", "")

			Convey("Then Reinhardt should come first", func() {
				var body struct {
					Heroes []catalog.Hero `json:"heroes"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Heroes, ShouldNotBeEmpty)
				So(body.Heroes[0].Name, ShouldEqual, "Reinhardt")
			})
		})

		Convey("When limiting suggestions", func() {
			w := do(h, http.MethodGet, "/api/heroes?limit=1", "")

			Convey("Then only one hero should be returned", func() {
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"heroes":[{"name":"Sigma"}]}`)
			})
		})

		Convey("When the limit is invalid", func() {
			w := do(h, http.MethodGet, "/api/heroes?limit=zero", "")

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When reading stats", func() {
			w := do(h, http.MethodGet, "/api/stats", "")

			Convey("Then the provider output should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})

		Convey("When scraping metrics", func() {
			do(h, http.MethodGet, "/api/state", "")
			w := do(h, http.MethodGet, "/healthz", "")

			Convey("Then the bridge registry should be exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "herobans_bridge_http_requests_total")
			})
		})
	})
}

func TestLegacyEndpoint(t *testing.T) {
	Convey("Given a bridge", t, func() {
		_, h := newBridge()

		Convey("When posting to the legacy path", func() {
			w := do(h, http.MethodPost, "/state/", `{"team1":{"ban":"Sigma"}}`)

			Convey("Then it should answer 204 and store the record", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(decodeState(do(h, http.MethodGet, "/state", "")).Team1.Ban, ShouldEqual, "Sigma")
				So(decodeState(do(h, http.MethodGet, "/api/state", "")).Team1.Ban, ShouldEqual, "Sigma")
			})
		})

		Convey("When posting invalid JSON to the legacy path", func() {
			w := do(h, http.MethodPost, "/state", `nope`)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When hitting a path below the legacy route", func() {
			w := do(h, http.MethodGet, "/state/extra", "")

			Convey("Then it should answer 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given wrapped errors", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.state", api.ErrInvalidJSON, cause)

		Convey("Then both kind and cause should match", func() {
			So(errors.Is(err, api.ErrInvalidJSON), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.state: invalid json: eof")
		})

		Convey("Then nil causes should be handled", func() {
			So(api.WrapOp("op", nil), ShouldBeNil)
			So(api.WrapOp("api.live", cause).Error(), ShouldEqual, "api.live: eof")
			So(errors.Is(api.WrapKind("op", api.ErrBadRequest, nil), api.ErrBadRequest), ShouldBeTrue)
			So(api.NewKind("op", api.ErrAssets).Error(), ShouldEqual, "op: asset listing failed")
		})
	})
}

func TestRegisterNilMux(t *testing.T) {
	Convey("Given a server", t, func() {
		deps, _ := newBridge()
		server := api.NewServer(deps, staticStats{})

		Convey("Then registering on a nil mux should panic", func() {
			So(func() { server.Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestLiveFeed(t *testing.T) {
	Convey("Given a running bridge", t, func() {
		_, h := newBridge()
		srv := httptest.NewServer(h)
		Reset(srv.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		Reset(cancel)

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/state/ws"
		conn, _, err := websocket.Dial(ctx, url, nil)
		So(err, ShouldBeNil)
		Reset(func() { conn.Close(websocket.StatusNormalClosure, "") })

		read := func() model.State {
			_, data, err := conn.Read(ctx)
			So(err, ShouldBeNil)
			var st model.State
			So(json.Unmarshal(data, &st), ShouldBeNil)
			return st
		}

		Convey("Then the current record should arrive on connect", func() {
			So(read().Team1.Ban, ShouldEqual, "")
		})

		Convey("When a control surface posts a ban", func() {
			first := read()
			resp, err := http.Post(srv.URL+"/api/state", "application/json",
				strings.NewReader(`{"team2":{"ban":"Widowmaker"}}`))
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then subscribers should receive the new record", func() {
				st := read()
				So(st.Team2.Ban, ShouldEqual, "Widowmaker")
				So(st.UpdatedAt, ShouldBeGreaterThan, first.UpdatedAt)
			})
		})
	})
}
