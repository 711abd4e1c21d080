// Package control implements the ban control surface: pending selections for
// both teams, the update/swap/clear/reset actions, and a terminal UI.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/herobans/internal/domain/catalog"
	"github.com/okian/herobans/internal/domain/model"
)

// resolveLimit bounds the lookup used to match typed text to a hero.
const resolveLimit = 100

// ErrUnknownTeam is returned for team ids other than team1 and team2.
var ErrUnknownTeam = errors.New("unknown team")

// StateClient reads and replaces the shared record.
type StateClient interface {
	Get(ctx context.Context) (model.State, error)
	Set(ctx context.Context, payload any) (model.State, error)
}

// HeroSource answers autocomplete queries.
type HeroSource interface {
	Suggest(ctx context.Context, term string, limit int) ([]catalog.Hero, error)
}

// HeroFunc adapts a function to HeroSource.
type HeroFunc func(ctx context.Context, term string, limit int) ([]catalog.Hero, error)

// Suggest calls f.
func (f HeroFunc) Suggest(ctx context.Context, term string, limit int) ([]catalog.Hero, error) {
	return f(ctx, term, limit)
}

// FromCatalog serves suggestions from an in-process catalog.
func FromCatalog(c *catalog.Catalog) HeroSource {
	return HeroFunc(func(_ context.Context, term string, limit int) ([]catalog.Hero, error) {
		return c.Suggest(term, limit), nil
	})
}

// LocalStore is the in-process side of the bridge.
type LocalStore interface {
	GetState(ctx context.Context) model.State
	SetState(ctx context.Context, payload any) model.State
}

type local struct{ store LocalStore }

// Local adapts an in-process store to StateClient.
func Local(s LocalStore) StateClient {
	return local{store: s}
}

func (l local) Get(ctx context.Context) (model.State, error) {
	return l.store.GetState(ctx), nil
}

func (l local) Set(ctx context.Context, payload any) (model.State, error) {
	return l.store.SetState(ctx, payload), nil
}

// Controller holds the pending selection of each team. Selections only
// reach the bridge through Update, Swap, and Reset.
type Controller struct {
	client StateClient
	heroes HeroSource

	mu   sync.Mutex
	bans map[string]string
	last model.State
}

// New creates a controller with empty selections.
func New(client StateClient, heroes HeroSource) *Controller {
	return &Controller{
		client: client,
		heroes: heroes,
		bans:   map[string]string{model.Team1: "", model.Team2: ""},
	}
}

// Load reads the bridge's current bans. Bans that are not catalog heroes
// load as empty.
func (c *Controller) Load(ctx context.Context) error {
	st, err := c.client.Get(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	bans := make(map[string]string, 2)
	for _, team := range []string{model.Team1, model.Team2} {
		ban, _ := st.Ban(team)
		name, ok, err := c.resolve(ctx, ban)
		if err != nil {
			return fmt.Errorf("load state: %w", err)
		}
		if ok {
			bans[team] = name
		} else {
			bans[team] = ""
		}
	}

	c.mu.Lock()
	c.bans = bans
	c.last = st
	c.mu.Unlock()
	return nil
}

// Selected returns the pending selection of team.
func (c *Controller) Selected(team string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bans[team]
}

// Last returns the record most recently read from or written to the bridge.
func (c *Controller) Last() model.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Select sets the pending selection of team to the hero named by text,
// matched case-insensitively. Empty text clears the selection; text that
// names no hero leaves the previous selection in place. The resulting
// selection is returned.
func (c *Controller) Select(ctx context.Context, team, text string) (string, error) {
	if !model.ValidTeam(team) {
		return "", fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	name, ok, err := c.resolve(ctx, text)
	if err != nil {
		return c.Selected(team), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case catalog.Normalize(text) == "":
		c.bans[team] = ""
	case ok:
		c.bans[team] = name
	}
	return c.bans[team], nil
}

// Clear empties the pending selection of team without writing.
func (c *Controller) Clear(team string) error {
	if !model.ValidTeam(team) {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	c.mu.Lock()
	c.bans[team] = ""
	c.mu.Unlock()
	return nil
}

// Update writes both pending selections. The bridge's current scoreboard is
// sent back unchanged so styling made elsewhere survives the full replace.
func (c *Controller) Update(ctx context.Context) (model.State, error) {
	current, err := c.client.Get(ctx)
	if err != nil {
		return model.State{}, fmt.Errorf("update: %w", err)
	}

	c.mu.Lock()
	payload := current.Payload()
	payload[model.Team1] = map[string]any{"ban": c.bans[model.Team1]}
	payload[model.Team2] = map[string]any{"ban": c.bans[model.Team2]}
	c.mu.Unlock()

	st, err := c.client.Set(ctx, payload)
	if err != nil {
		return model.State{}, fmt.Errorf("update: %w", err)
	}

	c.mu.Lock()
	c.last = st
	c.mu.Unlock()
	return st, nil
}

// Swap exchanges the two selections, then updates.
func (c *Controller) Swap(ctx context.Context) (model.State, error) {
	c.mu.Lock()
	c.bans[model.Team1], c.bans[model.Team2] = c.bans[model.Team2], c.bans[model.Team1]
	c.mu.Unlock()
	return c.Update(ctx)
}

// Reset clears both selections, then updates.
func (c *Controller) Reset(ctx context.Context) (model.State, error) {
	c.mu.Lock()
	c.bans[model.Team1], c.bans[model.Team2] = "", ""
	c.mu.Unlock()
	return c.Update(ctx)
}

// Suggest returns autocomplete candidates for term.
func (c *Controller) Suggest(ctx context.Context, term string, limit int) ([]catalog.Hero, error) {
	return c.heroes.Suggest(ctx, term, limit)
}

// resolve maps text to the canonical hero name it denotes.
func (c *Controller) resolve(ctx context.Context, text string) (string, bool, error) {
	want := catalog.Normalize(text)
	if want == "" {
		return "", false, nil
	}
	heroes, err := c.heroes.Suggest(ctx, want, resolveLimit)
	if err != nil {
		return "", false, fmt.Errorf("resolve hero: %w", err)
	}
	for _, h := range heroes {
		if catalog.Normalize(h.Name) == want {
			return h.Name, true, nil
		}
	}
	return "", false, nil
}
