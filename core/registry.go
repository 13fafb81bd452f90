package core

import (
	"context"
	"sort"
)

// ChallengeRegistry owns the in-memory catalog. Definitions are loaded once
// before the server starts handling requests and stay immutable; the
// open/freeze flags are re-read from storage on every lookup so admin toggles
// are visible to the next request without a restart.
type ChallengeRegistry struct {
	defs  map[string]Challenge
	state TaskStateRepository
}

func NewChallengeRegistry(state TaskStateRepository) *ChallengeRegistry {
	return &ChallengeRegistry{defs: map[string]Challenge{}, state: state}
}

// Load ingests the challenge definitions. Each task is registered in storage
// closed and unfrozen; tasks already present keep whatever flags an admin has
// set, so reloading the same catalog is idempotent.
func (r *ChallengeRegistry) Load(ctx context.Context, defs []Challenge) error {
	for _, d := range defs {
		d.IsOpen = false
		d.IsFreezed = false
		r.defs[d.ID] = d
		if err := r.state.Register(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the challenge with flags refreshed from storage, or nil when
// the id is unknown.
func (r *ChallengeRegistry) Get(ctx context.Context, id string) (*Challenge, error) {
	def, ok := r.defs[id]
	if !ok {
		return nil, nil
	}
	flags, err := r.state.Flags(ctx, id)
	if err != nil {
		return nil, err
	}
	if flags != nil {
		def.IsOpen = flags.IsOpen
		def.IsFreezed = flags.IsFreezed
	}
	return &def, nil
}

// ListOpen returns only the challenges an admin has opened, flags fresh.
func (r *ChallengeRegistry) ListOpen(ctx context.Context) ([]Challenge, error) {
	all, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]Challenge, 0, len(all))
	for _, ch := range all {
		if ch.IsOpen {
			open = append(open, ch)
		}
	}
	return open, nil
}

// AdminList returns the full catalog including closed and frozen challenges.
func (r *ChallengeRegistry) AdminList(ctx context.Context) ([]Challenge, error) {
	return r.listAll(ctx)
}

func (r *ChallengeRegistry) listAll(ctx context.Context) ([]Challenge, error) {
	flags, err := r.state.AllFlags(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Challenge, 0, len(r.defs))
	for id, def := range r.defs {
		if f, ok := flags[id]; ok {
			def.IsOpen = f.IsOpen
			def.IsFreezed = f.IsFreezed
		}
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SetOpen flips the visibility flag. Unknown ids are rejected instead of
// silently ignored so admin typos surface.
func (r *ChallengeRegistry) SetOpen(ctx context.Context, id string, open bool) error {
	if _, ok := r.defs[id]; !ok {
		return ErrChallengeNotFound
	}
	return r.state.SetOpen(ctx, id, open)
}

// SetFreezed flips the global untimed mode flag.
func (r *ChallengeRegistry) SetFreezed(ctx context.Context, id string, freezed bool) error {
	if _, ok := r.defs[id]; !ok {
		return ErrChallengeNotFound
	}
	return r.state.SetFreezed(ctx, id, freezed)
}
