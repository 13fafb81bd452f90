package core

import (
	"context"
	"errors"
	"sort"
	"time"
)

// In-memory repository fakes. Uniqueness rejections mimic the wording of
// postgres unique-violation errors so the classification path is exercised.

type memUserRepo struct {
	byID   map[string]UserRecord
	byName map[string]string
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]UserRecord{}, byName: map[string]string{}}
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*UserRecord, error) {
	if u, ok := r.byID[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*UserRecord, error) {
	if id, ok := r.byName[username]; ok {
		u := r.byID[id]
		return &u, nil
	}
	return nil, nil
}

func (r *memUserRepo) Create(_ context.Context, u UserRecord) error {
	if _, ok := r.byName[u.Username]; ok {
		return errors.New(`duplicate key value violates unique constraint "users_username_key"`)
	}
	u.CreatedAt = time.Now()
	r.byID[u.ID] = u
	r.byName[u.Username] = u.ID
	return nil
}

func (r *memUserRepo) HasAdmin(_ context.Context) (bool, error) {
	for _, u := range r.byID {
		if u.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

type memSessionRepo struct {
	m map[string]SessionRecord
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: map[string]SessionRecord{}}
}

func (r *memSessionRepo) Create(_ context.Context, s SessionRecord) error {
	r.m[s.SessionID] = s
	return nil
}

func (r *memSessionRepo) Find(_ context.Context, sessionID string) (*SessionRecord, error) {
	if s, ok := r.m[sessionID]; ok {
		return &s, nil
	}
	return nil, nil
}

type memTaskState struct {
	m map[string]TaskFlags
}

func newMemTaskState() *memTaskState {
	return &memTaskState{m: map[string]TaskFlags{}}
}

func (r *memTaskState) Register(_ context.Context, taskID string) error {
	if _, ok := r.m[taskID]; !ok {
		r.m[taskID] = TaskFlags{}
	}
	return nil
}

func (r *memTaskState) Flags(_ context.Context, taskID string) (*TaskFlags, error) {
	if f, ok := r.m[taskID]; ok {
		return &f, nil
	}
	return nil, nil
}

func (r *memTaskState) AllFlags(_ context.Context) (map[string]TaskFlags, error) {
	out := map[string]TaskFlags{}
	for k, v := range r.m {
		out[k] = v
	}
	return out, nil
}

func (r *memTaskState) SetOpen(_ context.Context, taskID string, open bool) error {
	if f, ok := r.m[taskID]; ok {
		f.IsOpen = open
		r.m[taskID] = f
	}
	return nil
}

func (r *memTaskState) SetFreezed(_ context.Context, taskID string, freezed bool) error {
	if f, ok := r.m[taskID]; ok {
		f.IsFreezed = freezed
		r.m[taskID] = f
	}
	return nil
}

type memAttemptRepo struct {
	m     map[string]AttemptRecord
	names map[string]string // user id -> username, for solver projections
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{m: map[string]AttemptRecord{}, names: map[string]string{}}
}

func attemptKey(userID, taskID string) string { return userID + "/" + taskID }

func (r *memAttemptRepo) Get(_ context.Context, userID, taskID string) (*AttemptRecord, error) {
	if a, ok := r.m[attemptKey(userID, taskID)]; ok {
		return &a, nil
	}
	return nil, nil
}

func (r *memAttemptRepo) Start(_ context.Context, userID, taskID string, at time.Time) error {
	key := attemptKey(userID, taskID)
	if _, ok := r.m[key]; ok {
		return errors.New(`duplicate key value violates unique constraint "attempts_pkey"`)
	}
	r.m[key] = AttemptRecord{UserID: userID, TaskID: taskID, StartAt: at}
	return nil
}

func (r *memAttemptRepo) Finish(_ context.Context, userID, taskID string, at time.Time) error {
	key := attemptKey(userID, taskID)
	if a, ok := r.m[key]; ok && a.FinishAt == nil {
		a.FinishAt = &at
		r.m[key] = a
	}
	return nil
}

func (r *memAttemptRepo) ListForUser(_ context.Context, userID string) ([]AttemptRecord, error) {
	var out []AttemptRecord
	for _, a := range r.m {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (r *memAttemptRepo) ListSolvers(_ context.Context, taskID string) ([]SolverRecord, error) {
	var out []SolverRecord
	for _, a := range r.m {
		if a.TaskID == taskID && a.FinishAt != nil {
			out = append(out, SolverRecord{Username: r.names[a.UserID], StartAt: a.StartAt, FinishAt: a.FinishAt})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FinishAt.Sub(out[i].StartAt) < out[j].FinishAt.Sub(out[j].StartAt)
	})
	return out, nil
}

type memAuditLog struct {
	entries []AuditEntry
}

func (l *memAuditLog) Record(_ context.Context, e AuditEntry) error {
	l.entries = append([]AuditEntry{e}, l.entries...)
	return nil
}

func (l *memAuditLog) Recent(_ context.Context, n int) ([]AuditEntry, error) {
	if n > len(l.entries) {
		n = len(l.entries)
	}
	return l.entries[:n], nil
}
