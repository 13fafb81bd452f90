package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	engine   *SubmissionEngine
	registry *ChallengeRegistry
	attempts *memAttemptRepo
	audit    *memAuditLog
}

func newEngineFixture(t *testing.T, defs ...Challenge) engineFixture {
	t.Helper()
	registry := NewChallengeRegistry(newMemTaskState())
	require.NoError(t, registry.Load(context.Background(), defs))
	attempts := newMemAttemptRepo()
	audit := &memAuditLog{}
	return engineFixture{
		engine:   NewSubmissionEngine(registry, attempts, audit),
		registry: registry,
		attempts: attempts,
		audit:    audit,
	}
}

func testChallenge(name, answer string) Challenge {
	return Challenge{
		ID:       ChallengeID(name),
		Name:     name,
		Category: "misc",
		Answer:   answer,
	}
}

func TestStartThenDuplicateStartConflicts(t *testing.T) {
	ctx := context.Background()
	ch := testChallenge("warmup", "FLAG{abc}")
	fx := newEngineFixture(t, ch)
	require.NoError(t, fx.registry.SetOpen(ctx, ch.ID, true))

	attempt, err := fx.engine.Start(ctx, "u1", ch.ID)
	require.NoError(t, err)
	require.Nil(t, attempt.FinishAt)

	_, err = fx.engine.Start(ctx, "u1", ch.ID)
	require.ErrorIs(t, err, ErrAlreadyStarted)
	require.Len(t, fx.attempts.m, 1)
}

// getBlindAttempts simulates the duplicate-start race: the existence check
// sees no row, so both starts reach the insert and the second one hits the
// storage uniqueness constraint.
type getBlindAttempts struct {
	*memAttemptRepo
}

func (r getBlindAttempts) Get(context.Context, string, string) (*AttemptRecord, error) {
	return nil, nil
}

func TestStartLosingStorageRaceReportsConflict(t *testing.T) {
	ctx := context.Background()
	ch := testChallenge("race", "x")
	registry := NewChallengeRegistry(newMemTaskState())
	require.NoError(t, registry.Load(ctx, []Challenge{ch}))
	require.NoError(t, registry.SetOpen(ctx, ch.ID, true))

	attempts := getBlindAttempts{newMemAttemptRepo()}
	engine := NewSubmissionEngine(registry, attempts, &memAuditLog{})

	_, err := engine.Start(ctx, "u1", ch.ID)
	require.NoError(t, err)

	_, err = engine.Start(ctx, "u1", ch.ID)
	require.ErrorIs(t, err, ErrAlreadyStarted)
	require.Len(t, attempts.m, 1, "the losing start must not add a second row")
}

func TestStartHiddenChallengeIsNotFound(t *testing.T) {
	ctx := context.Background()
	ch := testChallenge("hidden", "x")
	fx := newEngineFixture(t, ch)

	_, err := fx.engine.Start(ctx, "u1", ch.ID)
	require.ErrorIs(t, err, ErrChallengeNotFound)

	_, err = fx.engine.Start(ctx, "u1", "no-such-id")
	require.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestStartFrozenChallengeRejected(t *testing.T) {
	ctx := context.Background()
	ch := testChallenge("frozen", "x")
	fx := newEngineFixture(t, ch)
	require.NoError(t, fx.registry.SetOpen(ctx, ch.ID, true))
	require.NoError(t, fx.registry.SetFreezed(ctx, ch.ID, true))

	_, err := fx.engine.Start(ctx, "u1", ch.ID)
	require.ErrorIs(t, err, ErrChallengeFrozen)
}

func TestSubmitBeforeStartRejected(t *testing.T) {
	ctx := context.Background()
	ch := testChallenge("timed", "FLAG{abc}")
	fx := newEngineFixture(t, ch)
	require.NoError(t, fx.registry.SetOpen(ctx, ch.ID, true))

	// Even the correct answer is rejected while the clock has not started.
	_, err := fx.engine.Submit(ctx, "u1", ch.ID, "FLAG{abc}")
	require.ErrorIs(t, err, ErrClockNotStarted)
	require.Empty(t, fx.attempts.m)
}

func TestFrozenSubmitWithoutAttempt(t *testing.T) {
	ctx := context.Background()
	ch := testChallenge("quiz", "FLAG{abc}")
	fx := newEngineFixture(t, ch)
	require.NoError(t, fx.registry.SetOpen(ctx, ch.ID, true))
	require.NoError(t, fx.registry.SetFreezed(ctx, ch.ID, true))

	solved, err := fx.engine.Submit(ctx, "u1", ch.ID, "FLAG{abc}")
	require.NoError(t, err)
	require.True(t, solved)
	require.Empty(t, fx.attempts.m, "freeze mode must not create attempt rows")

	solved, err = fx.engine.Submit(ctx, "u1", ch.ID, "nope")
	require.NoError(t, err)
	require.False(t, solved)
}

func TestRunningToSolvedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	ch := testChallenge("main", "FLAG{abc}")
	fx := newEngineFixture(t, ch)
	require.NoError(t, fx.registry.SetOpen(ctx, ch.ID, true))

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := base
	fx.engine.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	_, err := fx.engine.Start(ctx, "u1", ch.ID)
	require.NoError(t, err)

	solved, err := fx.engine.Submit(ctx, "u1", ch.ID, "wrong")
	require.NoError(t, err)
	require.False(t, solved)
	a, err := fx.attempts.Get(ctx, "u1", ch.ID)
	require.NoError(t, err)
	require.Nil(t, a.FinishAt, "wrong answer must not finish the attempt")

	// Surrounding whitespace is trimmed; comparison stays case-sensitive.
	solved, err = fx.engine.Submit(ctx, "u1", ch.ID, "  FLAG{abc}  ")
	require.NoError(t, err)
	require.True(t, solved)

	a, err = fx.attempts.Get(ctx, "u1", ch.ID)
	require.NoError(t, err)
	require.NotNil(t, a.FinishAt)
	require.False(t, a.FinishAt.Before(a.StartAt))

	_, err = fx.engine.Submit(ctx, "u1", ch.ID, "FLAG{abc}")
	require.ErrorIs(t, err, ErrAlreadySolved)
}

func TestSubmitCaseSensitive(t *testing.T) {
	ctx := context.Background()
	ch := testChallenge("case", "FLAG{abc}")
	fx := newEngineFixture(t, ch)
	require.NoError(t, fx.registry.SetOpen(ctx, ch.ID, true))

	_, err := fx.engine.Start(ctx, "u1", ch.ID)
	require.NoError(t, err)

	solved, err := fx.engine.Submit(ctx, "u1", ch.ID, "flag{ABC}")
	require.NoError(t, err)
	require.False(t, solved)
}

func TestEverySubmissionIsAudited(t *testing.T) {
	ctx := context.Background()
	ch := testChallenge("audited", "FLAG{abc}")
	fx := newEngineFixture(t, ch)
	require.NoError(t, fx.registry.SetOpen(ctx, ch.ID, true))

	_, _ = fx.engine.Submit(ctx, "u1", ch.ID, "too early") // rejected, clock not started
	_, err := fx.engine.Start(ctx, "u1", ch.ID)
	require.NoError(t, err)
	_, _ = fx.engine.Submit(ctx, "u1", ch.ID, "wrong")
	_, _ = fx.engine.Submit(ctx, "u1", ch.ID, "FLAG{abc}")
	_, _ = fx.engine.Submit(ctx, "u1", ch.ID, "again") // rejected, already solved

	entries, err := fx.audit.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	outcomes := make([]string, 0, len(entries))
	for _, e := range entries {
		require.Equal(t, "u1", e.UserID)
		require.Equal(t, ch.ID, e.TaskID)
		outcomes = append(outcomes, e.Outcome)
	}
	// Newest first.
	require.Equal(t, []string{outcomeAlreadySolved, outcomeSolved, outcomeWrong, outcomeClockNotStarted}, outcomes)
}

func TestSubmitOnlyAgainstTargetChallenge(t *testing.T) {
	ctx := context.Background()
	chA := testChallenge("alpha", "FLAG{alpha}")
	chB := testChallenge("beta", "FLAG{beta}")
	fx := newEngineFixture(t, chA, chB)
	require.NoError(t, fx.registry.SetOpen(ctx, chA.ID, true))
	require.NoError(t, fx.registry.SetOpen(ctx, chB.ID, true))

	_, err := fx.engine.Start(ctx, "u1", chA.ID)
	require.NoError(t, err)

	// The other challenge's answer never cross-matches.
	solved, err := fx.engine.Submit(ctx, "u1", chA.ID, "FLAG{beta}")
	require.NoError(t, err)
	require.False(t, solved)
}
