package core

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// Audit outcome labels.
const (
	outcomeSolved          = "solved"
	outcomeWrong           = "wrong"
	outcomeClockNotStarted = "rejected_clock_not_started"
	outcomeAlreadySolved   = "rejected_already_solved"
	outcomeHidden          = "rejected_hidden"
)

// SubmissionEngine drives the per-(user, challenge) state machine:
//
//	hidden -> (admin opens) -> visible -> start -> running -> submit(correct) -> solved
//
// A frozen challenge skips the running state: anyone may submit directly and
// no attempt row is created. A closed challenge is indistinguishable from a
// missing one for non-admins.
type SubmissionEngine struct {
	registry *ChallengeRegistry
	attempts AttemptRepository
	audit    AuditLog
	now      func() time.Time
}

func NewSubmissionEngine(registry *ChallengeRegistry, attempts AttemptRepository, audit AuditLog) *SubmissionEngine {
	return &SubmissionEngine{registry: registry, attempts: attempts, audit: audit, now: time.Now}
}

// Visible resolves an open challenge together with the user's attempt.
// Unknown and closed ids both yield ErrChallengeNotFound.
func (e *SubmissionEngine) Visible(ctx context.Context, userID, challengeID string) (*Challenge, *AttemptRecord, error) {
	ch, err := e.registry.Get(ctx, challengeID)
	if err != nil {
		return nil, nil, err
	}
	if ch == nil || !ch.IsOpen {
		return nil, nil, ErrChallengeNotFound
	}
	attempt, err := e.attempts.Get(ctx, userID, challengeID)
	if err != nil {
		return nil, nil, err
	}
	return ch, attempt, nil
}

// MaterialsVisible reports whether the user may see the description and
// download the attachment: the clock must be running (or have finished), or
// the challenge is in global freeze mode.
func MaterialsVisible(ch *Challenge, attempt *AttemptRecord) bool {
	return attempt != nil || ch.IsFreezed
}

// Start begins the user's clock on a timed challenge.
func (e *SubmissionEngine) Start(ctx context.Context, userID, challengeID string) (*AttemptRecord, error) {
	ch, attempt, err := e.Visible(ctx, userID, challengeID)
	if err != nil {
		return nil, err
	}
	if ch.IsFreezed {
		return nil, ErrChallengeFrozen
	}
	if attempt != nil {
		return nil, ErrAlreadyStarted
	}

	at := e.now()
	if err := e.attempts.Start(ctx, userID, challengeID, at); err != nil {
		// Lost a concurrent duplicate-start race: the composite key on
		// (user_id, task_id) rejected the second insert.
		if isUniqueViolation(err) {
			return nil, ErrAlreadyStarted
		}
		return nil, err
	}
	return &AttemptRecord{UserID: userID, TaskID: challengeID, StartAt: at}, nil
}

// Submit evaluates a candidate answer against the target challenge.
// The candidate is trimmed of surrounding whitespace; comparison is otherwise
// exact and case-sensitive, and only ever against this challenge's secret.
func (e *SubmissionEngine) Submit(ctx context.Context, userID, challengeID, candidate string) (bool, error) {
	candidate = strings.TrimSpace(candidate)

	ch, attempt, err := e.Visible(ctx, userID, challengeID)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			e.record(ctx, userID, challengeID, candidate, outcomeHidden)
		}
		return false, err
	}

	switch {
	case attempt == nil && !ch.IsFreezed:
		e.record(ctx, userID, challengeID, candidate, outcomeClockNotStarted)
		return false, ErrClockNotStarted

	case attempt == nil && ch.IsFreezed:
		// Freeze mode: compare without creating an attempt row.
		solved := candidate == ch.Answer
		e.record(ctx, userID, challengeID, candidate, outcomeLabel(solved))
		return solved, nil

	case attempt.FinishAt != nil:
		e.record(ctx, userID, challengeID, candidate, outcomeAlreadySolved)
		return false, ErrAlreadySolved

	default: // running
		solved := candidate == ch.Answer
		e.record(ctx, userID, challengeID, candidate, outcomeLabel(solved))
		if !solved {
			return false, nil
		}
		if err := e.attempts.Finish(ctx, userID, challengeID, e.now()); err != nil {
			return false, err
		}
		return true, nil
	}
}

func outcomeLabel(solved bool) string {
	if solved {
		return outcomeSolved
	}
	return outcomeWrong
}

// record appends to the audit trail. Audit is a side effect with no bearing
// on the state machine, so failures are logged and swallowed.
func (e *SubmissionEngine) record(ctx context.Context, userID, challengeID, candidate, outcome string) {
	if e.audit == nil {
		return
	}
	err := e.audit.Record(ctx, AuditEntry{
		UserID:    userID,
		TaskID:    challengeID,
		Candidate: candidate,
		Outcome:   outcome,
		At:        e.now(),
	})
	if err != nil {
		log.Printf("audit record failed user=%s task=%s: %v", userID, challengeID, err)
	}
}
