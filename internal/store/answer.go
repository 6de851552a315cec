package store

import (
	"context"
	"fmt"

	"github.com/abhisek/kidquest/ent"
)

type answerRepo struct {
	client *ent.Client
	seq    *sequenceCounter
}

func (r *answerRepo) CommitAnswer(ctx context.Context, c AnswerCommit) (bool, error) {
	// The counter runs on its own connection, so it is drawn before the
	// transaction takes the SQLite write lock. A rollback leaves a gap.
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return false, fmt.Errorf("next sequence: %w", err)
	}

	tx, err := r.client.Tx(ctx)
	if err != nil {
		return false, fmt.Errorf("begin answer: %w", err)
	}
	client := tx.Client()
	studentID, skillID := c.Progress.StudentID, c.Progress.SkillID

	if err := insertAttempt(ctx, client, seqNum, c.Attempt); err != nil {
		return false, rollback(tx, err)
	}
	if err := (&reviewRepo{client: client}).SaveReview(ctx, studentID, skillID, c.Review); err != nil {
		return false, rollback(tx, err)
	}
	var created bool
	if c.Unlock != nil {
		created, err = (&unlockRepo{client: client}).UpsertUnlock(ctx, *c.Unlock)
		if err != nil {
			return false, rollback(tx, err)
		}
	}
	// Progress goes last: a version conflict discards the rows above.
	p := *c.Progress
	if err := (&progressRepo{client: client}).SaveProgress(ctx, &p); err != nil {
		return false, rollback(tx, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit answer %s/%s: %w", studentID, skillID, err)
	}
	*c.Progress = p
	return created, nil
}

func rollback(tx *ent.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = fmt.Errorf("%w: rolling back: %v", err, rerr)
	}
	return err
}
