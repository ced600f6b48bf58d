// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Policy bounds how often Run reissues a unit of work that lost a race.
type Policy struct {
	MaxRetries uint64
	Base       time.Duration // first backoff step, doubled per attempt
	Jitter     time.Duration
}

// DefaultPolicy is used by Run.
var DefaultPolicy = Policy{
	MaxRetries: 5,
	Base:       5 * time.Millisecond,
	Jitter:     5 * time.Millisecond,
}

// Run executes fn as one unit of work on st. A unit that lost a race
// (store.ErrConflict) is rerun from scratch with exponential backoff; once
// the retries are used up the conflict is reported as a
// ConcurrentModification error. Any other error is returned unchanged.
func Run(ctx context.Context, st store.Store, log *zap.Logger, op string, fn func(ctx context.Context, tx store.Tx) error) error {
	return RunWith(ctx, st, log, op, DefaultPolicy, fn)
}

// RunWith is Run with an explicit policy.
func RunWith(ctx context.Context, st store.Store, log *zap.Logger, op string, p Policy, fn func(ctx context.Context, tx store.Tx) error) error {
	b := retry.NewExponential(p.Base)
	if p.Jitter > 0 {
		b = retry.WithJitter(p.Jitter, b)
	}
	b = retry.WithMaxRetries(p.MaxRetries, b)

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := st.Atomically(ctx, fn)
		if errors.Is(err, store.ErrConflict) {
			if log != nil {
				log.Debug("unit of work lost a race; retrying",
					zap.String("op", op),
					zap.Int("attempt", attempt))
			}
			return retry.RetryableError(err)
		}
		return err
	})
	return conflictToDomain(op, err)
}

// Once executes fn as one unit of work without retrying. A lost race is
// reported to the caller as a ConcurrentModification error.
func Once(ctx context.Context, st store.Store, op string, fn func(ctx context.Context, tx store.Tx) error) error {
	return conflictToDomain(op, st.Atomically(ctx, fn))
}

func conflictToDomain(op string, err error) error {
	if errors.Is(err, store.ErrConflict) {
		return errs.Wrap(errs.KindConcurrentModification, err, op+": concurrent update, retry the request")
	}
	return err
}

// IsNotSupported reports whether err indicates that the MongoDB deployment
// cannot run multi-document transactions (standalone server, or a vendor
// without session support).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation
			51,  // legacy IllegalOperation
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "transaction") && strings.Contains(msg, "replica set"):
		return true
	case strings.Contains(msg, "transaction") && strings.Contains(msg, "session"):
		return true
	case strings.Contains(msg, "session") && strings.Contains(msg, "not supported"):
		return true
	case strings.Contains(msg, "illegal operation"):
		return true
	}
	return false
}
