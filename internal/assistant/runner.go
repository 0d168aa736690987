// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package assistant

import (
	"context"
	"fmt"
	"log/slog"

	apperr "chatdb/cli/internal/errors"
	"chatdb/cli/internal/logging"
)

// MaxAttempts bounds backend executions per request, repairs included.
const MaxAttempts = 3

// Attempt is one execution of a query. Err is nil for the attempt that succeeded.
type Attempt struct {
	Query   string
	Backend BackendKind
	Number  int
	Err     error
}

// Repairer produces a corrected query from the failing one and its error text.
type Repairer interface {
	Repair(ctx context.Context, query, errText string, kind BackendKind) (string, error)
}

// Outcome is a successful run: the result and every attempt it took.
type Outcome struct {
	Result   Result
	Attempts []Attempt
}

// Runner executes a query and drives repair rounds until it succeeds or runs
// out of attempts. Attempts are strictly sequential and each repair only sees
// the attempt right before it.
type Runner struct {
	repairer Repairer
	logger   *slog.Logger

	// OnFailure is called after every failed attempt, including the last.
	OnFailure func(failed Attempt)
	// OnRetry is called when a repaired query is about to be tried.
	OnRetry func(failed Attempt, repaired string)
}

// NewRunner returns a Runner that repairs through repairer.
func NewRunner(repairer Repairer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{repairer: repairer, logger: logger}
}

// Run executes query on backend. It returns an error of kind QueryFailed after
// MaxAttempts failures, carrying the last backend error, or of kind
// OracleFailed when a repair could not be obtained. A failed repair request
// ends the run at once, even if fewer than MaxAttempts queries were tried.
func (r *Runner) Run(ctx context.Context, query string, backend Backend) (Outcome, error) {
	kind := backend.Kind()
	var attempts []Attempt

	for n := 1; ; n++ {
		result, err := backend.Execute(ctx, query)
		attempt := Attempt{Query: query, Backend: kind, Number: n, Err: err}
		attempts = append(attempts, attempt)

		if err == nil {
			r.logger.Debug("query succeeded", slog.Int("attempt", n))
			return Outcome{Result: result, Attempts: attempts}, nil
		}

		errText := apperr.Cause(err)
		r.logger.Info("query attempt failed",
			slog.Int("attempt", n),
			slog.Int("max_attempts", MaxAttempts),
			slog.String("error", logging.Mask(errText)))
		if r.OnFailure != nil {
			r.OnFailure(attempt)
		}

		if n >= MaxAttempts {
			return Outcome{Attempts: attempts}, apperr.Wrap(apperr.QueryFailed, fmt.Sprintf("failed after %d attempts", MaxAttempts), err)
		}

		repaired, rerr := r.repairer.Repair(ctx, query, errText, kind)
		if rerr != nil {
			return Outcome{Attempts: attempts}, rerr
		}
		if r.OnRetry != nil {
			r.OnRetry(attempt, repaired)
		}
		query = repaired
	}
}
