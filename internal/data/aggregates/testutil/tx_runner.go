package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/neurobridge-progress/internal/data/aggregates"
	"github.com/yungbote/neurobridge-progress/internal/platform/dbctx"
)

// InjectedTxRunner wraps an optional real runner with failure injection.
// Without Inner the body runs against a dbctx with no transaction.
type InjectedTxRunner struct {
	mu sync.Mutex

	Inner aggregates.TxRunner

	FailBegin      error
	FailBeforeBody error
	FailCommit     error
	// FailOnCall fails only the Nth InTx call (1-based) with FailBegin semantics.
	FailOnCall int
	FailOnErr  error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	call := r.BeginCalls
	failBegin := r.FailBegin
	if r.FailOnCall > 0 && call == r.FailOnCall {
		failBegin = r.FailOnErr
	}
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	inner := r.Inner
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if failBeforeBody != nil {
		r.inc(&r.RollbackCalls)
		return failBeforeBody
	}
	if fn == nil {
		r.inc(&r.CommitCalls)
		return nil
	}

	body := func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			return err
		}
		// returning here rolls back a real inner transaction
		return failCommit
	}
	var err error
	if inner != nil {
		err = inner.InTx(ctx, body)
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}
	if err != nil {
		r.inc(&r.RollbackCalls)
		return err
	}
	r.inc(&r.CommitCalls)
	return nil
}

func (r *InjectedTxRunner) inc(n *int) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}
