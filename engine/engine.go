// Package engine orchestrates deposits and withdrawals against a
// capability-based lending pool: pre-flight validation, coin selection, call
// assembly, signing, finalization, and cache refresh, all surfaced through a
// single lifecycle record.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"lendboard/engine/cache"
	"lendboard/engine/capability"
	"lendboard/engine/coinselect"
	"lendboard/engine/lifecycle"
	"lendboard/engine/txbuild"
	"lendboard/ledger"
	"lendboard/observability/metrics"
)

// LedgerClient is the read-and-wait surface of the ledger the engine
// consumes.
type LedgerClient interface {
	GetCoins(ctx context.Context, owner ledger.Address, coinType string) (ledger.Coins, error)
	GetOwnedObjects(ctx context.Context, owner ledger.Address, typeFilter string) ([]ledger.ObjectID, error)
	GetObject(ctx context.Context, id ledger.ObjectID) (ledger.ObjectInfo, error)
	WaitForTransaction(ctx context.Context, submissionID string) (ledger.ExecutionResult, error)
}

// Signer hands an assembled unit to the external wallet for authorization
// and submission. The engine treats it as opaque: it returns a submission
// identifier or an error, and nothing is retried.
type Signer interface {
	SignAndExecute(ctx context.Context, unit *txbuild.Unit, network string) (string, error)
}

// Session is the wallet and network context threaded explicitly into every
// operation instead of living as ambient state.
type Session struct {
	Owner   ledger.Address
	Network string
}

// Pool describes one lending pool as configured: its coin type and decimal
// exponent, the pool and fee-destination registry objects, and an optional
// referral object.
type Pool struct {
	Name       string
	CoinType   string
	Decimals   int
	PoolID     ledger.ObjectID
	RegistryID ledger.ObjectID
	Referral   *ledger.ObjectID
}

// Failure stages used for metrics and logs.
const (
	stageBuild    = "build"
	stageSign     = "sign"
	stageExecute  = "execute"
	stageFinalize = "finalize"
)

// Engine sequences one operation at a time. It holds no cached ledger state;
// balances and capabilities are re-read per operation.
type Engine struct {
	ledger      LedgerClient
	signer      Signer
	resolver    *capability.Resolver
	machine     *lifecycle.Machine
	invalidator *cache.Invalidator
	metrics     *metrics.EngineMetrics
	log         *slog.Logger
}

// New wires an engine. invalidator and m may be nil in tests.
func New(lc LedgerClient, signer Signer, invalidator *cache.Invalidator, m *metrics.EngineMetrics, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		ledger:      lc,
		signer:      signer,
		resolver:    capability.NewResolver(lc),
		machine:     lifecycle.NewMachine(),
		invalidator: invalidator,
		metrics:     m,
		log:         log,
	}
}

// Status returns a copy of the live lifecycle record.
func (e *Engine) Status() lifecycle.Record {
	return e.machine.Snapshot()
}

// Reset clears a terminal record back to idle. It is a no-op while an
// operation is in flight.
func (e *Engine) Reset() bool {
	return e.machine.Reset()
}

// Deposit supplies `amount` base units of the pool's coin. The returned
// record is terminal: Finalized on success, Error otherwise.
func (e *Engine) Deposit(ctx context.Context, sess Session, pool Pool, amount uint64) (lifecycle.Record, error) {
	display := fmt.Sprintf("%s %s", ledger.FormatBaseUnits(amount, pool.Decimals), pool.Name)

	if amount == 0 {
		return e.reject(lifecycle.ActionDeposit, display, coinselect.ErrInvalidAmount)
	}

	feeCoins, err := e.ledger.GetCoins(ctx, sess.Owner, ledger.FeeCoinType)
	if err != nil {
		// A failed read blocks the operation; it is never treated as a zero
		// balance.
		return e.reject(lifecycle.ActionDeposit, display, fmt.Errorf("read gas balance: %w", err))
	}
	if feeCoins.Total() < coinselect.MinGasBalance {
		return e.reject(lifecycle.ActionDeposit, display,
			fmt.Errorf("%w: need %d, have %d", coinselect.ErrInsufficientGas, coinselect.MinGasBalance, feeCoins.Total()))
	}

	var assetCoins ledger.Coins
	if pool.CoinType == ledger.FeeCoinType {
		if total := feeCoins.Total(); total < amount+coinselect.FeeCoinPreflightReserve {
			return e.reject(lifecycle.ActionDeposit, display, &coinselect.InsufficientFundsError{
				CoinType:  pool.CoinType,
				Required:  amount + coinselect.FeeCoinPreflightReserve,
				Available: total,
			})
		}
		assetCoins = feeCoins
	} else {
		assetCoins, err = e.ledger.GetCoins(ctx, sess.Owner, pool.CoinType)
		if err != nil {
			return e.reject(lifecycle.ActionDeposit, display, fmt.Errorf("read %s balance: %w", pool.CoinType, err))
		}
	}

	sel, err := coinselect.ForSpend(pool.CoinType, amount, assetCoins, feeCoins)
	if err != nil {
		return e.reject(lifecycle.ActionDeposit, display, err)
	}

	rec, err := e.machine.Begin(lifecycle.ActionDeposit, display)
	if err != nil {
		return rec, err
	}
	e.metrics.SetInflight(true)

	target, err := e.resolveTarget(ctx, pool)
	if err != nil {
		return e.fail(lifecycle.ActionDeposit, stageBuild, err)
	}
	decision, err := e.resolver.Resolve(ctx, sess.Owner, capability.TypeTag(target.Package, target.Module))
	if err != nil {
		return e.fail(lifecycle.ActionDeposit, stageBuild, err)
	}
	unit, err := txbuild.Deposit(sess.Owner, target, sel, amount, decision)
	if err != nil {
		return e.fail(lifecycle.ActionDeposit, stageBuild, err)
	}

	return e.submit(ctx, sess, pool, lifecycle.ActionDeposit, unit)
}

// Withdraw removes `amount` base units from the owner's position.
func (e *Engine) Withdraw(ctx context.Context, sess Session, pool Pool, amount uint64) (lifecycle.Record, error) {
	display := fmt.Sprintf("%s %s", ledger.FormatBaseUnits(amount, pool.Decimals), pool.Name)
	if amount == 0 {
		return e.reject(lifecycle.ActionWithdraw, display, coinselect.ErrInvalidAmount)
	}
	return e.withdraw(ctx, sess, pool, lifecycle.ActionWithdraw, display, &amount)
}

// WithdrawAll removes the owner's full withdrawable balance. The contract
// computes that balance itself; the engine passes the no-amount sentinel and
// never a locally derived figure.
func (e *Engine) WithdrawAll(ctx context.Context, sess Session, pool Pool) (lifecycle.Record, error) {
	display := fmt.Sprintf("all %s", pool.Name)
	return e.withdraw(ctx, sess, pool, lifecycle.ActionWithdrawAll, display, nil)
}

func (e *Engine) withdraw(ctx context.Context, sess Session, pool Pool, action lifecycle.Action, display string, amount *uint64) (lifecycle.Record, error) {
	feeCoins, err := e.ledger.GetCoins(ctx, sess.Owner, ledger.FeeCoinType)
	if err != nil {
		return e.reject(action, display, fmt.Errorf("read gas balance: %w", err))
	}
	if feeCoins.Total() < coinselect.MinGasBalance {
		return e.reject(action, display,
			fmt.Errorf("%w: need %d, have %d", coinselect.ErrInsufficientGas, coinselect.MinGasBalance, feeCoins.Total()))
	}

	target, err := e.resolveTarget(ctx, pool)
	if err != nil {
		return e.reject(action, display, err)
	}
	decision, err := e.resolver.Resolve(ctx, sess.Owner, capability.TypeTag(target.Package, target.Module))
	if err != nil {
		return e.reject(action, display, err)
	}
	capID, ok := decision.Existing()
	if !ok {
		// Hard pre-flight failure: no unit is ever built without a
		// capability.
		return e.reject(action, display, ErrNoCapability)
	}

	sel, err := coinselect.ForGas(feeCoins)
	if err != nil {
		return e.reject(action, display, err)
	}

	rec, err := e.machine.Begin(action, display)
	if err != nil {
		return rec, err
	}
	e.metrics.SetInflight(true)

	unit, err := txbuild.Withdraw(sess.Owner, target, sel, amount, capID)
	if err != nil {
		return e.fail(action, stageBuild, err)
	}

	return e.submit(ctx, sess, pool, action, unit)
}

// submit hands the unit to the signer, waits for finalization, and refreshes
// the read cache. The post-submission phase runs on a context detached from
// the caller: once submitted there is no cancellation, and the outcome must
// land on the record and in the cache even when nobody is watching.
func (e *Engine) submit(ctx context.Context, sess Session, pool Pool, action lifecycle.Action, unit *txbuild.Unit) (lifecycle.Record, error) {
	submissionID, err := e.signer.SignAndExecute(ctx, unit, sess.Network)
	if err != nil {
		return e.fail(action, stageSign, err)
	}
	if err := e.machine.Submit(submissionID); err != nil {
		return e.fail(action, stageSign, err)
	}
	e.metrics.ObserveSubmitted(string(action))
	e.log.Info("unit submitted", "action", action, "submissionId", submissionID)

	detached := context.WithoutCancel(ctx)
	result, err := e.ledger.WaitForTransaction(detached, submissionID)
	if err != nil {
		return e.fail(action, stageFinalize, fmt.Errorf("wait for %s: %w", submissionID, err))
	}
	if result.Status != ledger.ExecutionSuccess {
		// The ledger's reason is surfaced verbatim; the generic fallback is
		// used only when none was provided.
		execErr := error(ErrExecutionFailed)
		if result.Error != "" {
			execErr = fmt.Errorf("%s", result.Error)
		}
		return e.fail(action, stageExecute, execErr)
	}

	if err := e.machine.Finalize(); err != nil {
		return e.fail(action, stageFinalize, err)
	}
	e.metrics.ObserveFinalized(string(action))
	e.metrics.SetInflight(false)
	e.log.Info("operation finalized", "action", action, "submissionId", submissionID)

	if e.invalidator != nil {
		e.invalidator.Track(sess.Owner, ledger.FeeCoinType)
		e.invalidator.Track(sess.Owner, pool.CoinType)
		e.invalidator.AfterFinalize(detached)
	}
	return e.machine.Snapshot(), nil
}

// resolveTarget reads the pool object's type tag to namespace the contract
// calls with the pool's originating package and module.
func (e *Engine) resolveTarget(ctx context.Context, pool Pool) (txbuild.Target, error) {
	info, err := e.ledger.GetObject(ctx, pool.PoolID)
	if err != nil {
		return txbuild.Target{}, fmt.Errorf("resolve pool %s: %w", pool.PoolID, err)
	}
	tag, err := ledger.ParseTypeTag(info.Type)
	if err != nil {
		return txbuild.Target{}, fmt.Errorf("resolve pool %s: %w", pool.PoolID, err)
	}
	return txbuild.Target{
		Package:  tag.Package,
		Module:   tag.Module,
		Pool:     pool.PoolID,
		Registry: pool.RegistryID,
		Referral: pool.Referral,
	}, nil
}

func (e *Engine) reject(action lifecycle.Action, display string, cause error) (lifecycle.Record, error) {
	rec, err := e.machine.Reject(action, display, cause.Error())
	if err != nil {
		// Another operation is in flight; its record is left untouched.
		return rec, err
	}
	e.metrics.ObserveRejected(string(action))
	e.log.Warn("operation rejected", "action", action, "amount", display, "error", cause)
	return rec, cause
}

func (e *Engine) fail(action lifecycle.Action, stage string, cause error) (lifecycle.Record, error) {
	if err := e.machine.Fail(cause.Error()); err != nil {
		e.log.Error("record failure", "action", action, "stage", stage, "error", err)
	}
	e.metrics.ObserveFailed(string(action), stage)
	e.metrics.SetInflight(false)
	e.log.Warn("operation failed", "action", action, "stage", stage, "error", cause)
	return e.machine.Snapshot(), cause
}
