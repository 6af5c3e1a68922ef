// Package cache owns the dashboard's read-side snapshots and their refresh
// after a finalized operation. The store is the only shared mutable state in
// the engine, and the Invalidator is its only writer: everything else reads.
//
// Refresh happens in two waves because not all read state converges at the
// same speed. On-chain balances are re-fetched immediately; aggregates served
// by the secondary indexer lag finalization, so their refresh runs once more
// after a fixed delay.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lendboard/ledger"
)

// Fetcher is the balance read the first wave depends on.
type Fetcher interface {
	GetCoins(ctx context.Context, owner ledger.Address, coinType string) (ledger.Coins, error)
}

type balanceKey struct {
	owner    ledger.Address
	coinType string
}

// Store caches balance snapshots and refresh timestamps. Writes are package
// private so only the Invalidator can perform them.
type Store struct {
	mu                 sync.RWMutex
	balances           map[balanceKey]ledger.Coins
	chainRefreshedAt   time.Time
	indexerRefreshedAt time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{balances: make(map[balanceKey]ledger.Coins)}
}

// Balance returns the cached coin set for (owner, coinType) when present.
func (s *Store) Balance(owner ledger.Address, coinType string) (ledger.Coins, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coins, ok := s.balances[balanceKey{owner: owner, coinType: coinType}]
	return coins, ok
}

// ChainRefreshedAt is the time of the last first-wave refresh.
func (s *Store) ChainRefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainRefreshedAt
}

// IndexerRefreshedAt is the time of the last second-wave refresh.
func (s *Store) IndexerRefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexerRefreshedAt
}

func (s *Store) putBalance(owner ledger.Address, coinType string, coins ledger.Coins) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[balanceKey{owner: owner, coinType: coinType}] = coins
	s.chainRefreshedAt = time.Now()
}

func (s *Store) markIndexerRefreshed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexerRefreshedAt = time.Now()
}

// Invalidator refreshes the store after finalization. Each finalized
// operation triggers exactly one immediate wave and exactly one delayed wave;
// both still run when no client is observing the operation any more.
type Invalidator struct {
	store          *Store
	fetch          Fetcher
	indexerRefresh func(ctx context.Context) error
	delay          time.Duration
	log            *slog.Logger

	mu      sync.Mutex
	tracked []balanceKey
	observe func(wave string)
	pending sync.WaitGroup
}

// NewInvalidator wires an invalidator over the store. indexerRefresh is the
// second-wave hook for indexer-derived aggregates and may be nil; delay is
// how long the second wave waits for the indexer to catch up.
func NewInvalidator(store *Store, fetch Fetcher, indexerRefresh func(ctx context.Context) error, delay time.Duration, log *slog.Logger) *Invalidator {
	if log == nil {
		log = slog.Default()
	}
	return &Invalidator{
		store:          store,
		fetch:          fetch,
		indexerRefresh: indexerRefresh,
		delay:          delay,
		log:            log,
	}
}

// SetObserver registers a callback invoked once per completed wave, with the
// wave name ("chain" or "indexer").
func (inv *Invalidator) SetObserver(fn func(wave string)) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.observe = fn
}

func (inv *Invalidator) observeWave(wave string) {
	inv.mu.Lock()
	fn := inv.observe
	inv.mu.Unlock()
	if fn != nil {
		fn(wave)
	}
}

// Track registers an (owner, coinType) pair for first-wave refresh.
func (inv *Invalidator) Track(owner ledger.Address, coinType string) {
	key := balanceKey{owner: owner, coinType: coinType}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for _, existing := range inv.tracked {
		if existing == key {
			return
		}
	}
	inv.tracked = append(inv.tracked, key)
}

// AfterFinalize runs the immediate wave and schedules the delayed one. The
// caller passes a context detached from any request so a disconnected client
// cannot cancel the refresh.
func (inv *Invalidator) AfterFinalize(ctx context.Context) {
	inv.refreshChain(ctx)

	inv.pending.Add(1)
	time.AfterFunc(inv.delay, func() {
		defer inv.pending.Done()
		inv.refreshIndexer(ctx)
	})
}

// Flush blocks until every scheduled delayed wave has run. Used during
// shutdown and in tests.
func (inv *Invalidator) Flush() {
	inv.pending.Wait()
}

func (inv *Invalidator) refreshChain(ctx context.Context) {
	inv.mu.Lock()
	tracked := make([]balanceKey, len(inv.tracked))
	copy(tracked, inv.tracked)
	inv.mu.Unlock()

	for _, key := range tracked {
		coins, err := inv.fetch.GetCoins(ctx, key.owner, key.coinType)
		if err != nil {
			inv.log.Warn("balance refresh failed",
				"owner", key.owner, "coinType", key.coinType, "error", err)
			continue
		}
		inv.store.putBalance(key.owner, key.coinType, coins)
	}
	inv.observeWave("chain")
}

func (inv *Invalidator) refreshIndexer(ctx context.Context) {
	if inv.indexerRefresh != nil {
		if err := inv.indexerRefresh(ctx); err != nil {
			inv.log.Warn("indexer refresh failed", "error", err)
			return
		}
	}
	inv.store.markIndexerRefreshed()
	inv.observeWave("indexer")
}
