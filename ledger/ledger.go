/*
ledger.go - Append orchestration and per-account ordering

PURPOSE:
  The Ledger is the only writer of entries. It serializes appends per
  account, validates spends against the cached projection, stamps
  BalanceAfter on each entry, persists through the Store, and only then
  folds the entry into the projection.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. Ever.
  2. ORDERED: Appends for one account are strictly serialized, so
     BalanceAfter snapshots form a consistent running balance.
  3. CACHE COHERENT: The projection is updated only after the store
     accepted the entries, never before.

ATOMIC ISSUANCE:
  Issue() lets a caller persist entries together with other state in one
  storage transaction (ride completion: status change + reward entries).
  The caller's persist function receives the stamped entries; if it fails,
  nothing is applied to the projection and the ledger is unchanged.

SEE ALSO:
  - projection.go: The cached balance index
  - ride/lifecycle.go: Uses Issue for atomic reward issuance
*/
package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	store Store
	proj  *Projection

	// Per-account append locks. Appends for different accounts proceed
	// in parallel; appends for one account are serialized.
	mu    sync.Mutex
	locks map[AccountID]*sync.Mutex
}

func New(store Store) *Ledger {
	return &Ledger{
		store: store,
		proj:  NewProjection(),
		locks: make(map[AccountID]*sync.Mutex),
	}
}

// Load rebuilds the balance projection by replaying the full ledger.
// Call once at startup before serving reads.
func (l *Ledger) Load(ctx context.Context) error {
	entries, err := l.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return l.proj.Replay(entries)
}

func (l *Ledger) lockAccount(id AccountID) func() {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &sync.Mutex{}
		l.locks[id] = lk
	}
	l.mu.Unlock()

	lk.Lock()
	return lk.Unlock
}

// Append validates, stamps, and persists a single entry.
// Returns the stamped entry as recorded.
func (l *Ledger) Append(ctx context.Context, e Entry) (Entry, error) {
	stamped, err := l.Issue(ctx, []Entry{e}, nil)
	if err != nil {
		return Entry{}, err
	}
	return stamped[0], nil
}

// Issue stamps and records a batch of entries for ONE account as a unit.
//
// persist, when non-nil, is called with the stamped entries and must write
// them (atomically, together with whatever other state the caller needs to
// change). When persist is nil the entries go straight to the store via
// AppendBatch. Either way, the projection is updated only on success.
//
// An empty batch is legal: persist still runs, nothing is stamped.
func (l *Ledger) Issue(ctx context.Context, entries []Entry, persist func([]Entry) error) ([]Entry, error) {
	var account AccountID
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if i == 0 {
			account = e.AccountID
		} else if e.AccountID != account {
			return nil, &InvalidEntryError{Field: "account_id", Reason: "batch spans multiple accounts"}
		}
	}

	if account != "" {
		unlock := l.lockAccount(account)
		defer unlock()
	}

	// Stamp running balances against the cached projection.
	now := time.Now().UTC()
	running := make(map[Token]decimal.Decimal)
	stamped := make([]Entry, len(entries))
	for i, e := range entries {
		bal, ok := running[e.Token]
		if !ok {
			bal = l.proj.BalanceOf(account, e.Token)
		}
		if e.Type == EntrySpend && bal.LessThan(e.Amount) {
			return nil, &InsufficientBalanceError{
				AccountID: account,
				Token:     e.Token,
				Available: bal,
				Requested: e.Amount,
			}
		}
		bal = bal.Add(e.Signed())
		running[e.Token] = bal

		if e.ID == "" {
			e.ID = EntryID(newID("tx"))
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.BalanceAfter = bal
		stamped[i] = e
	}

	if persist != nil {
		if err := persist(stamped); err != nil {
			return nil, err
		}
	} else if len(stamped) > 0 {
		if err := l.store.AppendBatch(ctx, stamped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	for _, e := range stamped {
		if err := l.proj.Apply(e); err != nil {
			// Cannot happen: the same checks ran above under the account lock.
			return nil, err
		}
	}
	return stamped, nil
}

// =============================================================================
// READS
// =============================================================================

// BalanceOf is an O(1) read from the cached projection.
func (l *Ledger) BalanceOf(accountID AccountID, token Token) decimal.Decimal {
	return l.proj.BalanceOf(accountID, token)
}

// Balances returns both token balances for an account.
func (l *Ledger) Balances(accountID AccountID) BalancePair {
	return l.proj.Balances(accountID)
}

// Recent returns up to limit entries for an account, newest first.
func (l *Ledger) Recent(ctx context.Context, accountID AccountID, limit int) ([]Entry, error) {
	return l.store.Recent(ctx, accountID, limit)
}

// History returns all entries for an account+token in creation order.
func (l *Ledger) History(ctx context.Context, accountID AccountID, token Token) ([]Entry, error) {
	return l.store.LoadByToken(ctx, accountID, token)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// Reconcile replays the full ledger for an account and asserts that the
// cached projection matches, per token. Consistency check, not a hot path.
func (l *Ledger) Reconcile(ctx context.Context, accountID AccountID) error {
	unlock := l.lockAccount(accountID)
	defer unlock()

	entries, err := l.store.LoadByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	replayed := make(map[Token]decimal.Decimal)
	for _, e := range entries {
		replayed[e.Token] = replayed[e.Token].Add(e.Signed())
	}

	for _, token := range []Token{TokenRiide, TokenEvee} {
		cached := l.proj.BalanceOf(accountID, token)
		if !cached.Equal(replayed[token]) {
			return &DriftError{
				AccountID: accountID,
				Token:     token,
				Cached:    cached,
				Replayed:  replayed[token],
			}
		}
	}
	return nil
}

// =============================================================================
// ID GENERATION
// =============================================================================

func newID(prefix string) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("ledger: cannot read random bytes: %v", err))
	}
	return fmt.Sprintf("%s-%x", prefix, b)
}
