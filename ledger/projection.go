/*
projection.go - Cached balance index derived from the ledger

PURPOSE:
  Maintains (account, token) -> balance so reads are O(1). The projection
  is a CACHE: it is never authoritative, and it can always be rebuilt by
  replaying the ledger in creation order.

KEY INSIGHT:
  The ledger is the arena, the projection is the index. Nothing writes a
  balance except by applying a ledger entry, so the two cannot drift unless
  there is a bug - which Reconcile (ledger.go) exists to catch.

NEGATIVE BALANCES:
  Apply rejects a spend that would drive a balance negative. The hosted
  store this design replaced did not enforce this; here it is a hard
  invariant of the projection.

SEE ALSO:
  - ledger.go: Serializes Apply calls per account
  - types.go: Entry.Signed()
*/
package ledger

import (
	"sync"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROJECTION - (account, token) -> balance
// =============================================================================

type balanceKey struct {
	Account AccountID
	Token   Token
}

// Projection is the cached balance view. Safe for concurrent use.
type Projection struct {
	mu       sync.RWMutex
	balances map[balanceKey]decimal.Decimal
}

func NewProjection() *Projection {
	return &Projection{balances: make(map[balanceKey]decimal.Decimal)}
}

// Apply folds one entry into the cache. A spend exceeding the current
// balance fails with InsufficientBalanceError and leaves the cache
// untouched.
func (p *Projection) Apply(e Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := balanceKey{Account: e.AccountID, Token: e.Token}
	current := p.balances[k]

	if e.Type == EntrySpend && current.LessThan(e.Amount) {
		return &InsufficientBalanceError{
			AccountID: e.AccountID,
			Token:     e.Token,
			Available: current,
			Requested: e.Amount,
		}
	}

	p.balances[k] = current.Add(e.Signed())
	return nil
}

// BalanceOf returns the cached balance. Missing pairs read as zero.
func (p *Projection) BalanceOf(accountID AccountID, token Token) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balances[balanceKey{Account: accountID, Token: token}]
}

// Balances returns both token balances for an account.
func (p *Projection) Balances(accountID AccountID) BalancePair {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return BalancePair{
		Riide: p.balances[balanceKey{Account: accountID, Token: TokenRiide}],
		Evee:  p.balances[balanceKey{Account: accountID, Token: TokenEvee}],
	}
}

// Reset discards the cache. Used before a full rebuild.
func (p *Projection) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances = make(map[balanceKey]decimal.Decimal)
}

// Replay rebuilds the cache from entries in creation order.
func (p *Projection) Replay(entries []Entry) error {
	p.Reset()
	for _, e := range entries {
		if err := p.Apply(e); err != nil {
			return err
		}
	}
	return nil
}
