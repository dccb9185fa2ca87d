/*
Package ledger provides the append-only token ledger and balance projection.

PURPOSE:
  This package contains the domain-agnostic core for dual-token accounting.
  Every event that moves a RIIDE or EVEE balance is recorded as an immutable
  Entry; balances are always derivable by replaying entries in creation order.

KEY CONCEPTS IN THIS FILE (types.go):
  - Token: Which balance an entry affects (riide or evee)
  - Entry: An immutable ledger record of one balance change
  - AccountID/EntryID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified or deleted
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Auditability: Every entry carries a balance snapshot and a description
  4. Single source of truth: Balance fields elsewhere are caches of this log

SEE ALSO:
  - ledger.go: Append orchestration and per-account ordering
  - projection.go: Cached balance index derived from entries
  - store.go: Persistence interface
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type EntryID string

// =============================================================================
// TOKEN - The two independent reward currencies
// =============================================================================

type Token string

const (
	TokenRiide Token = "riide"
	TokenEvee  Token = "evee"
)

func (t Token) Valid() bool {
	return t == TokenRiide || t == TokenEvee
}

// =============================================================================
// ENTRY - Immutable record of one balance change
// =============================================================================

type EntryType string

const (
	EntryEarn  EntryType = "earn"  // Reward issuance (ride completion, bonus)
	EntrySpend EntryType = "spend" // Balance consumption (upgrade, redemption)
)

// Entry records a single balance-affecting event. Amount is always a
// positive magnitude; the sign comes from Type.
//
// BalanceAfter is stamped by the Ledger at append time and equals the
// account's running balance for the token immediately after this entry,
// in creation order. It is a snapshot, never an input.
type Entry struct {
	ID        EntryID
	AccountID AccountID
	Token     Token
	Type      EntryType
	Amount    decimal.Decimal

	// Balance snapshot after applying this entry, in creation order.
	BalanceAfter decimal.Decimal

	Description string

	// ReferenceID links an entry to the ride that produced it.
	// Empty for entries that do not originate from a ride.
	ReferenceID string

	// SettlementRef is an optional external settlement reference
	// (e.g. an on-chain transaction hash). Unused until settlement exists.
	SettlementRef string

	CreatedAt time.Time
}

// Signed returns the entry's delta: positive for earn, negative for spend.
func (e Entry) Signed() decimal.Decimal {
	if e.Type == EntrySpend {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Validate checks the structural invariants of a draft entry.
func (e Entry) Validate() error {
	if e.AccountID == "" {
		return &InvalidEntryError{Field: "account_id", Reason: "missing"}
	}
	if !e.Token.Valid() {
		return &InvalidEntryError{Field: "token", Reason: "unknown token " + string(e.Token)}
	}
	if e.Type != EntryEarn && e.Type != EntrySpend {
		return &InvalidEntryError{Field: "type", Reason: "unknown entry type " + string(e.Type)}
	}
	if !e.Amount.IsPositive() {
		return &InvalidEntryError{Field: "amount", Reason: "must be a positive magnitude"}
	}
	return nil
}

// =============================================================================
// BALANCE PAIR - Convenience view of both token balances
// =============================================================================

type BalancePair struct {
	Riide decimal.Decimal
	Evee  decimal.Decimal
}

func (b BalancePair) Of(t Token) decimal.Decimal {
	if t == TokenEvee {
		return b.Evee
	}
	return b.Riide
}
