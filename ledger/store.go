/*
store.go - Persistence interface for ledger entries

PURPOSE:
  Defines the interface between the ledger and the database. The Store
  handles persistence while maintaining append-only semantics. Different
  implementations can use SQLite or in-memory storage.

APPEND-ONLY CONTRACT:
  - Append():      Single entry write
  - AppendBatch(): Atomic multi-entry write
  - NO Update() or Delete() methods exist

ORDERING:
  Load methods return entries in creation order. BalanceAfter snapshots
  only make sense under that ordering, so stores must preserve it.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store (shared with ride records)
  - store/memory: In-memory store for tests and dev

SEE ALSO:
  - ledger.go: Higher-level Ledger using Store
*/
package ledger

import "context"

// Store handles persistence of ledger entries.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// Append persists a single stamped entry.
	Append(ctx context.Context, e Entry) error

	// AppendBatch persists multiple entries atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, entries []Entry) error

	// LoadAll returns every entry in creation order.
	// Used to rebuild the balance projection at startup.
	LoadAll(ctx context.Context) ([]Entry, error)

	// LoadByAccount returns all entries for an account in creation order.
	LoadByAccount(ctx context.Context, accountID AccountID) ([]Entry, error)

	// LoadByToken returns all entries for an account+token in creation order.
	LoadByToken(ctx context.Context, accountID AccountID, token Token) ([]Entry, error)

	// Recent returns up to limit entries for an account, newest first.
	Recent(ctx context.Context, accountID AccountID, limit int) ([]Entry, error)
}
