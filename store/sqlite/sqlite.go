/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements all persistence interfaces (ride.RideRepository,
  ride.AccountDirectory, ride.VehicleDirectory, ledger.Store) using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The ledger_entries table is append-only:
  - No UPDATE statements on ledger_entries
  - No DELETE statements on ledger_entries
  - Corrections via compensating entries only

KEY TABLES:
  ledger_entries: Immutable dual-token ledger
  rides:          Ride records, status updated via compare-and-swap
  accounts:       Rider/driver records with cached balance columns
  vehicles:       Fleet records

ATOMIC COMPLETION:
  Complete() runs one database transaction: the ride UPDATE (guarded by
  WHERE status = 'in_progress') plus the reward entry INSERTs plus the
  account balance column refresh. Either everything commits or nothing
  does.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL
  (Write-Ahead Logging): multiple readers don't block, single writer at
  a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/riide.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ride/store.go: Interface definitions
  - ledger/store.go: Ledger store contract
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/riide/ride-engine/ledger"
	"github.com/riide/ride-engine/ride"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Ledger entries (append-only, seq preserves creation order)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		account_id TEXT NOT NULL,
		token TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		description TEXT,
		reference_id TEXT,
		settlement_ref TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: per-account replay and recent-activity reads
	CREATE INDEX IF NOT EXISTS idx_entries_account
		ON ledger_entries(account_id, seq);
	CREATE INDEX IF NOT EXISTS idx_entries_account_token
		ON ledger_entries(account_id, token, seq);
	CREATE INDEX IF NOT EXISTS idx_entries_reference
		ON ledger_entries(reference_id) WHERE reference_id IS NOT NULL;

	-- Rides
	CREATE TABLE IF NOT EXISTS rides (
		id TEXT PRIMARY KEY,
		rider_id TEXT NOT NULL,
		driver_id TEXT,
		vehicle_id TEXT,
		pickup_lat REAL NOT NULL,
		pickup_lng REAL NOT NULL,
		pickup_address TEXT,
		dest_lat REAL,
		dest_lng REAL,
		dest_address TEXT,
		fare_amount TEXT NOT NULL,
		distance_km TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		payment_method TEXT NOT NULL,
		riide_earned TEXT NOT NULL DEFAULT '0',
		evee_earned TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		cancellation_reason TEXT,
		created_at TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT,
		cancelled_at TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rides_rider
		ON rides(rider_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_rides_status
		ON rides(status);

	-- Accounts (balance columns are a cache of the ledger)
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL,
		riide_balance TEXT NOT NULL DEFAULT '0',
		evee_balance TEXT NOT NULL DEFAULT '0',
		wallet_address TEXT,
		verified BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Vehicles
	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		make TEXT,
		model TEXT,
		year INTEGER,
		color TEXT,
		vehicle_type TEXT NOT NULL,
		license_plate TEXT,
		active BOOLEAN DEFAULT TRUE,
		lat REAL NOT NULL DEFAULT 0,
		lng REAL NOT NULL DEFAULT 0,
		battery_level INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vehicles_driver
		ON vehicles(driver_id);
	CREATE INDEX IF NOT EXISTS idx_vehicles_active
		ON vehicles(active);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// Append adds an entry to the ledger.
func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.appendEntry(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendBatch adds multiple entries atomically.
func (s *Store) AppendBatch(ctx context.Context, entries []ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if err := s.appendEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// appendEntry inserts one entry and refreshes the account's cached
// balance column for the entry's token.
func (s *Store) appendEntry(ctx context.Context, db execer, e ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries
		(id, account_id, token, entry_type, amount, balance_after,
		 description, reference_id, settlement_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		string(e.ID),
		string(e.AccountID),
		string(e.Token),
		string(e.Type),
		e.Amount.String(),
		e.BalanceAfter.String(),
		e.Description,
		nullString(e.ReferenceID),
		nullString(e.SettlementRef),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	var column string
	switch e.Token {
	case ledger.TokenRiide:
		column = "riide_balance"
	case ledger.TokenEvee:
		column = "evee_balance"
	default:
		return nil
	}

	_, err = db.ExecContext(ctx,
		"UPDATE accounts SET "+column+" = ?, updated_at = ? WHERE id = ?",
		e.BalanceAfter.String(),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(e.AccountID),
	)
	if err != nil {
		return fmt.Errorf("failed to refresh account balance: %w", err)
	}
	return nil
}

const entryColumns = `id, account_id, token, entry_type, amount, balance_after,
	description, reference_id, settlement_ref, created_at`

// LoadAll returns every entry in creation order.
func (s *Store) LoadAll(ctx context.Context) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + entryColumns + ` FROM ledger_entries ORDER BY seq ASC`
	return s.queryEntries(ctx, query)
}

// LoadByAccount returns an account's entries in creation order.
func (s *Store) LoadByAccount(ctx context.Context, accountID ledger.AccountID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + entryColumns + ` FROM ledger_entries
		WHERE account_id = ? ORDER BY seq ASC`
	return s.queryEntries(ctx, query, string(accountID))
}

// LoadByToken returns an account's entries for one token in creation order.
func (s *Store) LoadByToken(ctx context.Context, accountID ledger.AccountID, token ledger.Token) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + entryColumns + ` FROM ledger_entries
		WHERE account_id = ? AND token = ? ORDER BY seq ASC`
	return s.queryEntries(ctx, query, string(accountID), string(token))
}

// Recent returns an account's newest entries, newest first.
func (s *Store) Recent(ctx context.Context, accountID ledger.AccountID, limit int) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite treats negative LIMIT as no limit
	}
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
		WHERE account_id = ? ORDER BY seq DESC LIMIT ?`
	return s.queryEntries(ctx, query, string(accountID), limit)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e             ledger.Entry
		amount        string
		balanceAfter  string
		description   sql.NullString
		referenceID   sql.NullString
		settlementRef sql.NullString
		createdAt     string
	)

	err := rows.Scan(
		&e.ID, &e.AccountID, &e.Token, &e.Type,
		&amount, &balanceAfter,
		&description, &referenceID, &settlementRef, &createdAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	e.Amount, _ = decimal.NewFromString(amount)
	e.BalanceAfter, _ = decimal.NewFromString(balanceAfter)
	e.Description = description.String
	e.ReferenceID = referenceID.String
	e.SettlementRef = settlementRef.String
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	return e, nil
}

// =============================================================================
// RIDE REPOSITORY (ride.RideRepository interface)
// =============================================================================

// Insert adds a new ride record.
func (s *Store) Insert(ctx context.Context, r ride.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rides
		(id, rider_id, driver_id, vehicle_id,
		 pickup_lat, pickup_lng, pickup_address,
		 dest_lat, dest_lng, dest_address,
		 fare_amount, distance_km, duration_minutes, payment_method,
		 riide_earned, evee_earned, status, cancellation_reason,
		 created_at, started_at, completed_at, cancelled_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var destLat, destLng *float64
	var destAddress *string
	if r.Destination != nil {
		destLat, destLng = &r.Destination.Lat, &r.Destination.Lng
		destAddress = &r.Destination.Address
	}

	_, err := s.db.ExecContext(ctx, query,
		string(r.ID), string(r.RiderID),
		nullString(string(r.DriverID)), nullString(string(r.VehicleID)),
		r.Pickup.Lat, r.Pickup.Lng, r.Pickup.Address,
		destLat, destLng, destAddress,
		r.FareAmount.String(), r.DistanceKm.String(), r.DurationMinutes,
		string(r.PaymentMethod),
		r.RiideEarned.String(), r.EveeEarned.String(),
		string(r.Status), nullString(r.CancellationReason),
		formatTime(r.CreatedAt), nullTime(r.StartedAt),
		nullTime(r.CompletedAt), nullTime(r.CancelledAt),
		formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ride: %w", err)
	}
	return nil
}

const rideColumns = `id, rider_id, driver_id, vehicle_id,
	pickup_lat, pickup_lng, pickup_address,
	dest_lat, dest_lng, dest_address,
	fare_amount, distance_km, duration_minutes, payment_method,
	riide_earned, evee_earned, status, cancellation_reason,
	created_at, started_at, completed_at, cancelled_at, updated_at`

// Get retrieves a ride by id.
func (s *Store) Get(ctx context.Context, id ride.RideID) (ride.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE id = ?`, string(id))
	r, err := scanRide(row)
	if err == sql.ErrNoRows {
		return ride.Ride{}, &ride.NotFoundError{Kind: "ride", ID: string(id)}
	}
	return r, err
}

// Update replaces a ride record, guarded by the expected current status.
func (s *Store) Update(ctx context.Context, r ride.Ride, expected ride.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.updateRide(ctx, tx, r, expected); err != nil {
		return err
	}
	return tx.Commit()
}

// updateRide performs the compare-and-swap write. A zero-row result is
// disambiguated into NotFoundError or TransitionError by re-reading.
func (s *Store) updateRide(ctx context.Context, tx *sql.Tx, r ride.Ride, expected ride.Status) error {
	query := `
		UPDATE rides SET
			driver_id = ?, vehicle_id = ?,
			fare_amount = ?, distance_km = ?, duration_minutes = ?,
			riide_earned = ?, evee_earned = ?,
			status = ?, cancellation_reason = ?,
			started_at = ?, completed_at = ?, cancelled_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	res, err := tx.ExecContext(ctx, query,
		nullString(string(r.DriverID)), nullString(string(r.VehicleID)),
		r.FareAmount.String(), r.DistanceKm.String(), r.DurationMinutes,
		r.RiideEarned.String(), r.EveeEarned.String(),
		string(r.Status), nullString(r.CancellationReason),
		nullTime(r.StartedAt), nullTime(r.CompletedAt), nullTime(r.CancelledAt),
		formatTime(r.UpdatedAt),
		string(r.ID), string(expected),
	)
	if err != nil {
		return fmt.Errorf("failed to update ride: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		var current string
		err := tx.QueryRowContext(ctx,
			"SELECT status FROM rides WHERE id = ?", string(r.ID)).Scan(&current)
		if err == sql.ErrNoRows {
			return &ride.NotFoundError{Kind: "ride", ID: string(r.ID)}
		}
		if err != nil {
			return fmt.Errorf("failed to read ride status: %w", err)
		}
		return &ride.TransitionError{RideID: r.ID, From: ride.Status(current), Op: "update"}
	}
	return nil
}

// ByRider returns all of a rider's rides in insertion order.
func (s *Store) ByRider(ctx context.Context, riderID ledger.AccountID) ([]ride.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE rider_id = ? ORDER BY created_at ASC, id ASC`,
		string(riderID))
	if err != nil {
		return nil, fmt.Errorf("failed to query rides: %w", err)
	}
	defer rows.Close()

	var rides []ride.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, r)
	}
	return rides, rows.Err()
}

// Complete persists the completed ride and its reward entries in one
// database transaction.
func (s *Store) Complete(ctx context.Context, r ride.Ride, entries []ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.updateRide(ctx, tx, r, ride.StatusInProgress); err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.appendEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// scanner abstracts sql.Row and sql.Rows for the shared ride scan.
type scanner interface {
	Scan(dest ...any) error
}

func scanRide(row scanner) (ride.Ride, error) {
	var (
		r                  ride.Ride
		driverID           sql.NullString
		vehicleID          sql.NullString
		pickupAddress      sql.NullString
		destLat, destLng   sql.NullFloat64
		destAddress        sql.NullString
		fareAmount         string
		distanceKm         string
		riideEarned        string
		eveeEarned         string
		cancellationReason sql.NullString
		createdAt          string
		startedAt          sql.NullString
		completedAt        sql.NullString
		cancelledAt        sql.NullString
		updatedAt          string
	)

	err := row.Scan(
		&r.ID, &r.RiderID, &driverID, &vehicleID,
		&r.Pickup.Lat, &r.Pickup.Lng, &pickupAddress,
		&destLat, &destLng, &destAddress,
		&fareAmount, &distanceKm, &r.DurationMinutes, &r.PaymentMethod,
		&riideEarned, &eveeEarned, &r.Status, &cancellationReason,
		&createdAt, &startedAt, &completedAt, &cancelledAt, &updatedAt,
	)
	if err != nil {
		return r, err
	}

	r.DriverID = ledger.AccountID(driverID.String)
	r.VehicleID = ride.VehicleID(vehicleID.String)
	r.Pickup.Address = pickupAddress.String
	if destLat.Valid && destLng.Valid {
		r.Destination = &ride.Location{
			Coordinate: ride.Coordinate{Lat: destLat.Float64, Lng: destLng.Float64},
			Address:    destAddress.String,
		}
	}
	r.FareAmount, _ = decimal.NewFromString(fareAmount)
	r.DistanceKm, _ = decimal.NewFromString(distanceKm)
	r.RiideEarned, _ = decimal.NewFromString(riideEarned)
	r.EveeEarned, _ = decimal.NewFromString(eveeEarned)
	r.CancellationReason = cancellationReason.String
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	r.StartedAt = parseNullTime(startedAt)
	r.CompletedAt = parseNullTime(completedAt)
	r.CancelledAt = parseNullTime(cancelledAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return r, nil
}

// =============================================================================
// ACCOUNT DIRECTORY (ride.AccountDirectory interface)
// =============================================================================

const accountColumns = `id, full_name, email, role, riide_balance, evee_balance,
	wallet_address, verified, created_at, updated_at`

// SaveAccount inserts or updates an account record.
func (s *Store) SaveAccount(ctx context.Context, a ride.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO accounts
		(id, full_name, email, role, riide_balance, evee_balance,
		 wallet_address, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			role = excluded.role,
			wallet_address = excluded.wallet_address,
			verified = excluded.verified,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(a.ID), a.FullName, a.Email, string(a.Role),
		a.RiideBalance.String(), a.EveeBalance.String(),
		a.WalletAddress, a.Verified,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	return err
}

// Account retrieves an account by id.
func (s *Store) Account(ctx context.Context, id ledger.AccountID) (ride.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, string(id))
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return ride.Account{}, &ride.NotFoundError{Kind: "account", ID: string(id)}
	}
	return a, err
}

// Accounts returns all accounts.
func (s *Store) Accounts(ctx context.Context) ([]ride.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ride.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func scanAccount(row scanner) (ride.Account, error) {
	var (
		a             ride.Account
		email         sql.NullString
		riideBalance  string
		eveeBalance   string
		walletAddress sql.NullString
		createdAt     string
		updatedAt     string
	)

	err := row.Scan(
		&a.ID, &a.FullName, &email, &a.Role,
		&riideBalance, &eveeBalance,
		&walletAddress, &a.Verified, &createdAt, &updatedAt,
	)
	if err != nil {
		return a, err
	}

	a.Email = email.String
	a.RiideBalance, _ = decimal.NewFromString(riideBalance)
	a.EveeBalance, _ = decimal.NewFromString(eveeBalance)
	a.WalletAddress = walletAddress.String
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return a, nil
}

// =============================================================================
// VEHICLE DIRECTORY (ride.VehicleDirectory interface)
// =============================================================================

const vehicleColumns = `id, driver_id, make, model, year, color, vehicle_type,
	license_plate, active, lat, lng, battery_level, created_at, updated_at`

// SaveVehicle inserts or updates a vehicle record.
func (s *Store) SaveVehicle(ctx context.Context, v ride.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO vehicles
		(id, driver_id, make, model, year, color, vehicle_type,
		 license_plate, active, lat, lng, battery_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			make = excluded.make,
			model = excluded.model,
			year = excluded.year,
			color = excluded.color,
			vehicle_type = excluded.vehicle_type,
			license_plate = excluded.license_plate,
			active = excluded.active,
			lat = excluded.lat,
			lng = excluded.lng,
			battery_level = excluded.battery_level,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(v.ID), string(v.DriverID), v.Make, v.Model, v.Year, v.Color,
		string(v.Type), v.LicensePlate, v.Active,
		v.Position.Lat, v.Position.Lng, v.BatteryLevel,
		formatTime(v.CreatedAt), formatTime(v.UpdatedAt),
	)
	return err
}

// Vehicle retrieves a vehicle by id.
func (s *Store) Vehicle(ctx context.Context, id ride.VehicleID) (ride.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, string(id))
	v, err := scanVehicle(row)
	if err == sql.ErrNoRows {
		return ride.Vehicle{}, &ride.NotFoundError{Kind: "vehicle", ID: string(id)}
	}
	return v, err
}

// Active returns all active vehicles.
func (s *Store) Active(ctx context.Context) ([]ride.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE active = TRUE ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []ride.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func scanVehicle(row scanner) (ride.Vehicle, error) {
	var (
		v            ride.Vehicle
		vehicleMake  sql.NullString
		model        sql.NullString
		year         sql.NullInt64
		color        sql.NullString
		licensePlate sql.NullString
		battery      sql.NullInt64
		createdAt    string
		updatedAt    string
	)

	err := row.Scan(
		&v.ID, &v.DriverID, &vehicleMake, &model, &year, &color, &v.Type,
		&licensePlate, &v.Active, &v.Position.Lat, &v.Position.Lng,
		&battery, &createdAt, &updatedAt,
	)
	if err != nil {
		return v, err
	}

	v.Make = vehicleMake.String
	v.Model = model.String
	v.Year = int(year.Int64)
	v.Color = color.String
	v.LicensePlate = licensePlate.String
	if battery.Valid {
		b := int(battery.Int64)
		v.BatteryLevel = &b
	}
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	v.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return v, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"ledger_entries", "rides", "vehicles", "accounts"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// Compile-time interface checks.
var (
	_ ride.RideRepository   = (*Store)(nil)
	_ ride.AccountDirectory = (*Store)(nil)
	_ ride.VehicleDirectory = (*Store)(nil)
	_ ledger.Store          = (*Store)(nil)
)
