/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  One store backs both sides of the engine:

  cdo.Store:    the credit ledger tables, with optimistic locking via a
                version column.
  dtr sources:  punches, shift assignments, locators, fix logs, leaves,
                travels, and holidays, window-filtered in SQL.

KEY TABLES:
  cdo_transactions:  Credit grants with running used_credit and expiry
  cdo_workdates:     The activity days behind each grant
  cdo_entries:       Consume entries, one per requested day off
  punches:           Raw biometric timestamps
  shift_assignments: Per-employee slot activations (slot config as JSON)
  locators:          Locator slips (departure/arrival minutes)
  fix_logs:          Punch corrections (per-slot times as JSON)
  leaves:            Leave and official-business days
  travels:           Travel order days
  holidays:          Calendar, with recurring month-day entries

OPTIMISTIC LOCKING:
  Updates to cdo_transactions and cdo_entries carry WHERE version = ?.
  Zero rows affected on an existing row means a concurrent writer won;
  the caller gets cdo.ErrConcurrentModification and decides whether to
  retry.

WAL MODE:
  SQLite is opened with WAL so report reads don't block ledger writes.

USAGE:
  store, err := sqlite.New("./data/dtr.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := cdo.NewLedger(store)
  reconciler := dtr.NewReconciler(store.Sources(ledger))
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/hrsuite/dtr-engine/cdo"
	"github.com/hrsuite/dtr-engine/dtr"
)

// Store implements cdo.Store and the dtr source interfaces over SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Sources wires every dtr source to this store, except CDO uses, which
// come from the ledger so references resolve through its rules.
func (s *Store) Sources(ledger *cdo.Ledger) dtr.Sources {
	return dtr.Sources{
		Punches:  s,
		Shifts:   s,
		Locators: s,
		FixLogs:  s,
		Leaves:   s,
		Travels:  s,
		CDOUses:  ledger,
		Holidays: s,
	}
}

func (s *Store) migrate() error {
	schema := `
	-- Credit grants
	CREATE TABLE IF NOT EXISTS cdo_transactions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		cdo_number TEXT NOT NULL UNIQUE,
		activity TEXT,
		earned_credit TEXT NOT NULL,
		used_credit TEXT NOT NULL,
		status TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_cdo_transactions_employee
		ON cdo_transactions(employee_id, created_at DESC);

	-- Activity days behind each grant
	CREATE TABLE IF NOT EXISTS cdo_workdates (
		transaction_id TEXT NOT NULL REFERENCES cdo_transactions(id),
		work_date TEXT NOT NULL,
		PRIMARY KEY (transaction_id, work_date)
	);

	-- Consume entries, one per requested day off
	CREATE TABLE IF NOT EXISTS cdo_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES cdo_transactions(id),
		employee_id TEXT NOT NULL,
		use_date TEXT NOT NULL,
		reason TEXT NOT NULL,
		status TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT 'portal',
		created_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_cdo_entries_transaction
		ON cdo_entries(transaction_id, use_date);
	CREATE INDEX IF NOT EXISTS idx_cdo_entries_employee
		ON cdo_entries(employee_id, use_date);

	-- Raw biometric timestamps
	CREATE TABLE IF NOT EXISTS punches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		punched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_punches_employee_time
		ON punches(employee_id, punched_at);

	-- Per-employee slot activations; slot config lives in slots_json
	CREATE TABLE IF NOT EXISTS shift_assignments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		name TEXT NOT NULL,
		mode TEXT NOT NULL,
		slots_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shift_assignments_employee
		ON shift_assignments(employee_id);

	-- Locator slips
	CREATE TABLE IF NOT EXISTS locators (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		locator_date TEXT NOT NULL,
		status TEXT NOT NULL,
		number TEXT,
		departure_min INTEGER NOT NULL,
		arrival_min INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_locators_employee_date
		ON locators(employee_id, locator_date);

	-- Punch corrections; per-slot times in times_json
	CREATE TABLE IF NOT EXISTS fix_logs (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		fix_date TEXT NOT NULL,
		status TEXT NOT NULL,
		times_json TEXT NOT NULL,
		approved_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fix_logs_employee_date
		ON fix_logs(employee_id, fix_date, created_at DESC);

	-- Leave and official-business days
	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_date TEXT NOT NULL,
		status TEXT NOT NULL,
		type_name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leaves_employee_date
		ON leaves(employee_id, leave_date);

	-- Travel order days
	CREATE TABLE IF NOT EXISTS travels (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		travel_date TEXT NOT NULL,
		status TEXT NOT NULL,
		travel_no TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_travels_employee_date
		ON travels(employee_id, travel_date);

	-- Calendar, recurring entries match by month-day every year
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		holiday_date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(holiday_date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CDO STORE (cdo.Store interface)
// =============================================================================

func (s *Store) CreateTransaction(ctx context.Context, tx *cdo.CreditTransaction) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO cdo_transactions
		(id, employee_id, cdo_number, activity, earned_credit, used_credit,
		 status, created_by, created_at, expires_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		tx.ID,
		tx.EmployeeID,
		tx.CDONumber,
		tx.Activity,
		tx.EarnedCredit.String(),
		tx.UsedCredit.String(),
		string(tx.Status),
		string(tx.CreatedBy),
		tx.CreatedAt.UTC().Format(time.RFC3339),
		tx.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	for _, d := range tx.WorkDates {
		if _, err := sqlTx.ExecContext(ctx,
			`INSERT INTO cdo_workdates (transaction_id, work_date) VALUES (?, ?)`,
			tx.ID, d.String(),
		); err != nil {
			return fmt.Errorf("failed to insert work date: %w", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return err
	}
	tx.Version = 1
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id cdo.TransactionID) (*cdo.CreditTransaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, cdo_number, activity, earned_credit, used_credit,
		       status, created_by, created_at, expires_at, version
		FROM cdo_transactions WHERE id = ?`, id)

	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, cdo.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	tx.WorkDates, err = s.workDates(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *cdo.CreditTransaction) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cdo_transactions
		SET used_credit = ?, status = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		tx.UsedCredit.String(), string(tx.Status), tx.ID, tx.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetTransaction(ctx, tx.ID); err != nil {
			return err
		}
		return cdo.ErrConcurrentModification
	}
	tx.Version++
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, employeeID string) ([]*cdo.CreditTransaction, error) {
	query := `
		SELECT id, employee_id, cdo_number, activity, earned_credit, used_credit,
		       status, created_by, created_at, expires_at, version
		FROM cdo_transactions`
	var args []any
	if employeeID != "" {
		query += ` WHERE employee_id = ?`
		args = append(args, employeeID)
	}
	query += ` ORDER BY created_at DESC, cdo_number DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []*cdo.CreditTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, tx := range out {
		tx.WorkDates, err = s.workDates(ctx, tx.ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) CountTransactionsOn(ctx context.Context, day dtr.Date) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cdo_transactions
		WHERE created_at >= ? AND created_at < ?`,
		day.Time().UTC().Format(time.RFC3339),
		day.AddDays(1).Time().UTC().Format(time.RFC3339),
	).Scan(&n)
	return n, err
}

func (s *Store) CreateEntries(ctx context.Context, entries []*cdo.ConsumeEntry) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, e := range entries {
		if _, err := sqlTx.ExecContext(ctx, `
			INSERT INTO cdo_entries
			(id, transaction_id, employee_id, use_date, reason, status, created_by, created_at, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			e.ID,
			e.TransactionID,
			e.EmployeeID,
			e.Date.String(),
			e.Reason,
			string(e.Status),
			string(e.CreatedBy),
			e.CreatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return err
	}
	for _, e := range entries {
		e.Version = 1
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id cdo.EntryID) (*cdo.ConsumeEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, employee_id, use_date, reason, status, created_by, created_at, version
		FROM cdo_entries WHERE id = ?`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, cdo.ErrEntryNotFound
	}
	return e, err
}

func (s *Store) UpdateEntry(ctx context.Context, entry *cdo.ConsumeEntry) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cdo_entries
		SET use_date = ?, reason = ?, status = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		entry.Date.String(), entry.Reason, string(entry.Status), entry.ID, entry.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetEntry(ctx, entry.ID); err != nil {
			return err
		}
		return cdo.ErrConcurrentModification
	}
	entry.Version++
	return nil
}

func (s *Store) ListEntries(ctx context.Context, txID cdo.TransactionID) ([]*cdo.ConsumeEntry, error) {
	return s.queryEntries(ctx, `
		SELECT id, transaction_id, employee_id, use_date, reason, status, created_by, created_at, version
		FROM cdo_entries
		WHERE transaction_id = ?
		ORDER BY use_date ASC, id ASC`, txID)
}

func (s *Store) ListEntriesByEmployee(ctx context.Context, employeeID string) ([]*cdo.ConsumeEntry, error) {
	return s.queryEntries(ctx, `
		SELECT id, transaction_id, employee_id, use_date, reason, status, created_by, created_at, version
		FROM cdo_entries
		WHERE employee_id = ?
		ORDER BY use_date ASC, id ASC`, employeeID)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]*cdo.ConsumeEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var out []*cdo.ConsumeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) workDates(ctx context.Context, id cdo.TransactionID) ([]dtr.Date, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT work_date FROM cdo_workdates WHERE transaction_id = ? ORDER BY work_date ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query work dates: %w", err)
	}
	defer rows.Close()

	var out []dtr.Date
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := dtr.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("bad work date %q: %w", raw, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*cdo.CreditTransaction, error) {
	var (
		tx        cdo.CreditTransaction
		earned    string
		used      string
		status    string
		createdBy string
		createdAt string
		expiresAt string
	)
	err := row.Scan(&tx.ID, &tx.EmployeeID, &tx.CDONumber, &tx.Activity,
		&earned, &used, &status, &createdBy, &createdAt, &expiresAt, &tx.Version)
	if err != nil {
		return nil, err
	}

	if tx.EarnedCredit, err = decimal.NewFromString(earned); err != nil {
		return nil, fmt.Errorf("bad earned credit %q: %w", earned, err)
	}
	if tx.UsedCredit, err = decimal.NewFromString(used); err != nil {
		return nil, fmt.Errorf("bad used credit %q: %w", used, err)
	}
	tx.Status = dtr.NormalizeStatus(status)
	tx.CreatedBy = cdo.Origin(createdBy)
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	tx.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	return &tx, nil
}

func scanEntry(row rowScanner) (*cdo.ConsumeEntry, error) {
	var (
		e         cdo.ConsumeEntry
		useDate   string
		status    string
		createdBy string
		createdAt string
	)
	err := row.Scan(&e.ID, &e.TransactionID, &e.EmployeeID, &useDate,
		&e.Reason, &status, &createdBy, &createdAt, &e.Version)
	if err != nil {
		return nil, err
	}
	if e.Date, err = dtr.ParseDate(useDate); err != nil {
		return nil, fmt.Errorf("bad use date %q: %w", useDate, err)
	}
	e.Status = dtr.NormalizeStatus(status)
	e.CreatedBy = cdo.Origin(createdBy)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

// =============================================================================
// DTR SOURCES
// =============================================================================

func (s *Store) Punches(ctx context.Context, employeeID string, window dtr.Window) ([]dtr.TimePunch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT punched_at FROM punches
		WHERE employee_id = ? AND punched_at >= ? AND punched_at < ?
		ORDER BY punched_at ASC`,
		employeeID,
		window.From.Time().Format(time.RFC3339),
		window.To.AddDays(1).Time().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var out []dtr.TimePunch
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("bad punch timestamp %q: %w", raw, err)
		}
		out = append(out, dtr.TimePunch{EmployeeID: employeeID, Timestamp: ts})
	}
	return out, rows.Err()
}

// AddPunch records one biometric timestamp.
func (s *Store) AddPunch(ctx context.Context, p dtr.TimePunch) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO punches (employee_id, punched_at) VALUES (?, ?)`,
		p.EmployeeID, p.Timestamp.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert punch: %w", err)
	}
	return nil
}

// slotConfig is the JSON shape of one slot in slots_json, keyed by the
// slot name ("am_in", "am_out", "pm_in", "pm_out").
type slotConfig struct {
	Active bool `json:"active"`
	Target int  `json:"target"`
	Start  int  `json:"start"`
	End    int  `json:"end"`
}

func (s *Store) Assignments(ctx context.Context, employeeID string) ([]dtr.ShiftAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, mode, slots_json FROM shift_assignments
		WHERE employee_id = ?
		ORDER BY created_at ASC`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift assignments: %w", err)
	}
	defer rows.Close()

	var out []dtr.ShiftAssignment
	for rows.Next() {
		var (
			name      string
			mode      string
			slotsJSON string
		)
		if err := rows.Scan(&name, &mode, &slotsJSON); err != nil {
			return nil, err
		}

		var slots map[string]slotConfig
		if err := json.Unmarshal([]byte(slotsJSON), &slots); err != nil {
			return nil, fmt.Errorf("bad slot config for assignment %q: %w", name, err)
		}

		a := dtr.ShiftAssignment{
			Name:    name,
			Mode:    dtr.ShiftMode(mode),
			Active:  make(map[dtr.DaySlot]bool, len(slots)),
			Windows: make(map[dtr.DaySlot]dtr.SlotWindow, len(slots)),
		}
		for _, slot := range dtr.AllSlots {
			cfg, ok := slots[slot.String()]
			if !ok {
				continue
			}
			a.Active[slot] = cfg.Active
			a.Windows[slot] = dtr.SlotWindow{
				Target: dtr.ClockTime(cfg.Target),
				Start:  dtr.ClockTime(cfg.Start),
				End:    dtr.ClockTime(cfg.End),
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveAssignment persists one shift assignment for an employee.
func (s *Store) SaveAssignment(ctx context.Context, id, employeeID string, a dtr.ShiftAssignment) error {
	slots := make(map[string]slotConfig, len(dtr.AllSlots))
	for _, slot := range dtr.AllSlots {
		w := a.Windows[slot]
		slots[slot.String()] = slotConfig{
			Active: a.Active[slot],
			Target: int(w.Target),
			Start:  int(w.Start),
			End:    int(w.End),
		}
	}
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shift_assignments (id, employee_id, name, mode, slots_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, mode = excluded.mode, slots_json = excluded.slots_json`,
		id, employeeID, a.Name, string(a.Mode), string(slotsJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save shift assignment: %w", err)
	}
	return nil
}

func (s *Store) Locators(ctx context.Context, employeeID string, window dtr.Window) ([]dtr.LocatorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT locator_date, status, number, departure_min, arrival_min
		FROM locators
		WHERE employee_id = ? AND locator_date >= ? AND locator_date <= ?
		ORDER BY locator_date ASC`,
		employeeID, window.From.String(), window.To.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query locators: %w", err)
	}
	defer rows.Close()

	var out []dtr.LocatorRecord
	for rows.Next() {
		var (
			rawDate   string
			status    string
			number    sql.NullString
			departure int
			arrival   int
		)
		if err := rows.Scan(&rawDate, &status, &number, &departure, &arrival); err != nil {
			return nil, err
		}
		d, err := dtr.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("bad locator date %q: %w", rawDate, err)
		}
		out = append(out, dtr.LocatorRecord{
			EmployeeID: employeeID,
			Date:       d,
			Status:     dtr.NormalizeStatus(status),
			Number:     number.String,
			Departure:  dtr.ClockTime(departure),
			Arrival:    dtr.ClockTime(arrival),
		})
	}
	return out, rows.Err()
}

// AddLocator persists one locator slip.
func (s *Store) AddLocator(ctx context.Context, id string, r dtr.LocatorRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locators (id, employee_id, locator_date, status, number, departure_min, arrival_min)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, r.EmployeeID, r.Date.String(), string(r.Status), r.Number,
		int(r.Departure), int(r.Arrival))
	if err != nil {
		return fmt.Errorf("failed to insert locator: %w", err)
	}
	return nil
}

func (s *Store) FixLogs(ctx context.Context, employeeID string, window dtr.Window) ([]dtr.FixLogRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fix_date, status, times_json, approved_by
		FROM fix_logs
		WHERE employee_id = ? AND fix_date >= ? AND fix_date <= ?
		ORDER BY created_at DESC`,
		employeeID, window.From.String(), window.To.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query fix logs: %w", err)
	}
	defer rows.Close()

	var out []dtr.FixLogRecord
	for rows.Next() {
		var (
			rawDate    string
			status     string
			timesJSON  string
			approvedBy sql.NullString
		)
		if err := rows.Scan(&rawDate, &status, &timesJSON, &approvedBy); err != nil {
			return nil, err
		}
		d, err := dtr.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("bad fix log date %q: %w", rawDate, err)
		}

		var raw map[string]int
		if err := json.Unmarshal([]byte(timesJSON), &raw); err != nil {
			return nil, fmt.Errorf("bad fix log times: %w", err)
		}
		times := make(map[dtr.DaySlot]dtr.ClockTime, len(raw))
		for _, slot := range dtr.AllSlots {
			if v, ok := raw[slot.String()]; ok {
				times[slot] = dtr.ClockTime(v)
			}
		}

		out = append(out, dtr.FixLogRecord{
			EmployeeID: employeeID,
			Date:       d,
			Status:     dtr.NormalizeStatus(status),
			Times:      times,
			ApprovedBy: approvedBy.String,
		})
	}
	return out, rows.Err()
}

// AddFixLog persists one punch correction.
func (s *Store) AddFixLog(ctx context.Context, id string, r dtr.FixLogRecord) error {
	raw := make(map[string]int, len(r.Times))
	for slot, t := range r.Times {
		raw[slot.String()] = int(t)
	}
	timesJSON, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fix_logs (id, employee_id, fix_date, status, times_json, approved_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, r.EmployeeID, r.Date.String(), string(r.Status), string(timesJSON),
		r.ApprovedBy, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert fix log: %w", err)
	}
	return nil
}

func (s *Store) Leaves(ctx context.Context, employeeID string, window dtr.Window) ([]dtr.LeaveRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT leave_date, status, type_name
		FROM leaves
		WHERE employee_id = ? AND leave_date >= ? AND leave_date <= ?
		ORDER BY leave_date ASC`,
		employeeID, window.From.String(), window.To.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()

	var out []dtr.LeaveRecord
	for rows.Next() {
		var (
			rawDate  string
			status   string
			typeName string
		)
		if err := rows.Scan(&rawDate, &status, &typeName); err != nil {
			return nil, err
		}
		d, err := dtr.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("bad leave date %q: %w", rawDate, err)
		}
		out = append(out, dtr.LeaveRecord{
			EmployeeID: employeeID,
			Date:       d,
			Status:     dtr.NormalizeStatus(status),
			TypeName:   typeName,
		})
	}
	return out, rows.Err()
}

// AddLeave persists one leave day.
func (s *Store) AddLeave(ctx context.Context, id string, r dtr.LeaveRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leaves (id, employee_id, leave_date, status, type_name)
		VALUES (?, ?, ?, ?, ?)`,
		id, r.EmployeeID, r.Date.String(), string(r.Status), r.TypeName)
	if err != nil {
		return fmt.Errorf("failed to insert leave: %w", err)
	}
	return nil
}

func (s *Store) Travels(ctx context.Context, employeeID string, window dtr.Window) ([]dtr.TravelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT travel_date, status, travel_no
		FROM travels
		WHERE employee_id = ? AND travel_date >= ? AND travel_date <= ?
		ORDER BY travel_date ASC`,
		employeeID, window.From.String(), window.To.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query travels: %w", err)
	}
	defer rows.Close()

	var out []dtr.TravelRecord
	for rows.Next() {
		var (
			rawDate  string
			status   string
			travelNo sql.NullString
		)
		if err := rows.Scan(&rawDate, &status, &travelNo); err != nil {
			return nil, err
		}
		d, err := dtr.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("bad travel date %q: %w", rawDate, err)
		}
		out = append(out, dtr.TravelRecord{
			EmployeeID: employeeID,
			Date:       d,
			Status:     dtr.NormalizeStatus(status),
			TravelNo:   travelNo.String,
		})
	}
	return out, rows.Err()
}

// AddTravel persists one travel order day.
func (s *Store) AddTravel(ctx context.Context, id string, r dtr.TravelRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO travels (id, employee_id, travel_date, status, travel_no)
		VALUES (?, ?, ?, ?, ?)`,
		id, r.EmployeeID, r.Date.String(), string(r.Status), r.TravelNo)
	if err != nil {
		return fmt.Errorf("failed to insert travel: %w", err)
	}
	return nil
}

func (s *Store) Holidays(ctx context.Context, window dtr.Window) ([]dtr.Holiday, error) {
	// Recurring holidays match by month-day every year, so they are
	// returned regardless of window and matched at reconciliation time.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, holiday_date, name, recurring
		FROM holidays
		WHERE recurring OR (holiday_date >= ? AND holiday_date <= ?)
		ORDER BY holiday_date ASC`,
		window.From.String(), window.To.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []dtr.Holiday
	for rows.Next() {
		var (
			h       dtr.Holiday
			rawDate string
		)
		if err := rows.Scan(&h.ID, &rawDate, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		if h.Date, err = dtr.ParseDate(rawDate); err != nil {
			return nil, fmt.Errorf("bad holiday date %q: %w", rawDate, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// AddHoliday persists one calendar entry.
func (s *Store) AddHoliday(ctx context.Context, h dtr.Holiday) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, holiday_date, name, recurring)
		VALUES (?, ?, ?, ?)`,
		h.ID, h.Date.String(), h.Name, h.Recurring)
	if err != nil {
		return fmt.Errorf("failed to insert holiday: %w", err)
	}
	return nil
}

// ListHolidays returns the entire calendar.
func (s *Store) ListHolidays(ctx context.Context) ([]dtr.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, holiday_date, name, recurring
		FROM holidays ORDER BY holiday_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []dtr.Holiday
	for rows.Next() {
		var (
			h       dtr.Holiday
			rawDate string
		)
		if err := rows.Scan(&h.ID, &rawDate, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		if h.Date, err = dtr.ParseDate(rawDate); err != nil {
			return nil, fmt.Errorf("bad holiday date %q: %w", rawDate, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// DeleteHoliday removes one calendar entry.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return nil
}
