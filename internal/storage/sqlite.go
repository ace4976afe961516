package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/dshills/regtree/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// maxChainLength bounds recursive traversals. Real hierarchies are at most
// six levels deep, so reaching it means the parent links contain a cycle.
const maxChainLength = 1024

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Regulation operations

const regulationColumns = `r.id, r.title, r.preamble, r.raw_text,
	(SELECT COUNT(*) FROM entries e WHERE e.regulation_id = r.id),
	r.created_at, r.updated_at`

func scanRegulation(row interface{ Scan(...any) error }) (*Regulation, error) {
	var reg Regulation
	err := row.Scan(&reg.ID, &reg.Title, &reg.Preamble, &reg.RawText,
		&reg.EntryCount, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// createRegulationWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createRegulationWithQuerier(ctx context.Context, q querier, reg *Regulation) error {
	if strings.TrimSpace(reg.Title) == "" {
		return fmt.Errorf("regulation title cannot be empty")
	}

	query := `
		INSERT INTO regulations (title, preamble, raw_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query, reg.Title, reg.Preamble, reg.RawText, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("regulation %q: %w", reg.Title, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create regulation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = id
	reg.CreatedAt = now
	reg.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateRegulation(ctx context.Context, reg *Regulation) error {
	return s.createRegulationWithQuerier(ctx, s.querier(), reg)
}

// getRegulationWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getRegulationWithQuerier(ctx context.Context, q querier, column string, value any) (*Regulation, error) {
	query := "SELECT " + regulationColumns + " FROM regulations r WHERE r." + column + " = ?"
	reg, err := scanRegulation(q.QueryRowContext(ctx, query, value))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *SQLiteStorage) GetRegulation(ctx context.Context, id int64) (*Regulation, error) {
	return s.getRegulationWithQuerier(ctx, s.querier(), "id", id)
}

func (s *SQLiteStorage) GetRegulationByTitle(ctx context.Context, title string) (*Regulation, error) {
	return s.getRegulationWithQuerier(ctx, s.querier(), "title", title)
}

// listRegulationsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listRegulationsWithQuerier(ctx context.Context, q querier) ([]*Regulation, error) {
	query, args, err := sq.Select(regulationColumns).
		From("regulations r").
		OrderBy("r.title").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list regulations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	regs := make([]*Regulation, 0)
	for rows.Next() {
		reg, err := scanRegulation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan regulation: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (s *SQLiteStorage) ListRegulations(ctx context.Context) ([]*Regulation, error) {
	return s.listRegulationsWithQuerier(ctx, s.querier())
}

// deleteRegulationWithQuerier removes a regulation; entries cascade
func (s *SQLiteStorage) deleteRegulationWithQuerier(ctx context.Context, q querier, id int64) error {
	result, err := q.ExecContext(ctx, "DELETE FROM regulations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete regulation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteRegulation(ctx context.Context, id int64) error {
	return s.deleteRegulationWithQuerier(ctx, s.querier(), id)
}

// Entry operations

const entryColumns = `e.id, e.regulation_id, e.parent_id, e.unit_label, e.rank, e.content,
	e.span_start, e.span_end, e.depth, e.position, e.label, e.created_at`

func scanEntry(row interface{ Scan(...any) error }, extra ...any) (*Entry, error) {
	var entry Entry
	var parentID sql.NullInt64
	var rank int
	dest := append(extra, &entry.ID, &entry.RegulationID, &parentID, &entry.UnitLabel, &rank,
		&entry.Content, &entry.SpanStart, &entry.SpanEnd, &entry.Depth, &entry.Position,
		&entry.Label, &entry.CreatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if parentID.Valid {
		pid := parentID.Int64
		entry.ParentID = &pid
	}
	entry.Rank = types.Rank(rank)
	return &entry, nil
}

// insertEntryWithQuerier is the internal implementation that uses a querier.
// It refuses entries that would break the span round-trip or the forest.
func (s *SQLiteStorage) insertEntryWithQuerier(ctx context.Context, q querier, entry *Entry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	var spanOK bool
	err := q.QueryRowContext(ctx, `
		SELECT substr(CAST(raw_text AS BLOB), ?, ?) = CAST(? AS BLOB)
		FROM regulations WHERE id = ?
	`, entry.SpanStart+1, entry.SpanEnd-entry.SpanStart, entry.Content, entry.RegulationID).Scan(&spanOK)
	if err == sql.ErrNoRows {
		return fmt.Errorf("regulation %d: %w", entry.RegulationID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to verify span: %w", err)
	}
	if !spanOK {
		return fmt.Errorf("%w: entry %q does not match raw text at [%d,%d)",
			types.ErrMalformedSpan, entry.UnitLabel, entry.SpanStart, entry.SpanEnd)
	}

	if entry.ParentID != nil {
		var parentReg int64
		var parentDepth int
		err := q.QueryRowContext(ctx, "SELECT regulation_id, depth FROM entries WHERE id = ?", *entry.ParentID).
			Scan(&parentReg, &parentDepth)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: parent %d: %w", types.ErrForestConsistency, *entry.ParentID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load parent: %w", err)
		}
		if err := checkParent(entry, parentReg, parentDepth); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO entries (regulation_id, parent_id, unit_label, rank, content,
		                     span_start, span_end, depth, position, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		entry.RegulationID, entry.ParentID, entry.UnitLabel, int(entry.Rank), entry.Content,
		entry.SpanStart, entry.SpanEnd, entry.Depth, entry.Position, entry.Label, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("entry at position %d: %w", entry.Position, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	entry.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) InsertEntry(ctx context.Context, entry *Entry) error {
	return s.insertEntryWithQuerier(ctx, s.querier(), entry)
}

// getEntryWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getEntryWithQuerier(ctx context.Context, q querier, id int64) (*Entry, error) {
	query := "SELECT " + entryColumns + " FROM entries e WHERE e.id = ?"
	entry, err := scanEntry(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *SQLiteStorage) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	return s.getEntryWithQuerier(ctx, s.querier(), id)
}

// queryEntries runs a squirrel select over entries and scans every row
func queryEntries(ctx context.Context, q querier, builder sq.SelectBuilder) ([]*Entry, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func selectEntries() sq.SelectBuilder {
	return sq.Select(entryColumns).From("entries e")
}

func (s *SQLiteStorage) listEntriesByRegulationWithQuerier(ctx context.Context, q querier, regulationID int64) ([]*Entry, error) {
	return queryEntries(ctx, q, selectEntries().
		Where(sq.Eq{"e.regulation_id": regulationID}).
		OrderBy("e.position"))
}

func (s *SQLiteStorage) ListEntriesByRegulation(ctx context.Context, regulationID int64) ([]*Entry, error) {
	return s.listEntriesByRegulationWithQuerier(ctx, s.querier(), regulationID)
}

func (s *SQLiteStorage) listChildrenWithQuerier(ctx context.Context, q querier, id int64) ([]*Entry, error) {
	return queryEntries(ctx, q, selectEntries().
		Where(sq.Eq{"e.parent_id": id}).
		OrderBy("e.position"))
}

func (s *SQLiteStorage) ListChildren(ctx context.Context, id int64) ([]*Entry, error) {
	return s.listChildrenWithQuerier(ctx, s.querier(), id)
}

// setEntryLabelWithQuerier updates the curation annotation, the only
// mutable field of a stored entry
func (s *SQLiteStorage) setEntryLabelWithQuerier(ctx context.Context, q querier, id int64, label string) error {
	result, err := q.ExecContext(ctx, "UPDATE entries SET label = ? WHERE id = ?", label, id)
	if err != nil {
		return fmt.Errorf("failed to set label: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) SetEntryLabel(ctx context.Context, id int64, label string) error {
	return s.setEntryLabelWithQuerier(ctx, s.querier(), id, label)
}

// Graph operations

const ancestorsQuery = `
	WITH RECURSIVE chain(id, hops) AS (
		-- Base case: the entry itself
		SELECT id, 0 FROM entries WHERE id = ?

		UNION ALL

		-- Recursive case: parent of the previous link
		SELECT e.parent_id, c.hops + 1
		FROM chain c
		JOIN entries e ON e.id = c.id
		WHERE e.parent_id IS NOT NULL AND c.hops < ?
	)
	SELECT c.hops, ` + entryColumns + `
	FROM chain c
	JOIN entries e ON e.id = c.id
	ORDER BY c.hops DESC
`

// ancestorsOfWithQuerier walks parent links upward with a recursive CTE
func (s *SQLiteStorage) ancestorsOfWithQuerier(ctx context.Context, q querier, id int64) ([]*Entry, error) {
	rows, err := q.QueryContext(ctx, ancestorsQuery, id, maxChainLength)
	if err != nil {
		return nil, fmt.Errorf("failed to query ancestors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chain []*Entry
	var hops []int
	for rows.Next() {
		var h int
		entry, err := scanEntry(rows, &h)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ancestor: %w", err)
		}
		chain = append(chain, entry)
		hops = append(hops, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(chain) == 0 || hops[len(hops)-1] != 0 {
		return nil, fmt.Errorf("%w: entry %d: %w", types.ErrForestConsistency, id, ErrNotFound)
	}
	if hops[0] >= maxChainLength {
		return nil, fmt.Errorf("%w: cycle above entry %d", types.ErrForestConsistency, id)
	}
	if err := checkChain(id, chain); err != nil {
		return nil, err
	}

	// chain is root first and ends with the entry itself
	return chain[:len(chain)-1], nil
}

func (s *SQLiteStorage) AncestorsOf(ctx context.Context, id int64) ([]*Entry, error) {
	return s.ancestorsOfWithQuerier(ctx, s.querier(), id)
}

const descendantsQuery = `
	WITH RECURSIVE subtree(id, distance) AS (
		-- Base case: the subtree root
		SELECT id, 0 FROM entries WHERE id = ?

		UNION ALL

		-- Recursive case: children of the previous level
		SELECT e.id, s.distance + 1
		FROM subtree s
		JOIN entries e ON e.parent_id = s.id
		WHERE s.distance < ?
	)
	SELECT s.distance, ` + entryColumns + `
	FROM subtree s
	JOIN entries e ON e.id = s.id
	ORDER BY s.distance, e.position
`

// descendantsOfWithQuerier walks child links downward with a recursive CTE
func (s *SQLiteStorage) descendantsOfWithQuerier(ctx context.Context, q querier, id int64) ([]Descendant, error) {
	rows, err := q.QueryContext(ctx, descendantsQuery, id, maxChainLength)
	if err != nil {
		return nil, fmt.Errorf("failed to query descendants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var all []Descendant
	for rows.Next() {
		var distance int
		entry, err := scanEntry(rows, &distance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan descendant: %w", err)
		}
		all = append(all, Descendant{Entry: entry, Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(all) == 0 || all[0].Distance != 0 {
		return nil, fmt.Errorf("%w: entry %d: %w", types.ErrForestConsistency, id, ErrNotFound)
	}
	if err := checkSubtree(id, all); err != nil {
		return nil, err
	}
	return all[1:], nil
}

func (s *SQLiteStorage) DescendantsOf(ctx context.Context, id int64) ([]Descendant, error) {
	return s.descendantsOfWithQuerier(ctx, s.querier(), id)
}

// Search operations

// searchContentWithQuerier finds entries whose content matches query.
// Literal queries are filtered by SQLite; regex queries scan candidate rows.
func (s *SQLiteStorage) searchContentWithQuerier(ctx context.Context, q querier, query string, filters *SearchFilters) ([]*Entry, error) {
	f := normalizeFilters(filters)
	match, err := contentMatcher(query, f.Mode)
	if err != nil {
		return nil, err
	}

	builder := selectEntries().OrderBy("e.regulation_id", "e.position")
	if f.RegulationID > 0 {
		builder = builder.Where(sq.Eq{"e.regulation_id": f.RegulationID})
	}

	if f.Mode == SearchLiteral {
		builder = builder.Where("instr(e.content, ?) > 0", query)
		if f.Limit > 0 {
			builder = builder.Limit(uint64(f.Limit))
		}
		return queryEntries(ctx, q, builder)
	}

	candidates, err := queryEntries(ctx, q, builder)
	if err != nil {
		return nil, err
	}
	return filterEntries(candidates, match, f.Limit), nil
}

func (s *SQLiteStorage) SearchContent(ctx context.Context, query string, filters *SearchFilters) ([]*Entry, error) {
	return s.searchContentWithQuerier(ctx, s.querier(), query, filters)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{Backend: "sqlite-" + BuildMode}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM regulations", &status.Regulations},
		{"SELECT COUNT(*) FROM entries", &status.Entries},
		{"SELECT COUNT(*) FROM entries WHERE label <> ''", &status.LabeledCount},
		{"SELECT COUNT(*) FROM entries WHERE parent_id IS NULL", &status.RootCount},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	version, err := currentVersion(ctx, s.db)
	if err == nil {
		status.SchemaVersion = version.String()
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var fk int
	_ = q.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk)
	status.Health = HealthStatus{
		DatabaseAccessible: true,
		ForeignKeysEnabled: fk == 1,
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// Transaction implementations. Every operation goes through the transaction
// querier: the pool holds a single connection, so touching s.db while a
// transaction is open would block forever.

func (t *sqliteTx) CreateRegulation(ctx context.Context, reg *Regulation) error {
	return t.storage.createRegulationWithQuerier(ctx, t.querier(), reg)
}

func (t *sqliteTx) GetRegulation(ctx context.Context, id int64) (*Regulation, error) {
	return t.storage.getRegulationWithQuerier(ctx, t.querier(), "id", id)
}

func (t *sqliteTx) GetRegulationByTitle(ctx context.Context, title string) (*Regulation, error) {
	return t.storage.getRegulationWithQuerier(ctx, t.querier(), "title", title)
}

func (t *sqliteTx) ListRegulations(ctx context.Context) ([]*Regulation, error) {
	return t.storage.listRegulationsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteRegulation(ctx context.Context, id int64) error {
	return t.storage.deleteRegulationWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) InsertEntry(ctx context.Context, entry *Entry) error {
	return t.storage.insertEntryWithQuerier(ctx, t.querier(), entry)
}

func (t *sqliteTx) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	return t.storage.getEntryWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListEntriesByRegulation(ctx context.Context, regulationID int64) ([]*Entry, error) {
	return t.storage.listEntriesByRegulationWithQuerier(ctx, t.querier(), regulationID)
}

func (t *sqliteTx) ListChildren(ctx context.Context, id int64) ([]*Entry, error) {
	return t.storage.listChildrenWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) SetEntryLabel(ctx context.Context, id int64, label string) error {
	return t.storage.setEntryLabelWithQuerier(ctx, t.querier(), id, label)
}

func (t *sqliteTx) AncestorsOf(ctx context.Context, id int64) ([]*Entry, error) {
	return t.storage.ancestorsOfWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) DescendantsOf(ctx context.Context, id int64) ([]Descendant, error) {
	return t.storage.descendantsOfWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) SearchContent(ctx context.Context, query string, filters *SearchFilters) ([]*Entry, error) {
	return t.storage.searchContentWithQuerier(ctx, t.querier(), query, filters)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return nil, fmt.Errorf("status is not available inside a transaction")
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}
