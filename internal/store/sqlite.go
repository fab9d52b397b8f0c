package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/me/clustersim/pkg/model"

	_ "modernc.org/sqlite"
)

// Job store names used in snapshot_jobs.store.
const (
	storePending   = "pending"
	storeRunning   = "running"
	storeCompleted = "completed"
)

// timeLayout is a fixed-width UTC timestamp, so created_at orders correctly
// as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: opens a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Snapshot writes ---

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if snap.ID == "" {
		snap.ID = "snap_" + uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	s.logger.Debug("sql", "op", "insert", "table", "snapshots", "id", snap.ID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, label, sim_time, next_job_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Label, snap.Time, snap.NextJobID, snap.CreatedAt.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_nodes (snapshot_id, seq, node_id, total_cpu, total_ram, available_cpu, available_ram)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	for i, n := range snap.Nodes {
		if _, err := nodeStmt.ExecContext(ctx, snap.ID, i, n.ID, n.TotalCPU, n.TotalRAM, n.AvailableCPU, n.AvailableRAM); err != nil {
			return fmt.Errorf("insert node %d: %w", n.ID, err)
		}
	}

	jobStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_jobs (snapshot_id, store, seq, job_id, priority, cpu, ram, duration, status, arrival_time, node_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer jobStmt.Close()
	insertJob := func(store string, seq int, j model.Job, nodeID *int) error {
		_, err := jobStmt.ExecContext(ctx, snap.ID, store, seq,
			j.ID, j.Priority, j.CPU, j.RAM, j.Duration, string(j.Status), j.ArrivalTime, nodeID)
		if err != nil {
			return fmt.Errorf("insert %s job %d: %w", store, j.ID, err)
		}
		return nil
	}
	for i, j := range snap.Pending {
		if err := insertJob(storePending, i, j, nil); err != nil {
			return err
		}
	}
	for i, rj := range snap.Running {
		if err := insertJob(storeRunning, i, rj.Job, &rj.NodeID); err != nil {
			return err
		}
	}
	for i, j := range snap.Completed {
		if err := insertJob(storeCompleted, i, j, nil); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "snapshots", "id", id)

	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- Snapshot reads ---

func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	s.logger.Debug("sql", "op", "select", "table", "snapshots", "id", id)
	return s.loadSnapshot(ctx,
		`SELECT id, label, sim_time, next_job_id, created_at FROM snapshots WHERE id = ?`, id)
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*model.Snapshot, error) {
	s.logger.Debug("sql", "op", "select", "table", "snapshots", "latest", true)
	return s.loadSnapshot(ctx,
		`SELECT id, label, sim_time, next_job_id, created_at FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT 1`)
}

func (s *SQLiteStore) loadSnapshot(ctx context.Context, query string, args ...any) (*model.Snapshot, error) {
	var snap model.Snapshot
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&snap.ID, &snap.Label, &snap.Time, &snap.NextJobID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.CreatedAt, _ = time.Parse(timeLayout, createdAt)

	if snap.Nodes, err = s.loadNodes(ctx, snap.ID); err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	if err := s.loadJobs(ctx, &snap); err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	return &snap, nil
}

func (s *SQLiteStore) loadNodes(ctx context.Context, snapshotID string) ([]model.ResourceNode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, total_cpu, total_ram, available_cpu, available_ram
		 FROM snapshot_nodes WHERE snapshot_id = ? ORDER BY seq`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := []model.ResourceNode{}
	for rows.Next() {
		var n model.ResourceNode
		if err := rows.Scan(&n.ID, &n.TotalCPU, &n.TotalRAM, &n.AvailableCPU, &n.AvailableRAM); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *SQLiteStore) loadJobs(ctx context.Context, snap *model.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT store, job_id, priority, cpu, ram, duration, status, arrival_time, node_id
		 FROM snapshot_jobs WHERE snapshot_id = ? ORDER BY store, seq`, snap.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	snap.Pending = []model.Job{}
	snap.Running = []model.RunningJob{}
	snap.Completed = []model.Job{}
	for rows.Next() {
		var j model.Job
		var store, status string
		var nodeID sql.NullInt64
		if err := rows.Scan(&store, &j.ID, &j.Priority, &j.CPU, &j.RAM, &j.Duration,
			&status, &j.ArrivalTime, &nodeID); err != nil {
			return err
		}
		j.Status = model.JobStatus(status)

		switch store {
		case storePending:
			snap.Pending = append(snap.Pending, j)
		case storeRunning:
			snap.Running = append(snap.Running, model.RunningJob{Job: j, NodeID: int(nodeID.Int64)})
		case storeCompleted:
			snap.Completed = append(snap.Completed, j)
		default:
			return fmt.Errorf("job %d: unknown store %q", j.ID, store)
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, opts model.ListOptions) ([]model.SnapshotInfo, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "snapshots", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var whereClauses []string
	var countArgs []any
	if opts.Label != "" {
		whereClauses = append(whereClauses, "s.label = ?")
		countArgs = append(countArgs, opts.Label)
	}
	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots s`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT s.id, s.label, s.sim_time, s.created_at,
			(SELECT COUNT(*) FROM snapshot_nodes n WHERE n.snapshot_id = s.id),
			(SELECT COUNT(*) FROM snapshot_jobs j WHERE j.snapshot_id = s.id AND j.store = 'pending'),
			(SELECT COUNT(*) FROM snapshot_jobs j WHERE j.snapshot_id = s.id AND j.store = 'running'),
			(SELECT COUNT(*) FROM snapshot_jobs j WHERE j.snapshot_id = s.id AND j.store = 'completed')
		FROM snapshots s` + whereSQL + ` ORDER BY s.created_at DESC, s.rowid DESC LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	infos := []model.SnapshotInfo{}
	for rows.Next() {
		var info model.SnapshotInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &info.Label, &info.Time, &createdAt,
			&info.Nodes, &info.Pending, &info.Running, &info.Completed); err != nil {
			return nil, 0, err
		}
		info.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		infos = append(infos, info)
	}
	return infos, total, rows.Err()
}
