// Package store keeps a SQLite ledger of evaluation runs and their
// per-sequence outcomes.
package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	mode          TEXT NOT NULL,
	split         TEXT NOT NULL,
	model_name    TEXT NOT NULL,
	datatype      TEXT NOT NULL,
	data_dir      TEXT NOT NULL,
	seed          INTEGER NOT NULL,
	started_at    TEXT NOT NULL,
	finished_at   TEXT,
	chamfer       REAL,
	accuracy      REAL
);

CREATE TABLE IF NOT EXISTS samples (
	run_id          TEXT NOT NULL,
	idx             INTEGER NOT NULL,
	stem            TEXT NOT NULL,
	label           TEXT NOT NULL,
	chamfer         REAL NOT NULL,
	correct         INTEGER NOT NULL,
	pred_class      INTEGER NOT NULL,
	target_class    INTEGER NOT NULL,
	prediction_path TEXT NOT NULL,
	PRIMARY KEY (run_id, idx),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// RunInfo describes a run when it starts.
type RunInfo struct {
	Mode      string
	Split     string
	ModelName string
	Datatype  string
	DataDir   string
	Seed      int64
}

// RunRecord is a stored run.
type RunRecord struct {
	RunInfo
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero until FinishRun
	Chamfer    float64
	Accuracy   float64
}

// SampleRecord is the outcome of one sequence.
type SampleRecord struct {
	Index          int
	Stem           string
	Label          string
	Chamfer        float64
	Correct        int
	PredClass      int
	TargetClass    int
	PredictionPath string
}

// Store manages the run ledger.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*Store, error) {
	// pragmas in the DSN apply to every pooled connection
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrapf(err, "open db %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a new run and returns its id.
func (s *Store) StartRun(info RunInfo) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, mode, split, model_name, datatype, data_dir, seed, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, info.Mode, info.Split, info.ModelName, info.Datatype, info.DataDir, info.Seed,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", errors.Wrap(err, "insert run")
	}
	return id, nil
}

// RecordSample stores the outcome of one sequence of a run.
func (s *Store) RecordSample(runID string, rec SampleRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO samples (run_id, idx, stem, label, chamfer, correct, pred_class, target_class, prediction_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Index, rec.Stem, rec.Label, rec.Chamfer, rec.Correct, rec.PredClass, rec.TargetClass, rec.PredictionPath,
	)
	return errors.Wrapf(err, "insert sample %d of run %s", rec.Index, runID)
}

// FinishRun stores the final metrics of a run.
func (s *Store) FinishRun(runID string, chamfer, accuracy float64) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, chamfer = ?, accuracy = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), chamfer, accuracy, runID,
	)
	if err != nil {
		return errors.Wrapf(err, "finish run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Errorf("run %s not found", runID)
	}
	return nil
}

// Run loads a run by id.
func (s *Store) Run(runID string) (RunRecord, error) {
	var (
		rec               RunRecord
		started           string
		finished          sql.NullString
		chamfer, accuracy sql.NullFloat64
	)
	err := s.db.QueryRow(
		`SELECT run_id, mode, split, model_name, datatype, data_dir, seed, started_at, finished_at, chamfer, accuracy
		 FROM runs WHERE run_id = ?`, runID,
	).Scan(&rec.ID, &rec.Mode, &rec.Split, &rec.ModelName, &rec.Datatype, &rec.DataDir, &rec.Seed,
		&started, &finished, &chamfer, &accuracy)
	if err != nil {
		return RunRecord{}, errors.Wrapf(err, "query run %s", runID)
	}
	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return RunRecord{}, errors.Wrap(err, "parse started_at")
	}
	if finished.Valid {
		if rec.FinishedAt, err = time.Parse(time.RFC3339Nano, finished.String); err != nil {
			return RunRecord{}, errors.Wrap(err, "parse finished_at")
		}
	}
	rec.Chamfer = chamfer.Float64
	rec.Accuracy = accuracy.Float64
	return rec, nil
}

// Samples returns the samples of a run in loop order.
func (s *Store) Samples(runID string) ([]SampleRecord, error) {
	rows, err := s.db.Query(
		`SELECT idx, stem, label, chamfer, correct, pred_class, target_class, prediction_path
		 FROM samples WHERE run_id = ? ORDER BY idx`, runID,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "query samples of run %s", runID)
	}
	defer rows.Close()

	var out []SampleRecord
	for rows.Next() {
		var r SampleRecord
		if err := rows.Scan(&r.Index, &r.Stem, &r.Label, &r.Chamfer, &r.Correct, &r.PredClass, &r.TargetClass, &r.PredictionPath); err != nil {
			return nil, errors.Wrap(err, "scan sample")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterate samples")
}
