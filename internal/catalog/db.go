// Package catalog keeps a sqlite registry of every imported point-cloud
// dataset: where it came from, where the saved parquet lives, and enough
// shape metadata to list and reload datasets without opening their files.
package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the catalog database and applies pragmas suited
// to a single-writer batch workload.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return &DB{db}, nil
}

// Dataset is one catalogued point cloud.
type Dataset struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Dim        int     `json:"dim"`
	Channels   []int64 `json:"channels"`
	Rows       int64   `json:"rows"`
	SourcePath string  `json:"source_path"`
	SavedPath  string  `json:"saved_path"`
	ImportedAt int64   `json:"imported_unix_nanos"`
}

// RecordDataset inserts a dataset row and returns its generated ID.
func (db *DB) RecordDataset(d Dataset) (string, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.ImportedAt == 0 {
		d.ImportedAt = time.Now().UnixNano()
	}
	channels, err := json.Marshal(d.Channels)
	if err != nil {
		return "", err
	}
	_, err = db.Exec(
		`INSERT INTO datasets (
			dataset_id, name, dim, channels_json, row_count,
			source_path, saved_path, imported_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Dim, string(channels), d.Rows,
		d.SourcePath, d.SavedPath, d.ImportedAt,
	)
	if err != nil {
		return "", fmt.Errorf("record dataset %q: %w", d.Name, err)
	}
	return d.ID, nil
}

// UpdateSavedPath points a dataset at its (re)saved parquet file.
func (db *DB) UpdateSavedPath(id, savedPath string) error {
	res, err := db.Exec(`UPDATE datasets SET saved_path = ? WHERE dataset_id = ?`, savedPath, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetDataset fetches one dataset by ID. Returns sql.ErrNoRows when absent.
func (db *DB) GetDataset(id string) (Dataset, error) {
	row := db.QueryRow(
		`SELECT dataset_id, name, dim, channels_json, row_count,
			source_path, saved_path, imported_unix_nanos
		 FROM datasets WHERE dataset_id = ?`, id)
	return scanDataset(row)
}

// ListDatasets returns all datasets, newest first.
func (db *DB) ListDatasets() ([]Dataset, error) {
	rows, err := db.Query(
		`SELECT dataset_id, name, dim, channels_json, row_count,
			source_path, saved_path, imported_unix_nanos
		 FROM datasets ORDER BY imported_unix_nanos DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset row (the saved file is left alone).
func (db *DB) DeleteDataset(id string) error {
	res, err := db.Exec(`DELETE FROM datasets WHERE dataset_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(r rowScanner) (Dataset, error) {
	var d Dataset
	var channelsJSON string
	err := r.Scan(&d.ID, &d.Name, &d.Dim, &channelsJSON, &d.Rows,
		&d.SourcePath, &d.SavedPath, &d.ImportedAt)
	if err != nil {
		return Dataset{}, err
	}
	if err := json.Unmarshal([]byte(channelsJSON), &d.Channels); err != nil {
		return Dataset{}, fmt.Errorf("dataset %s: bad channels_json: %w", d.ID, err)
	}
	return d, nil
}
