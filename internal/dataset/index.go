// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/datakit/internal/dataset/migrations"
	"github.com/pdiddy/datakit/pkg/types"
)

// Index is the SQLite mirror of the dataset registry. It exists for
// queries that span datasets, such as listing files across the whole
// project; the YAML documents stay authoritative and the index can be
// rebuilt from them at any time.
type Index struct {
	db *sql.DB
}

// OpenIndex opens or creates the index database at path and applies any
// pending schema migrations.
func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

// Close releases the database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// UpsertDataset replaces the indexed rows for one dataset with the given
// state. mtime is the modification time of the dataset's YAML document,
// in unix nanoseconds, used by Reindex to skip unchanged documents.
func (ix *Index) UpsertDataset(ctx context.Context, ds *types.Dataset, mtime int64) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO datasets (identifier, name, created, authors, yaml_mtime)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(identifier) DO UPDATE SET
			name=excluded.name, created=excluded.created,
			authors=excluded.authors, yaml_mtime=excluded.yaml_mtime`,
		ds.Identifier, ds.Name, ds.Created.UnixNano(), ds.AuthorsCSV(), mtime,
	)
	if err != nil {
		return fmt.Errorf("upserting dataset %s: %w", ds.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE dataset = ?`, ds.Name); err != nil {
		return fmt.Errorf("clearing file rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (dataset, path, url, checksum, size, filetype, added, authors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing file insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range ds.Files {
		_, err := stmt.ExecContext(ctx,
			ds.Name, rec.Path, rec.URL, rec.Checksum, rec.Size,
			rec.Filetype, rec.Added.UnixNano(), rec.AuthorsCSV(),
		)
		if err != nil {
			return fmt.Errorf("inserting file %s: %w", rec.Path, err)
		}
	}

	return tx.Commit()
}

// DeleteDataset drops a dataset and its file rows from the index.
func (ix *Index) DeleteDataset(ctx context.Context, name string) error {
	if _, err := ix.db.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting dataset %s from index: %w", name, err)
	}
	return nil
}

// DatasetMtimes returns the indexed YAML modification time per dataset
// name.
func (ix *Index) DatasetMtimes(ctx context.Context) (map[string]int64, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT name, yaml_mtime FROM datasets`)
	if err != nil {
		return nil, fmt.Errorf("querying dataset mtimes: %w", err)
	}
	defer rows.Close()

	mtimes := make(map[string]int64)
	for rows.Next() {
		var name string
		var mtime int64
		if err := rows.Scan(&name, &mtime); err != nil {
			return nil, err
		}
		mtimes[name] = mtime
	}
	return mtimes, rows.Err()
}

// FileQuery narrows a file listing. Zero values leave a dimension
// unfiltered.
type FileQuery struct {
	// Datasets restricts the listing to the named datasets.
	Datasets []string

	// Include keeps only files matching at least one glob.
	Include []string

	// Exclude drops files matching any glob. Applied after Include.
	Exclude []string

	// Authors keeps only files credited to at least one of the named
	// people.
	Authors []string
}

// Files returns file records ordered by added time (then dataset and
// path for stability). Glob and author filters run on the loaded rows;
// the index narrows by dataset. Author attribution in the result carries
// names only; the index does not store emails or affiliations.
func (ix *Index) Files(ctx context.Context, q FileQuery) ([]types.FileRecord, error) {
	var b strings.Builder
	b.WriteString(`SELECT dataset, path, url, checksum, size, filetype, added, authors FROM files`)

	var args []any
	if len(q.Datasets) > 0 {
		b.WriteString(` WHERE dataset IN (`)
		for i, name := range q.Datasets {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, name)
		}
		b.WriteString(`)`)
	}
	b.WriteString(` ORDER BY added, dataset, path`)

	rows, err := ix.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var records []types.FileRecord
	for rows.Next() {
		var rec types.FileRecord
		var added int64
		var authorsCSV string
		if err := rows.Scan(&rec.Dataset, &rec.Path, &rec.URL, &rec.Checksum,
			&rec.Size, &rec.Filetype, &added, &authorsCSV); err != nil {
			return nil, err
		}
		rec.Added = time.Unix(0, added).UTC()
		for _, name := range strings.Split(authorsCSV, ",") {
			if name != "" {
				rec.Authors = append(rec.Authors, types.Author{Name: name})
			}
		}

		if !matchQuery(rec, q) {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func matchQuery(rec types.FileRecord, q FileQuery) bool {
	if len(q.Include) > 0 {
		included := false
		for _, pattern := range q.Include {
			if MatchGlob(rec.Path, pattern) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	for _, pattern := range q.Exclude {
		if MatchGlob(rec.Path, pattern) {
			return false
		}
	}

	if len(q.Authors) > 0 {
		matched := false
	outer:
		for _, want := range q.Authors {
			for _, a := range rec.Authors {
				if a.Name == want {
					matched = true
					break outer
				}
			}
		}
		if !matched {
			return false
		}
	}

	return true
}
