// Package loader streams one archive dump file per record type into its
// PostgreSQL stats table: validate and transform line by line, upsert in
// batches keyed on (id, data_date), and report counts for the run.
package loader

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	_ "github.com/lib/pq"

	"github.com/bangumi-archive/stats-loader/internal/config"
	"github.com/bangumi-archive/stats-loader/internal/dump"
)

// ErrUnsupportedType is returned by New for a record type name outside the
// character/person/subject set.
var ErrUnsupportedType = errors.New("unsupported record type")

// ErrConnect marks a failure to reach the database. Unlike record or batch
// errors it is fatal: no partial work is attempted without a connection,
// and callers abort the run instead of moving to the next snapshot.
var ErrConnect = errors.New("database unreachable")

// Processor loads one record type. It holds a single database connection
// for its lifetime; everything runs serially on it.
type Processor struct {
	spec      dump.Spec
	dbCfg     config.DatabaseConfig
	batchSize int
	db        *sql.DB
}

// New creates the Processor for a record type name.
func New(recordType string, cfg *config.Config) (*Processor, error) {
	t, ok := dump.ParseType(strings.ToLower(strings.TrimSpace(recordType)))
	if !ok {
		supported := make([]string, 0, len(dump.Types()))
		for _, dt := range dump.Types() {
			supported = append(supported, string(dt))
		}
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedType, recordType, strings.Join(supported, ", "))
	}
	spec, _ := dump.SpecFor(t)
	return &Processor{
		spec:      spec,
		dbCfg:     cfg.Database,
		batchSize: cfg.Batch.Size,
	}, nil
}

// Type returns the processor's record type name.
func (p *Processor) Type() string { return string(p.spec.Type) }

// Connect opens the processor's database connection and verifies it.
// Failure is fatal to the run; nothing is attempted without a connection.
func (p *Processor) Connect(ctx context.Context) error {
	db, err := sql.Open("postgres", p.dbCfg.DSN())
	if err != nil {
		return fmt.Errorf("%w: open: %v", ErrConnect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: %s:%d/%s: %v", ErrConnect, p.dbCfg.Host, p.dbCfg.Port, p.dbCfg.Name, err)
	}
	p.db = db
	return nil
}

// EnsureSchema creates the destination table and its indexes if missing.
// The DDL is idempotent and safe to run every time.
func (p *Processor) EnsureSchema(ctx context.Context) error {
	for _, stmt := range p.spec.DDL {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema for %s: %w", p.spec.Table, err)
		}
	}
	return nil
}

// ProcessFile streams one jsonlines file into the destination table and
// returns the run's counts. dataDate stamps every row; limit > 0 caps how
// many records are read. Bad lines and rejected records are tallied, never
// fatal; a missing file is.
func (p *Processor) ProcessFile(ctx context.Context, path, dataDate string, limit int) (Stats, error) {
	var st Stats

	lines, err := dump.OpenLines(path)
	if err != nil {
		return st, err
	}
	defer lines.Close()

	log.Printf("%s: processing %s (data_date=%s)", p.spec.Type, path, dataDate)

	up := newBatchUpserter(p.db, p.spec, p.batchSize)
	for lines.Scan() {
		if limit > 0 && st.TotalRead >= limit {
			break
		}
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			st.Skipped++
			continue
		}
		st.TotalRead++

		var raw map[string]any
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			log.Printf("%s: line %d: bad json: %v", p.spec.Type, lines.LineNum(), err)
			st.Failed++
			continue
		}
		row, err := p.spec.Transform(raw, dataDate)
		if err != nil {
			log.Printf("%s: line %d: %v", p.spec.Type, lines.LineNum(), err)
			st.Failed++
			continue
		}
		up.add(ctx, row, &st)
	}
	if err := lines.Err(); err != nil {
		up.flush(ctx, &st)
		return st, fmt.Errorf("read %s: %w", path, err)
	}
	up.flush(ctx, &st)

	log.Printf("%s: done %s: %s", p.spec.Type, path, st)
	return st, nil
}

// Close releases the database connection. Safe to call when Connect never
// succeeded.
func (p *Processor) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
