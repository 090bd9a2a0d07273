package mysqlsink

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/aggregate"
)

// ImportArtifact loads one merged aggregate artifact into the target table
// with batched upserts, inside a single transaction. The table shape follows
// the row shape: plain counting rows carry one total column, baseline rows
// carry active/inactive/baseline columns.
func ImportArtifact(ctx context.Context, db *sql.DB, cfg SinkConfig, mode aggregate.Mode, artifact string) error {
	cfg.WithDefaults()
	if cfg.TargetTable == "" {
		return fmt.Errorf("target table is required")
	}
	table, err := quoteIdentifier(cfg.TargetTable)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if mode == aggregate.ModeActive {
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  agg_key VARCHAR(255) NOT NULL,
  active BIGINT NOT NULL,
  inactive BIGINT NOT NULL,
  baseline BIGINT NOT NULL,
  PRIMARY KEY (agg_key)
)`, table))
	} else {
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  agg_key VARCHAR(255) NOT NULL,
  total BIGINT NOT NULL,
  PRIMARY KEY (agg_key)
)`, table))
	}
	if err != nil {
		return err
	}

	if cfg.Replace {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`TRUNCATE TABLE %s`, table)); err != nil {
			return err
		}
	}

	if err := loadArtifact(ctx, tx, table, cfg.BatchSize, mode, artifact); err != nil {
		return err
	}
	return tx.Commit()
}

func loadArtifact(ctx context.Context, tx *sql.Tx, table string, batchSize int, mode aggregate.Mode, artifact string) error {
	cols := 2
	insertSQL := fmt.Sprintf("INSERT INTO %s (agg_key, total) VALUES %%s ON DUPLICATE KEY UPDATE total=VALUES(total)", table)
	placeholder := "(?, ?)"
	if mode == aggregate.ModeActive {
		cols = 4
		insertSQL = fmt.Sprintf("INSERT INTO %s (agg_key, active, inactive, baseline) VALUES %%s "+
			"ON DUPLICATE KEY UPDATE active=VALUES(active), inactive=VALUES(inactive), baseline=VALUES(baseline)", table)
		placeholder = "(?, ?, ?, ?)"
	}

	batch := make([]interface{}, 0, batchSize*cols)
	rows := 0
	flush := func() error {
		if rows == 0 {
			return nil
		}
		valueSQL := strings.TrimSuffix(strings.Repeat(placeholder+",", rows), ",")
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(insertSQL, valueSQL), batch...); err != nil {
			return err
		}
		batch = batch[:0]
		rows = 0
		return nil
	}

	f, err := os.Open(artifact)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		args, err := parseRow(mode, line)
		if err != nil {
			return fmt.Errorf("%s: %w", artifact, err)
		}
		batch = append(batch, args...)
		rows++
		if rows >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

// parseRow decodes one artifact row back into insert arguments.
//
// Baseline-carrying: "{key}\t{active},{inactive}\t{baseline}"
// Plain:             "{key}\t{count}"
func parseRow(mode aggregate.Mode, line string) ([]interface{}, error) {
	fields := strings.Split(line, "\t")
	if mode == aggregate.ModeActive {
		if len(fields) != 3 {
			return nil, fmt.Errorf("bad artifact row %q: want 3 columns, got %d", line, len(fields))
		}
		split := strings.Split(fields[1], ",")
		if len(split) != 2 {
			return nil, fmt.Errorf("bad artifact row %q: want active,inactive pair", line)
		}
		active, err := strconv.ParseInt(split[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad active count in row %q: %w", line, err)
		}
		inactive, err := strconv.ParseInt(split[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad inactive count in row %q: %w", line, err)
		}
		baseline, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad baseline in row %q: %w", line, err)
		}
		return []interface{}{fields[0], active, inactive, baseline}, nil
	}

	if len(fields) != 2 {
		return nil, fmt.Errorf("bad artifact row %q: want 2 columns, got %d", line, len(fields))
	}
	total, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad count in row %q: %w", line, err)
	}
	return []interface{}{fields[0], total}, nil
}
