package kb

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type importRecord struct {
	QID     string   `json:"qid"`
	Label   string   `json:"label"`
	Score   *float64 `json:"score"`
	Aliases []string `json:"aliases"`
}

// ImportJSONL loads entity records from a JSONL dump into the store,
// replacing existing rows for the same QID. Each line holds
// {"qid","label","score","aliases"}. Returns the number of entities imported.
func (s *Store) ImportJSONL(ctx context.Context, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open import file: %w", err)
	}
	defer file.Close()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	entityStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entities (qid, label, score) VALUES (?, ?, ?)
		 ON CONFLICT(qid) DO UPDATE SET label = excluded.label, score = excluded.score`)
	if err != nil {
		return 0, fmt.Errorf("prepare entity insert: %w", err)
	}
	defer entityStmt.Close()

	aliasClearStmt, err := tx.PrepareContext(ctx, `DELETE FROM aliases WHERE qid = ?`)
	if err != nil {
		return 0, fmt.Errorf("prepare alias clear: %w", err)
	}
	defer aliasClearStmt.Close()

	aliasStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO aliases (alias, qid) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare alias insert: %w", err)
	}
	defer aliasStmt.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	imported := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record importRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return 0, fmt.Errorf("import line %d: %w", lineNo, err)
		}
		record.QID = strings.TrimSpace(record.QID)
		record.Label = strings.TrimSpace(record.Label)
		if record.QID == "" || record.Label == "" {
			return 0, fmt.Errorf("import line %d: qid and label required", lineNo)
		}

		var score any
		if record.Score != nil {
			score = *record.Score
		}
		if _, err := entityStmt.ExecContext(ctx, record.QID, record.Label, score); err != nil {
			return 0, fmt.Errorf("import line %d: %w", lineNo, err)
		}
		if _, err := aliasClearStmt.ExecContext(ctx, record.QID); err != nil {
			return 0, fmt.Errorf("import line %d: %w", lineNo, err)
		}
		for _, alias := range record.Aliases {
			alias = strings.TrimSpace(alias)
			if alias == "" {
				continue
			}
			if _, err := aliasStmt.ExecContext(ctx, alias, record.QID); err != nil {
				return 0, fmt.Errorf("import line %d: %w", lineNo, err)
			}
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read import file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return imported, nil
}
