package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

// ArchiveStore serves the session from memory and mirrors every append
// into a SQLite database. It is only used when an archive path is given.
type ArchiveStore struct {
	*MemoryStore
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenArchive opens (or creates) the SQLite archive at path.
func OpenArchive(path string) (*ArchiveStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	store := &ArchiveStore{MemoryStore: NewMemoryStore(), db: db, path: path}
	if err := store.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive %s: %w", path, err)
	}
	return store, nil
}

func (s *ArchiveStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS exchanges (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		timestamp TEXT,
		prompt TEXT,
		model TEXT,
		model_response TEXT,
		command TEXT,
		explanation TEXT,
		result TEXT
	);`)
	return err
}

// Append records the exchange in memory, then in the archive. The in-memory
// entry is kept even when the archive write fails.
func (s *ArchiveStore) Append(ctx context.Context, exchange domain.Exchange) error {
	if err := s.MemoryStore.Append(ctx, exchange); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO exchanges
		(id, timestamp, prompt, model, model_response, command, explanation, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		exchange.ID,
		exchange.Timestamp.Format(domain.TimestampFormat),
		exchange.Prompt,
		exchange.Model,
		exchange.ModelResponse,
		exchange.Command,
		exchange.Explanation,
		exchange.Result,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrArchiveWrite, err)
	}
	return nil
}

// Records returns archived exchanges in append order (limit/search optional).
// A positive limit keeps the newest entries.
func (s *ArchiveStore) Records(ctx context.Context, limit int, search string) ([]domain.Exchange, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT id, timestamp, prompt, model, model_response, command, explanation, result FROM exchanges")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE prompt LIKE ? OR command LIKE ?")
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	builder.WriteString(" ORDER BY seq DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Exchange
	for rows.Next() {
		var rec domain.Exchange
		var ts string
		if err := rows.Scan(&rec.ID, &ts, &rec.Prompt, &rec.Model, &rec.ModelResponse, &rec.Command, &rec.Explanation, &rec.Result); err != nil {
			return nil, err
		}
		if t, err := time.Parse(domain.TimestampFormat, ts); err == nil {
			rec.Timestamp = t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

type exportRecord struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Prompt        string    `json:"prompt"`
	Model         string    `json:"model"`
	ModelResponse string    `json:"model_response"`
	Command       string    `json:"command,omitempty"`
	Explanation   string    `json:"explanation,omitempty"`
	Result        string    `json:"result,omitempty"`
}

// ExportJSON writes archived exchanges to w as JSON lines.
func (s *ArchiveStore) ExportJSON(ctx context.Context, w io.Writer) error {
	records, err := s.Records(ctx, 0, "")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(exportRecord(rec)); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the sqlite database path.
func (s *ArchiveStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *ArchiveStore) Close() error {
	return s.db.Close()
}

var _ ports.HistoryRepository = (*ArchiveStore)(nil)
