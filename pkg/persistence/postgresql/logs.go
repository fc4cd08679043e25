package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

// LogRepository stores execution log entries in execution_logs.
type LogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewLogRepository(db *sql.DB, logger *slog.Logger) *LogRepository {
	return &LogRepository{db: db, logger: logger}
}

func (r *LogRepository) Insert(ctx context.Context, entry *models.LogEntry) error {
	contextJSON, err := json.Marshal(entry.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal log context: %w", err)
	}

	if entry.Context == nil {
		contextJSON = []byte("{}")
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO execution_logs (workflow_id, trigger_name, level, message, context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = r.db.QueryRowContext(ctx, query,
		entry.WorkflowID,
		entry.Trigger,
		entry.Level,
		entry.Message,
		contextJSON,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	return nil
}

func (r *LogRepository) Query(ctx context.Context, filter persistence.LogFilter) (persistence.LogPage, error) {
	filter = filter.Normalize()

	var (
		where []string
		args  []any
	)

	if filter.WorkflowID != "" {
		args = append(args, filter.WorkflowID)
		where = append(where, "workflow_id = $"+strconv.Itoa(len(args)))
	}

	if filter.Level != "" {
		args = append(args, filter.Level)
		where = append(where, "level = $"+strconv.Itoa(len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	page := persistence.LogPage{Items: []*models.LogEntry{}}

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM execution_logs "+whereClause, args...).Scan(&page.Total)
	if err != nil {
		return page, fmt.Errorf("failed to count log entries: %w", err)
	}

	dataQuery := fmt.Sprintf(`
		SELECT id, workflow_id, trigger_name, level, message, context, created_at
		FROM execution_logs
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, dataQuery, append(args, filter.PerPage, filter.Offset())...)
	if err != nil {
		return page, fmt.Errorf("failed to query log entries: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	for rows.Next() {
		var (
			entry       models.LogEntry
			contextJSON []byte
		)

		err := rows.Scan(&entry.ID, &entry.WorkflowID, &entry.Trigger, &entry.Level, &entry.Message, &contextJSON, &entry.CreatedAt)
		if err != nil {
			return page, fmt.Errorf("failed to scan log entry: %w", err)
		}

		err = json.Unmarshal(contextJSON, &entry.Context)
		if err != nil {
			return page, fmt.Errorf("failed to unmarshal log context: %w", err)
		}

		entry.CreatedAt = entry.CreatedAt.UTC()
		page.Items = append(page.Items, &entry)
	}

	err = rows.Err()
	if err != nil {
		return page, fmt.Errorf("error iterating log entries: %w", err)
	}

	return page, nil
}

func (r *LogRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM execution_logs WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge log entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return deleted, nil
}
