package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentfs/agentfs/internal/models"
	"github.com/agentfs/agentfs/pkg/database"
)

type ToolCallRepository interface {
	// Create inserts a pending call and returns its store-generated id.
	Create(ctx context.Context, name string, params json.RawMessage, startedAt int64) (int64, error)
	// Insert stores an already-completed call (the one-shot record API).
	Insert(ctx context.Context, call *models.ToolCall) (int64, error)
	Get(ctx context.Context, id int64) (*models.ToolCall, error)
	// Complete flips a pending call to its terminal status. Returns false
	// when the call was not pending, leaving it untouched.
	Complete(ctx context.Context, id int64, status models.ToolCallStatus, result json.RawMessage, errMsg string, completedAt int64) (bool, error)
	List(ctx context.Context, limit int) ([]models.ToolCall, error)
	// StatsFor aggregates all calls sharing a name; nil when there are none.
	StatsFor(ctx context.Context, name string) (*models.ToolCallStats, error)
}

type toolCallRepository struct {
	db database.Store
}

func NewToolCallRepository(db database.Store) ToolCallRepository {
	return &toolCallRepository{db: db}
}

func (r *toolCallRepository) Create(ctx context.Context, name string, params json.RawMessage, startedAt int64) (int64, error) {
	const op = "repository.toolCallRepository.Create"

	query := `
		INSERT INTO tool_calls (name, params, status, started_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	row, err := r.db.QueryRow(ctx, query, name, nullableText(params), string(models.ToolCallPending), startedAt)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := row.Int64("id")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *toolCallRepository) Insert(ctx context.Context, call *models.ToolCall) (int64, error) {
	const op = "repository.toolCallRepository.Insert"

	query := `
		INSERT INTO tool_calls (name, params, result, error, status, started_at, completed_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var errMsg any
	if call.Error != "" {
		errMsg = call.Error
	}

	row, err := r.db.QueryRow(ctx, query,
		call.Name,
		nullableText(call.Params),
		nullableText(call.Result),
		errMsg,
		string(call.Status),
		call.StartedAt,
		call.CompletedAt,
		call.DurationMS,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := row.Int64("id")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *toolCallRepository) Get(ctx context.Context, id int64) (*models.ToolCall, error) {
	const op = "repository.toolCallRepository.Get"

	query := `
		SELECT id, name, params, result, error, status, started_at, completed_at, duration_ms
		FROM tool_calls
		WHERE id = $1
	`

	row, err := r.db.QueryRow(ctx, query, id)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	call, err := scanToolCall(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return call, nil
}

func (r *toolCallRepository) Complete(ctx context.Context, id int64, status models.ToolCallStatus, result json.RawMessage, errMsg string, completedAt int64) (bool, error) {
	const op = "repository.toolCallRepository.Complete"

	// The guard on status makes the pending -> terminal transition one-shot;
	// duration is computed against the stored start time.
	query := `
		UPDATE tool_calls
		SET status = $2,
		    result = $3,
		    error = $4,
		    completed_at = $5,
		    duration_ms = ($5 - started_at) * 1000
		WHERE id = $1 AND status = $6
	`

	var errVal any
	if errMsg != "" {
		errVal = errMsg
	}

	affected, err := r.db.Exec(ctx, query,
		id,
		string(status),
		nullableText(result),
		errVal,
		completedAt,
		string(models.ToolCallPending),
	)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return affected > 0, nil
}

func (r *toolCallRepository) List(ctx context.Context, limit int) ([]models.ToolCall, error) {
	const op = "repository.toolCallRepository.List"

	query := `
		SELECT id, name, params, result, error, status, started_at, completed_at, duration_ms
		FROM tool_calls
		ORDER BY started_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, int64(limit))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	calls := make([]models.ToolCall, 0, len(rows))
	for _, row := range rows {
		call, err := scanToolCall(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		calls = append(calls, *call)
	}

	return calls, nil
}

func (r *toolCallRepository) StatsFor(ctx context.Context, name string) (*models.ToolCallStats, error) {
	const op = "repository.toolCallRepository.StatsFor"

	query := `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) AS successful,
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0) AS failed,
			CAST(COALESCE(AVG(duration_ms), 0) AS DOUBLE PRECISION) AS avg_duration_ms
		FROM tool_calls
		WHERE name = $1
	`

	row, err := r.db.QueryRow(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := models.ToolCallStats{Name: name}
	if stats.TotalCalls, err = row.Int64("total"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.TotalCalls == 0 {
		return nil, nil
	}
	if stats.Successful, err = row.Int64("successful"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.Failed, err = row.Int64("failed"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stats.AvgDurationMS, err = row.Float64("avg_duration_ms"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &stats, nil
}

// nullableText binds raw JSON as TEXT, or NULL when empty.
func nullableText(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func scanToolCall(row database.Row) (*models.ToolCall, error) {
	var call models.ToolCall
	var err error

	if call.ID, err = row.Int64("id"); err != nil {
		return nil, err
	}
	if call.Name, err = row.String("name"); err != nil {
		return nil, err
	}

	if row.Has("params") {
		s, err := row.String("params")
		if err != nil {
			return nil, err
		}
		call.Params = json.RawMessage(s)
	}
	if row.Has("result") {
		s, err := row.String("result")
		if err != nil {
			return nil, err
		}
		call.Result = json.RawMessage(s)
	}
	if row.Has("error") {
		if call.Error, err = row.String("error"); err != nil {
			return nil, err
		}
	}

	status, err := row.String("status")
	if err != nil {
		return nil, err
	}
	call.Status = models.ToolCallStatus(status)

	if call.StartedAt, err = row.Int64("started_at"); err != nil {
		return nil, err
	}

	if row.Has("completed_at") {
		completedAt, err := row.Int64("completed_at")
		if err != nil {
			return nil, err
		}
		call.CompletedAt = &completedAt
	}
	if row.Has("duration_ms") {
		durationMS, err := row.Int64("duration_ms")
		if err != nil {
			return nil, err
		}
		call.DurationMS = &durationMS
	}

	return &call, nil
}
