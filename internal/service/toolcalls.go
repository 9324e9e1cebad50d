package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentfs/agentfs/internal/models"
	"github.com/agentfs/agentfs/internal/pkg/fserrors"
	"github.com/agentfs/agentfs/internal/repository"
	"github.com/agentfs/agentfs/pkg/logging"
)

var (
	// ErrToolCallNotFound reports a completion attempt against an unknown id.
	ErrToolCallNotFound = errors.New("tool call not found")

	// ErrToolCallCompleted reports a second completion attempt. The
	// pending -> terminal transition is one-shot; the first outcome stands.
	ErrToolCallCompleted = errors.New("tool call already completed")
)

// ToolCallService records the audit trail of agent tool invocations.
type ToolCallService interface {
	// Start records a pending call and returns its id.
	Start(ctx context.Context, name string, params json.RawMessage) (int64, error)
	// Success completes a pending call with a result.
	Success(ctx context.Context, id int64, result json.RawMessage) error
	// Error completes a pending call with an error message.
	Error(ctx context.Context, id int64, message string) error
	// Record stores a call whose outcome is already known, in one shot.
	// A non-empty errMsg marks it failed; otherwise it is successful.
	Record(ctx context.Context, name string, startedAt, completedAt int64, params, result json.RawMessage, errMsg string) (int64, error)
	// Get returns the call with the given id, or nil when unknown.
	Get(ctx context.Context, id int64) (*models.ToolCall, error)
	// List returns calls most recent first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]models.ToolCall, error)
	// StatsFor aggregates calls sharing a name; nil when there are none.
	StatsFor(ctx context.Context, name string) (*models.ToolCallStats, error)
}

type toolCallService struct {
	repo repository.ToolCallRepository
}

func NewToolCallService(repo repository.ToolCallRepository) ToolCallService {
	return &toolCallService{repo: repo}
}

func (s *toolCallService) Start(ctx context.Context, name string, params json.RawMessage) (int64, error) {
	const op = "service.toolCallService.Start"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Start", slog.String("name", name))

	if len(params) > 0 && !json.Valid(params) {
		return 0, fserrors.Serialization(fmt.Errorf("params is not valid JSON"))
	}

	id, err := s.repo.Create(ctx, name, params, now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}

	logger.Debug("Recorded pending call", slog.Int64("id", id))
	return id, nil
}

func (s *toolCallService) Success(ctx context.Context, id int64, result json.RawMessage) error {
	const op = "service.toolCallService.Success"

	if len(result) > 0 && !json.Valid(result) {
		return fserrors.Serialization(fmt.Errorf("result is not valid JSON"))
	}

	return s.complete(ctx, op, id, models.ToolCallSuccess, result, "")
}

func (s *toolCallService) Error(ctx context.Context, id int64, message string) error {
	const op = "service.toolCallService.Error"

	return s.complete(ctx, op, id, models.ToolCallError, nil, message)
}

func (s *toolCallService) complete(ctx context.Context, op string, id int64, status models.ToolCallStatus, result json.RawMessage, errMsg string) error {
	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Completing call", slog.Int64("id", id), slog.String("status", string(status)))

	updated, err := s.repo.Complete(ctx, id, status, result, errMsg, now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}
	if updated {
		return nil
	}

	// The guarded update touched nothing: either the id is unknown or the
	// call already reached a terminal status.
	call, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}
	if call == nil {
		return fmt.Errorf("%s: %w", op, ErrToolCallNotFound)
	}
	return fmt.Errorf("%s: %w", op, ErrToolCallCompleted)
}

func (s *toolCallService) Record(ctx context.Context, name string, startedAt, completedAt int64, params, result json.RawMessage, errMsg string) (int64, error) {
	const op = "service.toolCallService.Record"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Record", slog.String("name", name))

	if len(params) > 0 && !json.Valid(params) {
		return 0, fserrors.Serialization(fmt.Errorf("params is not valid JSON"))
	}
	if len(result) > 0 && !json.Valid(result) {
		return 0, fserrors.Serialization(fmt.Errorf("result is not valid JSON"))
	}

	status := models.ToolCallSuccess
	if errMsg != "" {
		status = models.ToolCallError
	}

	durationMS := (completedAt - startedAt) * 1000

	id, err := s.repo.Insert(ctx, &models.ToolCall{
		Name:        name,
		Params:      params,
		Result:      result,
		Error:       errMsg,
		Status:      status,
		StartedAt:   startedAt,
		CompletedAt: &completedAt,
		DurationMS:  &durationMS,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}

	return id, nil
}

func (s *toolCallService) Get(ctx context.Context, id int64) (*models.ToolCall, error) {
	const op = "service.toolCallService.Get"

	call, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}
	return call, nil
}

func (s *toolCallService) List(ctx context.Context, limit int) ([]models.ToolCall, error) {
	const op = "service.toolCallService.List"

	calls, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}
	return calls, nil
}

func (s *toolCallService) StatsFor(ctx context.Context, name string) (*models.ToolCallStats, error) {
	const op = "service.toolCallService.StatsFor"

	stats, err := s.repo.StatsFor(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}
	return stats, nil
}
