package service

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/agentfs/agentfs/internal/models"
	"github.com/agentfs/agentfs/internal/pkg/fserrors"
)

func TestToolCallLifecycleSuccess(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	id, err := agent.Tools.Start(ctx, "read_file", json.RawMessage(`{"path":"/a"}`))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	call, err := agent.Tools.Get(ctx, id)
	if err != nil || call == nil {
		t.Fatalf("Get: %v, %v", call, err)
	}
	if call.Status != models.ToolCallPending {
		t.Errorf("Status = %q, want pending", call.Status)
	}
	if call.CompletedAt != nil {
		t.Error("pending call has a completion time")
	}

	if err := agent.Tools.Success(ctx, id, json.RawMessage(`{"content":"hi"}`)); err != nil {
		t.Fatalf("Success: %v", err)
	}

	call, err = agent.Tools.Get(ctx, id)
	if err != nil || call == nil {
		t.Fatalf("Get after success: %v, %v", call, err)
	}
	if call.Status != models.ToolCallSuccess {
		t.Errorf("Status = %q, want success", call.Status)
	}
	if call.CompletedAt == nil || call.DurationMS == nil {
		t.Error("completed call is missing completion time or duration")
	}
	if string(call.Result) != `{"content":"hi"}` {
		t.Errorf("Result = %s", call.Result)
	}
}

func TestToolCallLifecycleError(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	id, err := agent.Tools.Start(ctx, "write_file", nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := agent.Tools.Error(ctx, id, "disk full"); err != nil {
		t.Fatalf("Error: %v", err)
	}

	call, err := agent.Tools.Get(ctx, id)
	if err != nil || call == nil {
		t.Fatalf("Get: %v, %v", call, err)
	}
	if call.Status != models.ToolCallError {
		t.Errorf("Status = %q, want error", call.Status)
	}
	if call.Error != "disk full" {
		t.Errorf("Error = %q, want %q", call.Error, "disk full")
	}
}

func TestToolCallCompletionIsOneShot(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	id, err := agent.Tools.Start(ctx, "tool", nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := agent.Tools.Success(ctx, id, nil); err != nil {
		t.Fatalf("Success: %v", err)
	}

	// The first outcome stands; later attempts are rejected.
	err = agent.Tools.Success(ctx, id, nil)
	if !errors.Is(err, ErrToolCallCompleted) {
		t.Errorf("second Success = %v, want ErrToolCallCompleted", err)
	}
	err = agent.Tools.Error(ctx, id, "late failure")
	if !errors.Is(err, ErrToolCallCompleted) {
		t.Errorf("Error after Success = %v, want ErrToolCallCompleted", err)
	}

	call, err := agent.Tools.Get(ctx, id)
	if err != nil || call == nil {
		t.Fatalf("Get: %v, %v", call, err)
	}
	if call.Status != models.ToolCallSuccess {
		t.Errorf("Status = %q, want the original success", call.Status)
	}
}

func TestToolCallCompleteUnknownID(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	err := agent.Tools.Success(ctx, 9999, nil)
	if !errors.Is(err, ErrToolCallNotFound) {
		t.Errorf("Success on unknown id = %v, want ErrToolCallNotFound", err)
	}
}

func TestToolCallStartRejectsInvalidJSON(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	_, err := agent.Tools.Start(ctx, "tool", json.RawMessage(`{not json`))
	if !fserrors.Is(err, fserrors.KindSerialization) {
		t.Errorf("Start with invalid params = %v, want serialization error", err)
	}
}

func TestToolCallRecord(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	id, err := agent.Tools.Record(ctx, "batch_tool", 100, 103,
		json.RawMessage(`{"n":1}`), json.RawMessage(`{"ok":true}`), "")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	call, err := agent.Tools.Get(ctx, id)
	if err != nil || call == nil {
		t.Fatalf("Get: %v, %v", call, err)
	}
	if call.Status != models.ToolCallSuccess {
		t.Errorf("Status = %q, want success", call.Status)
	}
	if call.DurationMS == nil || *call.DurationMS != 3000 {
		t.Errorf("DurationMS = %v, want 3000", call.DurationMS)
	}

	failedID, err := agent.Tools.Record(ctx, "batch_tool", 200, 201, nil, nil, "timeout")
	if err != nil {
		t.Fatalf("Record failed call: %v", err)
	}
	failed, err := agent.Tools.Get(ctx, failedID)
	if err != nil || failed == nil {
		t.Fatalf("Get: %v, %v", failed, err)
	}
	if failed.Status != models.ToolCallError {
		t.Errorf("Status = %q, want error", failed.Status)
	}
}

func TestToolCallGetUnknown(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	call, err := agent.Tools.Get(ctx, 404)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if call != nil {
		t.Errorf("Get unknown id = %+v, want nil", call)
	}
}

func TestToolCallList(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	for i := 0; i < 5; i++ {
		if _, err := agent.Tools.Record(ctx, "t", int64(i), int64(i+1), nil, nil, ""); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := agent.Tools.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("List = %d calls, want 5", len(all))
	}

	// Most recent first.
	for i := 1; i < len(all); i++ {
		if all[i-1].StartedAt < all[i].StartedAt {
			t.Errorf("List not ordered: %d before %d", all[i-1].StartedAt, all[i].StartedAt)
		}
	}

	limited, err := agent.Tools.List(ctx, 2)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) = %d calls, want 2", len(limited))
	}
	if limited[0].StartedAt != 4 {
		t.Errorf("List(2) first StartedAt = %d, want 4", limited[0].StartedAt)
	}
}

func TestToolCallStats(t *testing.T) {
	agent, ctx := newTestAgentFS(t)

	if _, err := agent.Tools.Record(ctx, "search", 0, 2, nil, nil, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := agent.Tools.Record(ctx, "search", 10, 14, nil, nil, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := agent.Tools.Record(ctx, "search", 20, 21, nil, nil, "boom"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := agent.Tools.Record(ctx, "other", 0, 1, nil, nil, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	stats, err := agent.Tools.StatsFor(ctx, "search")
	if err != nil {
		t.Fatalf("StatsFor: %v", err)
	}
	if stats == nil {
		t.Fatal("StatsFor = nil for a tool with calls")
	}
	if stats.TotalCalls != 3 {
		t.Errorf("TotalCalls = %d, want 3", stats.TotalCalls)
	}
	if stats.Successful != 2 {
		t.Errorf("Successful = %d, want 2", stats.Successful)
	}
	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
	// Durations 2000, 4000 and 1000 ms.
	if stats.AvgDurationMS < 2333 || stats.AvgDurationMS > 2334 {
		t.Errorf("AvgDurationMS = %v, want about 2333.3", stats.AvgDurationMS)
	}

	none, err := agent.Tools.StatsFor(ctx, "never-called")
	if err != nil {
		t.Fatalf("StatsFor: %v", err)
	}
	if none != nil {
		t.Errorf("StatsFor unknown tool = %+v, want nil", none)
	}
}
