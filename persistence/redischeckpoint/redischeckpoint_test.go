package redischeckpoint

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/forgeflow/execorch/budget"
)

type fakeClient struct {
	key   string
	value any
	ttl   time.Duration
}

func (f *fakeClient) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.key = key
	f.value = value
	f.ttl = ttl
	return nil
}

func TestCheckpoint_WritesNamespacedKeyWithPayload(t *testing.T) {
	fc := &fakeClient{}
	cp := newWithClient(fc, "run-123", time.Hour, time.Second)

	statuses := map[string]string{"task-1": "succeeded"}
	if err := cp.Checkpoint(context.Background(), 1000, nil, statuses); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fc.key != "execorch:checkpoint:run-123" {
		t.Fatalf("unexpected key: %s", fc.key)
	}
	payload, ok := fc.value.([]byte)
	if !ok {
		t.Fatalf("expected []byte payload, got %T", fc.value)
	}
	var decoded snapshot
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload did not decode: %v", err)
	}
	if decoded.RunID != "run-123" || decoded.TaskStatuses["task-1"] != "succeeded" {
		t.Fatalf("unexpected decoded snapshot: %+v", decoded)
	}
}

func TestCheckpoint_IncludesBudgetStateWhenProvided(t *testing.T) {
	fc := &fakeClient{}
	cp := newWithClient(fc, "run-1", time.Hour, time.Second)

	state := &budget.State{UsedIterations: 4, StopReason: budget.StopMaxIterations}
	if err := cp.Checkpoint(context.Background(), 2000, state, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := fc.value.([]byte)
	var decoded snapshot
	_ = json.Unmarshal(payload, &decoded)
	if decoded.Budget.UsedIterations != 4 {
		t.Fatalf("expected budget state to be embedded, got %+v", decoded.Budget)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	fc := &fakeClient{}
	cp := newWithClient(fc, "run-1", time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cp.Run(ctx, func() (*budget.State, map[string]string) { return nil, nil })
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after context cancel")
	}
}
