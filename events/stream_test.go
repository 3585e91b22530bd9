package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeflow/execorch/events"
)

func TestStream_SequenceIsStrictlyIncreasing(t *testing.T) {
	var received []events.Event
	s := events.NewStream(nil)
	s.AddSink(events.SinkFunc(func(e events.Event) { received = append(received, e) }))

	s.EmitAutonomyIteration("wave-1", "wave 1")
	s.EmitAgentTaskProgress("wave-1", "t1", "scaffold", "completed - 1 file(s) changed")
	s.EmitPatchBatchMerged("wave-1", "wave-1", []string{"src/App.tsx"}, 0)
	s.EmitRunCompleted(true, 100, nil, nil)

	require.Len(t, received, 4)
	var last uint64
	for _, e := range received {
		assert.Greater(t, e.Sequence(), last)
		last = e.Sequence()
	}
}

func TestStream_MultipleSinksAllReceive(t *testing.T) {
	var a, b int
	s := events.NewStream(nil)
	s.AddSink(events.SinkFunc(func(events.Event) { a++ }))
	s.AddSink(events.SinkFunc(func(events.Event) { b++ }))

	s.EmitRunError("boom")

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}
