package chainwatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/message"
)

type fakeMerger struct {
	merged []*message.IdRegistryEvent
	failOn map[int]bool
	calls  int
}

func (m *fakeMerger) MergeIdRegistryEvent(ctx context.Context, ev *message.IdRegistryEvent) error {
	idx := m.calls
	m.calls++
	if m.failOn[idx] {
		return hubcore.New(hubcore.CodeConflict, "simulated conflict")
	}
	m.merged = append(m.merged, ev)
	return nil
}

func TestWatcherDrainsPollingSource(t *testing.T) {
	events := []*message.IdRegistryEvent{
		{Type: message.IdRegistryRegister, BlockNumber: 1, Fid: []byte{1}, To: []byte("a")},
		{Type: message.IdRegistryRegister, BlockNumber: 2, Fid: []byte{2}, To: []byte("b")},
	}
	source := &PollingSource{Queue: events, Interval: time.Millisecond}
	merger := &fakeMerger{}
	log := zap.NewNop().Sugar()

	w := New(source, merger, log)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := w.Run(ctx)
	require.NoError(t, err)
	require.Len(t, merger.merged, 2)
	assert.Equal(t, uint64(1), merger.merged[0].BlockNumber)
	assert.Equal(t, uint64(2), merger.merged[1].BlockNumber)
}

func TestWatcherToleratesMergeFailure(t *testing.T) {
	events := []*message.IdRegistryEvent{
		{Type: message.IdRegistryRegister, BlockNumber: 1, Fid: []byte{1}, To: []byte("a")},
		{Type: message.IdRegistryRegister, BlockNumber: 2, Fid: []byte{2}, To: []byte("b")},
	}
	source := &PollingSource{Queue: events, Interval: time.Millisecond}
	merger := &fakeMerger{failOn: map[int]bool{0: true}}
	log := zap.NewNop().Sugar()

	w := New(source, merger, log)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := w.Run(ctx)
	require.NoError(t, err, "a single bad event must not abort the feed")
	require.Len(t, merger.merged, 1)
	assert.Equal(t, uint64(2), merger.merged[0].BlockNumber)
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	events := []*message.IdRegistryEvent{
		{Type: message.IdRegistryRegister, BlockNumber: 1, Fid: []byte{1}, To: []byte("a")},
	}
	source := &PollingSource{Queue: events, Interval: time.Hour}
	merger := &fakeMerger{}
	log := zap.NewNop().Sugar()

	w := New(source, merger, log)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
