package exec

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunTypedPreservesInputOrder(t *testing.T) {
	e := New(4)
	items := []int{5, 1, 4, 2, 3}

	results := RunTyped(e, context.Background(), items, func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	}, nil)

	require.Len(t, results, 5)
	for i, want := range items {
		assert.True(t, results[i].Started)
		assert.NoError(t, results[i].Err)
		assert.Equal(t, want*10, results[i].Value)
	}
}

func TestRunTypedPerItemErrorDoesNotAbortSiblings(t *testing.T) {
	e := New(2)
	items := []int{1, 2, 3}

	results := RunTyped(e, context.Background(), items, func(ctx context.Context, n int) (int, error) {
		if n == 2 {
			return 0, assert.AnError
		}
		return n, nil
	}, nil)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestRunTypedStopHaltsFurtherDispatch(t *testing.T) {
	e := New(1)
	items := []int{1, 2, 3, 4, 5}
	var dispatched int32

	stop := func() bool { return atomic.LoadInt32(&dispatched) >= 2 }
	results := RunTyped(e, context.Background(), items, func(ctx context.Context, n int) (int, error) {
		atomic.AddInt32(&dispatched, 1)
		return n, nil
	}, stop)

	var started int
	for _, r := range results {
		if r.Started {
			started++
		}
	}
	assert.LessOrEqual(t, started, 3, "stop must prevent later items from ever dispatching")
}
