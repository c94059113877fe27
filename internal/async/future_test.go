package async

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGo_DeliversResult(t *testing.T) {
	f := Go(func() (int, error) { return 42, nil })

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestGo_DeliversError(t *testing.T) {
	boom := errors.New("boom")
	f := Go(func() (string, error) { return "", boom })

	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestGo_RecoversPanic(t *testing.T) {
	f := Go(func() (int, error) { panic("bad") })

	_, err := f.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestThen_AfterCompletionRunsSynchronously(t *testing.T) {
	f, complete := New[int]()
	complete(7, nil)

	ran := false
	f.Then(func(v int, err error) {
		ran = true
		assert.Equal(t, 7, v)
	})
	// No synchronization needed: the continuation ran before Then returned.
	assert.True(t, ran)
}

func TestThen_BeforeCompletionRunsOnCompletingGoroutine(t *testing.T) {
	f, complete := New[int]()

	var order []string
	f.Then(func(v int, err error) { order = append(order, "first") })
	f.Then(func(v int, err error) { order = append(order, "second") })
	assert.Empty(t, order)

	complete(1, nil)
	// Both continuations ran inside complete, in attach order.
	assert.Equal(t, []string{"first", "second"}, order)

	// Completing twice has no effect
	complete(2, nil)
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Len(t, order, 2)
}

func TestWait_ContextCancelled(t *testing.T) {
	f, _ := New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
