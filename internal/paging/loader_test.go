// ABOUTME: Tests for the paginated loader: append order, busy latch, retry, and reset.
// ABOUTME: Uses a gated fetch so requests can be held open while other calls race in.
package paging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/2389-research/sociality/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// pages serves fixed pages; index 0 is page 1.
func pages(data ...[]int) (FetchFunc[int], *[]int) {
	var mu sync.Mutex
	var requested []int
	return func(_ context.Context, page, limit int) ([]int, error) {
		mu.Lock()
		requested = append(requested, page)
		mu.Unlock()
		if page-1 < len(data) {
			return data[page-1], nil
		}
		return nil, nil
	}, &requested
}

func TestLoaderAppendsPages(t *testing.T) {
	fetch, requested := pages([]int{1, 2}, []int{3, 4}, []int{5})
	l := New(fetch, 2, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Next(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, l.Items())
	assert.True(t, l.HasMore())

	items, err := l.Next(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.False(t, l.HasMore())

	_, err = l.Next(ctx)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, []int{1, 2, 3, 4}, *requested)
}

func TestLoaderRefusesWhileFetching(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan int, 4)
	fetch := func(_ context.Context, page, _ int) ([]int, error) {
		entered <- page
		<-release
		return []int{page}, nil
	}
	l := New(fetch, 10, nil)

	done := make(chan error, 1)
	go func() {
		_, err := l.Next(context.Background())
		done <- err
	}()
	assert.Equal(t, 1, <-entered)
	assert.True(t, l.Fetching())

	for i := 0; i < 5; i++ {
		_, err := l.Next(context.Background())
		assert.ErrorIs(t, err, ErrBusy)
	}
	close(release)
	require.NoError(t, <-done)

	select {
	case p := <-entered:
		t.Fatalf("page %d requested while page 1 was outstanding", p)
	default:
	}
	assert.Equal(t, 2, l.Page())
}

func TestLoaderRetriesSamePageAfterError(t *testing.T) {
	fail := true
	var requested []int
	fetch := func(_ context.Context, page, _ int) ([]int, error) {
		requested = append(requested, page)
		if page == 2 && fail {
			fail = false
			return nil, errors.New("timeout")
		}
		return []int{page * 10}, nil
	}
	l := New(fetch, 10, nil)
	ctx := context.Background()

	_, err := l.Next(ctx)
	require.NoError(t, err)
	_, err = l.Next(ctx)
	require.Error(t, err)
	assert.False(t, l.Fetching())
	assert.True(t, l.HasMore())

	_, err = l.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2}, requested)
	assert.Equal(t, []int{10, 20}, l.Items())
}

func TestLoaderDiscardsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	first := true
	fetch := func(_ context.Context, page, _ int) ([]int, error) {
		if first {
			first = false
			entered <- struct{}{}
			<-release
			return []int{99}, nil
		}
		return []int{page}, nil
	}
	l := New(fetch, 10, nil)

	done := make(chan error, 1)
	go func() {
		_, err := l.Next(context.Background())
		done <- err
	}()
	<-entered
	l.Reset()
	assert.False(t, l.Fetching())

	close(release)
	assert.ErrorIs(t, <-done, ErrStale)
	assert.Empty(t, l.Items())

	_, err := l.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, l.Items())
}

func TestLoaderRefreshReplacesItems(t *testing.T) {
	fetch, _ := pages([]int{1, 2}, []int{3})
	l := New(fetch, 2, nil)
	ctx := context.Background()

	_, _ = l.Next(ctx)
	_, _ = l.Next(ctx)
	require.Equal(t, 3, l.Len())

	_, err := l.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, l.Items())
	assert.Equal(t, 2, l.Page())
}

func TestLoaderUpdateAndRemove(t *testing.T) {
	fetch, _ := pages([]int{1, 2, 3})
	l := New(fetch, 3, nil)
	_, _ = l.Next(context.Background())

	l.Update(func(items []int) {
		for i := range items {
			items[i] *= 10
		}
	})
	l.Remove(func(v int) bool { return v == 20 })
	assert.Equal(t, []int{10, 30}, l.Items())
}

func TestFromPages(t *testing.T) {
	fetch := FromPages(func(_ context.Context, page, limit int) (models.Page[string], error) {
		return models.Page[string]{Items: []string{"a", "b"}[:limit]}, nil
	})
	l := New(fetch, 1, nil)
	items, err := l.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, items)
}

func TestLoaderRespectsContext(t *testing.T) {
	fetch := func(ctx context.Context, _, _ int) ([]int, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return []int{1}, nil
		}
	}
	l := New(fetch, 10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.Page())
}

func TestNearBottom(t *testing.T) {
	tests := []struct {
		name                              string
		offset, visible, total, threshold int
		want                              bool
	}{
		{"empty list", 0, 10, 0, 3, true},
		{"top of long list", 0, 10, 50, 3, false},
		{"inside threshold", 38, 10, 50, 3, true},
		{"exactly at threshold", 37, 10, 50, 3, true},
		{"just outside threshold", 36, 10, 50, 3, false},
		{"short list", 0, 10, 5, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearBottom(tt.offset, tt.visible, tt.total, tt.threshold))
		})
	}
}
