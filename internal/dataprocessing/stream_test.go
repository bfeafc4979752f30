package dataprocessing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizpulse/internal/dataprocessing"
)

type fetchCall struct {
	offset int
	limit  int
}

// scriptedFetcher replays canned pages and records every call
type scriptedFetcher struct {
	pages []dataprocessing.StreamBatch[int]
	errAt int
	err   error
	calls []fetchCall
}

func (f *scriptedFetcher) fetch(_ context.Context, offset, limit int) (dataprocessing.StreamBatch[int], error) {
	f.calls = append(f.calls, fetchCall{offset: offset, limit: limit})
	n := len(f.calls) - 1
	if f.err != nil && n == f.errAt {
		return dataprocessing.StreamBatch[int]{}, f.err
	}
	if n >= len(f.pages) {
		return dataprocessing.StreamBatch[int]{}, nil
	}
	return f.pages[n], nil
}

func noDelay(batchSize int) dataprocessing.StreamOptions {
	return dataprocessing.StreamOptions{BatchSize: batchSize}
}

func TestStreamBatchesStopsOnEmptyBatch(t *testing.T) {
	f := &scriptedFetcher{pages: []dataprocessing.StreamBatch[int]{
		{Items: []int{1, 2, 3}, HasMore: true},
		{Items: nil, HasMore: true},
		{Items: []int{99}, HasMore: true},
	}}

	var batches [][]int
	for batch, err := range dataprocessing.StreamBatches(context.Background(), f.fetch, noDelay(3)) {
		require.NoError(t, err)
		batches = append(batches, batch)
	}

	assert.Equal(t, [][]int{{1, 2, 3}}, batches)
	assert.Len(t, f.calls, 2)
}

func TestStreamBatchesStopsWhenNoMore(t *testing.T) {
	f := &scriptedFetcher{pages: []dataprocessing.StreamBatch[int]{
		{Items: []int{1, 2}, HasMore: true},
		{Items: []int{3}, HasMore: false},
		{Items: []int{4}, HasMore: true},
	}}

	var all []int
	for batch, err := range dataprocessing.StreamBatches(context.Background(), f.fetch, noDelay(2)) {
		require.NoError(t, err)
		all = append(all, batch...)
	}

	assert.Equal(t, []int{1, 2, 3}, all)
	assert.Len(t, f.calls, 2)
}

func TestStreamBatchesOffsetFollowsReturnedCount(t *testing.T) {
	f := &scriptedFetcher{pages: []dataprocessing.StreamBatch[int]{
		{Items: []int{1, 2}, HasMore: true},
		{Items: []int{3, 4, 5, 6, 7}, HasMore: true},
		{Items: []int{8}, HasMore: false},
	}}

	for _, err := range dataprocessing.StreamBatches(context.Background(), f.fetch, noDelay(5)) {
		require.NoError(t, err)
	}

	assert.Equal(t, []fetchCall{{0, 5}, {2, 5}, {7, 5}}, f.calls)
}

func TestStreamBatchesFetchError(t *testing.T) {
	boom := errors.New("page service down")
	f := &scriptedFetcher{
		pages: []dataprocessing.StreamBatch[int]{
			{Items: []int{1, 2}, HasMore: true},
			{Items: []int{3, 4}, HasMore: true},
		},
		errAt: 1,
		err:   boom,
	}

	var consumed []int
	var gotErr error
	for batch, err := range dataprocessing.StreamBatches(context.Background(), f.fetch, noDelay(2)) {
		if err != nil {
			gotErr = err
			continue
		}
		consumed = append(consumed, batch...)
	}

	assert.Equal(t, []int{1, 2}, consumed)
	var fetchErr *dataprocessing.StreamFetchError
	require.ErrorAs(t, gotErr, &fetchErr)
	assert.Equal(t, 2, fetchErr.Offset)
	assert.ErrorIs(t, gotErr, boom)
	assert.Len(t, f.calls, 2)
}

func TestStreamBatchesConsumerBreak(t *testing.T) {
	src := dataprocessing.FetchFromSlice(sequence(100))
	calls := 0
	counting := func(ctx context.Context, offset, limit int) (dataprocessing.StreamBatch[int], error) {
		calls++
		return src(ctx, offset, limit)
	}

	for range dataprocessing.StreamBatches(context.Background(), counting, noDelay(10)) {
		break
	}
	assert.Equal(t, 1, calls, "no read-ahead after the consumer stops")
}

func TestStreamBatchesInvalidBatchSize(t *testing.T) {
	f := &scriptedFetcher{}
	for _, err := range dataprocessing.StreamBatches(context.Background(), f.fetch, noDelay(0)) {
		assert.ErrorIs(t, err, dataprocessing.ErrInvalidBatchSize)
	}
	assert.Empty(t, f.calls)
}

func TestStreamBatchesDelayBetweenFetches(t *testing.T) {
	opts := dataprocessing.StreamOptions{BatchSize: 10, Delay: 20 * time.Millisecond}
	start := time.Now()
	total := 0
	for batch, err := range dataprocessing.StreamBatches(context.Background(), dataprocessing.FetchFromSlice(sequence(30)), opts) {
		require.NoError(t, err)
		total += len(batch)
	}
	assert.Equal(t, 30, total)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestStreamBatchesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range dataprocessing.StreamBatches(ctx, dataprocessing.FetchFromSlice(sequence(10)), dataprocessing.DefaultStreamOptions()) {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, context.Canceled)
}

func TestFetchFromSlice(t *testing.T) {
	fetch := dataprocessing.FetchFromSlice(sequence(5))

	page, err := fetch(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, page.Items)
	assert.True(t, page.HasMore)

	page, err = fetch(context.Background(), 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, page.Items)
	assert.False(t, page.HasMore)

	page, err = fetch(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
