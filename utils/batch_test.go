package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestBatchQuery(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		items  []int
		config *BatchConfig
	}{
		{name: "empty items", items: []int{}, config: DefaultBatchConfig()},
		{name: "single item", items: []int{1}, config: DefaultBatchConfig()},
		{name: "multiple items", items: []int{1, 2, 3, 4, 5}, config: &BatchConfig{BatchSize: 2, Concurrency: 2}},
		{name: "nil config", items: []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := BatchQuery(ctx, tt.items, func(ctx context.Context, item int, index int) (int, error) {
				return item * 2, nil
			}, tt.config)
			if err != nil {
				t.Fatalf("BatchQuery() error = %v", err)
			}
			if result.Total != len(tt.items) || result.Success != len(tt.items) {
				t.Errorf("Total = %d, Success = %d, want %d", result.Total, result.Success, len(tt.items))
			}
			for i, item := range tt.items {
				if result.Results[i] != item*2 {
					t.Errorf("Results[%d] = %d, want %d", i, result.Results[i], item*2)
				}
			}
		})
	}
}

func TestBatchQuery_PartialFailure(t *testing.T) {
	var progressCalls int32
	config := &BatchConfig{
		BatchSize:   3,
		Concurrency: 2,
		OnProgress: func(p BatchProgress) {
			atomic.AddInt32(&progressCalls, 1)
			if p.Total != 6 {
				t.Errorf("OnProgress: Total = %d, want 6", p.Total)
			}
		},
	}

	result, err := BatchQuery(context.Background(), []int{0, 1, 2, 3, 4, 5}, func(ctx context.Context, item int, index int) (int, error) {
		if item%2 == 1 {
			return 0, errors.New("odd")
		}
		return item, nil
	}, config)
	if err != nil {
		t.Fatalf("BatchQuery() error = %v", err)
	}
	if result.Success != 3 || result.Failed != 3 {
		t.Errorf("Success = %d, Failed = %d, want 3/3", result.Success, result.Failed)
	}
	if atomic.LoadInt32(&progressCalls) != 6 {
		t.Errorf("progress called %d times, want 6", progressCalls)
	}
	if err := result.FirstError(); err == nil || err.Error() != "item 1: odd" {
		t.Errorf("FirstError() = %v, want item 1: odd", err)
	}
}

func TestBatchQuery_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BatchQuery(ctx, []int{1, 2}, func(ctx context.Context, item int, index int) (int, error) {
		return item, nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("BatchQuery() error = %v, want context.Canceled", err)
	}
}

func TestParallelExecute(t *testing.T) {
	items := []string{"a", "bb", "ccc"}
	got, err := ParallelExecute(context.Background(), items, func(ctx context.Context, s string) (int, error) {
		return len(s), nil
	}, 2)
	if err != nil {
		t.Fatalf("ParallelExecute() error = %v", err)
	}
	for i, want := range []int{1, 2, 3} {
		if got[i] != want {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want)
		}
	}

	boom := errors.New("boom")
	_, err = ParallelExecute(context.Background(), items, func(ctx context.Context, s string) (int, error) {
		if s == "bb" {
			return 0, boom
		}
		return 0, nil
	}, 0)
	if !errors.Is(err, boom) {
		t.Errorf("ParallelExecute() error = %v, want boom", err)
	}
}

func TestBatchArray(t *testing.T) {
	tests := []struct {
		name      string
		array     []int
		batchSize int
		want      int
	}{
		{name: "even", array: []int{1, 2, 3, 4}, batchSize: 2, want: 2},
		{name: "uneven", array: []int{1, 2, 3, 4, 5}, batchSize: 2, want: 3},
		{name: "larger batch", array: []int{1, 2}, batchSize: 10, want: 1},
		{name: "empty", array: []int{}, batchSize: 3, want: 0},
		{name: "zero batch size", array: []int{1, 2}, batchSize: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BatchArray(tt.array, tt.batchSize); len(got) != tt.want {
				t.Errorf("BatchArray() returned %d batches, want %d", len(got), tt.want)
			}
		})
	}
}
