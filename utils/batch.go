package utils

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchConfig 批量操作配置
type BatchConfig struct {
	// BatchSize 批量大小
	BatchSize int
	// Concurrency 并发数量
	Concurrency int
	// OnProgress 进度回调函数
	OnProgress func(progress BatchProgress)
}

// BatchProgress 批量操作进度
type BatchProgress struct {
	Completed  int
	Total      int
	Percentage int // 0-100
	Success    int
	Failed     int
}

// DefaultBatchConfig 返回默认批量配置
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		BatchSize:   50,
		Concurrency: 5,
	}
}

// BatchQueryResult 批量查询结果
//
// Results 与输入一一对应，失败项为零值，并记录在 Errors 中
type BatchQueryResult[T any] struct {
	Results []T
	Errors  []BatchError
	Total   int
	Success int
	Failed  int
}

// BatchError 批量操作错误
type BatchError struct {
	Index int
	Error error
}

// FirstError 返回索引最小的错误
func (r *BatchQueryResult[T]) FirstError() error {
	if len(r.Errors) == 0 {
		return nil
	}
	first := r.Errors[0]
	for _, e := range r.Errors[1:] {
		if e.Index < first.Index {
			first = e
		}
	}
	return fmt.Errorf("item %d: %w", first.Index, first.Error)
}

// BatchQuery 批量查询
//
// 对一组输入并发调用查询函数，单项失败不影响其他项
//
// 示例：
//
//	result, err := BatchQuery(ctx, digests, func(ctx context.Context, d action.Digest, index int) (bool, error) {
//	    return collaborator.IsConsumed(ctx, d)
//	}, DefaultBatchConfig())
func BatchQuery[T any, R any](
	ctx context.Context,
	items []T,
	queryFn func(ctx context.Context, item T, index int) (R, error),
	config *BatchConfig,
) (*BatchQueryResult[R], error) {
	if config == nil {
		config = DefaultBatchConfig()
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	result := &BatchQueryResult[R]{
		Results: make([]R, len(items)),
		Total:   len(items),
	}
	var mu sync.Mutex

	record := func(idx int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Errors = append(result.Errors, BatchError{Index: idx, Error: err})
			result.Failed++
		} else {
			result.Success++
		}
		if config.OnProgress != nil {
			completed := result.Success + result.Failed
			config.OnProgress(BatchProgress{
				Completed:  completed,
				Total:      len(items),
				Percentage: completed * 100 / len(items),
				Success:    result.Success,
				Failed:     result.Failed,
			})
		}
	}

	// 分批处理，批次之间串行
	for start := 0; start < len(items); start += batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		var g errgroup.Group
		g.SetLimit(concurrency)
		for i := start; i < end; i++ {
			idx := i
			g.Go(func() error {
				r, err := queryFn(ctx, items[idx], idx)
				if err == nil {
					result.Results[idx] = r
				}
				record(idx, err)
				return nil
			})
		}
		_ = g.Wait()
	}

	return result, nil
}

// ParallelExecute 并行执行多个操作，任一失败则取消其余操作
//
// 结果顺序与输入一致
func ParallelExecute[T any, R any](
	ctx context.Context,
	items []T,
	executeFn func(ctx context.Context, item T) (R, error),
	concurrency int,
) ([]R, error) {
	if concurrency <= 0 {
		concurrency = 5
	}

	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := executeFn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parallel execute failed: %w", err)
	}
	return results, nil
}

// BatchArray 将数组分批次处理
func BatchArray[T any](array []T, batchSize int) [][]T {
	if batchSize <= 0 {
		return [][]T{array}
	}
	batches := make([][]T, 0, (len(array)+batchSize-1)/batchSize)
	for i := 0; i < len(array); i += batchSize {
		end := i + batchSize
		if end > len(array) {
			end = len(array)
		}
		batches = append(batches, array[i:end])
	}
	return batches
}
