package domain

import "sync"

// settleAll 并发执行 fn 并等待全部结束，结果保持输入顺序。
// 任一元素的失败不影响其余元素。
func settleAll[T any, R any](items []T, fn func(T) R) []R {
	results := make([]R, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		i, item := i, item
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = fn(item)
		}()
	}
	wg.Wait()

	return results
}
