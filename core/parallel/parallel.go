// Package parallel splits row ranges across goroutines. Each worker owns a
// disjoint [start, end) range, so writers into a shared output slice never
// overlap and results do not depend on scheduling.
package parallel

import (
	"runtime"
	"sync"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

// DefaultThreshold is the row count below which work stays on the calling goroutine.
const DefaultThreshold = 1000

// Workers returns how many goroutines Parallelize uses for items.
func Workers(items int) int {
	if items <= 0 {
		return 0
	}
	n := runtime.NumCPU()
	if n > items {
		n = items
	}
	return n
}

// Parallelize runs fn over contiguous chunks that exactly cover [0, items),
// one goroutine per chunk. It returns the error of the lowest-indexed failing
// chunk. A panic inside a chunk is recovered into a *errors.PanicError.
func Parallelize(items int, fn func(start, end int) error) error {
	workers := Workers(items)
	if workers == 0 {
		return nil
	}
	chunk := (items + workers - 1) / workers

	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(w, s, e int) {
			defer wg.Done()
			errs[w] = errors.SafeExecute("parallel chunk", func() error {
				return fn(s, e)
			})
		}(w, start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items <= threshold, and Parallelize otherwise. Panics are recovered the
// same way on both paths.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int) error) error {
	if items <= 0 {
		return nil
	}
	if items <= threshold {
		return errors.SafeExecute("parallel chunk", func() error {
			return fn(0, items)
		})
	}
	return Parallelize(items, fn)
}
