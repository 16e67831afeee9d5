package parallel

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ordboost/pkg/errors"
)

func TestParallelizeCoversEveryIndexOnce(t *testing.T) {
	for _, items := range []int{0, 1, 7, 1000, 4097} {
		t.Run(fmt.Sprintf("items=%d", items), func(t *testing.T) {
			hits := make([]int32, items)
			err := Parallelize(items, func(start, end int) error {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
				return nil
			})
			require.NoError(t, err)
			for i, h := range hits {
				assert.Equal(t, int32(1), h, "index %d", i)
			}
		})
	}
}

func TestParallelizeWithThresholdRunsInline(t *testing.T) {
	var calls int32
	err := ParallelizeWithThreshold(10, DefaultThreshold, func(start, end int) error {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)

	err = ParallelizeWithThreshold(0, DefaultThreshold, func(start, end int) error {
		t.Fatal("no work expected for zero items")
		return nil
	})
	assert.NoError(t, err)
}

func TestParallelizeReturnsFirstChunkError(t *testing.T) {
	err := Parallelize(100, func(start, end int) error {
		if start == 0 {
			return errors.New("first chunk failed")
		}
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first chunk failed")
}

func TestPanicsAreRecovered(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
	}{
		{"inline", DefaultThreshold},
		{"parallel", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParallelizeWithThreshold(8, tt.threshold, func(start, end int) error {
				panic("boom")
			})
			require.Error(t, err)
			var panicErr *errors.PanicError
			assert.True(t, errors.As(err, &panicErr))
		})
	}
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 0, Workers(0))
	assert.Equal(t, 1, Workers(1))
	assert.LessOrEqual(t, Workers(1<<20), 1<<20)
}
