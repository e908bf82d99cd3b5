// Package utils holds small math and scheduling helpers shared across the
// geometry and bundle packages.
package utils

import (
	"context"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// GroupWorkParallel divides totalSize work items into contiguous index
// ranges, one per worker goroutine, and blocks until every range has been
// processed. Work functions receive [from, to) and must write only into
// their own output slots; the caller owns all buffers.
func GroupWorkParallel(ctx context.Context, totalSize int, work func(from, to int)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if totalSize <= 0 {
		return nil
	}
	numGroups := ParallelFactor
	if totalSize < numGroups {
		numGroups = totalSize
	}
	if numGroups <= 1 {
		work(0, totalSize)
		return nil
	}

	groupSize := totalSize / numGroups
	extra := totalSize % numGroups

	var wait sync.WaitGroup
	wait.Add(numGroups)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		from := groupSize * groupNum
		to := from + groupSize
		if groupNum == numGroups-1 {
			to += extra
		}
		fromCopy, toCopy := from, to
		utils.PanicCapturingGo(func() {
			defer wait.Done()
			work(fromCopy, toCopy)
		})
	}
	wait.Wait()
	return nil
}
