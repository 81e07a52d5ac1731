package ledger

import (
	"runtime"
	"sync"
)

// runParallel applies fn to every index in [0, n) across a bounded pool
// of goroutines and returns once every call has finished; it returns no
// values, so fn records its own result by index. It is the batch
// pipeline's fan-out/fan-in primitive (spec §4.5/§5): each wave of a
// batch (debits, then credits) runs this way, bounded by GOMAXPROCS the
// way the teacher bounds concurrent link handling by configuration
// rather than an external scheduler.
func runParallel(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	wg.Wait()
}
