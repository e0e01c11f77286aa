package export

import "sync"

// Batch sizes for the data-parallel conversion kernels. One logical task is
// a triangle (winding flip) or a vertex (attribute conversion); tasks are
// processed in fixed-size batches.
const (
	triangleBatch = 2048
	vertexBatch   = 4096
)

// parallelFor runs fn over [0,n) in batches distributed across workers and
// joins before returning, so all writes by fn are visible to the caller.
func parallelFor(n, batch, workers int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if batch < 1 {
		batch = 1
	}
	if workers < 1 {
		workers = 1
	}
	if workers == 1 || n <= batch {
		fn(0, n)
		return
	}

	jobs := make(chan [2]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				fn(r[0], r[1])
			}
		}()
	}

	for start := 0; start < n; start += batch {
		end := min(start+batch, n)
		jobs <- [2]int{start, end}
	}
	close(jobs)
	wg.Wait()
}
