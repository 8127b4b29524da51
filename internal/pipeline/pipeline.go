package pipeline

import (
	"runtime"
	"sync"
)

// Document is one unit of batch work. Index is its position in the input.
type Document struct {
	Index int
	Name  string
	Text  string
}

type Analyzer func(doc Document) error

// Run feeds docs to fn from a pool of workers and collects the errors it
// returns. workers <= 0 uses one worker per CPU.
func Run(docs []Document, workers int, fn Analyzer) []error {
	if len(docs) == 0 || fn == nil {
		return nil
	}
	if workers <= 0 {
		workers = max(1, runtime.NumCPU())
	}
	workers = min(workers, len(docs))

	jobs := make(chan Document)
	errs := make(chan error, len(docs))
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				if err := fn(doc); err != nil {
					errs <- err
				}
			}
		}()
	}

	for _, doc := range docs {
		jobs <- doc
	}
	close(jobs)
	wg.Wait()
	close(errs)

	out := make([]error, 0, len(errs))
	for err := range errs {
		out = append(out, err)
	}
	return out
}
