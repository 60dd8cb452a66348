// SPDX-License-Identifier: GPL-3.0-or-later

// Package bulk runs one remote operation across many message ids with
// bounded concurrency. Results are reported per item; a failed item is
// retried once and never aborts the rest of the run.
package bulk

import "time"

type Result struct {
	ID  string
	Err error
}

type Summary struct {
	Succeeded int
	Failed    int
}

// RunAll applies op to every id using a goroutine pool of the given size.
// The result slice is ordered like the input.
func RunAll(ids []string, concurrency int, op func(id string) error) []Result {
	if concurrency < 1 {
		concurrency = 1
	}

	semaphore := make(chan bool, concurrency)
	results := make([]Result, len(ids))
	for i := 0; i < len(ids); i++ {
		semaphore <- true
		go func(index int) {
			err := op(ids[index])
			if err != nil {
				err = op(ids[index])
			}
			results[index] = Result{ID: ids[index], Err: err}
			<-semaphore
		}(i)
	}

	for i := 0; i < concurrency; i++ {
		semaphore <- true
	}

	return results
}

// RunBatched is the sequential fallback: ids are processed in batches with a
// delay between batches to stay under remote rate limits.
func RunBatched(ids []string, batchSize int, delay time.Duration, op func(id string) error) []Result {
	if batchSize < 1 {
		batchSize = 1
	}

	results := make([]Result, 0, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		if start > 0 && delay > 0 {
			time.Sleep(delay)
		}

		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[start:end] {
			err := op(id)
			if err != nil {
				err = op(id)
			}
			results = append(results, Result{ID: id, Err: err})
		}
	}

	return results
}

func Summarize(results []Result) Summary {
	s := Summary{}
	for _, r := range results {
		if r.Err == nil {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// Succeeded returns the ids whose operation completed without error.
func Succeeded(results []Result) []string {
	ids := []string{}
	for _, r := range results {
		if r.Err == nil {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
