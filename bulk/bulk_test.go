// SPDX-License-Identifier: GPL-3.0-or-later
package bulk

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunAllConcurrent(t *testing.T) {
	// Three ids, pool of three: all ops must be in flight at once before any
	// of them returns, proving actual concurrency.
	wg := &sync.WaitGroup{}
	wg.Add(3)

	attempts := &sync.Map{}
	err2 := errors.New("permanent")
	op := func(id string) error {
		count, _ := attempts.LoadOrStore(id, new(int))
		n := count.(*int)
		*n++
		if *n == 1 {
			wg.Done()
			wg.Wait()
		}

		switch id {
		case "2":
			return err2
		case "3":
			if *n == 1 {
				return errors.New("transient")
			}
			return nil
		}
		return nil
	}

	resultsChan := make(chan []Result)
	go func() {
		resultsChan <- RunAll([]string{"1", "2", "3"}, 3, op)
	}()

	select {
	case results := <-resultsChan:
		assert.Len(t, results, 3)
		assert.NoError(t, results[0].Err, "id 1 should succeed directly")
		assert.Equal(t, err2, results[1].Err, "id 2 should still fail after the retry")
		assert.NoError(t, results[2].Err, "id 3 should succeed on retry")
	case <-time.After(time.Second):
		assert.Fail(t, "timeout waiting for concurrent bulk run")
	}
}

func TestRunAllOrdering(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	results := RunAll(ids, 2, func(string) error { return nil })

	assert.Len(t, results, len(ids))
	for i, r := range results {
		assert.Equal(t, ids[i], r.ID)
	}
}

func TestRunBatched(t *testing.T) {
	calls := []string{}
	results := RunBatched([]string{"1", "2", "3"}, 2, 0, func(id string) error {
		calls = append(calls, id)
		if id == "2" {
			return errors.New("fails")
		}
		return nil
	})

	// id 2 is retried once
	assert.Equal(t, []string{"1", "2", "2", "3"}, calls)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{ID: "1"},
		{ID: "2", Err: errors.New("nope")},
		{ID: "3"},
	}

	assert.Equal(t, Summary{Succeeded: 2, Failed: 1}, Summarize(results))
	assert.Equal(t, []string{"1", "3"}, Succeeded(results))
}
