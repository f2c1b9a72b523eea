// komandan
package main

import "sync"

// ###################################
//      PARALLEL FAN-OUT
// ###################################

// parallelResult pairs one dispatch's outcome with the error (if any) it
// produced, so callers can distinguish a failed task from a clean one
// without losing the result snapshot.
type parallelResult struct {
	Result ExecResult
	Err    error
}

// runBounded fans work out across a semaphore-bounded pool of goroutines,
// one per item, and blocks until all complete. Grounded on the teacher's
// concurrent host-dispatch loop: a buffered channel used as a counting
// semaphore paired with a WaitGroup, rather than an unbounded goroutine per
// item, so a large host list cannot exhaust file descriptors or memory.
func runBounded(concurrency int, n int, work func(i int)) {
	if concurrency <= 0 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			work(i)
		}(i)
	}

	wg.Wait()
}

// parallelHosts runs one task across many hosts concurrently, keyed by each
// host's display name so callers can match a result back to its host.
func parallelHosts(hosts []Host, task Task, ctx *Context, resolver *sshConfigResolver) map[ParallelKey]parallelResult {
	concurrency := resolveInt(ctx.Defaults.MaxConcurrency(), 10)

	results := make(map[ParallelKey]parallelResult, len(hosts))
	var mutex sync.Mutex

	runBounded(concurrency, len(hosts), func(i int) {
		host := hosts[i]
		result, err := komando(host, task, ctx, resolver)

		mutex.Lock()
		results[TextKey(host.displayName())] = parallelResult{Result: result, Err: err}
		mutex.Unlock()
	})

	return results
}

// parallelTasks runs many tasks against one host concurrently, keyed by
// each task's index in the slice so duplicate task names stay distinct.
func parallelTasks(host Host, tasks []Task, ctx *Context, resolver *sshConfigResolver) map[ParallelKey]parallelResult {
	concurrency := resolveInt(ctx.Defaults.MaxConcurrency(), 10)

	results := make(map[ParallelKey]parallelResult, len(tasks))
	var mutex sync.Mutex

	runBounded(concurrency, len(tasks), func(i int) {
		task := tasks[i]
		result, err := komando(host, task, ctx, resolver)

		mutex.Lock()
		results[NumberKey(i)] = parallelResult{Result: result, Err: err}
		mutex.Unlock()
	})

	return results
}

// parallelMatrix runs every (task, host) pair concurrently, keyed by the
// host's display name joined with the task's index so both axes stay
// addressable from the combined result map.
func parallelMatrix(hosts []Host, tasks []Task, ctx *Context, resolver *sshConfigResolver) map[ParallelKey]parallelResult {
	concurrency := resolveInt(ctx.Defaults.MaxConcurrency(), 10)

	type pair struct {
		host      Host
		task      Task
		taskIndex int
	}
	pairs := make([]pair, 0, len(hosts)*len(tasks))
	for _, h := range hosts {
		for ti, t := range tasks {
			pairs = append(pairs, pair{host: h, task: t, taskIndex: ti})
		}
	}

	results := make(map[ParallelKey]parallelResult, len(pairs))
	var mutex sync.Mutex

	runBounded(concurrency, len(pairs), func(i int) {
		p := pairs[i]
		result, err := komando(p.host, p.task, ctx, resolver)

		key := TextKey(p.host.displayName() + "/" + NumberKey(p.taskIndex).String())
		mutex.Lock()
		results[key] = parallelResult{Result: result, Err: err}
		mutex.Unlock()
	})

	return results
}
