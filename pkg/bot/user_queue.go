package bot

import "sync"

// userQueue runs jobs for the same key one at a time, in submission order.
// Different keys run in parallel. A key's worker exits once its queue drains.
type userQueue struct {
	mu     sync.Mutex
	queues map[string][]func()
	wg     sync.WaitGroup
}

func newUserQueue() *userQueue {
	return &userQueue{queues: make(map[string][]func())}
}

// Submit appends job to key's queue, starting a worker if none is running.
func (q *userQueue) Submit(key string, job func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, running := q.queues[key]
	q.queues[key] = append(pending, job)
	if running {
		return
	}
	q.wg.Add(1)
	go q.drain(key)
}

func (q *userQueue) drain(key string) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		pending := q.queues[key]
		if len(pending) == 0 {
			delete(q.queues, key)
			q.mu.Unlock()
			return
		}
		job := pending[0]
		q.queues[key] = pending[1:]
		q.mu.Unlock()

		job()
	}
}

// Wait blocks until every submitted job has run.
func (q *userQueue) Wait() {
	q.wg.Wait()
}

func (q *userQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues)
}
