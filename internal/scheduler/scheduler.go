// Package scheduler implements the cycle-driven job queue that backs
// the tick timer and the PIC's interrupt delivery.
//
// The queue is a sorted singly-linked list where each node's Cycles
// field is a delta over its predecessor rather than an absolute
// deadline, so Advance only ever has to adjust the head.
package scheduler

// Callback is invoked when a job's remaining cycle count reaches zero.
// arg is the opaque payload the job was registered with.
type Callback func(arg any)

// Job is one pending entry in the queue.
type Job struct {
	Cycles int
	Cb     Callback
	Arg    any
	key    any
	prev   *Job
	next   *Job
}

// Queue is the sorted list of pending jobs. The zero value is ready
// to use.
type Queue struct {
	head *Job
	tail *Job
}

// Add schedules cb to run after the given number of cycles have
// elapsed. key identifies the job for later cancellation via Cancel;
// callers that never cancel may pass nil. A cycles value of zero runs
// the callback immediately, inline, without entering the queue.
func (q *Queue) Add(key any, cb Callback, cycles int, arg any) {
	if cycles <= 0 {
		cb(arg)
		return
	}

	job := &Job{Cycles: cycles, Cb: cb, Arg: arg, key: key}

	if q.head == nil {
		q.head = job
		q.tail = job
		return
	}

	remaining := cycles
	for cur := q.head; cur != nil; cur = cur.next {
		if remaining <= cur.Cycles {
			cur.Cycles -= remaining
			job.Cycles = remaining
			job.next = cur
			job.prev = cur.prev
			if cur.prev != nil {
				cur.prev.next = job
			} else {
				q.head = job
			}
			cur.prev = job
			return
		}
		remaining -= cur.Cycles
	}

	job.Cycles = remaining
	job.prev = q.tail
	q.tail.next = job
	q.tail = job
}

// Cancel removes the first job registered under key. Its remaining
// cycle count is folded back onto its successor so the queue's total
// elapsed-time accounting stays correct. Keys should be comparable
// (a *Job-owning struct pointer or a small value type); scheduler.Job
// itself is never exposed for identity comparison.
func (q *Queue) Cancel(key any) bool {
	for cur := q.head; cur != nil; cur = cur.next {
		if cur.key != key {
			continue
		}
		q.remove(cur)
		return true
	}
	return false
}

func (q *Queue) remove(job *Job) {
	if job.next != nil {
		job.next.Cycles += job.Cycles
		job.next.prev = job.prev
	} else {
		q.tail = job.prev
	}
	if job.prev != nil {
		job.prev.next = job.next
	} else {
		q.head = job.next
	}
}

// Empty reports whether any job is pending.
func (q *Queue) Empty() bool {
	return q.head == nil
}

// Advance retires every job whose cycle count is consumed by t
// elapsed cycles, invoking each callback in order due.
func (q *Queue) Advance(t int) {
	if q.head == nil {
		return
	}
	q.head.Cycles -= t
	for q.head != nil && q.head.Cycles <= 0 {
		job := q.head
		q.head = job.next
		if q.head != nil {
			q.head.prev = nil
		} else {
			q.tail = nil
		}
		job.Cb(job.Arg)
	}
}
