// Package housekeep runs registered callbacks on their own interval
// from a single background goroutine, the way this module's endpoints
// periodically sweep stale waitlist entries or flush buffered logs
// without dedicating a goroutine to every such chore.
package housekeep

import (
	"container/heap"
	"sync"
	"time"

	"github.com/ugv-zrf/zrf/zlog"
)

// Job is one registered periodic callback. f returns the duration until
// its next run; returning the same interval every time is the common
// case, but a job may back off or speed up based on what it found.
type Job struct {
	Name     string
	Interval time.Duration
	F        func() time.Duration
}

type scheduledJob struct {
	job   Job
	due   time.Time
	index int
}

type jobHeap []*scheduledJob

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h jobHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *jobHeap) Push(x any)         { sj := x.(*scheduledJob); sj.index = len(*h); *h = append(*h, sj) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	sj := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return sj
}

// Housekeeper owns the job heap and background goroutine. The zero
// value is not usable; construct with New.
type Housekeeper struct {
	mu      sync.Mutex
	heap    jobHeap
	wake    chan struct{}
	started chan struct{}
	stop    chan struct{}
	done    chan struct{}
	now     func() time.Time
}

// New constructs a Housekeeper. now defaults to time.Now; tests may
// override it to control scheduling deterministically.
func New(now func() time.Time) *Housekeeper {
	if now == nil {
		now = time.Now
	}
	return &Housekeeper{
		wake:    make(chan struct{}, 1),
		started: make(chan struct{}),
		now:     now,
	}
}

// Register adds job to the schedule, due to first run after its
// Interval elapses.
func (hk *Housekeeper) Register(job Job) {
	hk.mu.Lock()
	heap.Push(&hk.heap, &scheduledJob{job: job, due: hk.now().Add(job.Interval)})
	hk.mu.Unlock()
	hk.nudge()
}

func (hk *Housekeeper) nudge() {
	select {
	case hk.wake <- struct{}{}:
	default:
	}
}

// Run starts the background scheduling goroutine. It returns
// immediately; call WaitStarted to block until the loop is live.
func (hk *Housekeeper) Run() {
	hk.stop = make(chan struct{})
	hk.done = make(chan struct{})
	go hk.loop()
}

// WaitStarted blocks until Run's goroutine has entered its loop.
func (hk *Housekeeper) WaitStarted() { <-hk.started }

func (hk *Housekeeper) loop() {
	defer close(hk.done)
	close(hk.started)
	for {
		timer := hk.nextTimer()
		select {
		case <-hk.stop:
			timer.Stop()
			return
		case <-hk.wake:
			timer.Stop()
		case <-timer.C:
		}
		hk.runDue()
	}
}

func (hk *Housekeeper) nextTimer() *time.Timer {
	hk.mu.Lock()
	defer hk.mu.Unlock()
	if hk.heap.Len() == 0 {
		return time.NewTimer(time.Hour)
	}
	d := hk.heap[0].due.Sub(hk.now())
	if d < 0 {
		d = 0
	}
	return time.NewTimer(d)
}

func (hk *Housekeeper) runDue() {
	for {
		hk.mu.Lock()
		if hk.heap.Len() == 0 || hk.heap[0].due.After(hk.now()) {
			hk.mu.Unlock()
			return
		}
		sj := heap.Pop(&hk.heap).(*scheduledJob)
		hk.mu.Unlock()

		next := runJob(sj.job)
		sj.due = hk.now().Add(next)
		hk.mu.Lock()
		heap.Push(&hk.heap, sj)
		hk.mu.Unlock()
	}
}

func runJob(job Job) (next time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Errorf("housekeep: job %q panicked: %v", job.Name, r)
			next = job.Interval
		}
	}()
	next = job.F()
	if next <= 0 {
		next = job.Interval
	}
	return next
}

// Stop signals the background goroutine to exit and waits for it.
func (hk *Housekeeper) Stop() {
	if hk.stop == nil {
		return
	}
	close(hk.stop)
	<-hk.done
}
