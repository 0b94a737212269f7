package squeue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ugv-zrf/zrf/squeue"
)

func TestPushPop(t *testing.T) {
	q := squeue.New[int]()
	q.Push(1)
	q.Push(2)
	if v := q.Pop(); v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
	if v := q.Pop(); v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
}

func TestPushFrontPriority(t *testing.T) {
	q := squeue.New[string]()
	q.Push("back")
	q.PushFront("front")
	if v := q.Pop(); v != "front" {
		t.Fatalf("expected front, got %q", v)
	}
	if v := q.Pop(); v != "back" {
		t.Fatalf("expected back, got %q", v)
	}
}

func TestBuffer(t *testing.T) {
	q := squeue.New[int]()
	q.Buffer(1, 2, 3)
	if q.Len() != 3 {
		t.Fatalf("expected len 3, got %d", q.Len())
	}
	for i := 1; i <= 3; i++ {
		if v := q.Pop(); v != i {
			t.Fatalf("expected %d, got %d", i, v)
		}
	}
}

func TestTryPopEmpty(t *testing.T) {
	q := squeue.New[int]()
	if _, ok := q.TryPop(); ok {
		t.Fatal("expected TryPop on empty queue to fail")
	}
	q.Push(42)
	v, ok := q.TryPop()
	if !ok || v != 42 {
		t.Fatalf("expected (42, true), got (%d, %v)", v, ok)
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := squeue.New[int]()
	done := make(chan int, 1)
	go func() { done <- q.Pop() }()

	select {
	case <-done:
		t.Fatal("Pop returned before any Push")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(7)
	select {
	case v := <-done:
		if v != 7 {
			t.Fatalf("expected 7, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop never returned after Push")
	}
}

func TestConcurrentProducersConsumers(t *testing.T) {
	q := squeue.New[int]()
	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Push(i)
		}(i)
	}
	seen := make([]bool, n)
	var mu sync.Mutex
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := q.Pop()
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	for i, ok := range seen {
		if !ok {
			t.Fatalf("value %d never popped", i)
		}
	}
}
