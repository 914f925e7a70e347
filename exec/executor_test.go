package exec_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aisreactor/reactor/exec"
)

func TestExecuteRunsInFIFOOrder(t *testing.T) {
	e := exec.New(t.Name(), nil)
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		e.Execute(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestInEventLoop(t *testing.T) {
	e := exec.New(t.Name(), nil)
	if e.InEventLoop() {
		t.Fatal("test goroutine misidentified as the event loop")
	}
	done := make(chan bool, 1)
	e.Execute(func() { done <- e.InEventLoop() })
	if !<-done {
		t.Fatal("task running on the executor did not identify as in-loop")
	}
}

func TestScheduleFiresAfterDelay(t *testing.T) {
	e := exec.New(t.Name(), nil)
	fired := make(chan struct{})
	start := time.Now()
	e.Schedule(30*time.Millisecond, func() { close(fired) })
	<-fired
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("scheduled task fired too early")
	}
}

func TestScheduleAtFixedRateReschedules(t *testing.T) {
	e := exec.New(t.Name(), nil)
	var mu sync.Mutex
	count := 0
	task := e.ScheduleAtFixedRate(5*time.Millisecond, 15*time.Millisecond, func() {
		mu.Lock()
		count++
		mu.Unlock()
	})
	time.Sleep(80 * time.Millisecond)
	task.Cancel()
	mu.Lock()
	got := count
	mu.Unlock()
	if got < 2 {
		t.Fatalf("fixed-rate task fired %d times, want >= 2", got)
	}
}

func TestCancelledScheduledTaskDoesNotFire(t *testing.T) {
	e := exec.New(t.Name(), nil)
	fired := false
	task := e.Schedule(20*time.Millisecond, func() { fired = true })
	task.Cancel()
	time.Sleep(60 * time.Millisecond)
	if fired {
		t.Fatal("cancelled task fired")
	}
}
