package worker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type countingJob struct {
	id   string
	mu   *sync.Mutex
	runs *int
}

func (j *countingJob) ID() string { return j.id }

func (j *countingJob) Execute() error {
	j.mu.Lock()
	*j.runs++
	j.mu.Unlock()
	return nil
}

func TestDispatcherRunsEveryJob(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	d := NewDispatcher(3, 16, log)
	d.Run()

	var mu sync.Mutex
	runs := 0
	for i := 0; i < 10; i++ {
		if !d.Submit(&countingJob{id: fmt.Sprintf("job-%d", i), mu: &mu, runs: &runs}) {
			t.Fatalf("job %d rejected", i)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := runs == 10
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(time.Millisecond)
	}
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	if runs != 10 {
		t.Errorf("runs = %d, want 10", runs)
	}
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	// Dispatcher never started: nothing drains the queue.
	d := NewDispatcher(1, 1, log)

	var mu sync.Mutex
	runs := 0
	if !d.Submit(&countingJob{id: "first", mu: &mu, runs: &runs}) {
		t.Fatal("first submission should fit the queue")
	}
	if d.Submit(&countingJob{id: "second", mu: &mu, runs: &runs}) {
		t.Fatal("second submission should be rejected, queue is full")
	}
}
