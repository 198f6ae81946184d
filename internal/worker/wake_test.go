package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWakeSignalWakesOneSleeper(t *testing.T) {
	w := newWakeSignal(3)

	woke := make(chan int, 3)
	exited := make(chan bool, 3)
	var started sync.WaitGroup
	started.Add(3)
	for i := 0; i < 3; i++ {
		go func(i int) {
			started.Done()
			ok := w.Sleep()
			if ok {
				woke <- i
			}
			exited <- ok
		}(i)
	}
	started.Wait()
	time.Sleep(10 * time.Millisecond) // let all three reach cond.Wait

	require.True(t, w.AllAsleep())

	w.Wakeup(2) // busy=2, total=3: signal iff sleeping>=1 — always true here
	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("no worker woke up")
	}

	// The other two sleepers are released by Shutdown and see Sleep return
	// false.
	w.Shutdown()
	woken := 0
	for i := 0; i < 3; i++ {
		if <-exited {
			woken++
		}
	}
	require.Equal(t, 1, woken, "Wakeup signals one sleeper; the rest observe Shutdown")
}

func TestWakeupRespectsBusyThreshold(t *testing.T) {
	w := newWakeSignal(4)

	// No one asleep yet; busy=0 requires sleeping>=4, so no signal is lost
	// by calling Wakeup first (cond.Signal with zero waiters is a no-op).
	w.Wakeup(0)

	done := make(chan struct{})
	go func() {
		w.Sleep()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	w.Wakeup(3) // busy=3, total=4: needs sleeping>=1 — true
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sleeper was not woken")
	}
}

func TestShutdownReleasesAllSleepers(t *testing.T) {
	w := newWakeSignal(5)
	var wg sync.WaitGroup
	results := make([]bool, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = w.Sleep()
		}(i)
	}
	time.Sleep(10 * time.Millisecond)
	w.Shutdown()
	wg.Wait()

	for i, woke := range results {
		require.False(t, woke, "sleeper %d should observe shutdown", i)
	}

	require.False(t, w.Sleep(), "Sleep after Shutdown returns immediately")
}
