package gate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostBeforeWaitNoLostWakeup(t *testing.T) {
	g := New()
	g.Arm()
	g.Post()
	done := make(chan bool, 1)
	go func() { done <- g.Wait(0) }()
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("lost wakeup: Wait never returned")
	}
}

func TestPostAfterWaitWakes(t *testing.T) {
	g := New()
	g.Arm()
	done := make(chan bool, 1)
	go func() { done <- g.Wait(0) }()
	time.Sleep(10 * time.Millisecond)
	g.Post()
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("lost wakeup")
	}
}

func TestPostWithoutArmIsNoop(t *testing.T) {
	g := New()
	g.Post() // nothing armed; must not panic or desync
	assert.True(t, g.Wait(0))
}

func TestWaitTimeout(t *testing.T) {
	g := New()
	g.Arm()
	ok := g.Wait(20 * time.Millisecond)
	assert.False(t, ok)
}

func TestNoStaleTokenAcrossCycles(t *testing.T) {
	g := New()
	g.Arm()
	g.Post()
	assert.True(t, g.Wait(0)) // drains the buffered token

	// A fresh Arm/Wait must actually block until a fresh Post.
	g.Arm()
	done := make(chan bool, 1)
	go func() { done <- g.Wait(50 * time.Millisecond) }()
	select {
	case ok := <-done:
		assert.False(t, ok, "must not be woken by a stale token from the previous cycle")
	case <-time.After(time.Second):
		t.Fatal("Wait hung")
	}
}

func TestCancelSuppressesWake(t *testing.T) {
	g := New()
	g.Arm()
	g.Cancel()
	// Post must now be a no-op: nothing was really waiting.
	g.Post()
	select {
	case <-g.wake:
		t.Fatal("Post delivered a wake after Cancel; Cancel should have un-armed the gate")
	default:
	}
}

func TestCancelThenFreshCycleWorks(t *testing.T) {
	g := New()
	g.Arm()
	g.Cancel()
	g.Arm()
	done := make(chan bool, 1)
	go func() { done <- g.Wait(time.Second) }()
	time.Sleep(10 * time.Millisecond)
	g.Post()
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("lost wakeup after Cancel/Arm cycle")
	}
}

func TestManyPostersSingleWaiter(t *testing.T) {
	g := New()
	for i := 0; i < 1000; i++ {
		g.Arm()
		var wg sync.WaitGroup
		for p := 0; p < 8; p++ {
			wg.Add(1)
			go func() { defer wg.Done(); g.Post() }()
		}
		assert.True(t, g.Wait(time.Second))
		wg.Wait()
	}
}
