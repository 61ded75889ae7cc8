// Package gate implements BlockGate, a one-shot wait/post rendezvous
// primitive between exactly one waiter and one or more posters.
//
// The design mirrors the CAS-then-park state machine used by
// eventloop.FastState: a gate's state is a single atomic word, and a post is
// only allowed to signal the underlying channel when its CAS observes a
// waiter that is actually (about to be) parked. This removes the lost-wakeup
// race without needing a mutex.
package gate

import (
	"sync/atomic"
	"time"
)

// State is the two-valued state of a Gate.
type State uint32

const (
	// Running means no wait is outstanding; a post targeting this state is a
	// no-op (nothing to wake).
	Running State = iota
	// Blocked means the waiter has committed to sleeping and a post must
	// deliver a wakeup.
	Blocked
)

// Gate is a single-waiter block/wake primitive. The zero value is not
// usable; use New.
type Gate struct {
	state atomic.Uint32
	wake  chan struct{}
}

// New returns a Gate in the Running state.
func New() *Gate {
	g := &Gate{wake: make(chan struct{}, 1)}
	g.state.Store(uint32(Running))
	return g
}

// Arm transitions the gate from Running to Blocked, as the single required
// step before Wait. It is separate from Wait so that callers can publish a
// wake_time timestamp (per spec) between arming and actually parking.
func (g *Gate) Arm() {
	g.state.Store(uint32(Blocked))
}

// Wait blocks until Post is called, or until timeout elapses (timeout<=0
// means wait forever). It returns true if woken, false on timeout.
//
// Wait must only ever be called by the gate's single designated waiter.
func (g *Gate) Wait(timeout time.Duration) bool {
	if g.state.Load() == uint32(Running) {
		// Either Arm was never called, or a Post already raced ahead and
		// left a wake token buffered for us. Drain it so it doesn't leak
		// into the next Arm/Wait cycle as a spurious wake.
		select {
		case <-g.wake:
		default:
		}
		return true
	}
	if timeout <= 0 {
		<-g.wake
		return true
	}
	select {
	case <-g.wake:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Post wakes the gate's waiter if, and only if, it observes the gate armed
// (Blocked). It never sends more than one wakeup per Arm.
func (g *Gate) Post() {
	if g.state.CompareAndSwap(uint32(Blocked), uint32(Running)) {
		select {
		case g.wake <- struct{}{}:
		default:
		}
	}
}

// Cancel un-arms the gate without delivering a wake, for the single case
// where the designated waiter discovers its own work between Arm and Wait
// (the RPS self-drain path in Worker.sendAndWait) and so never intends to
// call Wait for this cycle. It must only be called by the gate's own
// waiter, never by a poster.
func (g *Gate) Cancel() {
	g.state.Store(uint32(Running))
}
