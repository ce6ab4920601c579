package server

import "sync/atomic"

// Activity tracks connection activity for the idle-relaunch policy. The
// open-session count and the activity mark are updated from engine-owned
// goroutines; the idle-seconds counter belongs to the controller loop and
// is only touched from Tick.
type Activity struct {
	open   atomic.Int64
	marked atomic.Bool

	idleSeconds uint
}

// NewActivity creates an empty activity state.
func NewActivity() *Activity {
	return &Activity{}
}

// SessionOpened records a new open session.
func (a *Activity) SessionOpened() {
	a.open.Add(1)
	a.marked.Store(true)
}

// SessionClosed records a closed session.
func (a *Activity) SessionClosed() {
	a.open.Add(-1)
}

// Open returns the current open-session count.
func (a *Activity) Open() int {
	return int(a.open.Load())
}

// Tick advances one timer period and returns the updated idle-seconds
// count. The count resets whenever at least one session is open or one
// opened since the previous tick, even if it already closed again.
func (a *Activity) Tick() uint {
	if a.open.Load() > 0 || a.marked.Swap(false) {
		a.idleSeconds = 0
	} else {
		a.idleSeconds++
	}
	return a.idleSeconds
}

// IdleSeconds returns the idle counter as of the last tick.
func (a *Activity) IdleSeconds() uint {
	return a.idleSeconds
}

// ResetIdle clears the idle counter and the activity mark at the start of
// a serve cycle. The open-session count survives relaunches; the engine
// reports closes for any sessions torn down with it.
func (a *Activity) ResetIdle() {
	a.idleSeconds = 0
	a.marked.Store(false)
}
