package space

import (
	"math/rand"
	"sync/atomic"
	"time"
)

type timerFactory func(time.Duration) <-chan time.Time

// ControlTimer is a one-shot timer driven through channels. It ticks once
// after every reset and stays silent until reset again.
type ControlTimer struct {
	timerFactory timerFactory
	tickCh       chan struct{}      //sends a signal to listening process
	resetCh      chan time.Duration //receives instruction to reset the timer
	stopCh       chan struct{}      //receives instruction to stop the timer
	shutdownCh   chan struct{}      //receives instruction to exit Run loop
	set          int32
}

// NewControlTimer ...
func NewControlTimer(timerFactory timerFactory) *ControlTimer {
	return &ControlTimer{
		timerFactory: timerFactory,
		tickCh:       make(chan struct{}),
		resetCh:      make(chan time.Duration),
		stopCh:       make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

// NewRandomControlTimer returns a ControlTimer that fires between d and 2d
// after being set to d, so that peers do not gossip in lockstep.
func NewRandomControlTimer() *ControlTimer {
	randomTimeout := func(min time.Duration) <-chan time.Time {
		if min == 0 {
			return nil
		}
		extra := (time.Duration(rand.Int63()) % min)
		return time.After(min + extra)
	}
	return NewControlTimer(randomTimeout)
}

func (c *ControlTimer) isSet() bool {
	return atomic.LoadInt32(&c.set) == 1
}

func (c *ControlTimer) setSet(v bool) {
	if v {
		atomic.StoreInt32(&c.set, 1)
	} else {
		atomic.StoreInt32(&c.set, 0)
	}
}

// Run starts the timer with an initial duration and serves resets until
// Shutdown.
func (c *ControlTimer) Run(init time.Duration) {
	setTimer := func(t time.Duration) <-chan time.Time {
		c.setSet(true)
		return c.timerFactory(t)
	}

	timer := setTimer(init)
	for {
		select {
		case <-timer:
			select {
			case c.tickCh <- struct{}{}:
			case <-c.shutdownCh:
				c.setSet(false)
				return
			}
			timer = nil
			c.setSet(false)
		case t := <-c.resetCh:
			timer = setTimer(t)
		case <-c.stopCh:
			timer = nil
			c.setSet(false)
		case <-c.shutdownCh:
			c.setSet(false)
			return
		}
	}
}

// Shutdown stops the Run loop.
func (c *ControlTimer) Shutdown() {
	close(c.shutdownCh)
}
