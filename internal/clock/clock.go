package clock

import (
	"sync"
	"time"
)

// Clock is the time source used for persisted timestamps
type Clock interface {
	Now() time.Time
}

type Real struct{}

func NewReal() *Real {
	return &Real{}
}

func (c *Real) Now() time.Time {
	return time.Now().UTC()
}

// Stub is a settable clock for tests
type Stub struct {
	now  time.Time
	lock sync.Mutex
}

func NewStub() *Stub {
	c := &Stub{}
	c.Set(time.Now())
	return c
}

func (c *Stub) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *Stub) Set(now time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = now.UTC().Truncate(time.Millisecond)
}

// Advance moves the clock forward by d and returns the new time
func (c *Stub) Advance(d time.Duration) time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
