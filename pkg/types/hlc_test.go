package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestamp_Parts(t *testing.T) {
	ts := NewTimestamp(1_700_000_000_123, 7)
	assert.Equal(t, int64(1_700_000_000_123), ts.Millis())
	assert.Equal(t, uint16(7), ts.Counter())
	assert.Equal(t, "1700000000123.7", ts.String())
	assert.Equal(t, int64(1_700_000_000_123), ts.Time().UnixMilli())
}

func TestHLC_MonotonicWithFrozenClock(t *testing.T) {
	frozen := time.UnixMilli(1000)
	c := NewHLC(func() time.Time { return frozen })

	a := c.Now()
	b := c.Now()
	assert.Greater(t, b, a)
	assert.Equal(t, a.Millis(), b.Millis())
	assert.Equal(t, uint16(1), b.Counter())
}

func TestHLC_Observe(t *testing.T) {
	c := NewHLC(func() time.Time { return time.UnixMilli(1000) })

	remote := NewTimestamp(5000, 3)
	c.Observe(remote)
	next := c.Now()
	assert.Greater(t, next, remote)

	c.Observe(NewTimestamp(10, 0))
	assert.Greater(t, c.Now(), next)
}

func TestHLC_PhysicalAdvance(t *testing.T) {
	now := time.UnixMilli(1000)
	c := NewHLC(func() time.Time { return now })
	c.Now()
	c.Now()

	now = time.UnixMilli(2000)
	ts := c.Now()
	assert.Equal(t, int64(2000), ts.Millis())
	assert.Equal(t, uint16(0), ts.Counter())
	assert.Equal(t, ts, c.Last())
}
