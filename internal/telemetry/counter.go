package telemetry

import "time"

const (
	bytesPerMegabyte = 1024 * 1024
	bitsPerByte      = 8
	bitsPerMegabit   = 1_000_000
)

// cpuCounter remembers the previous cumulative CPU times.
type cpuCounter struct {
	prev  CPUTimes
	valid bool
}

// observe returns the busy percentage since the previous observation, or 0
// on the first one. Unsigned subtraction wraps, so a counter that rolled
// over still yields the forward distance.
func (c *cpuCounter) observe(cur CPUTimes) float64 {
	prev, valid := c.prev, c.valid
	c.prev, c.valid = cur, true
	if !valid {
		return 0
	}

	idle := cur.Idle - prev.Idle
	total := idle + (cur.Kernel - prev.Kernel) + (cur.User - prev.User)
	if total == 0 {
		return 0
	}
	busy := total - idle
	return float64(busy) * 100 / float64(total)
}

// rateCounter turns a cumulative byte counter into bytes per second.
type rateCounter struct {
	prevBytes uint64
	prevTime  time.Time
	valid     bool
}

func (c *rateCounter) observe(bytes uint64, now time.Time) float64 {
	prevBytes, prevTime, valid := c.prevBytes, c.prevTime, c.valid
	c.prevBytes, c.prevTime, c.valid = bytes, now, true
	if !valid {
		return 0
	}

	elapsed := now.Sub(prevTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(bytes-prevBytes) / elapsed
}

func megabytesPerSecond(bytesPerSecond float64) float64 {
	return bytesPerSecond / bytesPerMegabyte
}

func megabitsPerSecond(bytesPerSecond float64) float64 {
	return bytesPerSecond * bitsPerByte / bitsPerMegabit
}

// counterSet folds a changing set of per-device cumulative counters into one
// running total that only moves by what each device transferred. Devices
// that appear or disappear between observations contribute nothing for that
// interval.
type counterSet struct {
	prev  map[string]uint64
	total uint64
}

func (c *counterSet) advance(cur map[string]uint64) uint64 {
	if c.prev == nil {
		for _, v := range cur {
			c.total += v
		}
		c.prev = cur
		return c.total
	}
	for key, v := range cur {
		old, ok := c.prev[key]
		switch {
		case !ok:
		case v >= old:
			c.total += v - old
		default:
			// counter was reset, e.g. the driver reloaded
			c.total += v
		}
	}
	c.prev = cur
	return c.total
}
