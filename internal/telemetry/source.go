package telemetry

// CPUTimes are cumulative processor time counters, in arbitrary but
// consistent ticks. Kernel excludes idle time.
type CPUTimes struct {
	Idle   uint64
	Kernel uint64
	User   uint64
}

// Source reads raw OS counters. Every method may fail transiently.
type Source interface {
	// CPUTimes returns cumulative idle/kernel/user time.
	CPUTimes() (CPUTimes, error)
	// MemoryPercent returns the share of physical memory in use right now.
	MemoryPercent() (float64, error)
	// DiskBytes returns cumulative bytes read and written, counting each
	// physical device once.
	DiskBytes() (uint64, error)
	// NetworkBytes returns cumulative bytes received and sent across
	// distinct physical interfaces.
	NetworkBytes() (uint64, error)
}
