package testutil

import (
	"sync"

	"github.com/sanspareilsmyn/infoband/internal/telemetry"
)

// Source is a telemetry source whose counters advance by fixed steps on
// every read.
type Source struct {
	mu sync.Mutex

	CPU      telemetry.CPUTimes
	CPUStep  telemetry.CPUTimes
	Memory   float64
	Disk     uint64
	DiskStep uint64
	Network  uint64
	NetStep  uint64
}

func (s *Source) CPUTimes() (telemetry.CPUTimes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CPU.Idle += s.CPUStep.Idle
	s.CPU.Kernel += s.CPUStep.Kernel
	s.CPU.User += s.CPUStep.User
	return s.CPU, nil
}

func (s *Source) MemoryPercent() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Memory, nil
}

func (s *Source) DiskBytes() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Disk += s.DiskStep
	return s.Disk, nil
}

func (s *Source) NetworkBytes() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Network += s.NetStep
	return s.Network, nil
}
