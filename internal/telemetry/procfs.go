package telemetry

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/procfs"
	"github.com/prometheus/procfs/blockdevice"
	"github.com/prometheus/procfs/sysfs"
)

const (
	sectorSize = 512
	// ARPHRD_LOOPBACK from <linux/if_arp.h>
	arphrdLoopback = 772
	// cpu seconds are converted to centisecond ticks, matching USER_HZ
	ticksPerSecond = 100
)

// Block devices layered on top of other devices; counting them would count
// the same bytes twice.
var stackedDevicePrefixes = []string{"loop", "ram", "zram", "dm-", "md", "nbd"}

// ProcSource reads counters from the proc and sys pseudo-filesystems.
// Disk and network totals only advance by what devices present on two
// consecutive reads transferred, so hot-plugged devices never show up as a
// burst of traffic.
type ProcSource struct {
	proc    procfs.FS
	block   blockdevice.FS
	sys     sysfs.FS
	sysPath string

	mu      sync.Mutex
	disk    counterSet
	network counterSet
}

// NewProcSource opens the proc and sys mount points.
func NewProcSource(procPath, sysPath string) (*ProcSource, error) {
	proc, err := procfs.NewFS(procPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceInit, err)
	}
	block, err := blockdevice.NewFS(procPath, sysPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceInit, err)
	}
	sys, err := sysfs.NewFS(sysPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceInit, err)
	}
	return &ProcSource{proc: proc, block: block, sys: sys, sysPath: sysPath}, nil
}

func (s *ProcSource) CPUTimes() (CPUTimes, error) {
	stat, err := s.proc.Stat()
	if err != nil {
		return CPUTimes{}, fmt.Errorf("%w: %w", ErrCPURead, err)
	}
	c := stat.CPUTotal
	return CPUTimes{
		Idle:   toTicks(c.Idle + c.Iowait),
		Kernel: toTicks(c.System + c.IRQ + c.SoftIRQ + c.Steal),
		User:   toTicks(c.User + c.Nice),
	}, nil
}

func (s *ProcSource) MemoryPercent() (float64, error) {
	info, err := s.proc.Meminfo()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMemoryRead, err)
	}
	if info.MemTotal == nil || *info.MemTotal == 0 || info.MemAvailable == nil {
		return 0, fmt.Errorf("%w: %w", ErrMemoryRead, ErrCounterUnavailable)
	}
	total, available := *info.MemTotal, *info.MemAvailable
	if available > total {
		available = total
	}
	return float64(total-available) * 100 / float64(total), nil
}

func (s *ProcSource) DiskBytes() (uint64, error) {
	counters, err := s.diskCounters()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDiskRead, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disk.advance(counters), nil
}

// diskCounters returns bytes transferred per whole physical disk, keyed by
// device number.
func (s *ProcSource) diskCounters() (map[string]uint64, error) {
	devices, err := s.block.SysBlockDevices()
	if err != nil {
		return nil, err
	}
	whole := make(map[string]bool, len(devices))
	for _, name := range devices {
		if !isStackedDevice(name) {
			whole[name] = true
		}
	}

	stats, err := s.block.ProcDiskstats()
	if err != nil {
		return nil, err
	}

	// One counter may be listed under several names; keep the first reading
	// per device number.
	counters := make(map[string]uint64, len(whole))
	for _, d := range stats {
		if !whole[d.DeviceName] {
			continue
		}
		key := strconv.FormatUint(uint64(d.MajorNumber), 10) + ":" + strconv.FormatUint(uint64(d.MinorNumber), 10)
		if _, ok := counters[key]; ok {
			continue
		}
		counters[key] = (d.ReadSectors + d.WriteSectors) * sectorSize
	}
	return counters, nil
}

func (s *ProcSource) NetworkBytes() (uint64, error) {
	counters, err := s.networkCounters()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNetworkRead, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network.advance(counters), nil
}

// networkCounters returns received plus transmitted bytes per physical
// interface, keyed by hardware address. Loopback, tunnels, bridges and veth
// pairs have no backing device and are skipped.
func (s *ProcSource) networkCounters() (map[string]uint64, error) {
	dev, err := s.proc.NetDev()
	if err != nil {
		return nil, err
	}
	class, err := s.sys.NetClass()
	if err != nil {
		return nil, err
	}

	// Sorted so the same alias wins on every tick.
	names := make([]string, 0, len(dev))
	for name := range dev {
		names = append(names, name)
	}
	sort.Strings(names)

	counters := make(map[string]uint64, len(names))
	for _, name := range names {
		iface, ok := class[name]
		if !ok || (iface.Type != nil && *iface.Type == arphrdLoopback) {
			continue
		}
		physical, err := s.hasDevice(name)
		if err != nil {
			return nil, err
		}
		if !physical {
			continue
		}
		key := hardwareKey(name, iface.Address)
		if _, ok := counters[key]; ok {
			continue
		}
		line := dev[name]
		counters[key] = line.RxBytes + line.TxBytes
	}
	return counters, nil
}

func (s *ProcSource) hasDevice(iface string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.sysPath, "class", "net", iface, "device"))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func hardwareKey(name, address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" || address == "00:00:00:00:00:00" {
		return "name:" + name
	}
	return "hw:" + address
}

func isStackedDevice(name string) bool {
	for _, prefix := range stackedDevicePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func toTicks(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(math.Round(seconds * ticksPerSecond))
}
