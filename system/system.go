// Package system reads host CPU, memory and GPU utilization for the status
// dashboard and the boot report.
package system

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// GetCPUUsage returns the aggregate CPU utilization since the last call, as
// a percentage.
func GetCPUUsage() (float64, error) {
	// Zero interval reads the counters since the previous sample instead of
	// blocking to measure.
	usage, err := cpu.Percent(0, false)
	if err != nil {
		return 0, fmt.Errorf("could not read cpu counters: %w", err)
	}
	if len(usage) == 0 {
		return 0, fmt.Errorf("no cpu sample available")
	}
	return usage[0], nil
}

// GetMemoryUsage returns the used fraction of physical memory as a
// percentage.
func GetMemoryUsage() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("could not read memory stats: %w", err)
	}
	return vm.UsedPercent, nil
}
