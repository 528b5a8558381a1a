package system

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// GPUInfo holds one nvidia-smi sample. Memory figures are in MiB, matching
// the tool's nounits output.
type GPUInfo struct {
	Utilization float64
	MemoryUsed  float64
	MemoryTotal float64
}

const gpuQuery = "utilization.gpu,memory.used,memory.total"

// IsNvidiaGPUInstalled reports whether nvidia-smi is available on PATH.
func IsNvidiaGPUInstalled() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

// GetGPUInfo samples the first GPU via nvidia-smi.
func GetGPUInfo() (*GPUInfo, error) {
	out, err := exec.Command("nvidia-smi",
		"--query-gpu="+gpuQuery, "--format=csv,noheader,nounits").Output()
	if err != nil {
		return nil, fmt.Errorf("could not run nvidia-smi: %w", err)
	}

	// Multi-GPU hosts report one line per device; the first is enough for
	// the dashboard.
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	values, err := parseGPULine(line)
	if err != nil {
		return nil, err
	}

	return &GPUInfo{
		Utilization: values[0],
		MemoryUsed:  values[1],
		MemoryTotal: values[2],
	}, nil
}

func parseGPULine(line string) ([3]float64, error) {
	var values [3]float64
	fields := strings.Split(line, ",")
	if len(fields) != len(values) {
		return values, fmt.Errorf("unexpected nvidia-smi output %q", line)
	}
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return values, fmt.Errorf("could not parse nvidia-smi field %q: %w", field, err)
		}
		values[i] = v
	}
	return values, nil
}
