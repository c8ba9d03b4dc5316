package renderer

import (
	"bytes"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// WorkerStats accumulates the work done by one worker
type WorkerStats struct {
	ID      int
	Tasks   int
	Samples int64
	Busy    time.Duration
}

// RenderStats contains statistics about a finished render
type RenderStats struct {
	Integrator string
	Threads    int
	Width      int
	Height     int
	Samples    int64
	Elapsed    time.Duration
	Workers    []WorkerStats

	// Metrics holds integrator specific values such as the PSSMLT
	// acceptance rate
	Metrics map[string]float64
}

// SamplesPerSecond is the overall sample throughput
func (s RenderStats) SamplesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Samples) / s.Elapsed.Seconds()
}

// Table renders the per-worker statistics as a text table
func (s RenderStats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Worker", "Tasks", "Samples", "% of samples", "Busy time"})
	for _, w := range s.Workers {
		share := 0.0
		if s.Samples > 0 {
			share = 100 * float64(w.Samples) / float64(s.Samples)
		}
		table.Append([]string{
			fmt.Sprintf("%d", w.ID),
			fmt.Sprintf("%d", w.Tasks),
			fmt.Sprintf("%d", w.Samples),
			fmt.Sprintf("%02.1f %%", share),
			w.Busy.Round(time.Millisecond).String(),
		})
	}
	table.SetFooter([]string{"", "", fmt.Sprintf("%d", s.Samples), "TOTAL", s.Elapsed.Round(time.Millisecond).String()})
	table.Render()

	if len(s.Metrics) > 0 {
		names := make([]string, 0, len(s.Metrics))
		for name := range s.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)

		metrics := tablewriter.NewWriter(&buf)
		metrics.SetAutoFormatHeaders(false)
		metrics.SetHeader([]string{"Metric", "Value"})
		for _, name := range names {
			metrics.Append([]string{name, fmt.Sprintf("%.6g", s.Metrics[name])})
		}
		metrics.Render()
	}
	return buf.String()
}

// DefaultThreadCount is the number of logical CPUs, falling back to the Go
// runtime's view when the host cannot be queried
func DefaultThreadCount() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// HostInfo describes the machine the renderer runs on
type HostInfo struct {
	CPUModel      string
	LogicalCores  int
	PhysicalCores int
	ClockGHz      float64
	TotalMemory   uint64
	FreeMemory    uint64
}

// GetHostInfo queries CPU and memory information
func GetHostInfo() (HostInfo, error) {
	var info HostInfo

	cpuInfo, err := cpu.Info()
	if err != nil {
		return info, fmt.Errorf("query cpu: %w", err)
	}
	if len(cpuInfo) > 0 {
		info.CPUModel = cpuInfo[0].ModelName
		info.ClockGHz = cpuInfo[0].Mhz / 1000
	}
	if info.LogicalCores, err = cpu.Counts(true); err != nil {
		return info, fmt.Errorf("count cpus: %w", err)
	}
	if info.PhysicalCores, err = cpu.Counts(false); err != nil {
		return info, fmt.Errorf("count cores: %w", err)
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return info, fmt.Errorf("query memory: %w", err)
	}
	info.TotalMemory = memInfo.Total
	info.FreeMemory = memInfo.Available
	return info, nil
}

// Table renders the host information as a text table
func (h HostInfo) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Property", "Value"})
	table.Append([]string{"CPU", h.CPUModel})
	table.Append([]string{"Logical cores", fmt.Sprintf("%d", h.LogicalCores)})
	table.Append([]string{"Physical cores", fmt.Sprintf("%d", h.PhysicalCores)})
	table.Append([]string{"Clock", fmt.Sprintf("%.2f GHz", h.ClockGHz)})
	table.Append([]string{"Memory", fmt.Sprintf("%.1f GiB total, %.1f GiB available",
		float64(h.TotalMemory)/(1<<30), float64(h.FreeMemory)/(1<<30))})
	table.Append([]string{"Default threads", fmt.Sprintf("%d", DefaultThreadCount())})
	table.Render()
	return buf.String()
}
