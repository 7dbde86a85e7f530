// Package sysmon refreshes cached system metrics for the status displays.
// It uses gopsutil so the same collector works on the device and on a dev
// workstation; the thermal zone read is the only Linux-specific part and
// degrades to zero elsewhere.
package sysmon

import (
	"context"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"pkt.systems/opsdeck/schema"
	"pkt.systems/pslog"
)

// Config controls metric collection.
type Config struct {
	// Interval is the refresh cadence.
	Interval time.Duration
	// TopProcesses limits the process list length.
	TopProcesses int
	// ThermalZone is the sysfs path read for the SoC temperature. Empty
	// disables temperature collection.
	ThermalZone string
}

// Sink receives refreshed metrics.
type Sink interface {
	SetMetrics(metrics schema.SystemMetrics)
}

// Monitor periodically collects metrics and publishes them to the sink.
type Monitor struct {
	cfg  Config
	sink Sink
	log  pslog.Logger
}

// New constructs a Monitor.
func New(cfg Config, sink Sink, logger pslog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.TopProcesses <= 0 {
		cfg.TopProcesses = 5
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Monitor{cfg: cfg, sink: sink, log: logger}
}

// Run collects on a fixed schedule until the context is cancelled. Failures
// of individual sub-collectors are logged and leave the affected fields at
// their previous or zero values.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	m.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

func (m *Monitor) refresh(ctx context.Context) {
	metrics := m.Collect(ctx)
	if ctx.Err() != nil {
		return
	}
	m.sink.SetMetrics(metrics)
}

// Collect gathers one metric snapshot. Best-effort: sub-collector errors
// are logged at debug level and zero out their fields only.
func (m *Monitor) Collect(ctx context.Context) schema.SystemMetrics {
	metrics := schema.SystemMetrics{Collected: time.Now()}

	if hostname, err := os.Hostname(); err == nil {
		metrics.Hostname = hostname
	}
	metrics.IP = primaryIP()

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		m.log.Debug("cpu collect failed", "err", err)
	} else if len(percents) > 0 {
		metrics.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		m.log.Debug("memory collect failed", "err", err)
	} else {
		metrics.MemPercent = vm.UsedPercent
	}

	if usage, err := disk.UsageWithContext(ctx, "/"); err != nil {
		m.log.Debug("disk collect failed", "err", err)
	} else {
		metrics.DiskPercent = usage.UsedPercent
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		m.log.Debug("load collect failed", "err", err)
	} else {
		metrics.Load1 = avg.Load1
	}

	if secs, err := host.UptimeWithContext(ctx); err != nil {
		m.log.Debug("uptime collect failed", "err", err)
	} else {
		metrics.Uptime = time.Duration(secs) * time.Second
	}

	metrics.TempC = m.readTemperature()
	metrics.Processes = m.topProcesses(ctx)
	return metrics
}

// readTemperature reads the millidegree value from the configured thermal
// zone. Returns zero when unavailable.
func (m *Monitor) readTemperature() float64 {
	if m.cfg.ThermalZone == "" {
		return 0
	}
	data, err := os.ReadFile(m.cfg.ThermalZone)
	if err != nil {
		return 0
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0
	}
	return milli / 1000
}

func (m *Monitor) topProcesses(ctx context.Context) []schema.ProcessInfo {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		m.log.Debug("process collect failed", "err", err)
		return nil
	}
	infos := make([]schema.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cpuPct, _ := p.CPUPercentWithContext(ctx)
		memPct, _ := p.MemoryPercentWithContext(ctx)
		infos = append(infos, schema.ProcessInfo{
			PID:    p.Pid,
			Name:   name,
			CPU:    cpuPct,
			Memory: memPct,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CPU > infos[j].CPU })
	if len(infos) > m.cfg.TopProcesses {
		infos = infos[:m.cfg.TopProcesses]
	}
	return infos
}

// primaryIP finds the outbound interface address without sending traffic.
func primaryIP() string {
	conn, err := net.Dial("udp", "10.255.255.255:1")
	if err != nil {
		return ""
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return ""
}
