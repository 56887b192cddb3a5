package workers

import (
	chatruntime "chatroomd/runtime"
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// StatsWorker periodically logs process and host health: live session
// count, goroutines, heap, host memory and CPU load.
type StatsWorker struct {
	log      *slog.Logger
	interval time.Duration
	registry *chatruntime.SessionRegistry
}

func NewStatsWorker(log *slog.Logger, interval time.Duration, registry *chatruntime.SessionRegistry) *StatsWorker {
	return &StatsWorker{log: log, interval: interval, registry: registry}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return nil
		case <-ticker.C:
			w.report(ctx)
		}
	}
}

func (w *StatsWorker) report(ctx context.Context) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	fields := []any{
		"sessions", w.registry.CountSessions(),
		"goroutines", runtime.NumGoroutine(),
		"heap_alloc_mb", memStats.Alloc / 1024 / 1024,
		"num_gc", memStats.NumGC,
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		fields = append(fields, "host_mem_used_percent", vm.UsedPercent)
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		fields = append(fields, "host_cpu_percent", percents[0])
	}

	w.log.Info("Runtime stats", fields...)
}
