package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"dmcore/contract"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*HealthMonitoring)(nil)

// HealthMonitoring periodically samples CPU and RAM usage of the server
// process itself and reports them through the logger.
type HealthMonitoring struct {
	log            *slog.Logger
	metricInterval time.Duration
}

func NewHealthMonitoring(log *slog.Logger, metricInterval time.Duration) *HealthMonitoring {
	return &HealthMonitoring{log: log, metricInterval: metricInterval}
}

func (w *HealthMonitoring) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return nil
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			ram, err := p.MemoryPercent()
			if err != nil {
				w.log.Error("Error while finding process ram usage", "err", err)
				continue
			}
			w.log.Debug("Process metrics", "cpu_percent", cpu, "ram_percent", ram)
		}
	}
}
