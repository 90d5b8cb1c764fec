package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/papertrade/internal/database"
)

// SystemHandlers handles system monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	brokerDB    *database.DB
	cacheDB     *database.DB
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, brokerDB, cacheDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		brokerDB:    brokerDB,
		cacheDB:     cacheDB,
	}
}

type databaseStatus struct {
	Name         string `json:"name"`
	Healthy      bool   `json:"healthy"`
	SizeBytes    int64  `json:"size_bytes"`
	WALSizeBytes int64  `json:"wal_size_bytes"`
}

type systemStatus struct {
	UptimeSeconds  int64            `json:"uptime_seconds"`
	CPUPercent     float64          `json:"cpu_percent"`
	MemUsedPercent float64          `json:"mem_used_percent"`
	DiskFreeBytes  uint64           `json:"disk_free_bytes"`
	Databases      []databaseStatus `json:"databases"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := systemStatus{
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
	}

	// Best-effort host metrics: a failed probe reports zero, not an error
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemUsedPercent = vm.UsedPercent
	}
	if usage, err := disk.Usage(h.dataDir); err == nil {
		status.DiskFreeBytes = usage.Free
	}

	for _, db := range []*database.DB{h.brokerDB, h.cacheDB} {
		if db == nil {
			continue
		}

		ds := databaseStatus{Name: db.Name(), Healthy: true}
		if err := db.HealthCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			ds.Healthy = false
		}
		if stats, err := db.GetStats(); err == nil {
			ds.SizeBytes = stats.SizeBytes
			ds.WALSizeBytes = stats.WALSizeBytes
		}

		status.Databases = append(status.Databases, ds)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}
