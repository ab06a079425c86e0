package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/aristath/fundcore/internal/database"
	"github.com/aristath/fundcore/internal/events"
	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/aristath/fundcore/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// FundStatus reports the supervisor view.
type FundStatus interface {
	Status() fund.Status
}

// JobRunner runs a registered job outside its schedule.
type JobRunner interface {
	RunNow(job scheduler.Job) error
}

// SystemStatusResponse is the body of GET /api/system/status.
type SystemStatusResponse struct {
	Timestamp string                    `json:"timestamp"`
	Status    string                    `json:"status"`
	Fund      fund.Status               `json:"fund"`
	Databases map[string]DatabaseStatus `json:"databases"`
	Jobs      []string                  `json:"jobs"`
	Events    EventBusStatus            `json:"events"`
	Host      HostStatus                `json:"host"`
	Runtime   RuntimeStatus             `json:"runtime"`
	Uptime    float64                   `json:"uptime_seconds"`
}

// DatabaseStatus is the health and size of one database.
type DatabaseStatus struct {
	Stats   *database.Stats `json:"stats,omitempty"`
	Error   string          `json:"error,omitempty"`
	Healthy bool            `json:"healthy"`
}

// EventBusStatus reports subscriber counts and delivery losses.
type EventBusStatus struct {
	Subscribers int   `json:"subscribers"`
	Dropped     int64 `json:"dropped"`
	Failures    int64 `json:"failures"`
}

// HostStatus is the host resource usage.
type HostStatus struct {
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryPercent   float64 `json:"memory_percent"`
	DiskFreeBytes   uint64  `json:"disk_free_bytes"`
	DiskUsedPercent float64 `json:"disk_used_percent"`
}

// RuntimeStatus is the Go runtime view.
type RuntimeStatus struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
}

// SystemHandlers serves system monitoring and operations endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases map[string]*database.DB
	bus       *events.Bus
	fund      FundStatus
	runner    JobRunner
	jobs      map[string]scheduler.Job
	startedAt time.Time
	hostStats func(dataDir string) HostStatus
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases map[string]*database.DB,
	bus *events.Bus,
	fundStatus FundStatus,
	runner JobRunner,
	jobs []scheduler.Job,
) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		bus:       bus,
		fund:      fundStatus,
		runner:    runner,
		jobs:      make(map[string]scheduler.Job),
		startedAt: time.Now(),
	}
	for _, job := range jobs {
		if job != nil {
			h.jobs[job.Name()] = job
		}
	}
	h.hostStats = h.getHostStats
	return h
}

// HandleSystemStatus handles GET /api/system/status
// The overall status is "degraded" when any database fails its health check
// or the fund is closed.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	resp := SystemStatusResponse{
		Timestamp: time.Now().Format(time.RFC3339),
		Status:    "healthy",
		Fund:      h.fund.Status(),
		Databases: make(map[string]DatabaseStatus, len(h.databases)),
		Jobs:      h.jobNames(),
		Host:      h.hostStats(h.dataDir),
		Runtime: RuntimeStatus{
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
		},
		Uptime: time.Since(h.startedAt).Seconds(),
	}
	if h.bus != nil {
		resp.Events = EventBusStatus{
			Subscribers: h.bus.SubscriberCount(),
			Dropped:     h.bus.Dropped(),
			Failures:    h.bus.Failures(),
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	for name, db := range h.databases {
		status := DatabaseStatus{Healthy: true}
		if err := db.HealthCheck(ctx); err != nil {
			status.Healthy = false
			status.Error = err.Error()
			resp.Status = "degraded"
		} else if stats, err := db.GetStats(); err == nil {
			status.Stats = stats
		}
		resp.Databases[name] = status
	}
	if resp.Fund.State == fund.StateClosed {
		resp.Status = "degraded"
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleTriggerJob handles POST /api/system/jobs/{name}
// Runs the job synchronously and reports its outcome.
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request, name string) {
	job, ok := h.jobs[name]
	if !ok {
		http.Error(w, "Unknown job", http.StatusNotFound)
		return
	}

	start := time.Now()
	if err := h.runner.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Triggered job failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":  "error",
			"job":     name,
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"job":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func (h *SystemHandlers) jobNames() []string {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// getHostStats samples CPU over 100ms; memory and disk readings are instant.
func (h *SystemHandlers) getHostStats(dataDir string) HostStatus {
	var hs HostStatus

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		hs.CPUPercent = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		hs.MemoryPercent = memStat.UsedPercent
	}

	if usage, err := disk.Usage(dataDir); err != nil {
		h.log.Warn().Err(err).Str("path", dataDir).Msg("Failed to get disk usage")
	} else {
		hs.DiskFreeBytes = usage.Free
		hs.DiskUsedPercent = usage.UsedPercent
	}
	return hs
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
