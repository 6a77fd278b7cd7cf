package metrics

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"time"
)

var startedAt = time.Now()

// SysHealth is the process snapshot served on /health.
type SysHealth struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	HeapMB        uint64 `json:"heap_mb"`
	HeapObjects   uint64 `json:"heap_objects"`
	SysMB         uint64 `json:"sys_mb"`
	NumGC         uint32 `json:"num_gc"`
	Goroutines    int    `json:"goroutines"`
	DataFiles     int    `json:"data_files"`
	DataDiskSize  string `json:"data_disk_size"`
}

// GetSysHealth reads runtime memory stats and walks dataDir, which holds the
// JSON store, the SQLite database and its WAL files.
func GetSysHealth(dataDir string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	files, size := dataUsage(dataDir)
	return SysHealth{
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
		HeapMB:        m.HeapAlloc >> 20,
		HeapObjects:   m.HeapObjects,
		SysMB:         m.Sys >> 20,
		NumGC:         m.NumGC,
		Goroutines:    runtime.NumGoroutine(),
		DataFiles:     files,
		DataDiskSize:  formatBytes(size),
	}
}

// dataUsage counts regular files under dir and their total size.
// Unreadable entries are skipped; a missing directory is empty.
func dataUsage(dir string) (files int, size int64) {
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files++
		size += info.Size()
		return nil
	})
	return files, size
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
