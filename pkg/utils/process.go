package utils

import (
	"fmt"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessSummary is a running process as reported to the front end
type ProcessSummary struct {
	Name           string `json:"name"`
	StartTimeUnixS int64  `json:"start_time_unix_s"`
}

// ProcessInfo resolves the executable path and name of pid. Unknown or
// inaccessible processes yield empty strings.
func ProcessInfo(pid int) (path, name string) {
	if pid <= 0 {
		return "", ""
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", ""
	}
	if exe, err := p.Exe(); err == nil {
		path = exe
	}
	if n, err := p.Name(); err == nil {
		name = n
	} else if path != "" {
		name = filepath.Base(path)
	}
	return path, name
}

// ListProcesses returns every running process with a known start time.
// Processes that exit or deny access while being read are skipped.
func ListProcesses() ([]ProcessSummary, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	out := make([]ProcessSummary, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		created, err := p.CreateTime()
		if err != nil {
			continue
		}
		if s, ok := summarize(name, created); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// summarize converts a gopsutil creation time in milliseconds
func summarize(name string, createdMs int64) (ProcessSummary, bool) {
	secs := createdMs / 1000
	if secs <= 0 {
		return ProcessSummary{}, false
	}
	return ProcessSummary{Name: name, StartTimeUnixS: secs}, true
}
