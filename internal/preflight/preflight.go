// Package preflight provides readiness checks for the filesystem paths,
// external tools, and machine resources a job is about to lean on.
//
// These checks run in two contexts:
//   - The engine calls RunAll before starting work so a doomed run fails in
//     milliseconds instead of minutes into an encode.
//   - The CLI "vidatlas status" command renders the individual results.
package preflight

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sys/unix"

	"vidatlas/internal/config"
	"vidatlas/internal/deps"
)

// Headroom floors: a run needs at least this much free before it starts.
const (
	minFreeMemoryBytes = 512 << 20
	minFreeDiskBytes   = 1 << 30
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
		CheckMemory(),
		CheckDiskSpace(cfg.Paths.TempDir),
	}
	for _, status := range CheckTools(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Command}
		if !status.Available {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// AllPassed reports whether every non-optional check succeeded.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckMemory verifies the machine has headroom for frame composition. An
// unreadable meter passes rather than blocking work on a metrics failure.
func CheckMemory() Result {
	const name = "Free memory"
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("unreadable (%v)", err)}
	}
	if vm.Available < minFreeMemoryBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%d MiB available, need %d MiB; close other work first", vm.Available>>20, uint64(minFreeMemoryBytes)>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MiB available", vm.Available>>20)}
}

// CheckDiskSpace verifies the temp volume can hold extracted frames.
func CheckDiskSpace(path string) Result {
	const name = "Free disk space"
	usage, err := disk.Usage(path)
	if err != nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("unreadable (%v)", err)}
	}
	if usage.Free < minFreeDiskBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%d MiB free on %s, need %d MiB", usage.Free>>20, path, uint64(minFreeDiskBytes)>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MiB free", usage.Free>>20)}
}

// CheckTools evaluates the external binaries every job needs.
func CheckTools(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for conversion and frame extraction",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
	})
}
