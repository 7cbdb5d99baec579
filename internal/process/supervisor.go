// Package process runs external encoder invocations under supervision:
// bounded parallelism, stderr progress parsing, wall-clock timeouts, graceful
// cancellation, and removal of partial output files.
package process

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"vidatlas/internal/fileutil"
	"vidatlas/internal/logging"
	"vidatlas/internal/services"
)

// defaultTerminateGrace is how long a signalled process gets to flush and
// exit before it is killed outright.
const defaultTerminateGrace = 3 * time.Second

// Spec describes one supervised invocation. Args is the full argument list
// for the binary. ExpectedSeconds sizes progress reporting; zero disables it.
// OutputPath, when set, is deleted on failure and verified non-empty on
// success. A zero Timeout means no wall-clock ceiling.
type Spec struct {
	Stage           string
	Args            []string
	ExpectedSeconds float64
	OutputPath      string
	Timeout         time.Duration
	Progress        func(percent float64)
}

type job struct {
	cmd        *exec.Cmd
	done       chan struct{}
	cancelled  atomic.Bool
	terminated atomic.Bool
}

// Supervisor launches and tracks encoder processes for one binary. A
// semaphore bounds how many run at once; Cancel terminates everything
// currently active.
type Supervisor struct {
	binary string
	logger *slog.Logger
	slots  chan struct{}
	grace  time.Duration

	mu     sync.Mutex
	active map[*job]struct{}
}

// New builds a supervisor for the given binary. maxParallel <= 0 defaults to
// one fewer than the CPU count, floored at one.
func New(binary string, maxParallel int, logger *slog.Logger) *Supervisor {
	if maxParallel <= 0 {
		maxParallel = runtime.NumCPU() - 1
		if maxParallel < 1 {
			maxParallel = 1
		}
	}
	return &Supervisor{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "process"),
		slots:  make(chan struct{}, maxParallel),
		grace:  defaultTerminateGrace,
		active: make(map[*job]struct{}),
	}
}

// Run executes the binary with spec's arguments and blocks until it finishes,
// fails, times out, or is cancelled. On any non-success path the output file,
// if one was named, is removed so a failed job never leaves a partial file
// behind.
func (s *Supervisor) Run(ctx context.Context, spec Spec) error {
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return services.Wrap(services.ErrCancelled, spec.Stage, "queue", "", ctx.Err())
	}
	defer func() { <-s.slots }()

	name := filepath.Base(s.binary)
	cmd := exec.Command(s.binary, spec.Args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, spec.Stage, "open stderr pipe", "", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, spec.Stage, "open stdout pipe", "", err)
	}

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, spec.Stage, "start "+name,
			"check that the tool is installed and executable", err)
	}
	s.logger.Debug("process started",
		logging.String("binary", name),
		logging.String("stage", spec.Stage),
		logging.Int("pid", cmd.Process.Pid),
		logging.String("args", strings.Join(spec.Args, " ")))

	j := &job{cmd: cmd, done: make(chan struct{})}
	s.register(j)
	defer s.unregister(j)

	progress := newReporter(spec.ExpectedSeconds, spec.Progress)
	tail := newTailBuffer(12)

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		_, _ = io.Copy(io.Discard, stdout)
	}()
	go func() {
		defer readers.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		scanner.Split(scanStatusLines)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if seconds, ok := parseProgressClock(line); ok {
				progress.observe(seconds)
				continue
			}
			tail.add(line)
		}
	}()

	waitCh := make(chan error, 1)
	go func() {
		readers.Wait()
		waitCh <- cmd.Wait()
	}()

	var timeout <-chan time.Time
	if spec.Timeout > 0 {
		timer := time.NewTimer(spec.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case waitErr := <-waitCh:
		close(j.done)
		return s.finish(spec, j, name, waitErr, progress, tail)
	case <-timeout:
		s.logger.Warn("process timed out",
			logging.String("binary", name),
			logging.String("stage", spec.Stage),
			logging.Duration("timeout", spec.Timeout))
		s.terminate(j)
		<-waitCh
		close(j.done)
		s.discard(spec.OutputPath)
		return services.Wrap(services.ErrTimeout, spec.Stage, name,
			"exceeded "+spec.Timeout.String()+"; raise the timeout or pick a faster preset", nil)
	case <-ctx.Done():
		s.terminate(j)
		<-waitCh
		close(j.done)
		s.discard(spec.OutputPath)
		return services.Wrap(services.ErrCancelled, spec.Stage, name, "", ctx.Err())
	}
}

// finish classifies a completed wait. Cancellation wins over the raw exit
// status because a signalled encoder may still exit zero.
func (s *Supervisor) finish(spec Spec, j *job, name string, waitErr error, progress *reporter, tail *tailBuffer) error {
	if j.cancelled.Load() {
		s.discard(spec.OutputPath)
		return services.Wrap(services.ErrCancelled, spec.Stage, name, "", errors.New("cancelled"))
	}
	if waitErr != nil {
		s.discard(spec.OutputPath)
		return services.Wrap(services.ErrExternalTool, spec.Stage, name, tail.hint(), waitErr)
	}
	if spec.OutputPath != "" && !fileutil.IsNonEmptyFile(spec.OutputPath) {
		s.discard(spec.OutputPath)
		return services.Wrap(services.ErrExternalTool, spec.Stage, name,
			"exited cleanly but produced no usable output", nil)
	}
	progress.complete()
	return nil
}

// Cancel terminates every active process. Safe to call repeatedly and with
// nothing running.
func (s *Supervisor) Cancel() {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.active))
	for j := range s.active {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	for _, j := range jobs {
		j.cancelled.Store(true)
		s.terminate(j)
	}
	if len(jobs) > 0 {
		s.logger.Info("cancellation requested", logging.Int("jobs", len(jobs)))
	}
}

// Active reports how many supervised processes are currently running.
func (s *Supervisor) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Close cancels anything still running.
func (s *Supervisor) Close() {
	s.Cancel()
}

// terminate asks the process to exit with SIGTERM, then kills it if it is
// still alive after the grace window.
func (s *Supervisor) terminate(j *job) {
	if !j.terminated.CompareAndSwap(false, true) {
		return
	}
	proc := j.cmd.Process
	if proc == nil {
		return
	}
	_ = proc.Signal(unix.SIGTERM)
	grace := s.grace
	go func() {
		select {
		case <-j.done:
		case <-time.After(grace):
			_ = proc.Kill()
		}
	}()
}

func (s *Supervisor) register(j *job) {
	s.mu.Lock()
	s.active[j] = struct{}{}
	s.mu.Unlock()
}

func (s *Supervisor) unregister(j *job) {
	s.mu.Lock()
	delete(s.active, j)
	s.mu.Unlock()
}

func (s *Supervisor) discard(path string) {
	if path == "" {
		return
	}
	if err := fileutil.RemoveFileIfExists(path); err != nil {
		s.logger.Warn("could not remove partial output",
			logging.String("path", path), logging.Error(err))
	}
}
