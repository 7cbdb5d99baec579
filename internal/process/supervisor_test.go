package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vidatlas/internal/logging"
	"vidatlas/internal/services"
)

// writeStubEncoder drops an executable shell script standing in for ffmpeg.
// Scripts take the output path as their last argument.
func writeStubEncoder(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func lastArgScript(body string) string {
	return "#!/bin/sh\nfor arg in \"$@\"; do out=\"$arg\"; done\n" + body
}

func TestRunReportsMonotonicProgress(t *testing.T) {
	stub := writeStubEncoder(t, lastArgScript(`echo "frame=1 time=00:00:02.00 bitrate=1k" >&2
echo "frame=2 time=00:00:08.00 bitrate=1k" >&2
echo "frame=3 time=00:00:05.00 bitrate=1k" >&2
printf data > "$out"
`))
	out := filepath.Join(t.TempDir(), "clip.ogv")

	var percents []float64
	sup := New(stub, 1, logging.NewNop())
	err := sup.Run(context.Background(), Spec{
		Stage:           "convert",
		Args:            []string{out},
		ExpectedSeconds: 10,
		OutputPath:      out,
		Timeout:         10 * time.Second,
		Progress:        func(p float64) { percents = append(percents, p) },
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(percents) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] <= percents[i-1] {
			t.Fatalf("progress regressed: %v", percents)
		}
	}
	if percents[len(percents)-1] != 100 {
		t.Fatalf("final progress %v, want 100", percents[len(percents)-1])
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestRunFailureDeletesPartialOutput(t *testing.T) {
	stub := writeStubEncoder(t, lastArgScript(`printf partial > "$out"
echo "Invalid data found when processing input" >&2
exit 1
`))
	out := filepath.Join(t.TempDir(), "clip.mp4")

	sup := New(stub, 1, logging.NewNop())
	err := sup.Run(context.Background(), Spec{
		Stage:      "convert",
		Args:       []string{out},
		OutputPath: out,
		Timeout:    10 * time.Second,
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("error should carry the tool's diagnostic: %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("partial output must be deleted on failure")
	}
}

func TestRunEmptyOutputIsFailure(t *testing.T) {
	stub := writeStubEncoder(t, lastArgScript(`: > "$out"
exit 0
`))
	out := filepath.Join(t.TempDir(), "clip.webm")

	sup := New(stub, 1, logging.NewNop())
	err := sup.Run(context.Background(), Spec{
		Stage:      "convert",
		Args:       []string{out},
		OutputPath: out,
		Timeout:    10 * time.Second,
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error for empty output, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("zero-byte output must be deleted")
	}
}

func TestRunTimeout(t *testing.T) {
	stub := writeStubEncoder(t, "#!/bin/sh\nexec sleep 30\n")

	sup := New(stub, 1, logging.NewNop())
	start := time.Now()
	err := sup.Run(context.Background(), Spec{
		Stage:   "convert",
		Timeout: 200 * time.Millisecond,
	})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
}

func TestCancelStopsRunningJob(t *testing.T) {
	stub := writeStubEncoder(t, "#!/bin/sh\nexec sleep 30\n")
	out := filepath.Join(t.TempDir(), "clip.ogv")

	sup := New(stub, 1, logging.NewNop())
	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = sup.Run(context.Background(), Spec{
			Stage:      "convert",
			OutputPath: out,
			Timeout:    30 * time.Second,
		})
	}()

	waitForActive(t, sup)
	sup.Cancel()
	sup.Cancel() // second cancel is a no-op
	wg.Wait()

	if !errors.Is(runErr, services.ErrCancelled) {
		t.Fatalf("expected cancelled error, got %v", runErr)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("cancelled job must not leave an output file")
	}
}

func TestCancelWithNothingRunning(t *testing.T) {
	sup := New("ffmpeg", 1, logging.NewNop())
	sup.Cancel()
	sup.Cancel()
	if sup.Active() != 0 {
		t.Fatalf("expected no active jobs, got %d", sup.Active())
	}
}

func TestContextCancellation(t *testing.T) {
	stub := writeStubEncoder(t, "#!/bin/sh\nexec sleep 30\n")

	ctx, cancel := context.WithCancel(context.Background())
	sup := New(stub, 1, logging.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- sup.Run(ctx, Spec{Stage: "extract", Timeout: 30 * time.Second})
	}()
	waitForActive(t, sup)
	cancel()

	if err := <-done; !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancelled error, got %v", err)
	}
}

func TestParallelismDefaultsToAtLeastOne(t *testing.T) {
	sup := New("ffmpeg", 0, nil)
	if cap(sup.slots) < 1 {
		t.Fatalf("semaphore capacity %d, want >= 1", cap(sup.slots))
	}
	if sup.logger == nil {
		t.Fatal("nil logger must be replaced with a no-op logger")
	}
}

func waitForActive(t *testing.T, sup *Supervisor) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for sup.Active() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("job never started")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestParseProgressClock(t *testing.T) {
	cases := []struct {
		line    string
		seconds float64
		ok      bool
	}{
		{"frame= 120 fps= 30 q=5.0 size=1024kB time=00:01:05.50 bitrate=1k", 65.5, true},
		{"time=01:00:00.00", 3600, true},
		{"time=N/A", 0, false},
		{"Press [q] to stop", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseProgressClock(tc.line)
		if ok != tc.ok || got != tc.seconds {
			t.Fatalf("parseProgressClock(%q) = %f, %v; want %f, %v", tc.line, got, ok, tc.seconds, tc.ok)
		}
	}
}

func TestReporterCapsAtHundred(t *testing.T) {
	var percents []float64
	r := newReporter(10, func(p float64) { percents = append(percents, p) })
	r.observe(5)
	r.observe(50)
	r.observe(50)
	r.complete()
	r.complete()

	want := []float64{50, 100}
	if len(percents) != len(want) {
		t.Fatalf("percents %v, want %v", percents, want)
	}
	for i := range want {
		if percents[i] != want[i] {
			t.Fatalf("percents %v, want %v", percents, want)
		}
	}
}
