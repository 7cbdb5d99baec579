package atlas

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"vidatlas/internal/fileutil"
	"vidatlas/internal/logging"
	"vidatlas/internal/media/probe"
	"vidatlas/internal/process"
	"vidatlas/internal/services"
)

// segmentStride offsets each parallel segment's frame numbering so sequences
// from different segments can never collide, even inside a shared directory.
const segmentStride = 1_000_000

// fallbackFrameRate is the merge-timecode rate of last resort when neither
// the request nor the probe carries a usable rate.
const fallbackFrameRate = 30.0

type segment struct {
	start  float64
	length float64
}

// extract picks the extraction strategy. Long sources go through the
// parallel-segmented path; any segment failure other than cancellation falls
// back to one sequential pass instead of surfacing.
func (a *Assembler) extract(ctx context.Context, req Request, info probe.MediaInfo, tempDir, framesDir string, progress func(float64)) ([]string, error) {
	if info.DurationSeconds >= a.opts.ParallelCutover && a.parallelism() > 1 {
		frames, err := a.extractParallel(ctx, req, info, tempDir, framesDir, progress)
		if err == nil {
			return frames, nil
		}
		if isCancellation(err) {
			return nil, err
		}
		a.logger.Warn("parallel extraction failed, falling back to sequential",
			logging.Error(err))
		if err := resetDir(framesDir); err != nil {
			return nil, services.Wrap(services.ErrExtraction, "atlas", "reset frame dir", "", err)
		}
	}
	return a.extractSequential(ctx, req, info, framesDir, progress)
}

// extractSequential runs one constant-frame-rate pass over the whole clip.
// A watchdog cancels the run when no new frame has appeared for the
// inactivity window, which separates a stuck decoder from a slow one.
func (a *Assembler) extractSequential(ctx context.Context, req Request, info probe.MediaInfo, dir string, progress func(float64)) ([]string, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stalled := make(chan struct{})
	go a.watchFrames(watchCtx, dir, stalled, cancel)

	err := a.supervisor.Run(watchCtx, process.Spec{
		Stage:           "extract",
		Args:            extractArgs(req, segment{}, filepath.Join(dir, "frame_%06d.png"), 0),
		ExpectedSeconds: info.DurationSeconds,
		Timeout:         a.opts.ExtractTimeout,
		Progress:        progress,
	})
	if err != nil {
		select {
		case <-stalled:
			return nil, services.Wrap(services.ErrTimeout, "atlas", "extract",
				"no new frames for "+a.opts.InactivityWindow.String()+"; the decoder appears stuck", nil)
		default:
			return nil, err
		}
	}
	return listFrames(dir)
}

// extractParallel splits the timeline into segments, extracts them
// concurrently under the supervisor's semaphore, and merges the results back
// into one contiguously numbered sequence in strict timecode order.
func (a *Assembler) extractParallel(ctx context.Context, req Request, info probe.MediaInfo, tempDir, framesDir string, progress func(float64)) ([]string, error) {
	segments := planSegments(info.DurationSeconds, a.parallelism(), a.opts.SegmentSeconds)
	if len(segments) < 2 {
		return a.extractSequential(ctx, req, info, framesDir, progress)
	}
	a.logger.Info("parallel extraction",
		logging.Int("segments", len(segments)),
		logging.Float64("duration_s", info.DurationSeconds))

	dirs := make([]string, len(segments))
	errs := make([]error, len(segments))
	shares := make([]float64, len(segments))
	var progressMu sync.Mutex
	report := func(index int, percent float64) {
		if progress == nil {
			return
		}
		progressMu.Lock()
		shares[index] = percent
		var total float64
		for _, share := range shares {
			total += share
		}
		overall := total / float64(len(shares))
		progressMu.Unlock()
		progress(overall)
	}

	var wg sync.WaitGroup
	for i, seg := range segments {
		dirs[i] = filepath.Join(tempDir, fmt.Sprintf("segment_%02d", i))
		if err := os.MkdirAll(dirs[i], 0o755); err != nil {
			return nil, services.Wrap(services.ErrExtraction, "atlas", "create segment dir", "", err)
		}
		wg.Add(1)
		go func(i int, seg segment) {
			defer wg.Done()
			errs[i] = a.supervisor.Run(ctx, process.Spec{
				Stage:           "extract",
				Args:            extractArgs(req, seg, filepath.Join(dirs[i], "frame_%09d.png"), i*segmentStride+1),
				ExpectedSeconds: seg.length,
				Timeout:         a.opts.ExtractTimeout,
				Progress:        func(p float64) { report(i, p) },
			})
		}(i, seg)
	}
	wg.Wait()

	for _, err := range errs {
		if isCancellation(err) {
			removeAll(dirs)
			return nil, err
		}
	}
	for i, err := range errs {
		if err != nil {
			removeAll(dirs)
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
	}

	frames, err := mergeSegments(dirs, segments, mergeRate(req, info), framesDir)
	removeAll(dirs)
	return frames, err
}

// mergeSegments recovers each frame's approximate timecode from its segment
// start and in-segment index, sorts globally, and renumbers contiguously
// into finalDir. The concurrency of extraction is invisible afterwards.
func mergeSegments(dirs []string, segments []segment, rate float64, finalDir string) ([]string, error) {
	type timedFrame struct {
		timecode float64
		path     string
	}
	var all []timedFrame
	for i, dir := range dirs {
		frames, err := listFrames(dir)
		if err != nil {
			return nil, err
		}
		for j, path := range frames {
			all = append(all, timedFrame{
				timecode: segments[i].start + float64(j)/rate,
				path:     path,
			})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].timecode < all[j].timecode })

	for k, frame := range all {
		target := filepath.Join(finalDir, fmt.Sprintf("frame_%06d.png", k+1))
		if err := os.Rename(frame.path, target); err != nil {
			return nil, services.Wrap(services.ErrExtraction, "atlas", "merge segments", "", err)
		}
	}
	return listFrames(finalDir)
}

// mergeRate resolves the frame spacing used for timecode reconstruction:
// the extraction rate, else the probed source rate, else a nominal 30.
func mergeRate(req Request, info probe.MediaInfo) float64 {
	if req.FPS > 0 {
		return req.FPS
	}
	if info.FrameRate > 0 {
		return info.FrameRate
	}
	return fallbackFrameRate
}

// planSegments slices the timeline into n roughly equal segments, where n is
// bounded by both available parallelism and a per-segment length cap.
func planSegments(durationSeconds float64, parallelism int, segmentCap float64) []segment {
	n := int(math.Ceil(durationSeconds / segmentCap))
	if n > parallelism {
		n = parallelism
	}
	if n < 1 {
		n = 1
	}
	length := durationSeconds / float64(n)
	segments := make([]segment, n)
	for i := range segments {
		start := float64(i) * length
		segments[i] = segment{start: start, length: length}
	}
	// Absorb rounding drift into the last segment.
	segments[n-1].length = durationSeconds - segments[n-1].start
	return segments
}

// extractArgs builds the frame-extraction argument list. The fps filter
// forces constant frame rate so variable-rate sources still produce evenly
// spaced frames.
func extractArgs(req Request, seg segment, pattern string, startNumber int) []string {
	args := []string{"-hide_banner", "-y"}
	if seg.length > 0 {
		args = append(args, "-ss", formatSeconds(seg.start), "-t", formatSeconds(seg.length))
	}
	args = append(args, "-i", req.Source, "-vf", extractFilterChain(req))
	if startNumber > 0 {
		args = append(args, "-start_number", strconv.Itoa(startNumber))
	}
	return append(args, pattern)
}

func extractFilterChain(req Request) string {
	filters := make([]string, 0, 2)
	if req.FrameWidth > 0 && req.FrameHeight > 0 {
		filters = append(filters,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", req.FrameWidth, req.FrameHeight))
	}
	filters = append(filters, fmt.Sprintf("fps=%s", formatSeconds(req.FPS)))
	return strings.Join(filters, ",")
}

// watchFrames cancels the extraction when the frame count has not moved for
// the inactivity window.
func (a *Assembler) watchFrames(ctx context.Context, dir string, stalled chan struct{}, cancel context.CancelFunc) {
	ticker := time.NewTicker(a.opts.WatchInterval)
	defer ticker.Stop()

	last := -1
	lastChange := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count := countFrames(dir)
			if count != last {
				last = count
				lastChange = time.Now()
				continue
			}
			if time.Since(lastChange) >= a.opts.InactivityWindow {
				close(stalled)
				cancel()
				return
			}
		}
	}
}

func (a *Assembler) parallelism() int {
	if a.opts.MaxParallel > 0 {
		return a.opts.MaxParallel
	}
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// listFrames returns the frame files in dir sorted by name. Zero-padded
// numbering makes lexical order equal numeric order.
func listFrames(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func countFrames(dir string) int {
	matches, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		return 0
	}
	return len(matches)
}

func resetDir(dir string) error {
	fileutil.RemoveTreeBestEffort(dir)
	return os.MkdirAll(dir, 0o755)
}

func removeAll(dirs []string) {
	for _, dir := range dirs {
		fileutil.RemoveTreeBestEffort(dir)
	}
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
