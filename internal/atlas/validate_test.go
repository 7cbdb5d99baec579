package atlas

import (
	"errors"
	"strings"
	"testing"

	"vidatlas/internal/media/probe"
	"vidatlas/internal/services"
)

func validInfo() probe.MediaInfo {
	return probe.MediaInfo{
		Valid:           true,
		DurationSeconds: 10,
		Width:           1280,
		Height:          720,
		FrameRate:       30,
	}
}

func TestValidateAccepts(t *testing.T) {
	req := Request{FPS: 10, FrameWidth: 128, FrameHeight: 72}
	if err := Validate(req, validInfo()); err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
}

func TestValidateRejectsBeforeAnyWork(t *testing.T) {
	// A minute of 4K at 30 fps blows both the frame and memory budgets.
	info := validInfo()
	info.DurationSeconds = 60
	info.Width = 3840
	info.Height = 2160

	err := Validate(Request{FPS: 30}, info)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "lower the fps") {
		t.Fatalf("rejection must carry a remedy: %v", err)
	}
}

func TestValidateRejectsInvalidProbe(t *testing.T) {
	if err := Validate(Request{FPS: 10}, probe.MediaInfo{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateRejectsLongClip(t *testing.T) {
	info := validInfo()
	info.DurationSeconds = maxDurationSeconds + 1
	err := Validate(Request{FPS: 1}, info)
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "trim the clip") {
		t.Fatalf("expected duration rejection with remedy, got %v", err)
	}
}

func TestValidateRejectsDegenerateAspect(t *testing.T) {
	info := validInfo()
	info.Width = 4096
	info.Height = 32
	if err := Validate(Request{FPS: 1}, info); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected aspect rejection, got %v", err)
	}
}

func TestValidateBoundsExtractionFPS(t *testing.T) {
	// The extraction rate band is [1, 30], matching the config layer.
	for _, fps := range []float64{0, -1, 0.5, 45, maxExtractionFPS + 1} {
		if err := Validate(Request{FPS: fps}, validInfo()); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("fps %v: expected validation error, got %v", fps, err)
		}
	}
	for _, fps := range []float64{minExtractionFPS, 10, maxExtractionFPS} {
		if err := Validate(Request{FPS: fps}, validInfo()); err != nil {
			t.Fatalf("fps %v: expected acceptance, got %v", fps, err)
		}
	}
}

func TestValidateMemoryUsesTargetFrameSize(t *testing.T) {
	// Full-size frames would exceed the memory budget; a small target frame
	// size brings the same clip under it.
	info := validInfo()
	info.DurationSeconds = 500
	info.Width = 1920
	info.Height = 1080

	if err := Validate(Request{FPS: 2}, info); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected memory rejection at source size, got %v", err)
	}
	if err := Validate(Request{FPS: 2, FrameWidth: 160, FrameHeight: 90}, info); err != nil {
		t.Fatalf("scaled frames should pass, got %v", err)
	}
}

func TestEstimateFrames(t *testing.T) {
	if got := estimateFrames(10, 2.5); got != 25 {
		t.Fatalf("estimateFrames = %d, want 25", got)
	}
	if got := estimateFrames(1.01, 1); got != 2 {
		t.Fatalf("partial frames must round up, got %d", got)
	}
}
