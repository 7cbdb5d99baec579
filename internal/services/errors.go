package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks requests rejected before any work started. Wraps
	// with this marker always carry a concrete remedy in the hint.
	ErrValidation = errors.New("validation error")
	// ErrExternalTool marks a non-zero exit or unusable output from ffmpeg
	// or ffprobe.
	ErrExternalTool = errors.New("external tool error")
	// ErrExtraction marks frame extraction that completed without producing
	// any frames.
	ErrExtraction = errors.New("extraction error")
	// ErrLayout marks an atlas whose composed raster would exceed the
	// maximum dimension.
	ErrLayout = errors.New("layout error")
	// ErrTimeout marks jobs that exceeded their wall-clock ceiling or
	// stopped making forward progress.
	ErrTimeout = errors.New("timeout")
	// ErrCancelled marks user-initiated cancellation.
	ErrCancelled = errors.New("cancelled")
	// ErrConfiguration marks unusable configuration values.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, hint string, err error) error {
	detail := buildDetail(stage, operation, hint)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Summary reduces an error to a short status string suitable for user-facing
// output. The sentinel prefix is kept because it names the failure class.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "unknown failure"
	}
	return message
}

// IsCancellation reports whether err stems from user cancellation.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsTimeout reports whether err stems from a wall-clock or inactivity limit.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsRetryable reports whether a batch should continue with the next file
// after this failure. Cancellation aborts the remaining batch; everything
// else is a per-file failure.
func IsRetryable(err error) bool {
	return err != nil && !errors.Is(err, ErrCancelled)
}

func buildDetail(stage, operation, hint string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if hint = strings.TrimSpace(hint); hint != "" {
		parts = append(parts, hint)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
