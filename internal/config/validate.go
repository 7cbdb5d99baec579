package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	knownFormats   = []string{"ogv", "mp4", "webm", "gif"}
	knownQualities = []string{"ultra", "high", "balanced", "optimized", "tiny"}
	knownOGVModes  = []string{"none", "streaming", "balanced", "archive"}
	knownLayouts   = []string{"grid", "horizontal", "vertical"}

	resolutionPattern = regexp.MustCompile(`^\d{1,5}x\d{1,5}$`)
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateDefaults(); err != nil {
		return err
	}
	if err := c.validateAtlas(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTools() error {
	if err := ensurePositiveMap(map[string]int{
		"tools.convert_timeout": c.Tools.ConvertTimeout,
		"tools.extract_timeout": c.Tools.ExtractTimeout,
	}); err != nil {
		return err
	}
	if c.Tools.MaxParallel < 0 {
		return errors.New("tools.max_parallel must be >= 0 (zero selects processor count minus one)")
	}
	return nil
}

func (c *Config) validateDefaults() error {
	if !contains(knownFormats, c.Defaults.Format) {
		return fmt.Errorf("defaults.format must be one of %s", strings.Join(knownFormats, ", "))
	}
	if !contains(knownQualities, c.Defaults.Quality) {
		return fmt.Errorf("defaults.quality must be one of %s", strings.Join(knownQualities, ", "))
	}
	if !contains(knownOGVModes, c.Defaults.OGVMode) {
		return fmt.Errorf("defaults.ogv_mode must be one of %s", strings.Join(knownOGVModes, ", "))
	}
	if res := c.Defaults.Resolution; res != "" && !resolutionPattern.MatchString(res) {
		return fmt.Errorf("defaults.resolution must be WxH (e.g. 1280x720) or empty to keep the original, got %q", res)
	}
	if fps := c.Defaults.FPS; fps != "" {
		parsed, err := strconv.ParseFloat(fps, 64)
		if err != nil || parsed <= 0 || parsed > 120 {
			return fmt.Errorf("defaults.fps must be a positive number <= 120 or empty to keep the original, got %q", fps)
		}
	}
	return nil
}

func (c *Config) validateAtlas() error {
	if c.Atlas.FPS < 1 || c.Atlas.FPS > 30 {
		return errors.New("atlas.fps must be between 1 and 30")
	}
	if !contains(knownLayouts, c.Atlas.Layout) {
		return fmt.Errorf("atlas.layout must be one of %s", strings.Join(knownLayouts, ", "))
	}
	if c.Atlas.FrameSize < 0 {
		return errors.New("atlas.frame_size must be >= 0 (zero keeps the source frame size)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
