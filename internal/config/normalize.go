package config

import "strings"

// normalize expands paths and canonicalizes enum-like string fields so the
// rest of the repository can compare them without case folding.
func (c *Config) normalize() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(valueOr(c.Paths.OutputDir, defaultOutputDir)); err != nil {
		return err
	}
	if c.Paths.TempDir, err = expandPath(valueOr(c.Paths.TempDir, defaultTempDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(valueOr(c.Paths.LogDir, defaultLogDir)); err != nil {
		return err
	}

	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.ConvertTimeout == 0 {
		c.Tools.ConvertTimeout = defaultConvertTimeout
	}
	if c.Tools.ExtractTimeout == 0 {
		c.Tools.ExtractTimeout = defaultExtractTimeout
	}

	c.Defaults.Format = lowerOr(c.Defaults.Format, defaultFormat)
	c.Defaults.Quality = lowerOr(c.Defaults.Quality, defaultQuality)
	c.Defaults.OGVMode = lowerOr(c.Defaults.OGVMode, defaultOGVMode)
	c.Defaults.Resolution = strings.ToLower(strings.TrimSpace(c.Defaults.Resolution))
	c.Defaults.FPS = strings.TrimSpace(c.Defaults.FPS)

	if c.Atlas.FPS == 0 {
		c.Atlas.FPS = defaultAtlasFPS
	}
	c.Atlas.Layout = lowerOr(c.Atlas.Layout, defaultAtlasLayout)

	c.Logging.Level = lowerOr(c.Logging.Level, defaultLogLevel)
	c.Logging.Format = lowerOr(c.Logging.Format, defaultLogFormat)
	return nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func lowerOr(value, fallback string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
