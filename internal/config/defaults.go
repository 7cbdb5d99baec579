package config

const (
	defaultOutputDir      = "~/Videos/vidatlas"
	defaultTempDir        = "~/.cache/vidatlas/work"
	defaultLogDir         = "~/.local/share/vidatlas/logs"
	defaultConvertTimeout = 1800
	defaultExtractTimeout = 300
	defaultFormat         = "ogv"
	defaultQuality        = "balanced"
	defaultOGVMode        = "none"
	defaultAtlasFPS       = 10
	defaultAtlasLayout    = "grid"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			TempDir:   defaultTempDir,
			LogDir:    defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:         "ffmpeg",
			FFprobe:        "ffprobe",
			ConvertTimeout: defaultConvertTimeout,
			ExtractTimeout: defaultExtractTimeout,
		},
		Defaults: Defaults{
			Format:    defaultFormat,
			Quality:   defaultQuality,
			KeepAudio: true,
			OGVMode:   defaultOGVMode,
		},
		Atlas: Atlas{
			FPS:    defaultAtlasFPS,
			Layout: defaultAtlasLayout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
