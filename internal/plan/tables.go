package plan

import "strconv"

// theoraQuality maps presets to libtheora's -q:v scale (0-10).
var theoraQuality = map[Quality]string{
	QualityUltra:     "10",
	QualityHigh:      "8",
	QualityBalanced:  "6",
	QualityOptimized: "5",
	QualityTiny:      "3",
}

// x264Settings pairs CRF with an encoder speed preset.
var x264Settings = map[Quality]struct {
	crf    string
	preset string
}{
	QualityUltra:     {"16", "slow"},
	QualityHigh:      {"18", "slow"},
	QualityBalanced:  {"21", "medium"},
	QualityOptimized: {"26", "fast"},
	QualityTiny:      {"30", "veryfast"},
}

// vp9Settings pairs CRF with libvpx's cpu-used speed knob.
var vp9Settings = map[Quality]struct {
	crf     string
	cpuUsed string
}{
	QualityUltra:     {"18", "1"},
	QualityHigh:      {"24", "2"},
	QualityBalanced:  {"30", "2"},
	QualityOptimized: {"36", "4"},
	QualityTiny:      {"42", "5"},
}

// gifPalette drives palettegen/paletteuse: palette size shrinks and the
// dither gets coarser as the preset drops.
var gifPalette = map[Quality]struct {
	maxColors int
	dither    string
}{
	QualityUltra:     {256, "sierra2_4a"},
	QualityHigh:      {192, "sierra2_4a"},
	QualityBalanced:  {128, "bayer:bayer_scale=3"},
	QualityOptimized: {96, "bayer:bayer_scale=4"},
	QualityTiny:      {64, "bayer:bayer_scale=5"},
}

// ogvModeFlags holds the keyframe-interval/threading/bitrate-control table
// for Theora optimization modes. A mode with cbrBitrate set takes constant-
// bitrate control; the preset's -q:v flag must then be omitted because the
// encoder rejects mixing rate control strategies.
var ogvModeFlags = map[OGVMode]struct {
	cbrBitrate string
	gop        string
	threads    string
}{
	OGVModeStreaming: {cbrBitrate: "1500k", gop: "30", threads: "4"},
	OGVModeBalanced:  {gop: "64", threads: "4"},
	OGVModeArchive:   {gop: "240", threads: "2"},
}

// audioArgs returns the per-format audio flags. Every format uses a fixed
// bitrate and sample rate so repeated conversions stay byte-identical.
func audioArgs(format Format, keepAudio, hasAudio bool) []string {
	if format == FormatGIF || !keepAudio || !hasAudio {
		return []string{"-an"}
	}
	switch format {
	case FormatOGV:
		return []string{"-c:a", "libvorbis", "-b:a", "128k", "-ar", "44100"}
	case FormatMP4:
		return []string{"-c:a", "aac", "-b:a", "192k", "-ar", "44100"}
	case FormatWebM:
		return []string{"-c:a", "libopus", "-b:a", "128k"}
	default:
		return []string{"-an"}
	}
}

func videoCodecArgs(format Format, quality Quality, mode OGVMode) []string {
	switch format {
	case FormatOGV:
		args := []string{"-c:v", "libtheora"}
		flags, active := ogvModeFlags[mode]
		if active && flags.cbrBitrate != "" {
			// CBR replaces the preset's quality value; the two must
			// never both appear.
			args = append(args,
				"-b:v", flags.cbrBitrate,
				"-minrate", flags.cbrBitrate,
				"-maxrate", flags.cbrBitrate,
			)
		} else {
			args = append(args, "-q:v", theoraQuality[quality])
		}
		if active {
			if flags.gop != "" {
				args = append(args, "-g", flags.gop)
			}
			if flags.threads != "" {
				args = append(args, "-threads", flags.threads)
			}
		}
		return args
	case FormatMP4:
		settings := x264Settings[quality]
		return []string{
			"-c:v", "libx264",
			"-crf", settings.crf,
			"-preset", settings.preset,
			"-pix_fmt", "yuv420p",
			"-movflags", "+faststart",
		}
	case FormatWebM:
		settings := vp9Settings[quality]
		return []string{
			"-c:v", "libvpx-vp9",
			"-b:v", "0",
			"-crf", settings.crf,
			"-cpu-used", settings.cpuUsed,
			"-row-mt", "1",
		}
	default:
		return nil
	}
}

func gifFilterGraph(chain string, quality Quality) string {
	palette := gifPalette[quality]
	prefix := "[0:v]"
	if chain != "" {
		prefix += chain + ","
	}
	return prefix + "split[pg][pu];" +
		"[pg]palettegen=max_colors=" + strconv.Itoa(palette.maxColors) + "[pal];" +
		"[pu][pal]paletteuse=dither=" + palette.dither
}
