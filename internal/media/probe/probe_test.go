package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vidatlas/internal/logging"
)

const sampleJSON = `{
  "streams": [
    {"codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "30000/1001"},
    {"codec_name": "aac", "codec_type": "audio"}
  ],
  "format": {"duration": "12.500000", "bit_rate": "4500000"}
}`

func writeStubProbe(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestProbeParsesStreams(t *testing.T) {
	stub := writeStubProbe(t, "#!/bin/sh\ncat <<'JSON'\n"+sampleJSON+"\nJSON\n")
	prober := New(stub, logging.NewNop())

	info := prober.Probe(context.Background(), "clip.mp4")

	if !info.Valid {
		t.Fatalf("expected valid info, got %+v", info)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Fatalf("unexpected dimensions: %dx%d", info.Width, info.Height)
	}
	if info.ResolutionLabel() != "1920x1080" {
		t.Fatalf("unexpected label: %s", info.ResolutionLabel())
	}
	if info.VideoCodec != "h264" || info.AudioCodec != "aac" || !info.HasAudio {
		t.Fatalf("unexpected codecs: %+v", info)
	}
	if info.DurationSeconds != 12.5 {
		t.Fatalf("unexpected duration: %f", info.DurationSeconds)
	}
	if info.BitRate != 4500000 {
		t.Fatalf("unexpected bitrate: %d", info.BitRate)
	}
	if info.FrameRate < 29.9 || info.FrameRate > 30.0 {
		t.Fatalf("unexpected frame rate: %f", info.FrameRate)
	}
}

func TestProbeMalformedFileIsInvalidNotError(t *testing.T) {
	stub := writeStubProbe(t, "#!/bin/sh\necho 'Invalid data found' >&2\nexit 1\n")
	prober := New(stub, logging.NewNop())

	info := prober.Probe(context.Background(), "broken.mp4")

	if info.Valid {
		t.Fatal("malformed file must not be valid")
	}
	if prober.Validate(context.Background(), "broken.mp4") {
		t.Fatal("Validate must mirror Probe validity")
	}
}

func TestProbeSuspectDurationRequeried(t *testing.T) {
	// Container header claims two hours; the direct query returns the truth.
	script := `#!/bin/sh
case "$*" in
  *show_entries*) echo "5400.25" ;;
  *) cat <<'JSON'
{"streams": [{"codec_type": "video", "width": 640, "height": 480, "r_frame_rate": "25/1"}], "format": {"duration": "7200.0"}}
JSON
  ;;
esac
`
	stub := writeStubProbe(t, script)
	prober := New(stub, logging.NewNop())

	info := prober.Probe(context.Background(), "long.mkv")

	if info.DurationSeconds != 5400.25 {
		t.Fatalf("expected re-queried duration, got %f", info.DurationSeconds)
	}
	if !info.Valid {
		t.Fatalf("expected valid info, got %+v", info)
	}
}

func TestProbeStreamDurationFallback(t *testing.T) {
	script := `#!/bin/sh
cat <<'JSON'
{"streams": [{"codec_type": "video", "width": 320, "height": 240, "duration": "4.2", "r_frame_rate": "15/1"}], "format": {}}
JSON
`
	stub := writeStubProbe(t, script)
	prober := New(stub, logging.NewNop())

	info := prober.Probe(context.Background(), "nodur.webm")

	if info.DurationSeconds != 4.2 {
		t.Fatalf("expected stream duration fallback, got %f", info.DurationSeconds)
	}
}

func TestProbeEmptyPath(t *testing.T) {
	prober := New("ffprobe", logging.NewNop())
	if prober.Probe(context.Background(), "  ").Valid {
		t.Fatal("empty path must be invalid")
	}
}

func TestBuildInfoValidityInvariant(t *testing.T) {
	cases := []struct {
		name     string
		parsed   result
		duration float64
		valid    bool
	}{
		{
			name: "all positive",
			parsed: result{
				Streams: []stream{{CodecType: "video", Width: 100, Height: 100}},
				Format:  format{Duration: "1.0"},
			},
			valid: true,
		},
		{
			name:   "no video stream",
			parsed: result{Format: format{Duration: "1.0"}},
		},
		{
			name: "zero duration",
			parsed: result{
				Streams: []stream{{CodecType: "video", Width: 100, Height: 100}},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := buildInfo(tc.parsed)
			info.Valid = info.DurationSeconds > 0 && info.Width > 0 && info.Height > 0
			if info.Valid != tc.valid {
				t.Fatalf("validity %v, want %v (%+v)", info.Valid, tc.valid, info)
			}
		})
	}
}

func TestParseRational(t *testing.T) {
	cases := map[string]float64{
		"30/1":       30,
		"30000/1001": 29.97002997002997,
		"25":         25,
		"0/0":        0,
		"24/0":       0,
		"":           0,
		"x/y":        0,
	}
	for input, want := range cases {
		if got := parseRational(input); got != want {
			t.Fatalf("parseRational(%q) = %f, want %f", input, got, want)
		}
	}
}
