// Package probe wraps ffprobe to describe media files.
//
// A probe never fails outward: malformed or unreadable input produces a
// MediaInfo with Valid=false so batch callers can skip the file and keep
// going. Duration parsing is defensive because corrupt container headers
// routinely report implausible values.
package probe
