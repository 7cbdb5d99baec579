package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// newProgressSink returns a percent sink rendering a terminal bar, plus a
// finish func. Off-terminal (pipes, CI) it stays silent and lets the log
// lines carry progress instead.
func newProgressSink(description string) (func(float64), func()) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return nil, func() {}
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	sink := func(percent float64) {
		_ = bar.Set(int(percent))
	}
	finish := func() {
		_ = bar.Finish()
	}
	return sink, finish
}
