package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// progressReporter renders a terminal progress bar as pages are processed
type progressReporter struct {
	bar *progressbar.ProgressBar
}

func newProgressReporter() *progressReporter {
	return &progressReporter{}
}

// Start initializes the bar once the page count is known
func (p *progressReporter) Start(totalPages int) {
	p.bar = progressbar.NewOptions(totalPages,
		progressbar.OptionSetDescription(color.BlueString("Extracting pages")),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

// Advance marks one page as done
func (p *progressReporter) Advance(page int) {
	if p.bar != nil {
		p.bar.Add(1)
	}
}
