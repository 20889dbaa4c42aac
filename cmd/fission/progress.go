package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-isatty"

	"github.com/hupe1980/fission"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressBar renders the generated pool size against the target on a single
// terminal line.
type progressBar struct {
	w      io.Writer
	bar    progress.Model
	target int
}

func newProgressBar(w io.Writer, target int) *progressBar {
	return &progressBar{
		w:      w,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		target: target,
	}
}

func (p *progressBar) percent(generated int) float64 {
	if p.target <= 0 {
		return 1
	}
	return min(float64(generated)/float64(p.target), 1)
}

// Update redraws the bar for s.
func (p *progressBar) Update(s fission.RunState) {
	fmt.Fprintf(p.w, "\r%s %d/%d iter %d", p.bar.ViewAs(p.percent(s.Generated)), s.Generated, p.target, s.Iteration)
	if s.Done() {
		fmt.Fprintln(p.w)
	}
}
