package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiCyan  = "\033[36m"
	ansiReset = "\033[0m"
)

// progressPrinter writes one line per progress message, prefixed with the
// elapsed time.
type progressPrinter struct {
	out      io.Writer
	colorize bool
	start    time.Time
	now      func() time.Time
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{
		out:      out,
		colorize: shouldColorize(out),
		start:    time.Now(),
		now:      time.Now,
	}
}

func (p *progressPrinter) Print(message string) {
	elapsed := p.now().Sub(p.start).Truncate(time.Second)
	stamp := fmt.Sprintf("[%s]", elapsed)
	if p.colorize {
		stamp = ansiCyan + stamp + ansiReset
	}
	fmt.Fprintf(p.out, "%s %s\n", stamp, message)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
