package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"productshoot/internal/relight"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	def := relight.DefaultLight()
	fs := flag.NewFlagSet("relight", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: relight [-x 0.5] [-y 0.5] [-intensity 1.5] <input> <output>")
		fs.PrintDefaults()
	}
	x := fs.Float64("x", def.X, "light x position (0-1)")
	y := fs.Float64("y", def.Y, "light y position (0-1)")
	intensity := fs.Float64("intensity", def.Intensity, "light intensity")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 2
	}

	light := relight.Light{X: *x, Y: *y, Intensity: *intensity}
	if err := relight.File(fs.Arg(0), fs.Arg(1), light); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
