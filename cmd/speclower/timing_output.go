package main

import (
	"fmt"
	"io"

	"speclower/internal/observ"
)

// printTimings writes the batch phases with unit stages nested under them.
func printTimings(out io.Writer, timer *observ.Timer) {
	if out == nil || timer == nil {
		return
	}
	fmt.Fprint(out, dimColor.Sprint(timer.Summary()))
}
