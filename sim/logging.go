package sim

import (
	"fmt"
	"io"
)

// logWriter is the destination for log output.
var logWriter io.Writer

// SetLogWriter sets the log output destination.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Logf writes a formatted log message.
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// LogAdvance is the default advance hook: a one-line generation summary.
func LogAdvance(r AdvanceResult) {
	Logf("[GEN %d] outcome=%s pool=%d best=%d mean=%.2f laps=%d ticks=%d (elites=%d offspring=%d random=%d)",
		r.Generation, r.Outcome, r.PoolSize, r.BestRaw, r.MeanRaw, r.BestLaps,
		r.DurationTicks, r.Elites, r.Offspring, r.Randoms)
}
