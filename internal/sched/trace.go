// internal/sched/trace.go

package sched

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

var kindColors = map[StatusKind]*color.Color{
	StatusEnqueue:     color.New(color.FgCyan),
	StatusDefer:       color.New(color.FgBlue),
	StatusPromote:     color.New(color.FgBlue, color.Bold),
	StatusDispatch:    color.New(color.FgGreen),
	StatusFinish:      color.New(color.FgGreen, color.Bold),
	StatusCancel:      color.New(color.FgYellow),
	StatusJoinFire:    color.New(color.FgMagenta, color.Bold),
	StatusJoinTimeout: color.New(color.FgRed, color.Bold),
}

// Tracer prints status events one per line and optionally appends them to a CSV file.
type Tracer struct {
	out   io.Writer
	runID string

	// logging-related
	csvFile   *os.File
	csvWriter *csv.Writer
}

// NewTracer writes human-readable trace lines to out. Every tracer gets a fresh run ID
// which tags its CSV rows.
func NewTracer(out io.Writer) *Tracer {
	return &Tracer{out: out, runID: uuid.NewString()}
}

// RunID identifies this trace.
func (tr *Tracer) RunID() string { return tr.runID }

// EnableCSVLogging opens the given file path for CSV logging of events.
func (tr *Tracer) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"run_id", "tick", "event", "task", "deadline", "runs", "outcome"}); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	tr.csvFile = f
	tr.csvWriter = w
	return w.Error()
}

// Handle renders one event.
func (tr *Tracer) Handle(ev StatusEvent) {
	// an auxiliary function to center the event kind in the output
	center := func(str string, width int) string {
		spaces := (width - len(str)) / 2
		if spaces < 0 {
			return str
		}
		return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
	}

	kind := center(ev.Kind.String(), 13)
	if c, ok := kindColors[ev.Kind]; ok {
		kind = c.Sprint(kind)
	}
	fmt.Fprintf(tr.out, "Tick: %010d [%s] => %-16s deadline=%010d runs=%04d %s\n",
		ev.Tick, kind, ev.Task, ev.Deadline, ev.Runs, ev.Outcome)

	// CSV output
	if tr.csvWriter != nil {
		rec := []string{
			tr.runID,
			strconv.FormatUint(uint64(ev.Tick), 10),
			ev.Kind.String(),
			ev.Task,
			strconv.FormatUint(uint64(ev.Deadline), 10),
			strconv.FormatUint(ev.Runs, 10),
			ev.Outcome.String(),
		}
		_ = tr.csvWriter.Write(rec)
		tr.csvWriter.Flush()
	}
}

// Close flushes and closes the CSV file, if any.
func (tr *Tracer) Close() error {
	if tr.csvFile == nil {
		return nil
	}
	tr.csvWriter.Flush()
	err := tr.csvWriter.Error()
	if cerr := tr.csvFile.Close(); err == nil {
		err = cerr
	}
	tr.csvFile, tr.csvWriter = nil, nil
	return err
}
