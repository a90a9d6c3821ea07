package query

import (
	"bufio"
	"fmt"
	"io"

	"honnef.co/go/tracestore/eventset"
)

// DumpTaskCounters writes one line per task execution on lanes that sample the counter, in the form
//
//	task counter lane duration nb_events
//
// where counter is the change of the counter's value over the execution, interpolated at the execution's bounds, and
// nb_events is the number of samples taken during the execution. Executions that don't lie within the counter's
// samples are skipped.
func (tr *Trace) DumpTaskCounters(w io.Writer, counterID int) error {
	if !tr.isIndexed() {
		return ErrNotIndexed
	}
	bw := bufio.NewWriter(w)
	for _, l := range tr.Lanes {
		c := l.Events.Counter(counterID)
		if c == nil {
			continue
		}
		for _, e := range l.Events.Executions() {
			first, ok := c.ValueAt(e.Start)
			if !ok {
				continue
			}
			last, ok := c.ValueAt(e.End)
			if !ok {
				continue
			}
			n := 0
			if i := c.FirstSampleInInterval(e.Start, e.End); i != eventset.NoEvent {
				for ; i < len(c.Samples) && c.Samples[i].Time <= e.End; i++ {
					n++
				}
			}
			if _, err := fmt.Fprintf(bw, "%#x %d %d %d %d\n", e.Task, last-first, l.Events.Lane, e.Duration(), n); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
