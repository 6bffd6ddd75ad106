// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package extractor

// EventKind classifies the outcome of one sourcemap entry.
type EventKind int

const (
	EventWritten EventKind = iota
	EventExternal
	EventRejected
	EventWriteFailed
	EventNoContent
)

func (k EventKind) String() string {
	switch k {
	case EventWritten:
		return "written"
	case EventExternal:
		return "external"
	case EventRejected:
		return "rejected"
	case EventWriteFailed:
		return "failed"
	case EventNoContent:
		return "no_content"
	}
	return "unknown"
}

// Event is one processed entry.
type Event struct {
	Kind   EventKind
	Index  int
	Source string
	Path   string
	Ref    string
	Bytes  int64
	Err    error
}

// Report summarizes one Extract call.
type Report struct {
	Map            string
	LengthMismatch bool

	Written   int
	External  int
	Rejected  int
	Failed    int
	NoContent int
	Bytes     int64

	Events []Event
}

func (r *Report) add(ev Event) {
	switch ev.Kind {
	case EventWritten:
		r.Written++
		r.Bytes += ev.Bytes
	case EventExternal:
		r.External++
	case EventRejected:
		r.Rejected++
	case EventWriteFailed:
		r.Failed++
	case EventNoContent:
		r.NoContent++
	}
	r.Events = append(r.Events, ev)
}

// Skipped counts entries that produced no file.
func (r *Report) Skipped() int {
	return r.External + r.Rejected + r.Failed + r.NoContent
}

// Merge adds o's counters into r. Events are not copied.
func (r *Report) Merge(o *Report) {
	r.Written += o.Written
	r.External += o.External
	r.Rejected += o.Rejected
	r.Failed += o.Failed
	r.NoContent += o.NoContent
	r.Bytes += o.Bytes
	r.LengthMismatch = r.LengthMismatch || o.LengthMismatch
}
