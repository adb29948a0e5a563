// Package events carries update progress from the core to whatever is
// listening on the host side. Emission is fire-and-forget: a Sink must never
// block the caller and an absent listener is not an error.
package events

import (
	"encoding/json"
	"io"
	"sync"
)

// Event names understood by the host UI.
const (
	DownloadProgressEvent = "download-progress"
	DownloadCompleteEvent = "download-complete"
	// UpdateAvailableEvent carries an updater.UpdateInfo when the watch loop
	// finds a release it is not allowed to install on its own.
	UpdateAvailableEvent = "update-available"
)

// Sink receives named events. Implementations must return promptly.
type Sink interface {
	Emit(name string, payload any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(name string, payload any)

func (f SinkFunc) Emit(name string, payload any) { f(name, payload) }

// DownloadProgress is the payload of DownloadProgressEvent. Progress and Total
// are nil when the artifact size is unknown.
type DownloadProgress struct {
	Progress   *uint64 `json:"progress,omitempty"`
	Downloaded uint64  `json:"downloaded"`
	Total      *uint64 `json:"total,omitempty"`
}

// NewDownloadProgress builds a payload. A total of zero means unknown.
// The percentage is truncated toward zero.
func NewDownloadProgress(downloaded, total uint64) DownloadProgress {
	p := DownloadProgress{Downloaded: downloaded}
	if total > 0 {
		pct := downloaded * 100 / total
		p.Progress = &pct
		t := total
		p.Total = &t
	}
	return p
}

// Percent returns the percentage and whether it is known.
func (p DownloadProgress) Percent() (uint64, bool) {
	if p.Progress == nil {
		return 0, false
	}
	return *p.Progress, true
}

// Nop discards everything.
type Nop struct{}

func (Nop) Emit(string, any) {}

// Record is one event captured by a Recorder.
type Record struct {
	Name    string
	Payload any
}

// Recorder keeps every event in memory, in emission order.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *Recorder) Emit(name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{Name: name, Payload: payload})
}

// Records returns a copy of what has been emitted so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Names returns the emitted event names in order.
func (r *Recorder) Names() []string {
	recs := r.Records()
	names := make([]string, len(recs))
	for i, rec := range recs {
		names[i] = rec.Name
	}
	return names
}

type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// JSONLines writes one JSON object per event, the wire format the host UI
// reads from the updater's stdout.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

func (j *JSONLines) Emit(name string, payload any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	// a host that went away is not our problem
	_ = j.enc.Encode(envelope{Event: name, Payload: payload})
}

// Fanout forwards every event to each sink in turn.
type Fanout []Sink

func (f Fanout) Emit(name string, payload any) {
	for _, s := range f {
		if s != nil {
			s.Emit(name, payload)
		}
	}
}
