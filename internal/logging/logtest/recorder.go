// Package logtest records log entries for inspection in tests.
package logtest

import (
	"sync"

	"github.com/ssgreg/logf"

	"github.com/aman-churiwal/quota-gateway/internal/logging"
)

// RecordedEntry is a single logged entry.
type RecordedEntry struct {
	Level  logging.Level
	Text   string
	Fields []logging.Field
}

// FindField returns the field with the given key.
func (re *RecordedEntry) FindField(key string) (*logging.Field, bool) {
	for i := range re.Fields {
		if re.Fields[i].Key == key {
			return &re.Fields[i], true
		}
	}
	return nil, false
}

type entryWriter struct {
	mu      sync.Mutex
	entries []RecordedEntry
}

//nolint:gocritic
func (w *entryWriter) WriteEntry(e logf.Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fields := append([]logging.Field{}, e.Fields...)
	fields = append(fields, e.DerivedFields...)
	w.entries = append(w.entries, RecordedEntry{Level: e.Level, Text: e.Text, Fields: fields})
}

// Recorder is a logging.FieldLogger that keeps every entry in memory.
type Recorder struct {
	*logging.LogfAdapter
	writer *entryWriter
}

func NewRecorder() *Recorder {
	w := &entryWriter{}
	return &Recorder{
		LogfAdapter: &logging.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, w)},
		writer:      w,
	}
}

func (r *Recorder) With(fs ...logging.Field) logging.FieldLogger {
	return &Recorder{LogfAdapter: r.LogfAdapter.With(fs...).(*logging.LogfAdapter), writer: r.writer}
}

// Entries returns a copy of all recorded entries.
func (r *Recorder) Entries() []RecordedEntry {
	r.writer.mu.Lock()
	defer r.writer.mu.Unlock()
	return append([]RecordedEntry(nil), r.writer.entries...)
}

// FindEntry returns the first entry with the given text.
func (r *Recorder) FindEntry(text string) (RecordedEntry, bool) {
	for _, e := range r.Entries() {
		if e.Text == text {
			return e, true
		}
	}
	return RecordedEntry{}, false
}
