package events

import (
	"encoding/json"
	"io"
	"time"
)

// ExportFileName is the suggested download name of an analytics export.
const ExportFileName = "cosmic-clicker-analytics.json"

// Export is the single serialized document produced by an analytics dump.
type Export struct {
	ExportedAt  time.Time        `json:"exportedAt"`
	TotalEvents int              `json:"totalEvents"`
	FilteredBy  EventType        `json:"filteredBy,omitempty"`
	Events      []AnalyticsEvent `json:"events"`
}

// BuildExport assembles an export of log, keeping only events of filter when it is set.
func BuildExport(log []AnalyticsEvent, filter EventType, now time.Time) Export {
	out := make([]AnalyticsEvent, 0, len(log))
	for _, e := range log {
		if filter != "" && e.Type != filter {
			continue
		}
		out = append(out, e)
	}
	return Export{
		ExportedAt:  now.UTC(),
		TotalEvents: len(out),
		FilteredBy:  filter,
		Events:      out,
	}
}

// WriteTo writes the export as indented JSON.
func (x Export) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(x, "", "  ")
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}
