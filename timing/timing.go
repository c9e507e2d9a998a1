// Package timing renders named timing metrics to the Server-Timing header
// grammar: comma separated `name;dur=ms;desc="..."` entries.
package timing

import (
	"strconv"
	"strings"
	"time"
)

// HeaderName is the response header carrying the rendered metrics.
const HeaderName = "server-timing"

// Metric is a single Server-Timing entry. Description and Duration are
// optional; HasDuration distinguishes a zero duration from an absent one.
type Metric struct {
	Name        string
	Description string
	Duration    time.Duration
	HasDuration bool
}

// NewMetric returns a metric carrying only a name.
func NewMetric(name string) Metric {
	return Metric{Name: name}
}

// WithDescription returns a copy of m with the description set.
func (m Metric) WithDescription(desc string) Metric {
	m.Description = desc
	return m
}

// WithDuration returns a copy of m with the duration set.
func (m Metric) WithDuration(d time.Duration) Metric {
	m.Duration = d
	m.HasDuration = true
	return m
}

func (m Metric) String() string {
	var b strings.Builder
	m.writeTo(&b)
	return b.String()
}

func (m Metric) writeTo(b *strings.Builder) {
	b.WriteString(m.Name)
	if m.HasDuration {
		b.WriteString(";dur=")
		b.WriteString(formatMillis(m.Duration))
	}
	if m.Description != "" {
		b.WriteString(`;desc="`)
		writeQuoted(b, m.Description)
		b.WriteByte('"')
	}
}

// ServerTiming is an ordered list of metrics.
type ServerTiming []Metric

// Push appends a metric.
func (st *ServerTiming) Push(m Metric) {
	*st = append(*st, m)
}

// Len returns the number of recorded metrics.
func (st ServerTiming) Len() int { return len(st) }

// String renders the list as a Server-Timing header value.
func (st ServerTiming) String() string {
	var b strings.Builder
	for i, m := range st {
		if i > 0 {
			b.WriteString(", ")
		}
		m.writeTo(&b)
	}
	return b.String()
}

func formatMillis(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	return strconv.FormatFloat(ms, 'f', -1, 64)
}

// writeQuoted escapes the characters quoted-string forbids unescaped.
func writeQuoted(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
}
