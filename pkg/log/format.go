package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// JSONFormatter renders entries as single-line JSON objects.
type JSONFormatter struct {
	// TimestampFormat overrides the default RFC3339Nano timestamps.
	TimestampFormat string
}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	tf := f.TimestampFormat
	if tf == "" {
		tf = time.RFC3339Nano
	}
	m := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		m[k] = v
	}
	m["ts"] = entry.Timestamp.Format(tf)
	m["level"] = entry.Level.String()
	m["msg"] = entry.Message
	if entry.Caller != "" {
		m["caller"] = entry.Caller
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// TextFormatter renders entries as "ts LEVEL msg k=v ..." lines with fields
// sorted by key for stable output.
type TextFormatter struct {
	// TimestampFormat overrides the default timestamp layout.
	TimestampFormat string
}

// Format implements Formatter.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	tf := f.TimestampFormat
	if tf == "" {
		tf = "2006-01-02T15:04:05.000Z07:00"
	}
	var buf bytes.Buffer
	buf.WriteString(entry.Timestamp.Format(tf))
	buf.WriteByte(' ')
	buf.WriteString(entry.Level.String())
	buf.WriteByte(' ')
	buf.WriteString(entry.Message)
	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf.WriteByte(' ')
			buf.WriteString(k)
			buf.WriteByte('=')
			fmt.Fprintf(&buf, "%v", entry.Fields[k])
		}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
