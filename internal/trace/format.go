package trace

import (
	"encoding/json"
	"fmt"
	"strings"
)

func formatNDJSON(ev Event) []byte {
	type jsonEvent struct {
		Time      string  `json:"time"`
		Seq       uint64  `json:"seq"`
		Kind      string  `json:"kind"`
		Scope     string  `json:"scope"`
		SpanID    uint64  `json:"span_id,omitempty"`
		ParentID  uint64  `json:"parent_id,omitempty"`
		Name      string  `json:"name"`
		Detail    string  `json:"detail,omitempty"`
		ElapsedMS float64 `json:"elapsed_ms,omitempty"`
	}
	data, _ := json.Marshal(jsonEvent{ //nolint:errchkjson // только простые поля
		Time:      ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:       ev.Seq,
		Kind:      ev.Kind.String(),
		Scope:     ev.Scope.String(),
		SpanID:    ev.SpanID,
		ParentID:  ev.ParentID,
		Name:      ev.Name,
		Detail:    ev.Detail,
		ElapsedMS: ev.Elapsed.Seconds() * 1000,
	})
	return append(data, '\n')
}

// formatText renders "→ name", "← name 1.20ms (detail)" or "• name",
// indented by scope.
func formatText(ev Event) []byte {
	var sb strings.Builder
	if ev.Scope > ScopeBuild {
		sb.WriteString(strings.Repeat("  ", int(ev.Scope-ScopeBuild)))
	}
	switch ev.Kind {
	case KindBegin:
		sb.WriteString("→ ")
	case KindEnd:
		sb.WriteString("← ")
	case KindPoint:
		sb.WriteString("• ")
	}
	sb.WriteString(ev.Name)
	if ev.Kind == KindEnd {
		fmt.Fprintf(&sb, " %.2fms", ev.Elapsed.Seconds()*1000)
	}
	if ev.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(ev.Detail)
		sb.WriteString(")")
	}
	sb.WriteString("\n")
	return []byte(sb.String())
}
