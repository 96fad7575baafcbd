package remote

import (
	"time"

	"github.com/openshelf/shelfsync/internal/xmlfilter"
)

// remoteTimeLayouts are the timestamp shapes the service is known to emit,
// tried in order.
var remoteTimeLayouts = []string{
	"Mon Jan 02 15:04:05 -0700 2006",
	time.RFC3339,
	"2006-01-02",
}

func parseRemoteTime(raw string) (time.Time, bool) {
	for _, layout := range remoteTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeDate is an extraction post-processing listener that rewrites a
// collected date string into canonical RFC3339 UTC. Unrecognized values are
// dropped, leaving the field absent.
func normalizeDate(field string) xmlfilter.EndAction {
	return func(ctx *xmlfilter.Context) {
		rec := ctx.State().Current()
		raw := rec.String(field)
		if raw == "" {
			delete(rec, field)
			return
		}
		t, ok := parseRemoteTime(raw)
		if !ok {
			delete(rec, field)
			return
		}
		rec[field] = t.UTC().Format(time.RFC3339)
	}
}

// fieldTime converts a normalized date field back into a time pointer.
func fieldTime(rec xmlfilter.Record, field string) *time.Time {
	raw := rec.String(field)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}
