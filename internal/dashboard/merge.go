// Package dashboard is the client side of the access monitor: it reconciles
// pushed and polled access logs into one ordered view.
package dashboard

import (
	"math"
	"sort"

	"github.com/authintegrate/authintegrate/internal/store"
)

// UnknownName is shown for entries whose owner cannot be resolved yet.
const UnknownName = "Unknown"

// Merge concatenates live and snapshot, keeps the first copy of every id,
// orders the result newest first and truncates it to limit. Live entries win
// ties because they come first. The inputs are not modified.
func Merge(live, snapshot []store.AccessLogView, limit int) []store.AccessLogView {
	seen := make(map[int64]struct{}, len(live)+len(snapshot))
	out := make([]store.AccessLogView, 0, len(live)+len(snapshot))
	for _, src := range [][]store.AccessLogView{live, snapshot} {
		for _, e := range src {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SuccessRate is the rounded percentage of granted attempts, 0 without attempts.
func SuccessRate(granted, denied int64) int {
	total := granted + denied
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(granted) / float64(total) * 100))
}

func unresolved(e store.AccessLogView) bool {
	return e.Name == nil || *e.Name == "" || *e.Name == UnknownName
}
