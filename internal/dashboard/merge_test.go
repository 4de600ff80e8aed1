package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authintegrate/authintegrate/internal/store"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func entry(id int64, userID int, ago time.Duration, name string) store.AccessLogView {
	uid := userID
	v := store.AccessLogView{AccessLogEntry: store.AccessLogEntry{
		ID:        id,
		UserID:    &uid,
		Outcome:   store.OutcomeGranted,
		CreatedAt: base.Add(-ago),
	}}
	if name != "" {
		v.Name = &name
	}
	return v
}

func ids(entries []store.AccessLogView) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestMergeDedupesKeepsLiveAndOrders(t *testing.T) {
	live := []store.AccessLogView{entry(3, 1, 0, "live")}
	snapshot := []store.AccessLogView{
		entry(2, 1, time.Minute, "Ada"),
		entry(3, 1, 0, "snap"),
		entry(1, 1, 2*time.Minute, "Ada"),
	}

	got := Merge(live, snapshot, 50)

	require.Equal(t, []int64{3, 2, 1}, ids(got))
	assert.Equal(t, "live", *got[0].Name)
}

func TestMergeTruncates(t *testing.T) {
	snapshot := []store.AccessLogView{
		entry(1, 1, 3*time.Minute, ""),
		entry(2, 1, 2*time.Minute, ""),
		entry(3, 1, time.Minute, ""),
	}
	assert.Equal(t, []int64{3, 2}, ids(Merge(nil, snapshot, 2)))
	assert.Empty(t, Merge(nil, nil, 50))
}

func TestMergeIsIdempotent(t *testing.T) {
	live := []store.AccessLogView{entry(5, 1, 0, "Ada")}
	once := Merge(live, nil, 50)
	twice := Merge(append(live, live...), once, 50)
	assert.Equal(t, once, twice)
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, 70, SuccessRate(7, 3))
	assert.Equal(t, 0, SuccessRate(0, 0))
	assert.Equal(t, 67, SuccessRate(2, 1))
	assert.Equal(t, 100, SuccessRate(4, 0))
}
