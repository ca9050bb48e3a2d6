package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecorder_DuplicateInsideWindow(t *testing.T) {
	r := newRecorder(time.Hour)

	assert.False(t, r.duplicate("dhl/evt-1"))
	r.record("dhl/evt-1")
	assert.True(t, r.duplicate("dhl/evt-1"))
	assert.False(t, r.duplicate("dhl/evt-2"))
}

func TestRecorder_DuplicateCheckDoesNotRefresh(t *testing.T) {
	r := newRecorder(time.Hour)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	r.record("dhl/evt-1")

	clock = clock.Add(30 * time.Minute)
	assert.True(t, r.duplicate("dhl/evt-1"))

	clock = clock.Add(31 * time.Minute)
	// Delivery was 61 minutes ago; the mid-window check did not extend it.
	assert.False(t, r.duplicate("dhl/evt-1"))
}

func TestRecorder_PurgeDropsExpiredKeys(t *testing.T) {
	r := newRecorder(time.Hour)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	for i := 0; i < 63; i++ {
		r.record(string(rune('a'+i%26)) + string(rune('0'+i/26)))
	}

	clock = clock.Add(2 * time.Hour)
	// The 64th insert triggers the purge; only the fresh key survives.
	r.record("fresh")
	assert.Len(t, r.seen, 1)
}
