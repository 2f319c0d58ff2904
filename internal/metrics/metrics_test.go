package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveFetch(t *testing.T) {
	before := testutil.ToFloat64(feedFetchTotal.WithLabelValues("metrics-test", "ok"))
	ObserveFetch("metrics-test", "ok", 20*time.Millisecond)
	ObserveFetch("metrics-test", "ok", 30*time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(feedFetchTotal.WithLabelValues("metrics-test", "ok")))
}

func TestSetRecordsAndSync(t *testing.T) {
	SetRecords("metrics-test", 7)
	assert.Equal(t, float64(7), testutil.ToFloat64(recordsProduced.WithLabelValues("metrics-test")))

	before := testutil.ToFloat64(syncTotal.WithLabelValues("no_event"))
	ObserveSync("no_event")
	assert.Equal(t, before+1, testutil.ToFloat64(syncTotal.WithLabelValues("no_event")))
}
