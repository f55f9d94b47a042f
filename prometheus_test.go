package main

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDecodeMetricsRecord(t *testing.T) {
	// promauto registers globally, so this is the only test that may call
	// NewDecodeMetrics
	m := NewDecodeMetrics()

	m.RecordDecode("log", true, true, 83, 5*time.Millisecond)
	m.RecordDecode("log", false, false, 70, time.Millisecond)
	m.RecordDecode("probability", true, false, 83, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decodesTotal.WithLabelValues("log")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodesSuccess.WithLabelValues("log")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodesFailed.WithLabelValues("log")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.crcValid.WithLabelValues("log")))
	assert.Equal(t, 70.0, testutil.ToFloat64(m.lastParityScore.WithLabelValues("log")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodesTotal.WithLabelValues("probability")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.crcInvalid.WithLabelValues("probability")))
}
