package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueIsSafe(t *testing.T) {
	var nilObs *Observability
	assert.NotPanics(t, func() {
		nilObs.RecordJob(context.Background(), "send-status-notification", "sent", time.Second)
		(&Observability{}).RecordJob(context.Background(), "send-status-notification", "sent", time.Second)
	})
	assert.NoError(t, nilObs.Shutdown(context.Background()))
}

func TestNew_RecordsJobs(t *testing.T) {
	obs, err := New("observability-test")
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	assert.NotPanics(t, func() {
		obs.RecordJob(context.Background(), "send-status-notification", "failed", 25*time.Millisecond)
	})
}
