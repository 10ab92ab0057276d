package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"
)

func TestRiverMetricsHook(t *testing.T) {
	hook := NewRiverMetricsHook()
	ctx := context.Background()
	const kind = "hook_test"

	require.NoError(t, hook.InsertBegin(ctx, &rivertype.JobInsertParams{Kind: kind}))
	require.Equal(t, 1.0, testutil.ToFloat64(RiverJobsQueued.WithLabelValues(kind)))

	ok := &rivertype.JobRow{ID: 1, Kind: kind}
	failed := &rivertype.JobRow{ID: 2, Kind: kind}

	require.NoError(t, hook.WorkBegin(ctx, ok))
	require.NoError(t, hook.WorkBegin(ctx, failed))
	require.Equal(t, 2.0, testutil.ToFloat64(RiverJobsInFlight.WithLabelValues(kind)))

	require.NoError(t, hook.WorkEnd(ctx, ok, nil))
	require.NoError(t, hook.WorkEnd(ctx, failed, errors.New("boom")))

	require.Zero(t, testutil.ToFloat64(RiverJobsInFlight.WithLabelValues(kind)))
	require.Equal(t, 1.0, testutil.ToFloat64(RiverJobsCompleted.WithLabelValues(kind, "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(RiverJobsCompleted.WithLabelValues(kind, "error")))
	require.Empty(t, hook.startTime)
}
