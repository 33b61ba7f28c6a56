package metrics

import (
	"context"
	"testing"

	"github.com/nspcc-dev/network-map-service/pkg/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorsRegistersAndRecords(t *testing.T) {
	c, reg := NewCollectors()

	c.Epoch.Set(3)
	c.NodeCount.Set(7)
	c.RebuildsTotal.Inc()
	c.ActivationsTotal.Add(2)
	c.MigrationStatus.Set(1)

	require.Equal(t, float64(3), testutil.ToFloat64(c.Epoch))
	require.Equal(t, float64(7), testutil.ToFloat64(c.NodeCount))
	require.Equal(t, float64(1), testutil.ToFloat64(c.RebuildsTotal))
	require.Equal(t, float64(2), testutil.ToFloat64(c.ActivationsTotal))
	require.Equal(t, float64(1), testutil.ToFloat64(c.MigrationStatus))
	require.NotNil(t, reg)
}

func TestServiceStartShutdownNoopWhenDisabled(t *testing.T) {
	_, reg := NewCollectors()
	svc := NewService(config.BasicService{Enabled: false}, reg, nil)

	svc.Start()
	require.NoError(t, svc.Shutdown(context.Background()))
}

func TestServiceStartShutdownWhenEnabled(t *testing.T) {
	_, reg := NewCollectors()
	svc := NewService(config.BasicService{Enabled: true, Addresses: []string{"127.0.0.1:0"}}, reg, nil)

	svc.Start()
	require.NoError(t, svc.Shutdown(context.Background()))
}
