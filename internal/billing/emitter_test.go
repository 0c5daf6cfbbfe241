package billing

import (
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newTestEmitter(t *testing.T, channelSize int) (*Emitter, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())

	// kgo.NewClient dials lazily, so seeding an unreachable broker address
	// is safe for exercising Emit's channel behavior without a live bus.
	e, err := NewEmitter(Config{
		Brokers:     []string{"127.0.0.1:1"},
		Topic:       "billing-events",
		ChannelSize: channelSize,
		Metrics:     metrics,
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.client.Close() })
	return e, metrics
}

// Emit must never block the caller: once the producer channel is full,
// further events are dropped and counted rather than queued.
func TestEmitDropsWhenChannelFull(t *testing.T) {
	e, metrics := newTestEmitter(t, 1)

	e.Emit(Event{TeamID: "t1"})
	e.Emit(Event{TeamID: "t2"})
	e.Emit(Event{TeamID: "t3"})

	require.Equal(t, float64(2), testutil.ToFloat64(metrics.Dropped))

	queued := <-e.events
	require.Equal(t, "t1", queued.TeamID)
}

func TestEventEnvelopeShape(t *testing.T) {
	payload := envelope{
		Namespace: namespace,
		Records: []record{{
			PartitionKey: "team-t1",
			Data: Event{
				TeamID:                "t1",
				AppID:                 "app-1",
				EthMethod:             "eth_subscribe",
				EthNetwork:            "mainnet",
				SubscriptionID:        "sub-1",
				SubscriptionType:      "logs",
				LogSource:             "geyser",
				ResponseContentLength: 128,
			},
		}},
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, namespace, decoded["namespace"])

	records, ok := decoded["records"].([]interface{})
	require.True(t, ok)
	require.Len(t, records, 1)

	rec, ok := records[0].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "team-t1", rec["partition_key"])

	data0, ok := rec["data"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "t1", data0["team_id"])
	require.Equal(t, float64(128), data0["response_content_length"])
}
