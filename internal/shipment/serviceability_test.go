package shipment

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceabilityBody = `{
	"data": {
		"available_courier_companies": [
			{"courier_company_id": 11, "courier_name": "BlueDart", "estimated_delivery_days": 3, "rate": 92.5},
			{"courier_company_id": 24, "courier_name": "Delhivery", "estimated_delivery_days": 5, "rate": 61.0}
		]
	}
}`

func TestCheckServiceabilityParsesOptions(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "110001", r.URL.Query().Get("pickup_postcode"))
		assert.Equal(t, "1", r.URL.Query().Get("cod"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(serviceabilityBody))
	}))
	defer server.Close()

	client := NewHTTPServiceability(slog.Default(), server.Client(), nil, server.URL, "test-key")
	options, err := client.CheckServiceability(context.Background(), "110001", "400001", 0.5, "COD")
	require.NoError(t, err)

	require.Len(t, options, 2)
	assert.Equal(t, "BlueDart", options[0].CourierName)
	assert.Equal(t, 3, options[0].EstimatedDays)
	assert.Equal(t, 92.5, options[0].Rate)
	assert.Equal(t, int64(1), calls.Load())
}

func TestCheckServiceabilityCachesPerLane(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(serviceabilityBody))
	}))
	defer server.Close()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	client := NewHTTPServiceability(slog.Default(), server.Client(), redisClient, server.URL, "test-key")
	ctx := context.Background()

	_, err := client.CheckServiceability(ctx, "110001", "400001", 0.5, "PREPAID")
	require.NoError(t, err)
	_, err = client.CheckServiceability(ctx, "110001", "400001", 0.5, "PREPAID")
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load(), "second lookup must hit the cache")

	_, err = client.CheckServiceability(ctx, "110001", "560001", 0.5, "PREPAID")
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load(), "different lane must refetch")
}

func TestCheckServiceabilityEmptyLaneFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"available_courier_companies": []}}`))
	}))
	defer server.Close()

	client := NewHTTPServiceability(slog.Default(), server.Client(), nil, server.URL, "test-key")
	_, err := client.CheckServiceability(context.Background(), "110001", "999999", 0.5, "PREPAID")
	require.ErrorIs(t, err, ErrNoCourierAvailable)
}

func TestCheckServiceabilityUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPServiceability(slog.Default(), server.Client(), nil, server.URL, "test-key")
	_, err := client.CheckServiceability(context.Background(), "110001", "400001", 0.5, "PREPAID")
	require.Error(t, err)
}

func TestEstimateDeliveryDate(t *testing.T) {
	productionEnd := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	got := EstimateDeliveryDate(productionEnd, 4)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), got)
}
