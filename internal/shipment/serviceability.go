package shipment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoCourierAvailable indicates no courier serves the requested lane.
var ErrNoCourierAvailable = errors.New("no courier available for lane")

const serviceabilityCacheTTL = 30 * time.Minute

// Serviceability answers which couriers can carry a shipment between two
// pincodes. The selected courier is frozen on the order at checkout, so
// callers must not re-query after placement.
type Serviceability interface {
	CheckServiceability(ctx context.Context, pickupPincode, deliveryPincode string, weightKg float64, paymentMode string) ([]CourierOption, error)
}

// HTTPServiceability calls the courier aggregator API, caching responses
// per lane in Redis. Rates change slowly; a short TTL keeps quotes fresh
// without hammering the vendor.
type HTTPServiceability struct {
	logger  *slog.Logger
	client  *http.Client
	redis   *redis.Client
	baseURL string
	apiKey  string
}

// NewHTTPServiceability constructs the aggregator client. The HTTP client
// may be nil, in which case a 10s-timeout default is used.
func NewHTTPServiceability(logger *slog.Logger, client *http.Client, redisClient *redis.Client, baseURL, apiKey string) *HTTPServiceability {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPServiceability{logger: logger, client: client, redis: redisClient, baseURL: baseURL, apiKey: apiKey}
}

func (s *HTTPServiceability) CheckServiceability(ctx context.Context, pickupPincode, deliveryPincode string, weightKg float64, paymentMode string) ([]CourierOption, error) {
	cacheKey := fmt.Sprintf("printforge:serviceability:%s:%s:%.2f:%s", pickupPincode, deliveryPincode, weightKg, paymentMode)
	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		return cached, nil
	}

	options, err := s.fetch(ctx, pickupPincode, deliveryPincode, weightKg, paymentMode)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoCourierAvailable, pickupPincode, deliveryPincode)
	}
	s.cacheSet(ctx, cacheKey, options)
	return options, nil
}

func (s *HTTPServiceability) fetch(ctx context.Context, pickup, delivery string, weightKg float64, paymentMode string) ([]CourierOption, error) {
	query := url.Values{}
	query.Set("pickup_postcode", pickup)
	query.Set("delivery_postcode", delivery)
	query.Set("weight", strconv.FormatFloat(weightKg, 'f', 2, 64))
	query.Set("cod", codFlag(paymentMode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/courier/serviceability?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build serviceability request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serviceability request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serviceability request: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			AvailableCouriers []struct {
				CourierID     int64   `json:"courier_company_id"`
				CourierName   string  `json:"courier_name"`
				EstimatedDays int     `json:"estimated_delivery_days"`
				Rate          float64 `json:"rate"`
			} `json:"available_courier_companies"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode serviceability response: %w", err)
	}

	options := make([]CourierOption, 0, len(payload.Data.AvailableCouriers))
	for _, courier := range payload.Data.AvailableCouriers {
		options = append(options, CourierOption{
			CourierID:     courier.CourierID,
			CourierName:   courier.CourierName,
			EstimatedDays: courier.EstimatedDays,
			Rate:          courier.Rate,
		})
	}
	return options, nil
}

func codFlag(paymentMode string) string {
	if paymentMode == "COD" {
		return "1"
	}
	return "0"
}

func (s *HTTPServiceability) cacheGet(ctx context.Context, key string) ([]CourierOption, bool) {
	if s.redis == nil {
		return nil, false
	}
	payload, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var options []CourierOption
	if err := json.Unmarshal(payload, &options); err != nil {
		return nil, false
	}
	return options, true
}

func (s *HTTPServiceability) cacheSet(ctx context.Context, key string, options []CourierOption) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(options)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, payload, serviceabilityCacheTTL).Err(); err != nil {
		s.logger.Warn("serviceability cache set failed", "error", err)
	}
}
