package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/printforge/printforge/internal/catalog"
	"github.com/printforge/printforge/internal/observability"
	"github.com/printforge/printforge/internal/pricing"
	"github.com/printforge/printforge/internal/pricing/books"
	"github.com/printforge/printforge/internal/shared"
	"github.com/printforge/printforge/internal/shipment"
)

// ProductSource loads product definitions for pricing.
type ProductSource interface {
	Get(ctx context.Context, id int64) (*catalog.Product, error)
}

// PriceResolver resolves zone-aware effective prices.
type PriceResolver interface {
	ResolveEffectivePrice(ctx context.Context, productID int64, rctx books.ResolutionContext) (*books.ResolvedPrice, error)
}

// IdempotencyGuard claims webhook event keys at most once. Delete rolls
// a claim back when processing fails after it, so the gateway's retry
// is applied instead of dropped.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Mailer queues transactional mail for customers.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to, subject, body string) error
}

// Service owns order creation, status flow, and the payment webhook.
type Service struct {
	logger             *slog.Logger
	repo               Repository
	products           ProductSource
	prices             PriceResolver
	serviceability     shipment.Serviceability
	idempotency        IdempotencyGuard
	mail               Mailer
	metrics            *observability.Metrics
	productionLeadDays int
	pickupPincode      string
	now                func() time.Time
}

// ServiceConfig bundles the optional collaborators.
type ServiceConfig struct {
	Prices             PriceResolver
	Serviceability     shipment.Serviceability
	Idempotency        IdempotencyGuard
	Mail               Mailer
	Metrics            *observability.Metrics
	ProductionLeadDays int
	PickupPincode      string
}

// NewService constructs the order service.
func NewService(logger *slog.Logger, repo Repository, products ProductSource, cfg ServiceConfig) *Service {
	leadDays := cfg.ProductionLeadDays
	if leadDays <= 0 {
		leadDays = 3
	}
	return &Service{
		logger:             logger,
		repo:               repo,
		products:           products,
		prices:             cfg.Prices,
		serviceability:     cfg.Serviceability,
		idempotency:        cfg.Idempotency,
		mail:               cfg.Mail,
		metrics:            cfg.Metrics,
		productionLeadDays: leadDays,
		pickupPincode:      cfg.PickupPincode,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// Create prices the request, freezes the snapshot, and persists the
// order. The snapshot is computed exactly once here; nothing downstream
// may recompute or amend it.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (Order, error) {
	if err := validateCreate(req); err != nil {
		return Order{}, err
	}

	product, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Order{}, ErrProductNotFound
		}
		return Order{}, fmt.Errorf("load product: %w", err)
	}
	if !product.IsActive {
		return Order{}, ErrProductInactive
	}

	selection := pricing.Selection{OptionIDs: req.OptionIDs, AttributeValues: req.AttributeValues}
	breakdown, err := s.price(ctx, *product, selection, req)
	if err != nil {
		return Order{}, err
	}

	now := s.now()
	snapshot := SnapshotFromBreakdown(breakdown, now)
	order := Order{
		OrderNumber:   GenerateNumber(now),
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		Selection:     selection,
		NeedDesigner:  req.NeedDesigner,
		ArtworkURL:    req.ArtworkURL,
		Customer:      Customer(req.Customer),
		Status:        StatusRequest,
		PaymentStatus: PaymentPending,
		PriceSnapshot: &snapshot,
		ZoneID:        req.ZoneID,
		SegmentID:     req.SegmentID,
	}
	s.estimateDelivery(ctx, &order, req, now)

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order created",
		"order_number", created.OrderNumber,
		"product_id", created.ProductID,
		"total_payable", snapshot.TotalPayable)
	return created, nil
}

func (s *Service) price(ctx context.Context, product catalog.Product, selection pricing.Selection, req CreateOrderRequest) (pricing.Breakdown, error) {
	zoneAware := s.prices != nil && (req.ZoneID != nil || req.SegmentID != nil)
	if !zoneAware {
		return pricing.ComputeBreakdown(product, selection, req.Quantity)
	}

	resolved, err := s.prices.ResolveEffectivePrice(ctx, req.ProductID, books.ResolutionContext{
		ZoneID:    req.ZoneID,
		SegmentID: req.SegmentID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return pricing.ComputeBreakdownAt(product, resolved.UnitPrice, resolved.Applied, selection, req.Quantity)
}

// estimateDelivery freezes courier choice and delivery estimate at
// checkout. A lookup failure is logged, not fatal: the order still
// stands, just without an estimate.
func (s *Service) estimateDelivery(ctx context.Context, order *Order, req CreateOrderRequest, now time.Time) {
	if s.serviceability == nil || s.pickupPincode == "" || req.Customer.Pincode == "" {
		return
	}
	weight := req.WeightKg
	if weight <= 0 {
		weight = 0.5
	}
	options, err := s.serviceability.CheckServiceability(ctx, s.pickupPincode, req.Customer.Pincode, weight, req.PaymentMode)
	if err != nil {
		s.logger.Warn("serviceability lookup failed at checkout",
			"error", err, "pincode", req.Customer.Pincode)
		return
	}

	if len(options) == 0 {
		s.logger.Warn("no couriers serve the lane at checkout", "pincode", req.Customer.Pincode)
		return
	}

	best := options[0]
	for _, option := range options[1:] {
		if option.Rate < best.Rate {
			best = option
		}
	}
	productionEnd := now.AddDate(0, 0, s.productionLeadDays)
	estimated := shipment.EstimateDeliveryDate(productionEnd, best.EstimatedDays)
	order.CourierPartner = best.CourierName
	order.CourierCharges = best.Rate
	order.EstimatedDelivery = &estimated
}

func validateCreate(req CreateOrderRequest) error {
	if err := shared.Validator().Struct(req); err != nil {
		return err
	}
	// Designer orders may defer artwork; everything else uploads first.
	if !req.NeedDesigner && req.ArtworkURL == "" {
		return ErrArtworkRequired
	}
	return nil
}

// Get returns one order by id.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List pages orders for the admin view.
func (s *Service) List(ctx context.Context, query ListQuery) (*ListResponse, error) {
	pagination := shared.NewPagination(query.Page, query.PerPage, 0)
	query.Page, query.PerPage = pagination.Page, pagination.PerPage

	result, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return &ListResponse{
		Orders:     result,
		Pagination: shared.NewPagination(query.Page, query.PerPage, total),
	}, nil
}

// UpdateStatus moves an order between workflow states.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(order.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	order.Status = status
	s.logger.Info("order status updated", "order_id", id, "status", status)
	return order, nil
}

// Breakdown returns the priced view of an order. The frozen snapshot is
// authoritative; orders predating snapshots fall back to a live
// recomputation, accepting that the displayed total may drift from what
// was actually charged.
func (s *Service) Breakdown(ctx context.Context, order *Order) (pricing.Breakdown, error) {
	if order.PriceSnapshot != nil {
		snap := order.PriceSnapshot
		return pricing.Breakdown{
			BasePrice:     snap.BasePrice,
			UnitPrice:     snap.UnitPrice,
			Quantity:      snap.Quantity,
			Applied:       snap.Applied,
			Subtotal:      snap.Subtotal,
			GSTPercentage: snap.GSTPercentage,
			GSTAmount:     snap.GSTAmount,
			TotalPayable:  snap.TotalPayable,
			Currency:      snap.Currency,
		}, nil
	}

	s.logger.Warn("order has no price snapshot, recomputing from live product",
		"order_id", order.ID, "order_number", order.OrderNumber)
	product, err := s.products.Get(ctx, order.ProductID)
	if err != nil {
		return pricing.Breakdown{}, fmt.Errorf("load product for legacy order: %w", err)
	}
	return pricing.ComputeBreakdown(*product, order.Selection, order.Quantity)
}

var paymentStatuses = map[string]string{
	"PENDING":            PaymentPending,
	"PARTIAL":            PaymentPartial,
	"COMPLETED":          PaymentCompleted,
	"SUCCESS":            PaymentCompleted,
	"PAID":               PaymentCompleted,
	"FAILED":             PaymentFailed,
	"REFUNDED":           PaymentRefunded,
	"PARTIALLY_REFUNDED": PaymentPartiallyRefunded,
}

// HandlePaymentWebhook applies a gateway callback. It writes the payment
// status and nothing else, and applies each event id at most once.
func (s *Service) HandlePaymentWebhook(ctx context.Context, payload PaymentWebhookPayload) error {
	status, ok := paymentStatuses[strings.ToUpper(strings.TrimSpace(payload.Status))]
	if !ok {
		s.metrics.ObserveWebhookEvent("payment", "error")
		return fmt.Errorf("%w: %q", ErrUnknownPaymentCode, payload.Status)
	}

	if s.idempotency != nil {
		err := s.idempotency.CheckAndInsert(ctx, payload.EventID, "payment_webhook")
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			s.metrics.ObserveWebhookEvent("payment", "duplicate")
			return nil
		}
		if err != nil {
			s.metrics.ObserveWebhookEvent("payment", "error")
			return fmt.Errorf("payment webhook dedup: %w", err)
		}
	}

	order, err := s.repo.GetByNumber(ctx, payload.OrderNumber)
	if err != nil {
		s.metrics.ObserveWebhookEvent("payment", "unknown_order")
		s.releaseEvent(ctx, payload.EventID)
		return err
	}
	if err := s.repo.SetPaymentStatus(ctx, order.ID, status); err != nil {
		s.metrics.ObserveWebhookEvent("payment", "error")
		s.releaseEvent(ctx, payload.EventID)
		return err
	}

	s.metrics.ObserveWebhookEvent("payment", "accepted")
	s.logger.Info("payment status updated",
		"order_number", payload.OrderNumber,
		"payment_status", status,
		"amount", payload.Amount)

	if status == PaymentCompleted {
		s.sendPaymentConfirmation(ctx, order)
	}
	return nil
}

// releaseEvent rolls back a claimed event key after a failed write so
// the gateway's retry is not treated as a duplicate.
func (s *Service) releaseEvent(ctx context.Context, eventID string) {
	if s.idempotency == nil {
		return
	}
	if err := s.idempotency.Delete(ctx, eventID); err != nil {
		s.logger.Error("release payment event key", "event_id", eventID, "error", err)
	}
}

// sendPaymentConfirmation queues the invoice mail. Mail is best effort;
// a queue failure never fails the webhook.
func (s *Service) sendPaymentConfirmation(ctx context.Context, order *Order) {
	if s.mail == nil || order.Customer.Email == "" {
		return
	}
	breakdown, err := s.Breakdown(ctx, order)
	if err != nil {
		s.logger.Error("render confirmation invoice", "order_number", order.OrderNumber, "error", err)
		return
	}
	subject := "Payment received for order " + order.OrderNumber
	if err := s.mail.SendOrderConfirmation(ctx, order.Customer.Email, subject, RenderInvoiceText(*order, breakdown)); err != nil {
		s.logger.Error("queue confirmation mail", "order_number", order.OrderNumber, "error", err)
	}
}
