package catalog

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSKU indicates another product already uses the SKU.
	ErrDuplicateSKU = errors.New("sku already in use")
	// ErrOverlappingTiers indicates quantity tiers overlap.
	ErrOverlappingTiers = errors.New("quantity tiers overlap")
)

// Service implements product catalog use cases.
type Service struct {
	repo Repository
}

// NewService constructs the catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and persists a new product.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if err := validateTiers(req.QuantityTiers); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetBySKU(ctx, req.SKU); err == nil {
		return nil, ErrDuplicateSKU
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check sku: %w", err)
	}

	product := Product{
		SKU:                    req.SKU,
		Name:                   req.Name,
		Description:            req.Description,
		BasePrice:              req.BasePrice,
		GSTPercentage:          req.GSTPercentage,
		AdditionalDesignCharge: req.AdditionalDesignCharge,
		Options:                req.Options,
		Attributes:             req.Attributes,
		QuantityTiers:          req.QuantityTiers,
		IsActive:               true,
	}

	id, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update applies a partial update to an existing product.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Description != nil {
		existing.Description = req.Description
	}
	if req.BasePrice != nil {
		existing.BasePrice = *req.BasePrice
	}
	if req.GSTPercentage != nil {
		existing.GSTPercentage = *req.GSTPercentage
	}
	if req.AdditionalDesignCharge != nil {
		existing.AdditionalDesignCharge = *req.AdditionalDesignCharge
	}
	if req.Options != nil {
		existing.Options = *req.Options
	}
	if req.Attributes != nil {
		existing.Attributes = *req.Attributes
	}
	if req.QuantityTiers != nil {
		if err := validateTiers(*req.QuantityTiers); err != nil {
			return nil, err
		}
		existing.QuantityTiers = *req.QuantityTiers
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, id, *existing); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns products matching the filters.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Product, int, error) {
	return s.repo.List(ctx, req)
}

func validateTiers(tiers []QuantityTier) error {
	for i, tier := range tiers {
		if tier.MinQuantity <= 0 || tier.MaxQuantity < tier.MinQuantity {
			return fmt.Errorf("tier %d: %w", i+1, ErrOverlappingTiers)
		}
		for j := range tiers[:i] {
			prev := tiers[j]
			if tier.MinQuantity <= prev.MaxQuantity && prev.MinQuantity <= tier.MaxQuantity {
				return fmt.Errorf("tiers %d and %d: %w", j+1, i+1, ErrOverlappingTiers)
			}
		}
	}
	return nil
}
