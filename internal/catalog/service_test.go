package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	nextID   int64
	products map[int64]Product
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, products: map[int64]Product{}}
}

func (m *memRepo) List(_ context.Context, req ListRequest) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		if req.IsActive != nil && p.IsActive != *req.IsActive {
			continue
		}
		if req.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(req.Search)) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memRepo) GetBySKU(_ context.Context, sku string) (*Product, error) {
	for _, p := range m.products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) Create(_ context.Context, p Product) (int64, error) {
	p.ID = m.nextID
	m.nextID++
	m.products[p.ID] = p
	return p.ID, nil
}

func (m *memRepo) Update(_ context.Context, id int64, p Product) error {
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	p.ID = id
	m.products[id] = p
	return nil
}

func validProduct() CreateProductRequest {
	return CreateProductRequest{
		SKU:           "BC-STD",
		Name:          "Business Cards",
		BasePrice:     2.5,
		GSTPercentage: 18,
		QuantityTiers: []QuantityTier{
			{MinQuantity: 100, MaxQuantity: 499, UnitPrice: 2.5},
			{MinQuantity: 500, MaxQuantity: 1999, UnitPrice: 2.1},
		},
	}
}

func TestCreateProduct(t *testing.T) {
	svc := NewService(newMemRepo())

	created, err := svc.Create(context.Background(), validProduct())
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "BC-STD", got.SKU)
	assert.Equal(t, 2.5, got.BasePrice)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Create(context.Background(), validProduct())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validProduct())
	require.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestCreateProductOverlappingTiers(t *testing.T) {
	svc := NewService(newMemRepo())

	req := validProduct()
	req.QuantityTiers = []QuantityTier{
		{MinQuantity: 100, MaxQuantity: 999, UnitPrice: 2.5},
		{MinQuantity: 500, MaxQuantity: 1999, UnitPrice: 2.1},
	}
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, ErrOverlappingTiers)
}

func TestUpdateProductPartial(t *testing.T) {
	svc := NewService(newMemRepo())

	created, err := svc.Create(context.Background(), validProduct())
	require.NoError(t, err)

	price := 3.0
	inactive := false
	updated, err := svc.Update(context.Background(), created.ID, UpdateProductRequest{
		BasePrice: &price,
		IsActive:  &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, updated.BasePrice)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Business Cards", updated.Name, "untouched fields survive")
}

func TestUpdateProductRejectsBadTiers(t *testing.T) {
	svc := NewService(newMemRepo())

	created, err := svc.Create(context.Background(), validProduct())
	require.NoError(t, err)

	bad := []QuantityTier{{MinQuantity: 0, MaxQuantity: 10, UnitPrice: 1}}
	_, err = svc.Update(context.Background(), created.ID, UpdateProductRequest{QuantityTiers: &bad})
	require.ErrorIs(t, err, ErrOverlappingTiers)
}

func TestListFiltersActive(t *testing.T) {
	svc := NewService(newMemRepo())

	first, err := svc.Create(context.Background(), validProduct())
	require.NoError(t, err)

	second := validProduct()
	second.SKU = "FLY-A5"
	second.Name = "A5 Flyers"
	_, err = svc.Create(context.Background(), second)
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(context.Background(), first.ID, UpdateProductRequest{IsActive: &inactive})
	require.NoError(t, err)

	active := true
	products, total, err := svc.List(context.Background(), ListRequest{IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, "FLY-A5", products[0].SKU)
}
