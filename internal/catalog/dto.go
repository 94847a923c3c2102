package catalog

// CreateProductRequest represents request to create a product.
type CreateProductRequest struct {
	SKU                    string             `json:"sku" validate:"required,max=50"`
	Name                   string             `json:"name" validate:"required,max=200"`
	Description            *string            `json:"description,omitempty"`
	BasePrice              float64            `json:"base_price" validate:"required,gt=0"`
	GSTPercentage          float64            `json:"gst_percentage" validate:"gte=0,lte=100"`
	AdditionalDesignCharge float64            `json:"additional_design_charge" validate:"gte=0"`
	Options                []Option           `json:"options,omitempty" validate:"omitempty,dive"`
	Attributes             []DynamicAttribute `json:"attributes,omitempty" validate:"omitempty,dive"`
	QuantityTiers          []QuantityTier     `json:"quantity_tiers,omitempty" validate:"omitempty,dive"`
}

// UpdateProductRequest represents request to update a product. Nil fields
// are left unchanged.
type UpdateProductRequest struct {
	Name                   *string             `json:"name,omitempty" validate:"omitempty,max=200"`
	Description            *string             `json:"description,omitempty"`
	BasePrice              *float64            `json:"base_price,omitempty" validate:"omitempty,gt=0"`
	GSTPercentage          *float64            `json:"gst_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	AdditionalDesignCharge *float64            `json:"additional_design_charge,omitempty" validate:"omitempty,gte=0"`
	Options                *[]Option           `json:"options,omitempty" validate:"omitempty,dive"`
	Attributes             *[]DynamicAttribute `json:"attributes,omitempty" validate:"omitempty,dive"`
	QuantityTiers          *[]QuantityTier     `json:"quantity_tiers,omitempty" validate:"omitempty,dive"`
	IsActive               *bool               `json:"is_active,omitempty"`
}

// ListRequest represents filters for listing products.
type ListRequest struct {
	Search   string `json:"search,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	Limit    int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int    `json:"offset" validate:"gte=0"`
}

// ListResponse represents the API response for a product listing.
type ListResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
