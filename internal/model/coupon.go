package model

import (
	"encoding/json"
	"time"
)

// CouponSummary is a row of the paged coupon list.
type CouponSummary struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	DiscountValue float64 `json:"discountValue"`
	ImageID       *int64  `json:"imageId,omitempty"`
}

// CouponDetail is the full coupon as returned by GET /admin/coupons/{id}.
// Dates are kept as the backend renders them.
type CouponDetail struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	DiscountValue      float64 `json:"discountValue"`
	ValidFrom          string  `json:"validFrom"`
	ValidTo            string  `json:"validTo"`
	TermsAndConditions string  `json:"termsAndConditions"`
	IsActive           bool    `json:"isActive"`
	ImageID            *int64  `json:"imageId,omitempty"`
	ImageURL           string  `json:"imageUrl,omitempty"`
}

// CouponCreate is the body of POST /admin/coupons.
type CouponCreate struct {
	Name               string    `json:"name" validate:"required,notblank,max=255"`
	Description        string    `json:"description,omitempty"`
	DiscountValue      float64   `json:"discountValue" validate:"gte=0,lte=100"`
	ValidFrom          time.Time `json:"validFrom" validate:"required"`
	ValidTo            time.Time `json:"validTo" validate:"required,gtfield=ValidFrom"`
	TermsAndConditions string    `json:"termsAndConditions,omitempty"`
	IsActive           *bool     `json:"isActive,omitempty"`
	ImageID            *int64    `json:"imageId,omitempty"`
}

// CouponUpdate is the body of PUT /admin/coupons/{id}. Nil fields are left unchanged.
// RemoveImage sends an explicit null imageId to detach the current image.
type CouponUpdate struct {
	Name               *string    `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	Description        *string    `json:"description,omitempty"`
	DiscountValue      *float64   `json:"discountValue,omitempty" validate:"omitempty,gte=0,lte=100"`
	ValidFrom          *time.Time `json:"validFrom,omitempty"`
	ValidTo            *time.Time `json:"validTo,omitempty"`
	TermsAndConditions *string    `json:"termsAndConditions,omitempty"`
	IsActive           *bool      `json:"isActive,omitempty"`
	ImageID            *int64     `json:"imageId,omitempty"`
	RemoveImage        bool       `json:"-"`
}

// MarshalJSON renders the update body, adding "imageId": null when RemoveImage is set.
func (u CouponUpdate) MarshalJSON() ([]byte, error) {
	type plain CouponUpdate
	b, err := json.Marshal(plain(u))
	if err != nil || !u.RemoveImage {
		return b, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	fields["imageId"] = json.RawMessage("null")
	return json.Marshal(fields)
}

// CouponListParams are the query parameters of the coupon list.
type CouponListParams struct {
	Page      int    `validate:"gte=0"`
	Size      int    `validate:"gte=1,lte=100"`
	SortBy    string `validate:"required"`
	Direction string `validate:"oneof=asc desc"`
}

// DefaultCouponListParams mirrors the backend defaults.
func DefaultCouponListParams() CouponListParams {
	return CouponListParams{Page: 0, Size: 10, SortBy: "id", Direction: "asc"}
}
