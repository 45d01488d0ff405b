package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/apiclient"
	"github.com/fairyhunter13/coupon-console/internal/model"
	validation "github.com/fairyhunter13/coupon-console/internal/validator"
)

const couponsPath = "/admin/coupons"

// CouponService provides the coupon administration calls.
type CouponService struct {
	client    *apiclient.Client
	validator *validator.Validate
}

// NewCouponService creates a CouponService on top of the shared client.
func NewCouponService(client *apiclient.Client, v *validator.Validate) *CouponService {
	return &CouponService{client: client, validator: v}
}

// List returns one page of coupons. Zero-valued params fall back to the
// backend defaults (page 0, size 10, sorted by id ascending).
func (s *CouponService) List(ctx context.Context, params model.CouponListParams) (*model.Page[model.CouponSummary], error) {
	def := model.DefaultCouponListParams()
	if params.Size == 0 {
		params.Size = def.Size
	}
	if params.SortBy == "" {
		params.SortBy = def.SortBy
	}
	if params.Direction == "" {
		params.Direction = def.Direction
	}
	if err := s.validator.Struct(params); err != nil {
		return nil, invalid(validation.Message(err), err)
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(params.Page))
	query.Set("size", strconv.Itoa(params.Size))
	query.Set("sortBy", params.SortBy)
	query.Set("direction", params.Direction)

	env, err := apiclient.Call[json.RawMessage](ctx, s.client, &apiclient.Request{
		Method: http.MethodGet,
		Path:   couponsPath,
		Query:  query,
	})
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, rejected(env.Message, "Failed to load coupons")
	}

	page, err := decodeCouponPage(env.Data, params)
	if err != nil {
		return nil, fmt.Errorf("decode coupon list: %w", err)
	}
	return page, nil
}

// decodeCouponPage accepts either a paged object or a bare array under data.
func decodeCouponPage(data json.RawMessage, params model.CouponListParams) (*model.Page[model.CouponSummary], error) {
	if len(data) == 0 || string(data) == "null" {
		return &model.Page[model.CouponSummary]{Number: params.Page, Size: params.Size, Last: true}, nil
	}

	if data[0] == '[' {
		var items []model.CouponSummary
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return &model.Page[model.CouponSummary]{
			Content:       items,
			Number:        params.Page,
			Size:          params.Size,
			TotalElements: int64(len(items)),
			TotalPages:    1,
			Last:          true,
		}, nil
	}

	var page model.Page[model.CouponSummary]
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	if page.Size == 0 {
		page.Size = params.Size
	}
	return &page, nil
}

// Get retrieves a coupon by id.
// Returns ErrCouponNotFound if the backend answers 404.
func (s *CouponService) Get(ctx context.Context, id int64) (*model.CouponDetail, error) {
	env, err := apiclient.Call[model.CouponDetail](ctx, s.client, &apiclient.Request{
		Method: http.MethodGet,
		Path:   couponPath(id),
	})
	if err != nil {
		return nil, notFound(err, ErrCouponNotFound)
	}
	if !env.Success {
		return nil, rejected(env.Message, "Failed to load coupon")
	}
	return &env.Data, nil
}

// Create validates and submits a new coupon.
func (s *CouponService) Create(ctx context.Context, req model.CouponCreate) (*model.CouponDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(validation.Message(err), err)
	}

	env, err := apiclient.Call[model.CouponDetail](ctx, s.client, &apiclient.Request{
		Method: http.MethodPost,
		Path:   couponsPath,
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, rejected(env.Message, "Failed to create coupon")
	}

	log.Info().Int64("coupon_id", env.Data.ID).Str("coupon_name", env.Data.Name).Msg("coupon created")
	return &env.Data, nil
}

// Update validates and submits a partial update.
// Returns ErrCouponNotFound if the backend answers 404.
func (s *CouponService) Update(ctx context.Context, id int64, req model.CouponUpdate) (*model.CouponDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(validation.Message(err), err)
	}

	env, err := apiclient.Call[model.CouponDetail](ctx, s.client, &apiclient.Request{
		Method: http.MethodPut,
		Path:   couponPath(id),
		Body:   req,
	})
	if err != nil {
		return nil, notFound(err, ErrCouponNotFound)
	}
	if !env.Success {
		return nil, rejected(env.Message, "Failed to update coupon")
	}

	log.Info().Int64("coupon_id", id).Msg("coupon updated")
	return &env.Data, nil
}

// Delete removes a coupon.
// Returns ErrCouponNotFound if the backend answers 404.
func (s *CouponService) Delete(ctx context.Context, id int64) error {
	env, err := apiclient.Call[json.RawMessage](ctx, s.client, &apiclient.Request{
		Method: http.MethodDelete,
		Path:   couponPath(id),
	})
	if err != nil {
		return notFound(err, ErrCouponNotFound)
	}
	if !env.Success {
		return rejected(env.Message, "Failed to delete coupon")
	}

	log.Info().Int64("coupon_id", id).Msg("coupon deleted")
	return nil
}

func couponPath(id int64) string {
	return couponsPath + "/" + strconv.FormatInt(id, 10)
}

// notFound turns a 404 into kind and leaves every other failure untouched.
func notFound(err, kind error) error {
	if apiclient.StatusOf(err) == http.StatusNotFound {
		return &Error{Kind: kind, Message: kind.Error(), Err: err}
	}
	return err
}
