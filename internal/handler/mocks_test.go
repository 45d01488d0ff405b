package handler

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/coupon-console/internal/cache"
	"github.com/fairyhunter13/coupon-console/internal/model"
)

// mockCouponService is a mock implementation of CouponServiceInterface.
type mockCouponService struct {
	listFn   func(ctx context.Context, params model.CouponListParams) (*model.Page[model.CouponSummary], error)
	getFn    func(ctx context.Context, id int64) (*model.CouponDetail, error)
	createFn func(ctx context.Context, req model.CouponCreate) (*model.CouponDetail, error)
	updateFn func(ctx context.Context, id int64, req model.CouponUpdate) (*model.CouponDetail, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockCouponService) List(ctx context.Context, params model.CouponListParams) (*model.Page[model.CouponSummary], error) {
	if m.listFn != nil {
		return m.listFn(ctx, params)
	}
	return &model.Page[model.CouponSummary]{}, nil
}

func (m *mockCouponService) Get(ctx context.Context, id int64) (*model.CouponDetail, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.CouponDetail{ID: id}, nil
}

func (m *mockCouponService) Create(ctx context.Context, req model.CouponCreate) (*model.CouponDetail, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &model.CouponDetail{ID: 1, Name: req.Name}, nil
}

func (m *mockCouponService) Update(ctx context.Context, id int64, req model.CouponUpdate) (*model.CouponDetail, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &model.CouponDetail{ID: id}, nil
}

func (m *mockCouponService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockImageService is a mock implementation of ImageServiceInterface.
type mockImageService struct {
	mu           sync.Mutex
	listFn       func(ctx context.Context) ([]model.ImageSummary, error)
	uploadFn     func(ctx context.Context, fileName string, data []byte, description string) (*model.ImageDetail, error)
	deleteFn     func(ctx context.Context, id int64) error
	contentFn    func(ctx context.Context, id int64) (*model.ImageContent, error)
	contentCalls int
}

func (m *mockImageService) List(ctx context.Context) ([]model.ImageSummary, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockImageService) Upload(ctx context.Context, fileName string, r io.Reader, description string) (*model.ImageDetail, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if m.uploadFn != nil {
		return m.uploadFn(ctx, fileName, data, description)
	}
	return &model.ImageDetail{ImageSummary: model.ImageSummary{ID: 1, FileName: fileName}}, nil
}

func (m *mockImageService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockImageService) Content(ctx context.Context, id int64) (*model.ImageContent, error) {
	m.mu.Lock()
	m.contentCalls++
	m.mu.Unlock()
	if m.contentFn != nil {
		return m.contentFn(ctx, id)
	}
	return &model.ImageContent{ContentType: "image/png", Data: []byte("png-bytes")}, nil
}

func (m *mockImageService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contentCalls
}

func newTestCache(t *testing.T) *cache.ImageCache {
	t.Helper()
	c, err := cache.NewImageCache(8)
	require.NoError(t, err)
	return c
}
