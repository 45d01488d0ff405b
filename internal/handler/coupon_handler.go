package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/apiclient"
	"github.com/fairyhunter13/coupon-console/internal/model"
	"github.com/fairyhunter13/coupon-console/internal/service"
)

// FormTimeLayout is the layout of datetime-local inputs.
const FormTimeLayout = "2006-01-02T15:04"

// CouponServiceInterface defines the coupon calls the console needs.
type CouponServiceInterface interface {
	List(ctx context.Context, params model.CouponListParams) (*model.Page[model.CouponSummary], error)
	Get(ctx context.Context, id int64) (*model.CouponDetail, error)
	Create(ctx context.Context, req model.CouponCreate) (*model.CouponDetail, error)
	Update(ctx context.Context, id int64, req model.CouponUpdate) (*model.CouponDetail, error)
	Delete(ctx context.Context, id int64) error
}

// ImageLister lists images for the coupon form's image picker.
type ImageLister interface {
	List(ctx context.Context) ([]model.ImageSummary, error)
}

// CouponHandler serves the coupon administration pages.
type CouponHandler struct {
	*View
	service CouponServiceInterface
	images  ImageLister
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(view *View, svc CouponServiceInterface, images ImageLister) *CouponHandler {
	return &CouponHandler{View: view, service: svc, images: images}
}

type couponRow struct {
	ID       int64
	Name     string
	Discount string
	ImageURL string
}

// couponFormValues is what the form template shows back to the user.
type couponFormValues struct {
	Name               string
	Description        string
	DiscountValue      string
	ValidFrom          string
	ValidTo            string
	TermsAndConditions string
	IsActive           bool
	ImageID            string
}

// List handles GET /admin/coupons.
func (h *CouponHandler) List(c *fiber.Ctx) error {
	params := model.DefaultCouponListParams()
	params.Page = queryInt(c, "page", params.Page)
	params.Size = queryInt(c, "size", params.Size)
	if v := c.Query("sortBy"); v != "" {
		params.SortBy = v
	}
	if v := c.Query("direction"); v != "" {
		params.Direction = v
	}

	page, err := h.service.List(c.UserContext(), params)
	if err != nil {
		return h.Fail(c, err)
	}

	rows := make([]couponRow, 0, len(page.Content))
	for _, cp := range page.Content {
		row := couponRow{ID: cp.ID, Name: cp.Name, Discount: humanize.Ftoa(cp.DiscountValue) + "%"}
		if cp.ImageID != nil {
			row.ImageURL = imageContentPath(*cp.ImageID)
		}
		rows = append(rows, row)
	}

	return h.Render(c, "coupons/list", fiber.StatusOK, fiber.Map{
		"coupons":   rows,
		"page":      page.Number,
		"page_no":   page.Number + 1,
		"pages":     page.TotalPages,
		"total":     page.TotalElements,
		"size":      params.Size,
		"sort_by":   params.SortBy,
		"direction": params.Direction,
		"has_prev":  page.HasPrev(),
		"has_next":  page.HasNext(),
		"prev_page": page.Number - 1,
		"next_page": page.Number + 1,
	})
}

// Show handles GET /admin/coupons/:id.
func (h *CouponHandler) Show(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return h.Render(c, "not_found", fiber.StatusNotFound, nil)
	}

	coupon, err := h.service.Get(c.UserContext(), int64(id))
	if err != nil {
		return h.Fail(c, err)
	}

	data := fiber.Map{
		"coupon":     coupon,
		"discount":   humanize.Ftoa(coupon.DiscountValue) + "%",
		"valid_from": displayTime(coupon.ValidFrom),
		"valid_to":   displayTime(coupon.ValidTo),
	}
	if coupon.ImageID != nil {
		data["image_url"] = imageContentPath(*coupon.ImageID)
	}
	return h.Render(c, "coupons/detail", fiber.StatusOK, data)
}

// New handles GET /admin/coupons/new.
func (h *CouponHandler) New(c *fiber.Ctx) error {
	return h.renderForm(c, fiber.StatusOK, couponFormValues{IsActive: true}, 0, "")
}

// Create handles POST /admin/coupons.
func (h *CouponHandler) Create(c *fiber.Ctx) error {
	values := readCouponForm(c)
	req, err := values.toCreate()
	if err != nil {
		return h.renderForm(c, fiber.StatusUnprocessableEntity, values, 0, err.Error())
	}

	coupon, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		if msg, ok := formError(err); ok {
			return h.renderForm(c, fiber.StatusUnprocessableEntity, values, 0, msg)
		}
		return h.Fail(c, err)
	}

	h.Notify(c, FlashSuccess, "Coupon created successfully")
	return c.Redirect(couponPath(coupon.ID), fiber.StatusSeeOther)
}

// Edit handles GET /admin/coupons/:id/edit.
func (h *CouponHandler) Edit(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return h.Render(c, "not_found", fiber.StatusNotFound, nil)
	}

	coupon, err := h.service.Get(c.UserContext(), int64(id))
	if err != nil {
		return h.Fail(c, err)
	}

	values := couponFormValues{
		Name:               coupon.Name,
		Description:        coupon.Description,
		DiscountValue:      humanize.Ftoa(coupon.DiscountValue),
		ValidFrom:          formTime(coupon.ValidFrom),
		ValidTo:            formTime(coupon.ValidTo),
		TermsAndConditions: coupon.TermsAndConditions,
		IsActive:           coupon.IsActive,
	}
	if coupon.ImageID != nil {
		values.ImageID = strconv.FormatInt(*coupon.ImageID, 10)
	}
	return h.renderForm(c, fiber.StatusOK, values, int64(id), "")
}

// Update handles POST /admin/coupons/:id.
func (h *CouponHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return h.Render(c, "not_found", fiber.StatusNotFound, nil)
	}

	values := readCouponForm(c)
	req, err := values.toUpdate()
	if err != nil {
		return h.renderForm(c, fiber.StatusUnprocessableEntity, values, int64(id), err.Error())
	}

	if _, err := h.service.Update(c.UserContext(), int64(id), req); err != nil {
		if msg, ok := formError(err); ok {
			return h.renderForm(c, fiber.StatusUnprocessableEntity, values, int64(id), msg)
		}
		return h.Fail(c, err)
	}

	h.Notify(c, FlashSuccess, "Coupon updated successfully")
	return c.Redirect(couponPath(int64(id)), fiber.StatusSeeOther)
}

// Delete handles POST /admin/coupons/:id/delete.
func (h *CouponHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return h.Render(c, "not_found", fiber.StatusNotFound, nil)
	}

	if err := h.service.Delete(c.UserContext(), int64(id)); err != nil {
		if errors.Is(err, service.ErrRejected) {
			h.Notify(c, FlashError, err.Error())
			return c.Redirect(couponPath(int64(id)), fiber.StatusSeeOther)
		}
		return h.Fail(c, err)
	}

	h.Notify(c, FlashSuccess, "Coupon deleted successfully")
	return c.Redirect("/admin/coupons", fiber.StatusSeeOther)
}

func (h *CouponHandler) renderForm(c *fiber.Ctx, status int, values couponFormValues, id int64, formErr string) error {
	data := fiber.Map{
		"form":  values,
		"error": formErr,
	}
	if id > 0 {
		data["coupon_id"] = id
		data["action"] = couponPath(id)
	} else {
		data["action"] = "/admin/coupons"
	}

	// The picker is optional; a failing image list only hides it.
	if h.images != nil {
		images, err := h.images.List(c.UserContext())
		if err != nil {
			log.Warn().Err(err).Msg("image picker unavailable")
		} else {
			data["images"] = imageOptions(images, values.ImageID)
		}
	}
	return h.Render(c, "coupons/form", status, data)
}

type imageOption struct {
	ID       int64
	Label    string
	Selected bool
}

func imageOptions(images []model.ImageSummary, selected string) []imageOption {
	opts := make([]imageOption, 0, len(images))
	for _, img := range images {
		label := img.FileName
		if img.Description != "" {
			label += " (" + img.Description + ")"
		}
		opts = append(opts, imageOption{
			ID:       img.ID,
			Label:    label,
			Selected: strconv.FormatInt(img.ID, 10) == selected,
		})
	}
	return opts
}

func readCouponForm(c *fiber.Ctx) couponFormValues {
	return couponFormValues{
		Name:               c.FormValue("name"),
		Description:        c.FormValue("description"),
		DiscountValue:      c.FormValue("discountValue"),
		ValidFrom:          c.FormValue("validFrom"),
		ValidTo:            c.FormValue("validTo"),
		TermsAndConditions: c.FormValue("termsAndConditions"),
		IsActive:           c.FormValue("isActive") != "",
		ImageID:            c.FormValue("imageId"),
	}
}

type formFieldError string

func (e formFieldError) Error() string { return string(e) }

func (v couponFormValues) parsed() (discount float64, from, to time.Time, imageID *int64, err error) {
	if strings.TrimSpace(v.DiscountValue) == "" {
		return 0, from, to, nil, formFieldError("discount value is required")
	}
	discount, err = strconv.ParseFloat(strings.TrimSpace(v.DiscountValue), 64)
	if err != nil {
		return 0, from, to, nil, formFieldError("discount value must be a number")
	}
	if v.ValidFrom != "" {
		if from, err = time.ParseInLocation(FormTimeLayout, v.ValidFrom, time.Local); err != nil {
			return 0, from, to, nil, formFieldError("valid from date is invalid")
		}
	}
	if v.ValidTo != "" {
		if to, err = time.ParseInLocation(FormTimeLayout, v.ValidTo, time.Local); err != nil {
			return 0, from, to, nil, formFieldError("valid to date is invalid")
		}
	}
	if v.ImageID != "" {
		id, perr := strconv.ParseInt(v.ImageID, 10, 64)
		if perr != nil {
			return 0, from, to, nil, formFieldError("image selection is invalid")
		}
		imageID = &id
	}
	return discount, from, to, imageID, nil
}

func (v couponFormValues) toCreate() (model.CouponCreate, error) {
	discount, from, to, imageID, err := v.parsed()
	if err != nil {
		return model.CouponCreate{}, err
	}
	active := v.IsActive
	return model.CouponCreate{
		Name:               strings.TrimSpace(v.Name),
		Description:        v.Description,
		DiscountValue:      discount,
		ValidFrom:          from,
		ValidTo:            to,
		TermsAndConditions: v.TermsAndConditions,
		IsActive:           &active,
		ImageID:            imageID,
	}, nil
}

func (v couponFormValues) toUpdate() (model.CouponUpdate, error) {
	discount, from, to, imageID, err := v.parsed()
	if err != nil {
		return model.CouponUpdate{}, err
	}
	name := strings.TrimSpace(v.Name)
	active := v.IsActive
	req := model.CouponUpdate{
		Name:               &name,
		Description:        &v.Description,
		DiscountValue:      &discount,
		TermsAndConditions: &v.TermsAndConditions,
		IsActive:           &active,
		ImageID:            imageID,
		RemoveImage:        imageID == nil,
	}
	if !from.IsZero() {
		req.ValidFrom = &from
	}
	if !to.IsZero() {
		req.ValidTo = &to
	}
	return req, nil
}

// formError reports whether err should be shown on the form instead of an error page.
func formError(err error) (string, bool) {
	if errors.Is(err, service.ErrInvalidRequest) || errors.Is(err, service.ErrRejected) {
		return err.Error(), true
	}
	if status := apiclient.StatusOf(err); status == fiber.StatusBadRequest || status == fiber.StatusConflict || status == fiber.StatusUnprocessableEntity {
		return err.Error(), true
	}
	return "", false
}

func couponPath(id int64) string {
	return "/admin/coupons/" + strconv.FormatInt(id, 10)
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// backendTimeLayouts are the date renderings seen from the coupon API.
var backendTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// parseBackendTime returns s in the console's local zone, the zone the form
// fields are read back in. Renderings without an offset are local wall time.
func parseBackendTime(s string) (time.Time, bool) {
	for _, layout := range backendTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.In(time.Local), true
		}
	}
	return time.Time{}, false
}

func formTime(s string) string {
	if t, ok := parseBackendTime(s); ok {
		return t.Format(FormTimeLayout)
	}
	return ""
}

func displayTime(s string) string {
	if t, ok := parseBackendTime(s); ok {
		return t.Format("2 Jan 2006 15:04")
	}
	return s
}
