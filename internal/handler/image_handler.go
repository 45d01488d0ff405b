package handler

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/apiclient"
	"github.com/fairyhunter13/coupon-console/internal/cache"
	"github.com/fairyhunter13/coupon-console/internal/model"
	"github.com/fairyhunter13/coupon-console/internal/service"
)

// ImageServiceInterface defines the image calls the console needs.
type ImageServiceInterface interface {
	List(ctx context.Context) ([]model.ImageSummary, error)
	Upload(ctx context.Context, fileName string, r io.Reader, description string) (*model.ImageDetail, error)
	Delete(ctx context.Context, id int64) error
	Content(ctx context.Context, id int64) (*model.ImageContent, error)
}

// ImageHandler serves the image library pages and proxies image bytes.
type ImageHandler struct {
	*View
	service ImageServiceInterface
	cache   *cache.ImageCache
}

// NewImageHandler creates a new ImageHandler. A nil cache disables caching.
func NewImageHandler(view *View, svc ImageServiceInterface, c *cache.ImageCache) *ImageHandler {
	return &ImageHandler{View: view, service: svc, cache: c}
}

type imageRow struct {
	ID          int64
	FileName    string
	FileType    string
	Size        string
	Description string
	URL         string
}

// List handles GET /admin/images.
func (h *ImageHandler) List(c *fiber.Ctx) error {
	images, err := h.service.List(c.UserContext())
	if err != nil {
		return h.Fail(c, err)
	}

	rows := make([]imageRow, 0, len(images))
	for _, img := range images {
		rows = append(rows, imageRow{
			ID:          img.ID,
			FileName:    img.FileName,
			FileType:    img.FileType,
			Size:        humanize.IBytes(uint64(max(img.FileSize, 0))),
			Description: img.Description,
			URL:         imageContentPath(img.ID),
		})
	}
	return h.Render(c, "images/list", fiber.StatusOK, fiber.Map{"images": rows})
}

// Upload handles POST /admin/images.
func (h *ImageHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		h.Notify(c, FlashError, "Please select a file to upload")
		return c.Redirect("/admin/images", fiber.StatusSeeOther)
	}

	f, err := fh.Open()
	if err != nil {
		log.Error().Err(err).Str("file_name", fh.Filename).Msg("failed to open uploaded file")
		h.Notify(c, FlashError, "Error uploading image")
		return c.Redirect("/admin/images", fiber.StatusSeeOther)
	}
	defer func() { _ = f.Close() }()

	if _, err := h.service.Upload(c.UserContext(), fh.Filename, f, c.FormValue("description")); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return h.Fail(c, err)
		}
		message := "Error uploading image"
		if errors.Is(err, service.ErrInvalidRequest) || errors.Is(err, service.ErrRejected) || apiclient.StatusOf(err) != 0 {
			message = err.Error()
		}
		h.Notify(c, FlashError, message)
		return c.Redirect("/admin/images", fiber.StatusSeeOther)
	}

	h.Notify(c, FlashSuccess, "Image uploaded successfully")
	return c.Redirect("/admin/images", fiber.StatusSeeOther)
}

// Delete handles POST /admin/images/:id/delete.
func (h *ImageHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return h.Render(c, "not_found", fiber.StatusNotFound, nil)
	}

	if err := h.service.Delete(c.UserContext(), int64(id)); err != nil {
		if errors.Is(err, service.ErrRejected) {
			h.Notify(c, FlashError, err.Error())
			return c.Redirect("/admin/images", fiber.StatusSeeOther)
		}
		return h.Fail(c, err)
	}
	if h.cache != nil {
		h.cache.Invalidate(int64(id))
	}

	h.Notify(c, FlashSuccess, "Image deleted successfully")
	return c.Redirect("/admin/images", fiber.StatusSeeOther)
}

// Content handles GET /admin/images/:id/content.
func (h *ImageHandler) Content(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.SendStatus(fiber.StatusNotFound)
	}

	var content *model.ImageContent
	if h.cache != nil {
		content, err = h.cache.GetOrLoad(c.UserContext(), int64(id), h.service.Content)
	} else {
		content, err = h.service.Content(c.UserContext(), int64(id))
	}
	if err != nil {
		switch {
		case errors.Is(err, apiclient.ErrUnauthorized):
			return c.SendStatus(fiber.StatusUnauthorized)
		case errors.Is(err, service.ErrImageNotFound):
			return c.SendStatus(fiber.StatusNotFound)
		default:
			log.Error().Err(err).Int("image_id", id).Msg("failed to fetch image content")
			return c.SendStatus(fiber.StatusBadGateway)
		}
	}

	c.Set(fiber.HeaderContentType, content.ContentType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.Send(content.Data)
}

func imageContentPath(id int64) string {
	return "/admin/images/" + strconv.FormatInt(id, 10) + "/content"
}
