package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coupon-console/internal/apiclient"
	"github.com/fairyhunter13/coupon-console/internal/model"
)

const imagesPath = "/images"

// ImageService provides the image library calls.
type ImageService struct {
	client   *apiclient.Client
	maxBytes int64
}

// NewImageService creates an ImageService. maxBytes <= 0 disables the size check.
func NewImageService(client *apiclient.Client, maxBytes int64) *ImageService {
	return &ImageService{client: client, maxBytes: maxBytes}
}

// List returns every image's metadata.
func (s *ImageService) List(ctx context.Context) ([]model.ImageSummary, error) {
	env, err := apiclient.Call[[]model.ImageSummary](ctx, s.client, &apiclient.Request{
		Method: http.MethodGet,
		Path:   imagesPath,
	})
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, rejected(env.Message, "Failed to load images")
	}
	return env.Data, nil
}

// Get returns one image's metadata.
// Returns ErrImageNotFound if the backend answers 404.
func (s *ImageService) Get(ctx context.Context, id int64) (*model.ImageDetail, error) {
	env, err := apiclient.Call[model.ImageDetail](ctx, s.client, &apiclient.Request{
		Method: http.MethodGet,
		Path:   imagePath(id),
	})
	if err != nil {
		return nil, notFound(err, ErrImageNotFound)
	}
	if !env.Success {
		return nil, rejected(env.Message, "Failed to load image")
	}
	if env.Data.URL == "" {
		env.Data.URL = s.ContentURL(id)
	}
	return &env.Data, nil
}

// Upload sends r as the multipart "file" part with an optional description.
// Content that is not an image, or larger than the configured limit, is refused
// without contacting the backend.
func (s *ImageService) Upload(ctx context.Context, fileName string, r io.Reader, description string) (*model.ImageDetail, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, invalid("file name is required", nil)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, invalid("file exceeds maximum size of "+humanize.IBytes(uint64(s.maxBytes)), nil)
	}
	if len(data) == 0 {
		return nil, invalid("file is empty", nil)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, invalid("file must be an image, got "+mt.String(), nil)
	}

	body, contentType, err := multipartBody(filepath.Base(fileName), mt.String(), data, description)
	if err != nil {
		return nil, err
	}

	env, err := apiclient.Call[model.ImageDetail](ctx, s.client, &apiclient.Request{
		Method:      http.MethodPost,
		Path:        imagesPath,
		RawBody:     body,
		ContentType: contentType,
	})
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, rejected(env.Message, "Failed to upload image")
	}
	if env.Data.URL == "" && env.Data.ID != 0 {
		env.Data.URL = s.ContentURL(env.Data.ID)
	}

	log.Info().
		Int64("image_id", env.Data.ID).
		Str("file_name", fileName).
		Str("content_type", mt.String()).
		Int("size", len(data)).
		Msg("image uploaded")
	return &env.Data, nil
}

func multipartBody(fileName, contentType string, data []byte, description string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	if description != "" {
		if err := w.WriteField("description", description); err != nil {
			return nil, "", fmt.Errorf("write description: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Delete removes an image.
// Returns ErrImageNotFound if the backend answers 404.
func (s *ImageService) Delete(ctx context.Context, id int64) error {
	env, err := apiclient.Call[json.RawMessage](ctx, s.client, &apiclient.Request{
		Method: http.MethodDelete,
		Path:   imagePath(id),
	})
	if err != nil {
		return notFound(err, ErrImageNotFound)
	}
	if !env.Success {
		return rejected(env.Message, "Failed to delete image")
	}

	log.Info().Int64("image_id", id).Msg("image deleted")
	return nil
}

// Content fetches the image bytes through the authenticated client.
// Returns ErrImageNotFound if the backend answers 404.
func (s *ImageService) Content(ctx context.Context, id int64) (*model.ImageContent, error) {
	resp, err := s.client.Do(ctx, &apiclient.Request{
		Method: http.MethodGet,
		Path:   imagePath(id) + "/content",
		Header: http.Header{"Accept": []string{"image/*"}},
	})
	if err != nil {
		return nil, notFound(err, ErrImageNotFound)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image content: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = mimetype.Detect(data).String()
	}
	return &model.ImageContent{ContentType: ct, Data: data}, nil
}

// ContentURL returns the direct backend URL of an image's bytes.
func (s *ImageService) ContentURL(id int64) string {
	return s.client.URL(imagePath(id) + "/content")
}

func imagePath(id int64) string {
	return imagesPath + "/" + strconv.FormatInt(id, 10)
}
