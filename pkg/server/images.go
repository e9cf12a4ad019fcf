package server

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/webp"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/segmentio/ksuid"

	"charsmith/pkg/flight"
	"charsmith/pkg/utils"
)

var (
	ErrImageNotFound = errors.New("image not found")
	ErrNotAnImage    = errors.New("not an image")
)

// ImageMeta is stored next to each image.
type ImageMeta struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

type uploadResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ImageStore keeps uploaded portraits as WebP files named by their id.
type ImageStore struct {
	dir   string
	cache flight.Cache[string, []byte]
}

func NewImageStore(dir string, ttl time.Duration) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}
	s := &ImageStore{dir: dir}
	s.cache = flight.NewCache(s.read)
	s.cache.Expiry(ttl)
	return s, nil
}

func (s *ImageStore) path(id, ext string) string {
	return filepath.Join(s.dir, id+ext)
}

// validID keeps ids to what ksuid produced, which also keeps them out of
// other directories.
func validID(id string) bool {
	_, err := ksuid.Parse(id)
	return err == nil
}

// Save decodes r as an image, re-encodes it as WebP and returns the stored
// metadata with its new id.
func (s *ImageStore) Save(r io.Reader, filename, contentType string) (ImageMeta, error) {
	imgBytes, err := io.ReadAll(r)
	if err != nil {
		return ImageMeta{}, fmt.Errorf("failed to read image data: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		var err2 error
		img, _, err2 = image.Decode(bytes.NewReader(imgBytes))
		if err2 != nil {
			return ImageMeta{}, fmt.Errorf("%w (png: %v, generic: %v)", ErrNotAnImage, err, err2)
		}
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, webp.Options{Lossless: false, Quality: 100}); err != nil {
		return ImageMeta{}, fmt.Errorf("failed to encode webp: %w", err)
	}

	meta := ImageMeta{
		ID:          ksuid.New().String(),
		Filename:    utils.LimitStr(filepath.Base(filename), 128),
		ContentType: contentType,
		Size:        int64(len(imgBytes)),
		CreatedAt:   time.Now().UTC(),
	}
	if err := utils.WriteFile(s.path(meta.ID, ".webp"), buf.Bytes()); err != nil {
		return ImageMeta{}, fmt.Errorf("failed to write image %s: %w", meta.ID, err)
	}
	if err := utils.Save(s.path(meta.ID, ".json"), meta); err != nil {
		log.Warn("failed writing image metadata", "id", meta.ID, "error", err)
	}
	return meta, nil
}

// Get returns the WebP bytes for id, served from cache when possible.
func (s *ImageStore) Get(id string) ([]byte, error) {
	if !validID(id) {
		return nil, ErrImageNotFound
	}
	return s.cache.Get(id)
}

func (s *ImageStore) Meta(id string) (ImageMeta, error) {
	if !validID(id) {
		return ImageMeta{}, ErrImageNotFound
	}
	path := s.path(id, ".json")
	if !utils.Exists(path) {
		return ImageMeta{}, ErrImageNotFound
	}
	return utils.Load[ImageMeta](path)
}

func (s *ImageStore) Delete(id string) error {
	if !validID(id) {
		return ErrImageNotFound
	}
	err := os.Remove(s.path(id, ".webp"))
	if errors.Is(err, os.ErrNotExist) {
		return ErrImageNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", id, err)
	}
	if err := os.Remove(s.path(id, ".json")); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed deleting image metadata", "id", id, "error", err)
	}
	s.cache.Forget(id)
	return nil
}

func (s *ImageStore) read(id string) ([]byte, error) {
	data, err := os.ReadFile(s.path(id, ".webp"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrImageNotFound
	}
	return data, err
}

// POST /api/images
func (s *Server) handlePostImage(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		var httpErr *echo.HTTPError
		if errors.As(err, &tooLarge) || (errors.As(err, &httpErr) && httpErr.Code == http.StatusRequestEntityTooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image too large")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart form with a file field")
	}
	defer form.RemoveAll()

	files := form.File["file"]
	switch {
	case len(files) == 0:
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	case len(files) > 1:
		return echo.NewHTTPError(http.StatusBadRequest, "only one file may be uploaded")
	}

	fh := files[0]
	if fh.Size > s.Config.MaxUploadBytes() {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("image must be at most %dMB", s.Config.MaxUploadMB))
	}

	meta, err := s.saveUpload(fh)
	if errors.Is(err, ErrNotAnImage) {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "file must be an image")
	}
	if err != nil {
		log.Error("image upload failed", "filename", fh.Filename, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed storing image")
	}

	log.Info("image uploaded", "id", meta.ID, "filename", meta.Filename, "bytes", meta.Size)
	return c.JSON(http.StatusCreated, uploadResponse{
		ID:  meta.ID,
		URL: s.Config.PublicURL + "/images/" + meta.ID,
	})
}

func (s *Server) saveUpload(fh *multipart.FileHeader) (ImageMeta, error) {
	f, err := fh.Open()
	if err != nil {
		return ImageMeta{}, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ImageMeta{}, err
	}
	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		return ImageMeta{}, fmt.Errorf("%w: detected %s", ErrNotAnImage, contentType)
	}

	return s.Images.Save(io.MultiReader(bytes.NewReader(head[:n]), f), fh.Filename, contentType)
}

// GET /images/:id
func (s *Server) handleGetImage(c echo.Context) error {
	data, err := s.Images.Get(c.Param("id"))
	if errors.Is(err, ErrImageNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	if err != nil {
		log.Error("failed reading image", "id", c.Param("id"), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed reading image")
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Blob(http.StatusOK, "image/webp", data)
}

// GET /api/images/:id
func (s *Server) handleGetImageMeta(c echo.Context) error {
	meta, err := s.Images.Meta(c.Param("id"))
	if errors.Is(err, ErrImageNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	if err != nil {
		log.Error("failed reading image metadata", "id", c.Param("id"), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed reading image metadata")
	}
	return c.JSON(http.StatusOK, meta)
}

// DELETE /api/images/:id
func (s *Server) handleDeleteImage(c echo.Context) error {
	id := c.Param("id")
	if err := s.Images.Delete(id); errors.Is(err, ErrImageNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	} else if err != nil {
		log.Error("failed deleting image", "id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed deleting image")
	}
	log.Info("image deleted", "id", id)
	return c.NoContent(http.StatusNoContent)
}

// requireAdmin accepts "Authorization: Bearer <ADMIN_TOKEN>". With no token
// configured every request is refused.
func (s *Server) requireAdmin() echo.MiddlewareFunc {
	token := []byte(s.Config.AdminToken)
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(key string, c echo.Context) (bool, error) {
			return len(token) > 0 && subtle.ConstantTimeCompare([]byte(key), token) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			log.Warn("unauthorized admin request", "path", c.Path(), "remote", c.RealIP())
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		},
	})
}
