package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"charsmith/pkg/config"
	"charsmith/pkg/store"
	"charsmith/pkg/utils"
)

type Server struct {
	Echo    *echo.Echo
	Config  config.Config
	Storage store.Storage
	Images  *ImageStore
}

func NewServer(cfg config.Config, storage store.Storage, images *ImageStore) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	s := &Server{
		Echo:    e,
		Config:  cfg,
		Storage: storage,
		Images:  images,
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/", s.handleGetRoot)

	// share links land here; the builder reads its initial state from the response
	s.Echo.GET("/character-builder", s.handleGetCharacterBuilder)
	s.Echo.GET("/images/:id", s.handleGetImage)

	api := s.Echo.Group("/api", middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{s.Config.PublicURL, s.Config.OwlbearOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete},
	}))
	api.GET("/schema/character", s.handleGetCharacterSchema)
	api.POST("/characters/validate", s.handlePostValidate)
	api.GET("/characters/:key", s.handleGetCharacter)
	api.PUT("/characters/:key", s.handlePutCharacter)
	api.POST("/share", s.handlePostShare)

	limit := fmt.Sprintf("%dM", s.Config.MaxUploadMB+1) // room for multipart framing
	api.POST("/images", s.handlePostImage, middleware.BodyLimit(limit))
	api.GET("/images/:id", s.handleGetImageMeta)
	api.DELETE("/images/:id", s.handleDeleteImage, s.requireAdmin())

	// the tabletop loads the manifest cross-origin; nobody else should
	owlbear := s.Echo.Group("/owlbear", middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{s.Config.OwlbearOrigin},
		AllowMethods: []string{http.MethodGet},
	}))
	owlbear.GET("/manifest.json", s.handleGetManifest)
	owlbear.GET("/icon.svg", s.handleGetIcon)
}

func (s *Server) Start(addr string) error {
	utils.Logf("Server listening at %s", addr)
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	utils.Logf("Shutting down server...")
	return s.Echo.Shutdown(ctx)
}
