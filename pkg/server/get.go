package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"charsmith/pkg/schema"
)

func (s *Server) handleGetRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "Charsmith Character API",
		"status":  "ok",
	})
}

// GET /api/schema/character
func (s *Server) handleGetCharacterSchema(c echo.Context) error {
	return c.JSON(http.StatusOK, schema.JSONSchema())
}
