package server

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"

	"charsmith/pkg/share"
)

//go:embed static/icon.svg
var iconSVG []byte

const manifestVersion = "1.0.0"

type ManifestAction struct {
	Title   string `json:"title"`
	Icon    string `json:"icon"`
	Popover string `json:"popover"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// Manifest describes the extension to the tabletop.
type Manifest struct {
	Name            string         `json:"name"`
	Version         string         `json:"version"`
	ManifestVersion int            `json:"manifest_version"`
	Action          ManifestAction `json:"action"`
	Icon            string         `json:"icon"`
	Description     string         `json:"description"`
}

func (s *Server) manifest() Manifest {
	icon := s.Config.PublicURL + "/owlbear/icon.svg"
	return Manifest{
		Name:            "Charsmith",
		Version:         manifestVersion,
		ManifestVersion: 1,
		Action: ManifestAction{
			Title:   "Character Sheet",
			Icon:    icon,
			Popover: s.Config.PublicURL + share.Path,
			Width:   400,
			Height:  600,
		},
		Icon:        icon,
		Description: "Keep your character sheet in sync at the table.",
	}
}

// GET /owlbear/manifest.json
func (s *Server) handleGetManifest(c echo.Context) error {
	return c.JSON(http.StatusOK, s.manifest())
}

// GET /owlbear/icon.svg
func (s *Server) handleGetIcon(c echo.Context) error {
	return c.Blob(http.StatusOK, "image/svg+xml", iconSVG)
}
