package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"charsmith/pkg/schema"
	"charsmith/pkg/share"
	"charsmith/pkg/store"
	"charsmith/pkg/utils"
)

const maxCharacterBytes = 1 << 20

type characterResponse struct {
	Character schema.Character `json:"character"`
	Issues    []schema.Issue   `json:"issues,omitempty"`
	// Notice is set when the input was unusable and defaults were returned.
	Notice string `json:"notice,omitempty"`
}

type shareResponse struct {
	Token  string         `json:"token"`
	URL    string         `json:"url"`
	Issues []schema.Issue `json:"issues,omitempty"`
}

func characterResult(ch schema.Character, err error) characterResponse {
	resp := characterResponse{Character: ch}
	var derr *schema.DecodeError
	if errors.As(err, &derr) {
		resp.Issues = derr.Issues
	}
	return resp
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCharacterBytes+1))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed reading body")
	}
	if len(body) > maxCharacterBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "character too large")
	}
	return body, nil
}

func storageKey(c echo.Context) (string, error) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" || utils.SanitizeFilename(key) != key {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid key")
	}
	return "character:" + key, nil
}

// POST /api/characters/validate
func (s *Server) handlePostValidate(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	ch, decodeErr := schema.Decode(body)
	return c.JSON(http.StatusOK, characterResult(ch, decodeErr))
}

// GET /api/characters/:key
func (s *Server) handleGetCharacter(c echo.Context) error {
	key, err := storageKey(c)
	if err != nil {
		return err
	}
	ch := store.Load(c.Request().Context(), s.Storage, key, schema.New(), schema.Validate)
	return c.JSON(http.StatusOK, characterResponse{Character: ch})
}

// PUT /api/characters/:key
func (s *Server) handlePutCharacter(c echo.Context) error {
	key, err := storageKey(c)
	if err != nil {
		return err
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}
	ch, decodeErr := schema.Decode(body)
	if decodeErr != nil {
		log.Warn("storing coerced character", "key", key, "error", decodeErr)
	}

	if err := store.Save(c.Request().Context(), s.Storage, key, ch); err != nil {
		log.Error("failed saving character", "key", key, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed saving character")
	}
	return c.JSON(http.StatusOK, characterResult(ch, decodeErr))
}

// POST /api/share
func (s *Server) handlePostShare(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	ch, decodeErr := schema.Decode(body)

	token, err := share.Encode(ch)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed encoding character")
	}
	link, err := share.Link(s.Config.PublicURL, ch)
	if err != nil {
		log.Error("failed building share link", "base", s.Config.PublicURL, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed building share link")
	}

	return c.JSON(http.StatusOK, shareResponse{
		Token:  token,
		URL:    link,
		Issues: characterResult(ch, decodeErr).Issues,
	})
}

// GET /character-builder?data=<token>
func (s *Server) handleGetCharacterBuilder(c echo.Context) error {
	token := c.QueryParam(share.Param)
	if token == "" {
		return c.JSON(http.StatusOK, characterResponse{Character: schema.New()})
	}

	ch, err := share.Decode(token)
	resp := characterResult(ch, err)
	if err != nil {
		log.Warn("share link decoded with defaults", "error", err)
		resp.Notice = "This share link could not be read completely; missing details were reset."
	}
	return c.JSON(http.StatusOK, resp)
}
