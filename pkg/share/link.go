package share

import (
	"fmt"
	"net/url"
	"strings"

	"charsmith/pkg/schema"
)

const (
	// Path is the builder route a share link opens.
	Path = "/character-builder"
	// Param is the query parameter carrying the token.
	Param = "data"
)

// Link builds base + Path with the token for c in the query string.
func Link(base string, c schema.Character) (string, error) {
	token, err := Encode(c)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("share: base url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + Path
	u.RawQuery = url.Values{Param: {token}}.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// FromLink decodes a full share link or a bare token.
func FromLink(raw string) (schema.Character, error) {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && (u.Scheme != "" || strings.HasPrefix(raw, Path)) {
		token := u.Query().Get(Param)
		if token == "" {
			return schema.New(), &schema.DecodeError{Issues: []schema.Issue{{Field: Param, Reason: "missing share token"}}}
		}
		return Decode(token)
	}
	return Decode(raw)
}
