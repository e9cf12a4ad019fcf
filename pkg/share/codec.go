// Package share turns a character into a link that can be pasted anywhere and
// back again.
package share

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"charsmith/pkg/schema"
)

// Encode returns the share token for c: its JSON form in standard base64.
func Encode(c schema.Character) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("share: encode character: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decode reverses Encode. Tokens that are not base64 or not JSON give the
// default character and a *schema.DecodeError.
func Decode(token string) (schema.Character, error) {
	raw, err := decodeBase64(token)
	if err != nil {
		return schema.New(), &schema.DecodeError{Issues: []schema.Issue{{Reason: "invalid share token: " + err.Error()}}}
	}
	return schema.Decode(raw)
}

// Parse is Decode with the error dropped.
func Parse(token string) schema.Character {
	c, _ := Decode(token)
	return c
}

// Links pasted through chat clients or mangled query strings turn up with the
// padding stripped, '+' turned into ' ', or in the URL alphabet.
func decodeBase64(token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	token = strings.ReplaceAll(token, " ", "+")
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}

	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(token)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
