package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charsmith/pkg/config"
	"charsmith/pkg/schema"
	"charsmith/pkg/share"
	"charsmith/pkg/store"
)

func newTestServer(t *testing.T, vars map[string]string) *Server {
	t.Helper()

	cfg, err := config.FromMap(vars)
	require.NoError(t, err)

	images, err := NewImageStore(t.TempDir(), cfg.ImageCacheTTL)
	require.NoError(t, err)

	return NewServer(cfg, store.NewMemory(), images)
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, files map[string][][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, contents := range files {
		for i, data := range contents {
			fw, err := w.CreateFormFile(field, "portrait"+string(rune('a'+i))+".png")
			require.NoError(t, err)
			_, err = fw.Write(data)
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestGetRootAndSchema(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/schema/character", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decodeJSON[map[string]any](t, rec)
	assert.Contains(t, doc, "properties")
}

func TestValidateEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{"name":"Wren","hits":3,"attributes":{"wit":"2","charm":"1"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/characters/validate", strings.NewReader(body))
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[characterResponse](t, rec)
	assert.Equal(t, "Wren", resp.Character.Name)
	assert.Empty(t, resp.Character.Hits)
	assert.Equal(t, map[schema.AttributeName]string{schema.Wit: "2"}, resp.Character.Attributes)
	assert.Len(t, resp.Issues, 2)

	rec = serve(s, httptest.NewRequest(http.MethodPost, "/api/characters/validate", strings.NewReader("{oops")))
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeJSON[characterResponse](t, rec)
	assert.Equal(t, schema.New(), resp.Character)
	assert.NotEmpty(t, resp.Issues)
}

func TestCharacterStorage(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/characters/wren", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, schema.New(), decodeJSON[characterResponse](t, rec).Character)

	body := `{"name":"Wren","traits":["Stubborn"],"aspects":{"Ember":"2"}}`
	rec = serve(s, httptest.NewRequest(http.MethodPut, "/api/characters/wren", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/characters/wren", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[characterResponse](t, rec).Character
	assert.Equal(t, "Wren", got.Name)
	assert.Equal(t, []string{"Stubborn"}, got.Traits)
	assert.Equal(t, 2, got.Aspect("Ember"))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/characters/a:b", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCharacterBodyTooLarge(t *testing.T) {
	s := newTestServer(t, nil)

	big := `{"details":"` + strings.Repeat("x", maxCharacterBytes) + `"}`
	rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/characters/validate", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestShareRoundTrip(t *testing.T) {
	s := newTestServer(t, map[string]string{"PUBLIC_URL": "https://sheets.example.test/"})

	body := `{"name":"Ossory","traits":["Patient"],"attributes":{"sense":"3"}}`
	rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/share", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	shared := decodeJSON[shareResponse](t, rec)
	require.True(t, strings.HasPrefix(shared.URL, "https://sheets.example.test"+share.Path+"?"), shared.URL)

	u, err := url.Parse(shared.URL)
	require.NoError(t, err)
	assert.Equal(t, shared.Token, u.Query().Get(share.Param))

	rec = serve(s, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[characterResponse](t, rec)
	assert.Empty(t, resp.Notice)
	assert.Equal(t, "Ossory", resp.Character.Name)
	assert.Equal(t, []string{"Patient"}, resp.Character.Traits)
	assert.Equal(t, 3, resp.Character.Attribute(schema.Sense))
}

func TestBuilderCorruptLink(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, share.Path+"?"+share.Param+"=%25%25not-base64", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[characterResponse](t, rec)
	assert.Equal(t, schema.New(), resp.Character)
	assert.NotEmpty(t, resp.Notice)

	rec = serve(s, httptest.NewRequest(http.MethodGet, share.Path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeJSON[characterResponse](t, rec)
	assert.Equal(t, schema.New(), resp.Character)
	assert.Empty(t, resp.Notice)
}

func TestUploadAndServeImage(t *testing.T) {
	s := newTestServer(t, map[string]string{"PUBLIC_URL": "https://sheets.example.test"})

	rec := serve(s, multipartRequest(t, map[string][][]byte{"file": {pngBytes(t)}}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	up := decodeJSON[uploadResponse](t, rec)
	require.NotEmpty(t, up.ID)
	assert.Equal(t, "https://sheets.example.test/images/"+up.ID, up.URL)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/images/"+up.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("RIFF")))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/images/"+up.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	meta := decodeJSON[ImageMeta](t, rec)
	assert.Equal(t, up.ID, meta.ID)
	assert.Equal(t, "image/png", meta.ContentType)
	assert.Equal(t, "portraita.png", meta.Filename)
	assert.Positive(t, meta.Size)
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t, map[string]string{"MAX_UPLOAD_MB": "1"})

	t.Run("missing file", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, map[string][][]byte{"other": {pngBytes(t)}}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("two files", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, map[string][][]byte{"file": {pngBytes(t), pngBytes(t)}}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not an image", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, map[string][][]byte{"file": {[]byte("just some text, honestly")}}))
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		big := append(pngBytes(t), make([]byte, 3<<19)...)
		rec := serve(s, multipartRequest(t, map[string][][]byte{"file": {big}}))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/images", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		assert.Equal(t, http.StatusBadRequest, serve(s, req).Code)
	})
}

func TestGetMissingImage(t *testing.T) {
	s := newTestServer(t, nil)

	for _, id := range []string{"nope", "2nQ0Fq3Xk3kVY6kUe4ns1Qf1E3B"} {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/images/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
}

func TestDeleteImageRequiresAdmin(t *testing.T) {
	s := newTestServer(t, map[string]string{"ADMIN_TOKEN": "hunter2"})

	rec := serve(s, multipartRequest(t, map[string][][]byte{"file": {pngBytes(t)}}))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeJSON[uploadResponse](t, rec).ID

	del := func(auth string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/images/"+id, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		return serve(s, req).Code
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/images/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code, "warm the cache")

	assert.Equal(t, http.StatusUnauthorized, del(""))
	assert.Equal(t, http.StatusUnauthorized, del("Bearer wrong"))
	assert.Equal(t, http.StatusNoContent, del("Bearer hunter2"))
	assert.Equal(t, http.StatusNotFound, del("Bearer hunter2"))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/images/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "deleted image is not served from cache")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/images/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteDisabledWithoutToken(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/images/2nQ0Fq3Xk3kVY6kUe4ns1Qf1E3B", nil)
	req.Header.Set("Authorization", "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, serve(s, req).Code)
}

func TestManifestCORS(t *testing.T) {
	s := newTestServer(t, map[string]string{"PUBLIC_URL": "https://sheets.example.test"})

	req := httptest.NewRequest(http.MethodGet, "/owlbear/manifest.json", nil)
	req.Header.Set("Origin", "https://www.owlbear.rodeo")
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://www.owlbear.rodeo", rec.Header().Get("Access-Control-Allow-Origin"))

	m := decodeJSON[Manifest](t, rec)
	assert.Equal(t, "https://sheets.example.test"+share.Path, m.Action.Popover)
	assert.Equal(t, "https://sheets.example.test/owlbear/icon.svg", m.Icon)
	assert.Positive(t, m.Action.Width)
	assert.Positive(t, m.Action.Height)

	req = httptest.NewRequest(http.MethodGet, "/owlbear/manifest.json", nil)
	req.Header.Set("Origin", "https://evil.example.test")
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/owlbear/icon.svg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
}

func TestImageStoreInvalidIDs(t *testing.T) {
	images, err := NewImageStore(t.TempDir(), 0)
	require.NoError(t, err)

	for _, id := range []string{"", "../etc/passwd", "abc"} {
		_, err := images.Get(id)
		assert.ErrorIs(t, err, ErrImageNotFound, id)
		assert.ErrorIs(t, images.Delete(id), ErrImageNotFound, id)
		_, err = images.Meta(id)
		assert.ErrorIs(t, err, ErrImageNotFound, id)
	}

	_, err = images.Save(strings.NewReader("plain text"), "notes.txt", "text/plain")
	assert.ErrorIs(t, err, ErrNotAnImage)
}
