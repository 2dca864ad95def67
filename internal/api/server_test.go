package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"oncology-assist-backend/internal/api/routes"
	v1 "oncology-assist-backend/internal/api/routes/v1"
	"oncology-assist-backend/internal/auth"
	"oncology-assist-backend/internal/config"
	"oncology-assist-backend/internal/handlers"
	"oncology-assist-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *fiber.App {
	t.Helper()
	log := testutil.QuietLogger()
	app := NewServer(&config.Config{MaxUploadBytes: 1024}, log)
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	routes.Register(app, &v1.Handlers{
		Chat:        handlers.NewChatHandler(nil, nil, log),
		Reports:     handlers.NewReportHandler(nil, log),
		Predict:     handlers.NewPredictHandler(nil, log),
		Auth:        handlers.NewAuthHandler(nil, log),
		RequireAuth: auth.RequireAuth(auth.NewHMACVerifier("secret", "authenticated"), log),
	})
	return app
}

func decode(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestRoutesMounted(t *testing.T) {
	app := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode, path)
		assert.Equal(t, "ok", decode(t, resp.Body)["status"])
	}

	// per-user endpoints need a token
	for _, path := range []string{"/chat/history", "/reports", "/reports/1", "/api/v1/reports"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode, path)
	}
}

func TestErrorsUseDetail(t *testing.T) {
	app := newTestServer(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/teapot", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "short and stout", decode(t, resp.Body)["detail"])

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "Internal server error", decode(t, resp.Body)["detail"])

	resp, err = app.Test(httptest.NewRequest("GET", "/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Contains(t, decode(t, resp.Body), "detail")
}

func TestCORS(t *testing.T) {
	app := newTestServer(t)
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

// The body limit is enforced by fasthttp while reading the request, which
// app.Test reports as an error, so this goes through a real listener.
func TestOversizeUploadIsBadRequest(t *testing.T) {
	app := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "huge.pdf")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("a"), 1024+bodyLimitSlack+64<<10))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post("http://"+ln.Addr().String()+"/upload", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "File too large", decode(t, resp.Body)["detail"])
}
