package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestExtractBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name        string
		headerValue string
		wantToken   string
		wantErr     error
	}{
		{
			name:    "missing header",
			wantErr: ErrMissingHeader,
		},
		{
			name:        "invalid scheme",
			headerValue: "Basic abc",
			wantErr:     ErrInvalidFormat,
		},
		{
			name:        "missing token part",
			headerValue: "Bearer",
			wantErr:     ErrInvalidFormat,
		},
		{
			name:        "empty token",
			headerValue: "Bearer    ",
			wantErr:     ErrEmptyToken,
		},
		{
			name:        "valid bearer token",
			headerValue: "bearer token-123",
			wantToken:   "token-123",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			ginCtx, _ := newTestGinContext(testCase.headerValue)

			token, err := ExtractBearerToken(ginCtx)
			if !errors.Is(err, testCase.wantErr) {
				t.Fatalf("expected error %v, got %v", testCase.wantErr, err)
			}
			if token != testCase.wantToken {
				t.Fatalf("expected token %q, got %q", testCase.wantToken, token)
			}
		})
	}
}

func TestAbortWithUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ginCtx, recorder := newTestGinContext("")
	AbortWithUnauthorized(ginCtx, ErrInvalidFormat)

	if !ginCtx.IsAborted() {
		t.Fatalf("expected request to be aborted")
	}
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, recorder.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["error"] != ErrInvalidFormat.Error() {
		t.Fatalf("expected error message %q, got %q", ErrInvalidFormat.Error(), body["error"])
	}
}

func TestCookieSetReadClear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cookie := Cookie{Name: "sw360_session", Secure: true}

	ginCtx, recorder := newTestGinContext("")
	cookie.Set(ginCtx, "signed-token", 3600)
	header := recorder.Header().Get("Set-Cookie")
	for _, want := range []string{"sw360_session=signed-token", "HttpOnly", "Secure", "SameSite=Lax", "Max-Age=3600"} {
		if !strings.Contains(header, want) {
			t.Fatalf("expected %q in Set-Cookie %q", want, header)
		}
	}

	readCtx, _ := newTestGinContext("")
	readCtx.Request.AddCookie(&http.Cookie{Name: "sw360_session", Value: "signed-token"})
	value, err := cookie.Read(readCtx)
	if err != nil || value != "signed-token" {
		t.Fatalf("expected cookie value, got %q err=%v", value, err)
	}

	emptyCtx, _ := newTestGinContext("")
	if _, err := cookie.Read(emptyCtx); !errors.Is(err, ErrMissingCookie) {
		t.Fatalf("expected ErrMissingCookie, got %v", err)
	}

	clearCtx, clearRecorder := newTestGinContext("")
	cookie.Clear(clearCtx)
	if !strings.Contains(clearRecorder.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Fatalf("expected clearing cookie, got %q", clearRecorder.Header().Get("Set-Cookie"))
	}
}

func newTestGinContext(authorizationHeader string) (*gin.Context, *httptest.ResponseRecorder) {
	recorder := httptest.NewRecorder()
	ginCtx, _ := gin.CreateTestContext(recorder)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorizationHeader != "" {
		request.Header.Set("Authorization", authorizationHeader)
	}
	ginCtx.Request = request

	return ginCtx, recorder
}
