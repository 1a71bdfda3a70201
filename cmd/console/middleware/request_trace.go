package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sw360-console/logger"
	"sw360-console/trace"
)

const maxBodyLog = 1024

// 로그에 남기면 안 되는 폼 필드
var redactedFields = []string{"password"}

// RequestTrace는 모든 inbound HTTP 요청에 대해 Request ID와 Span ID를 보장하고,
// 이를 컨텍스트/헤더에 저장한 뒤 요청 완료 로그에 포함시킨다.
func RequestTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		requestID := req.Header.Get(trace.HeaderRequestID)
		if requestID == "" {
			requestID = trace.GenerateID()
		}

		// inbound 로그는 span_id=0, SW360 호출은 1,2,3,... 로 증가한다.
		ctxWithTrace := trace.WithRequest(req.Context(), requestID)
		c.Request = req.WithContext(ctxWithTrace)
		req = c.Request

		currentSpan := trace.CurrentSpanID(ctxWithTrace)
		c.Request.Header.Set(trace.HeaderRequestID, requestID)
		c.Request.Header.Set(trace.HeaderSpanID, currentSpan)
		c.Writer.Header().Set(trace.HeaderRequestID, requestID)
		c.Writer.Header().Set(trace.HeaderSpanID, currentSpan)

		queryParams := map[string][]string{}
		for key, values := range req.URL.Query() {
			if len(values) > 0 {
				queryParams[key] = values
			}
		}
		var bodySnippet string
		if req.Body != nil && req.ContentLength != 0 &&
			(req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch || req.Method == http.MethodDelete) {
			if bodyBytes, err := io.ReadAll(req.Body); err == nil {
				if len(bodyBytes) > 0 {
					bodySnippet = redactBody(req.Header.Get("Content-Type"), bodyBytes)
				}
				// gin 핸들러에서 다시 읽을 수 있도록 Body 를 복원한다.
				c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			}
		}

		c.Next()

		status := c.Writer.Status()
		finalSpan := trace.CurrentSpanID(c.Request.Context())
		duration := time.Since(start)
		fields := logger.Fields{
			"method":       req.Method,
			"path":         req.URL.Path,
			"query_params": queryParams,
			"status":       status,
			"duration":     duration.String(),
			"request_id":   requestID,
			"span_id":      finalSpan,
		}
		if bodySnippet != "" {
			fields["body"] = bodySnippet
		}
		logger.InfoWithFields("completed request", fields)
	}
}

// redactBody 는 폼 본문에서 비밀번호 같은 필드를 가리고 길이를 제한한다.
func redactBody(contentType string, body []byte) string {
	text := string(body)
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if form, err := url.ParseQuery(text); err == nil {
			for _, key := range redactedFields {
				if form.Has(key) {
					form.Set(key, "***")
				}
			}
			text = form.Encode()
		}
	}
	if len(text) > maxBodyLog {
		text = text[:maxBodyLog]
	}
	return text
}
