package trace

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderSpanID    = "X-Span-Id"
)

type ctxKey struct{}

// Info is the per-request tracing state. Every outbound call made while
// serving the request takes the next span number.
type Info struct {
	RequestID string
	spanSeq   int64
}

// GenerateID returns a fresh request id.
func GenerateID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WithRequest stores requestID in ctx with the span counter at zero.
func WithRequest(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, &Info{RequestID: requestID})
}

func infoFromContext(ctx context.Context) *Info {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

func RequestIDFromContext(ctx context.Context) string {
	info := infoFromContext(ctx)
	if info == nil {
		return ""
	}
	return info.RequestID
}

// CurrentSpanID reports the last span handed out, "0" when none was.
func CurrentSpanID(ctx context.Context) string {
	info := infoFromContext(ctx)
	if info == nil {
		return "0"
	}
	return strconv.FormatInt(atomic.LoadInt64(&info.spanSeq), 10)
}

// NextSpanID advances the span counter and returns (requestID, spanID).
// Outside a traced request it makes up a request id with span "1".
func NextSpanID(ctx context.Context) (string, string) {
	info := infoFromContext(ctx)
	if info == nil {
		return GenerateID(), "1"
	}
	val := atomic.AddInt64(&info.spanSeq, 1)
	return info.RequestID, strconv.FormatInt(val, 10)
}
