package common

import (
	"context"
	"net/http"
	"strings"
)

// ClientContext holds per-request caller information resolved by the HTTP
// middleware: who is calling and whether the client is a small-screen device.
type ClientContext struct {
	UserEmail string
	Mobile    bool
}

type contextKey int

const clientContextKey contextKey = iota

// WithClientContext stores a ClientContext in the request context.
func WithClientContext(ctx context.Context, cc *ClientContext) context.Context {
	return context.WithValue(ctx, clientContextKey, cc)
}

// ClientContextFromContext retrieves the ClientContext from context, or nil if absent.
func ClientContextFromContext(ctx context.Context) *ClientContext {
	cc, _ := ctx.Value(clientContextKey).(*ClientContext)
	return cc
}

// ResolveMobile reports whether the request came from a small-screen client.
// Defaults to false (desktop) when no client context is present.
func ResolveMobile(ctx context.Context) bool {
	if cc := ClientContextFromContext(ctx); cc != nil {
		return cc.Mobile
	}
	return false
}

// ResolveUserEmail returns the caller e-mail, or "anonymous".
func ResolveUserEmail(ctx context.Context) string {
	if cc := ClientContextFromContext(ctx); cc != nil && cc.UserEmail != "" {
		return cc.UserEmail
	}
	return "anonymous"
}

var mobileUAMarkers = []string{"mobi", "android", "iphone", "ipad", "ipod", "windows phone"}

// DetectMobile decides the device class of a request. An explicit
// ?device= query parameter wins, then the X-Client-Device header (both
// accept "mobile"/"desktop"), then a User-Agent sniff.
func DetectMobile(r *http.Request) bool {
	for _, v := range []string{r.URL.Query().Get("device"), r.Header.Get("X-Client-Device")} {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "mobile":
			return true
		case "desktop":
			return false
		}
	}

	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, m := range mobileUAMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}
