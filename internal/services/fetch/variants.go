package fetch

import (
	"net/http"

	"github.com/bobmcallan/carteira/internal/interfaces"
)

// Variant is one named way of shaping a quote request. Mobile fetches try
// variants in order until one yields a usable quote.
type Variant struct {
	Name    string
	Options []interfaces.RequestOption
}

// Variant names, in the order they are attempted.
const (
	VariantDesktopUserAgent = "desktop-user-agent"
	VariantNoUserAgent      = "no-user-agent"
	VariantSimplifiedURL    = "simplified-url"
)

// DefaultVariants returns the mobile request variants in attempt order.
func DefaultVariants(desktopUserAgent string) []Variant {
	return []Variant{
		{Name: VariantDesktopUserAgent, Options: []interfaces.RequestOption{WithUserAgent(desktopUserAgent)}},
		{Name: VariantNoUserAgent, Options: []interfaces.RequestOption{WithoutUserAgent()}},
		{Name: VariantSimplifiedURL, Options: []interfaces.RequestOption{WithQueryParam("fundamental", "false")}},
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) interfaces.RequestOption {
	return func(req *http.Request) {
		req.Header.Set("User-Agent", ua)
	}
}

// WithoutUserAgent suppresses the User-Agent header. net/http omits the
// header entirely when it is present but empty.
func WithoutUserAgent() interfaces.RequestOption {
	return func(req *http.Request) {
		req.Header.Set("User-Agent", "")
	}
}

// WithQueryParam adds or replaces one query parameter.
func WithQueryParam(key, value string) interfaces.RequestOption {
	return func(req *http.Request) {
		q := req.URL.Query()
		q.Set(key, value)
		req.URL.RawQuery = q.Encode()
	}
}
