package audit

import (
	"net/http"
	"net/url"
	"strings"
)

// RequestMeta is what the gateway knows about the caller from headers the
// hosting platform sets.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Geo       *Geo
}

func MetaFromRequest(r *http.Request) RequestMeta {
	return RequestMeta{
		ClientIP:  ClientIP(r),
		UserAgent: strings.TrimSpace(r.Header.Get("User-Agent")),
		Geo:       GeoFromRequest(r),
	}
}

func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}

	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		first, _, _ := strings.Cut(xForwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	return "unknown"
}

// GeoFromRequest reads Cloudflare visitor-location headers, falling back to
// Vercel's. Returns nil when the platform supplied nothing.
func GeoFromRequest(r *http.Request) *Geo {
	geo := Geo{
		Country: header(r, "CF-IPCountry"),
		Region:  header(r, "CF-Region"),
		City:    header(r, "CF-IPCity"),
	}
	if geo == (Geo{}) {
		geo = Geo{
			Country: header(r, "X-Vercel-IP-Country"),
			Region:  header(r, "X-Vercel-IP-Country-Region"),
			City:    header(r, "X-Vercel-IP-City"),
		}
	}

	// Cloudflare reports XX when the country is unknown.
	if geo.Country == "XX" {
		geo.Country = ""
	}
	if geo == (Geo{}) {
		return nil
	}
	return &geo
}

func header(r *http.Request, name string) string {
	value := strings.TrimSpace(r.Header.Get(name))
	if value == "" {
		return ""
	}
	// Vercel URL-encodes city names.
	if decoded, err := url.QueryUnescape(value); err == nil {
		return decoded
	}
	return value
}
