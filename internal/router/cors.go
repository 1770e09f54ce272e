package router

import (
	"net/http"
	"slices"
	"strings"
)

// Every endpoint takes a POST with a JSON body and may echo a request id.
var (
	corsAllowMethods  = strings.Join([]string{http.MethodPost, http.MethodOptions}, ", ")
	corsAllowHeaders  = strings.Join([]string{"Content-Type", requestIDHeader}, ", ")
	corsExposeHeaders = requestIDHeader
)

const corsMaxAge = "86400"

// corsPolicy is the parsed form of the CORS_ALLOW_ORIGIN setting.
type corsPolicy struct {
	origins     []string
	wildcard    bool
	credentials bool
}

func newCORSPolicy(allowOrigin string, allowCredentials bool) corsPolicy {
	p := corsPolicy{credentials: allowCredentials}
	for _, o := range strings.Split(allowOrigin, ",") {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
		case o == "*":
			p.wildcard = true
		default:
			p.origins = append(p.origins, o)
		}
	}
	if len(p.origins) == 0 {
		p.wildcard = true
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request
// origin, "" when the origin is refused, and whether the answer depends on it.
func (p corsPolicy) allowOrigin(requestOrigin string) (value string, varyOrigin bool) {
	if p.wildcard {
		// Browsers reject "*" together with credentials.
		if p.credentials && requestOrigin != "" {
			return requestOrigin, true
		}
		return "*", false
	}
	if requestOrigin != "" && slices.Contains(p.origins, requestOrigin) {
		return requestOrigin, true
	}
	return "", true
}

// withCORS adds CORS headers and answers preflight requests itself.
func withCORS(allowOrigin string, allowCredentials bool, h http.HandlerFunc) http.HandlerFunc {
	policy := newCORSPolicy(allowOrigin, allowCredentials)
	return func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		origin, vary := policy.allowOrigin(r.Header.Get("Origin"))
		if origin != "" {
			hdr.Set("Access-Control-Allow-Origin", origin)
		}
		if vary {
			hdr.Set("Vary", "Origin")
		}
		if policy.credentials {
			hdr.Set("Access-Control-Allow-Credentials", "true")
		}
		hdr.Set("Access-Control-Expose-Headers", corsExposeHeaders)

		if r.Method == http.MethodOptions {
			hdr.Set("Access-Control-Allow-Methods", corsAllowMethods)
			hdr.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			hdr.Set("Access-Control-Max-Age", corsMaxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		h(w, r)
	}
}
