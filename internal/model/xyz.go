package model

import "strings"

// TokenPlaceholder marks where a stored access token is injected into an XYZ url.
const TokenPlaceholder = "{MAPBOX_TOKEN}"

// SplitAccessToken replaces an access_token query parameter with the placeholder
// and returns the token separately, so urls can be stored without secrets.
func SplitAccessToken(url string) (template string, token *string) {
	if !strings.Contains(strings.ToLower(url), "access_token=") {
		return url, nil
	}
	base, query, found := strings.Cut(url, "?")
	if !found {
		return url, nil
	}
	parts := strings.Split(query, "&")
	for i, part := range parts {
		if v, ok := strings.CutPrefix(part, "access_token="); ok {
			tok := v
			token = &tok
			parts[i] = "access_token=" + TokenPlaceholder
		}
	}
	return base + "?" + strings.Join(parts, "&"), token
}

// InjectAccessToken is the inverse of SplitAccessToken.
func InjectAccessToken(template string, token *string) string {
	if token == nil || *token == "" {
		return template
	}
	if strings.Contains(template, TokenPlaceholder) {
		return strings.ReplaceAll(template, TokenPlaceholder, *token)
	}
	if strings.Contains(template, "access_token=") {
		return template
	}
	sep := "?"
	if strings.Contains(template, "?") {
		sep = "&"
	}
	return template + sep + "access_token=" + *token
}
