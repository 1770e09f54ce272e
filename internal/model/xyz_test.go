package model

import "testing"

func TestSplitAccessToken(t *testing.T) {
	tpl, tok := SplitAccessToken("https://api.mapbox.com/styles/v1/x/tiles/{z}/{x}/{y}?access_token=pk.abc&fresh=true")
	if tpl != "https://api.mapbox.com/styles/v1/x/tiles/{z}/{x}/{y}?access_token={MAPBOX_TOKEN}&fresh=true" {
		t.Fatalf("template: %s", tpl)
	}
	if tok == nil || *tok != "pk.abc" {
		t.Fatalf("token: %v", tok)
	}

	plain := "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	tpl, tok = SplitAccessToken(plain)
	if tpl != plain || tok != nil {
		t.Fatalf("untokenised url changed: %s %v", tpl, tok)
	}
}

func TestInjectAccessToken_RoundTrip(t *testing.T) {
	url := "https://a/b?access_token=secret"
	tpl, tok := SplitAccessToken(url)
	if got := InjectAccessToken(tpl, tok); got != url {
		t.Fatalf("round trip: %s", got)
	}
	if got := InjectAccessToken("https://a/b", StringPtr("t")); got != "https://a/b?access_token=t" {
		t.Fatalf("append: %s", got)
	}
	if got := InjectAccessToken("https://a/b?x=1", StringPtr("t")); got != "https://a/b?x=1&access_token=t" {
		t.Fatalf("append with query: %s", got)
	}
	if got := InjectAccessToken("https://a/b", nil); got != "https://a/b" {
		t.Fatalf("nil token: %s", got)
	}
}
