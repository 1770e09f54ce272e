package resolver

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustJSON(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("bad fixture %s: %v", raw, err)
	}
	return m
}

func TestDeepMerge(t *testing.T) {
	dst := mustJSON(t, `{"a":1,"nested":{"x":1,"y":{"deep":true}},"list":[1,2]}`)
	src := mustJSON(t, `{"b":2,"nested":{"y":{"deeper":1},"z":3},"list":[3]}`)
	got := DeepMerge(dst, src)
	want := mustJSON(t, `{"a":1,"b":2,"nested":{"x":1,"y":{"deep":true,"deeper":1},"z":3},"list":[3]}`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}

	// src must not be aliased into dst
	src["nested"].(map[string]any)["z"] = 99.0
	if got["nested"].(map[string]any)["z"] != 3.0 {
		t.Fatalf("merged value aliases src")
	}
}

func TestDeepMerge_NilDst(t *testing.T) {
	got := DeepMerge(nil, map[string]any{"k": "v"})
	if got["k"] != "v" {
		t.Fatalf("unexpected %v", got)
	}
}

func TestDeepEqual(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{`{"a":[1,{"b":2}]}`, `{"a":[1,{"b":2}]}`, true},
		{`{"a":[1,2]}`, `{"a":[2,1]}`, false},
		{`{"a":1}`, `{"a":1,"b":null}`, false},
		{`{"a":{"b":1}}`, `{"a":[1]}`, false},
		{`{"a":"1"}`, `{"a":1}`, false},
	}
	for _, c := range cases {
		if got := DeepEqual(mustJSON(t, c.a), mustJSON(t, c.b)); got != c.want {
			t.Errorf("DeepEqual(%s, %s) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestRemoveDefaults(t *testing.T) {
	obj := mustJSON(t, `{"layerKey":"K","visibility":false,"openLayers":{"projection":"EPSG:3857","tileSize":256},"grouping":{"a":1},"tips":[1,2]}`)
	defaults := mustJSON(t, `{"visibility":false,"openLayers":{"projection":"EPSG:3857"},"grouping":{"a":1},"tips":[1,2,3]}`)
	got := RemoveDefaults(obj, defaults)
	want := mustJSON(t, `{"layerKey":"K","openLayers":{"tileSize":256},"tips":[1,2]}`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("prune mismatch (-want +got):\n%s", diff)
	}
}

func TestParseObject(t *testing.T) {
	if m, err := parseObject("x", ""); err != nil || len(m) != 0 {
		t.Fatalf("empty text should give an empty object: %v %v", m, err)
	}
	if _, err := parseObject("x", `[1]`); err == nil {
		t.Fatalf("array must be rejected")
	}
	if parseJSON("not json") != "not json" {
		t.Fatalf("non-JSON text should be kept as a string")
	}
}
