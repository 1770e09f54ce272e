package itests

import (
	"testing"

	"MapLayerStore/internal/resolver"
	"MapLayerStore/internal/seed"

	"github.com/google/go-cmp/cmp"
)

const seedDocument = `{
  "defaults": {"wms": {"transparent": true}, "mapCenter": [10, 20]},
  "layers": [
    {"layerKey": "BASEMAP", "layerType": "xyz",
     "url": "https://tiles.example.com/{z}/{x}/{y}.png?access_token=abc123"},
    {"layerKey": "ROADS_SWITCH", "layerType": "switchlayer", "layers": [
      {"layerKey": "ROADS_WMS", "layerType": "wms", "serverOptions": {"layers": "ns:roads"}},
      {"layerKey": "ROADS_WFS", "layerType": "wfs", "featureType": "ns:roads"}
    ]}
  ]
}`

func TestImportDocument_RoundTrip(t *testing.T) {
	requireDB(t)
	portal := portalFor(t, "")
	ctx := testCtx(t)

	doc, err := seed.ParsePortalDocument("portal.json", []byte(seedDocument))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	im := seed.NewImporter(st)
	report, err := im.ImportDocument(ctx, portal, doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(report.Created) != 4 || report.Linked != 2 {
		t.Fatalf("report = %+v", report)
	}
	again, err := im.ImportDocument(ctx, portal, doc)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if len(again.Created) != 0 || len(again.Updated) != 4 {
		t.Fatalf("second report = %+v", again)
	}

	basemap, err := st.GetLayer(ctx, portal, "BASEMAP")
	if err != nil {
		t.Fatal(err)
	}
	if basemap.Options.XYZ == nil || basemap.Options.XYZ.AccessToken == nil || *basemap.Options.XYZ.AccessToken != "abc123" {
		t.Fatalf("token not stored in options: %+v", basemap.Options.XYZ)
	}

	out, err := resolver.New(st, nil).Document(ctx, portal, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var keys []string
	for _, l := range out.Layers {
		keys = append(keys, l["layerKey"].(string))
	}
	if diff := cmp.Diff([]string{"BASEMAP", "ROADS_SWITCH"}, keys); diff != "" {
		t.Errorf("top-level layers (-want +got):\n%s", diff)
	}
	if got := out.Layers[0]["url"]; got != "https://tiles.example.com/{z}/{x}/{y}.png?access_token=abc123" {
		t.Errorf("exported url = %v", got)
	}
	children, ok := out.Layers[1]["layers"].([]any)
	if !ok || len(children) != 2 {
		t.Fatalf("switch children = %#v", out.Layers[1]["layers"])
	}
}
