// Package seed imports portal documents, grid definitions and navigation
// trees from files into the store.
package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"MapLayerStore/internal/model"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// PortalDocument is the client-facing layer configuration of one portal, the
// shape the resolver exports.
type PortalDocument struct {
	Defaults map[string]json.RawMessage `json:"defaults"`
	Layers   []LayerDoc                 `json:"layers"`
}

type StyleDoc struct {
	Name      string  `json:"name"`
	Title     *string `json:"title"`
	LabelRule *string `json:"labelRule"`
	LegendURL *string `json:"legendUrl"`
	Default   bool    `json:"default"`
}

// LayerDoc is one layer object of a portal document. Switch layers carry
// their children inline under Layers.
type LayerDoc struct {
	LayerKey               string         `json:"layerKey"`
	LayerType              string         `json:"layerType"`
	Title                  *string        `json:"title"`
	GridXType              *string        `json:"gridXType"`
	HelpPage               *string        `json:"helpPage"`
	View                   *string        `json:"view"`
	IDProperty             *string        `json:"idProperty"`
	GeomFieldName          *string        `json:"geomFieldName"`
	LabelClassName         *string        `json:"labelClassName"`
	NoCluster              *bool          `json:"noCluster"`
	Visibility             *bool          `json:"visibility"`
	FeatureInfoWindow      *bool          `json:"featureInfoWindow"`
	HasMetadata            *bool          `json:"hasMetadata"`
	IsBaseLayer            *bool          `json:"isBaseLayer"`
	VectorFeaturesMinScale *int32         `json:"vectorFeaturesMinScale"`
	LegendWidth            *int32         `json:"legendWidth"`
	Qtip                   *string        `json:"qtip"`
	OpenLayers             map[string]any `json:"openLayers"`
	Grouping               map[string]any `json:"grouping"`
	TooltipsConfig         []any          `json:"tooltipsConfig"`
	URL                    *string        `json:"url"`
	LegendURL              *string        `json:"legendUrl"`
	RequestMethod          *string        `json:"requestMethod"`
	DateFormat             *string        `json:"dateFormat"`
	FeatureType            *string        `json:"featureType"`
	ServerOptions          map[string]any `json:"serverOptions"`
	Styles                 []StyleDoc     `json:"styles"`
	Layers                 []LayerDoc     `json:"layers"`
}

// ParsePortalDocument decodes a document in JSON or, for .yaml/.yml names, YAML.
func ParsePortalDocument(name string, data []byte) (*PortalDocument, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if isYAML(name) {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("YAML parse error in %s: %w", name, err)
		}
		data = converted
	}
	var doc PortalDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &doc, nil
}

func LoadPortalDocument(path string) (*PortalDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePortalDocument(filepath.Base(path), data)
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// yamlToJSON re-encodes a YAML document so both formats share one decoder.
func yamlToJSON(data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML document")
	}
	var v any
	if err := root.Content[0].Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// splitDefaults separates global keys from per-type objects.
func splitDefaults(defaults map[string]json.RawMessage) ([]model.GlobalDefault, []model.TypeDefaults, error) {
	var globals []model.GlobalDefault
	var types []model.TypeDefaults
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw := defaults[k]
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return nil, nil, fmt.Errorf("defaults.%s: %w", k, err)
		}
		if t := model.LayerType(k); t.Valid() && bytes.HasPrefix(compact.Bytes(), []byte("{")) {
			types = append(types, model.TypeDefaults{LayerType: t, DefaultsJSON: compact.String()})
			continue
		}
		globals = append(globals, model.GlobalDefault{Key: k, ValueJSON: compact.String()})
	}
	return globals, types, nil
}

// xyzOpenLayersKeys are the openLayers keys stored in LayerXyzOptions.
var xyzOpenLayersKeys = []string{"extent", "tileGrid", "projection", "tileSize", "attribution"}

// LayerSpec converts one layer object into the store's input, without its
// switch children, which are linked in a second pass.
func (l LayerDoc) LayerSpec(portal string) (model.LayerSpec, error) {
	t, err := model.ParseLayerType(l.LayerType)
	if err != nil {
		return model.LayerSpec{}, fmt.Errorf("layer %q: %w", l.LayerKey, err)
	}
	layer := model.Layer{
		Key:                    l.LayerKey,
		Type:                   t,
		Title:                  l.Title,
		GridXType:              l.GridXType,
		HelpPage:               l.HelpPage,
		View:                   l.View,
		IDProperty:             l.IDProperty,
		GeomFieldName:          l.GeomFieldName,
		LabelClassName:         l.LabelClassName,
		NoCluster:              l.NoCluster,
		Visibility:             l.Visibility,
		FeatureInfoWindow:      l.FeatureInfoWindow,
		HasMetadata:            l.HasMetadata,
		IsBaseLayer:            l.IsBaseLayer,
		VectorFeaturesMinScale: l.VectorFeaturesMinScale,
		LegendWidth:            l.LegendWidth,
		Qtip:                   l.Qtip,
		GroupingJSON:           jsonOrNil(l.Grouping),
		TooltipsConfigJSON:     jsonOrNil(l.TooltipsConfig),
		URL:                    l.URL,
		LegendURL:              l.LegendURL,
		RequestMethod:          l.RequestMethod,
	}
	spec := model.LayerSpec{PortalCode: portal, Layer: layer}

	// Keys moved into an options row are dropped from openLayers, so a
	// re-imported export stores each value once.
	ol := maps.Clone(l.OpenLayers)
	so := l.ServerOptions
	switch t {
	case model.LayerWMS:
		o := &model.WMSOptions{
			OrderBy:       firstString(so, "ORDERBY", "orderBy"),
			Styles:        firstString(so, "STYLES", "styles"),
			Version:       firstString(so, "version"),
			MaxResolution: firstFloat(so, "maxResolution"),
			RequestMethod: model.DefaultRequestMethod,
			DateFormat:    model.DefaultDateFormat,
		}
		if v := firstString(so, "layers"); v != nil {
			o.Layers = *v
		}
		if o.MaxResolution == nil {
			if o.MaxResolution = firstFloat(ol, "maxResolution"); o.MaxResolution != nil {
				delete(ol, "maxResolution")
			}
		}
		if l.RequestMethod != nil && *l.RequestMethod != "" {
			o.RequestMethod = *l.RequestMethod
		}
		spec.Layer.RequestMethod = nil
		if l.DateFormat != nil && *l.DateFormat != "" {
			o.DateFormat = *l.DateFormat
		}
		spec.Options.WMS = o
	case model.LayerWFS:
		o := &model.WFSOptions{
			PropertyName:  firstString(so, "propertyname", "propertyName"),
			Version:       firstString(so, "version"),
			MaxResolution: firstFloat(so, "maxResolution"),
		}
		if l.FeatureType != nil {
			o.FeatureType = *l.FeatureType
		}
		spec.Options.WFS = o
	case model.LayerArcGISRest:
		o := &model.ArcGISRestOptions{}
		if l.URL != nil {
			o.URL = *l.URL
		}
		spec.Options.ArcGISRest = o
	case model.LayerXYZ:
		o := &model.XYZOptions{
			Projection:      firstString(ol, "projection"),
			AttributionHTML: firstString(ol, "attribution"),
			ExtentJSON:      jsonOrNil(ol["extent"]),
			TileGridJSON:    jsonOrNil(ol["tileGrid"]),
		}
		if f := firstFloat(ol, "tileSize"); f != nil {
			o.TileSize = model.Int32Ptr(int32(*f))
		}
		for _, k := range xyzOpenLayersKeys {
			delete(ol, k)
		}
		if l.URL != nil {
			o.URLTemplate, o.AccessToken = model.SplitAccessToken(*l.URL)
		}
		// the token lives in the options row only
		spec.Layer.URL = nil
		spec.Options.XYZ = o
	}
	spec.Layer.OpenLayersJSON = jsonOrNil(ol)

	if t.HasStyles() {
		for _, s := range l.Styles {
			if s.Name == "" {
				continue
			}
			spec.Styles = append(spec.Styles, model.Style{
				Name:      s.Name,
				Title:     s.Title,
				LabelRule: s.LabelRule,
				LegendURL: s.LegendURL,
				IsDefault: s.Default,
			})
		}
	}
	return spec, nil
}

// plan is a validated document ready to be written.
type plan struct {
	globals []model.GlobalDefault
	types   []model.TypeDefaults
	top     []model.LayerSpec
	inline  []model.LayerSpec
	links   map[string][]string
	order   []string
}

// buildPlan validates every layer of the document, collecting all problems.
func buildPlan(portal string, doc *PortalDocument) (*plan, error) {
	p := &plan{links: map[string][]string{}}
	var errs *multierror.Error

	globals, types, err := splitDefaults(doc.Defaults)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	p.globals, p.types = globals, types

	seen := map[string]bool{}
	addSpec := func(l LayerDoc) (model.LayerSpec, bool) {
		spec, err := l.LayerSpec(portal)
		if err == nil {
			if verr := spec.Validate(); verr != nil {
				err = fmt.Errorf("layer %q: %w", l.LayerKey, verr)
			}
		}
		if err != nil {
			errs = multierror.Append(errs, err)
			return spec, false
		}
		return spec, true
	}

	for _, l := range doc.Layers {
		if seen[l.LayerKey] {
			errs = multierror.Append(errs, fmt.Errorf("layer %q appears twice at top level", l.LayerKey))
			continue
		}
		seen[l.LayerKey] = true
		if spec, ok := addSpec(l); ok {
			p.top = append(p.top, spec)
		}
	}
	inlineSeen := map[string]bool{}
	for _, l := range doc.Layers {
		if l.LayerType != string(model.LayerSwitch) {
			continue
		}
		keys := make([]string, 0, len(l.Layers))
		for _, c := range l.Layers {
			keys = append(keys, c.LayerKey)
			if seen[c.LayerKey] || inlineSeen[c.LayerKey] {
				continue
			}
			inlineSeen[c.LayerKey] = true
			if spec, ok := addSpec(c); ok {
				p.inline = append(p.inline, spec)
			}
		}
		p.links[l.LayerKey] = keys
		p.order = append(p.order, l.LayerKey)
	}
	return p, errs.ErrorOrNil()
}

func jsonOrNil(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		if len(t) == 0 {
			return nil
		}
	case []any:
		if len(t) == 0 {
			return nil
		}
	case string:
		if t == "" {
			return nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func firstString(m map[string]any, keys ...string) *string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return &s
		}
	}
	return nil
}

func firstFloat(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if f, ok := m[k].(float64); ok {
			return &f
		}
	}
	return nil
}
