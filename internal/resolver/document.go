package resolver

import (
	"fmt"

	"MapLayerStore/internal/logger"
	"MapLayerStore/internal/model"
	"MapLayerStore/internal/store"
)

// Document is the client-facing configuration of one portal: the defaults
// block and the top-level layers with switch children nested under their parent.
type Document struct {
	Defaults map[string]any   `json:"defaults"`
	Layers   []map[string]any `json:"layers"`
}

// patches holds the overrides of one environment, sorted by scope.
type patches struct {
	global    []map[string]any
	layerType map[string][]map[string]any
	layer     map[string][]map[string]any
}

func collectPatches(overrides []model.Override, env string) (patches, error) {
	p := patches{layerType: map[string][]map[string]any{}, layer: map[string][]map[string]any{}}
	if env == "" {
		return p, nil
	}
	for _, o := range overrides {
		if o.EnvName != env {
			continue
		}
		obj, err := parseObject(fmt.Sprintf("override %s/%s/%s", o.EnvName, o.Scope, o.ScopeID), o.OverridesJSON)
		if err != nil {
			return p, err
		}
		switch o.Scope {
		case model.ScopeGlobal:
			p.global = append(p.global, obj)
		case model.ScopeLayerType:
			p.layerType[o.ScopeID] = append(p.layerType[o.ScopeID], obj)
		case model.ScopeLayer:
			p.layer[o.ScopeID] = append(p.layer[o.ScopeID], obj)
		}
	}
	return p, nil
}

// buildDefaults returns the defaults block and, separately, the per-type
// defaults used for pruning, both with env patches applied.
func buildDefaults(snap *model.PortalSnapshot, p patches) (map[string]any, map[model.LayerType]map[string]any, error) {
	defaults := map[string]any{}
	for _, g := range snap.Globals {
		defaults[g.Key] = parseJSON(g.ValueJSON)
	}
	for _, patch := range p.global {
		DeepMerge(defaults, patch)
	}
	types := map[model.LayerType]map[string]any{}
	for _, td := range snap.TypeDefaults {
		obj, err := parseObject(fmt.Sprintf("%s defaults", td.LayerType), td.DefaultsJSON)
		if err != nil {
			return nil, nil, err
		}
		types[td.LayerType] = obj
	}
	for _, t := range model.LayerTypes {
		obj, ok := types[t]
		if !ok {
			logger.Warn("type_defaults_missing", map[string]any{"portal": snap.Portal.Code, "layer_type": t})
			obj = map[string]any{}
		}
		for _, patch := range p.layerType[string(t)] {
			DeepMerge(obj, patch)
		}
		types[t] = obj
		defaults[string(t)] = obj
	}
	return defaults, types, nil
}

// BuildDocument renders the portal document for env; an empty env applies no overrides.
func BuildDocument(snap *model.PortalSnapshot, env string) (*Document, error) {
	p, err := collectPatches(snap.Overrides, env)
	if err != nil {
		return nil, err
	}
	defaults, types, err := buildDefaults(snap, p)
	if err != nil {
		return nil, err
	}
	b := newBuilder(snap, types, p)
	doc := &Document{Defaults: defaults, Layers: []map[string]any{}}
	for _, d := range snap.Layers {
		if b.isChild[d.Layer.Key] {
			continue
		}
		obj, err := b.layer(d, true)
		if err != nil {
			return nil, err
		}
		doc.Layers = append(doc.Layers, obj)
	}
	return doc, nil
}

// EffectiveLayer returns the layer's type defaults deep-merged with the layer
// object, env overrides included: what the client ends up using.
func EffectiveLayer(snap *model.PortalSnapshot, key, env string) (map[string]any, error) {
	p, err := collectPatches(snap.Overrides, env)
	if err != nil {
		return nil, err
	}
	_, types, err := buildDefaults(snap, p)
	if err != nil {
		return nil, err
	}
	b := newBuilder(snap, types, p)
	d, ok := b.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrLayerNotFound, key)
	}
	obj, err := b.layer(d, false)
	if err != nil {
		return nil, err
	}
	return DeepMerge(cloneValue(types[d.Layer.Type]).(map[string]any), obj), nil
}

type builder struct {
	byKey   map[string]model.LayerDetail
	isChild map[string]bool
	types   map[model.LayerType]map[string]any
	patches patches
}

func newBuilder(snap *model.PortalSnapshot, types map[model.LayerType]map[string]any, p patches) *builder {
	b := &builder{
		byKey:   make(map[string]model.LayerDetail, len(snap.Layers)),
		isChild: map[string]bool{},
		types:   types,
		patches: p,
	}
	for _, d := range snap.Layers {
		b.byKey[d.Layer.Key] = d
		for _, c := range d.Children {
			b.isChild[c.LayerKey] = true
		}
	}
	return b
}

// layer renders one layer object. With prune set, keys equal to the type
// defaults are dropped, the shape written to the document.
func (b *builder) layer(d model.LayerDetail, prune bool) (map[string]any, error) {
	l := d.Layer
	obj := map[string]any{
		"layerType": string(l.Type),
		"layerKey":  l.Key,
	}
	putString(obj, "title", l.Title)
	putString(obj, "gridXType", l.GridXType)
	putString(obj, "helpPage", l.HelpPage)
	putString(obj, "view", l.View)
	putString(obj, "idProperty", l.IDProperty)
	putString(obj, "labelClassName", l.LabelClassName)
	putString(obj, "qtip", l.Qtip)
	putString(obj, "legendUrl", l.LegendURL)
	putString(obj, "requestMethod", l.RequestMethod)
	putString(obj, "url", l.URL)
	putBool(obj, "noCluster", l.NoCluster)
	putBool(obj, "visibility", l.Visibility)
	putBool(obj, "featureInfoWindow", l.FeatureInfoWindow)
	putBool(obj, "hasMetadata", l.HasMetadata)
	putBool(obj, "isBaseLayer", l.IsBaseLayer)
	if l.VectorFeaturesMinScale != nil {
		obj["vectorFeaturesMinScale"] = *l.VectorFeaturesMinScale
	}
	if l.LegendWidth != nil {
		obj["legendWidth"] = *l.LegendWidth
	}
	if l.OpenLayersJSON != nil {
		if ol, ok := parseJSON(*l.OpenLayersJSON).(map[string]any); ok && len(ol) > 0 {
			obj["openLayers"] = ol
		}
	}
	if l.TooltipsConfigJSON != nil {
		if tips, ok := parseJSON(*l.TooltipsConfigJSON).([]any); ok && len(tips) > 0 {
			obj["tooltipsConfig"] = tips
		}
	}
	if l.GroupingJSON != nil {
		if g, ok := parseJSON(*l.GroupingJSON).(map[string]any); ok && len(g) > 0 {
			obj["grouping"] = g
		}
	}

	switch l.Type {
	case model.LayerWMS, model.LayerWFS, model.LayerArcGISRest:
		b.serviceOptions(obj, d)
		if styles := styleObjects(d.Styles); len(styles) > 0 {
			obj["styles"] = styles
		}
	case model.LayerXYZ:
		xyzOptions(obj, d.Options.XYZ)
	case model.LayerSwitch:
		children := make([]any, 0, len(d.Children))
		for _, c := range d.Children {
			cd, ok := b.byKey[c.LayerKey]
			if !ok {
				return nil, fmt.Errorf("switch layer %q: child %q not in portal", l.Key, c.LayerKey)
			}
			child, err := b.layer(cd, prune)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		obj["layers"] = children
	}

	for _, patch := range b.patches.layer[l.Key] {
		DeepMerge(obj, patch)
	}
	obj, err := normalize(obj)
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", l.Key, err)
	}
	if prune {
		obj = RemoveDefaults(obj, b.types[l.Type])
	}
	return obj, nil
}

func (b *builder) serviceOptions(obj map[string]any, d model.LayerDetail) {
	so := map[string]any{}
	switch {
	case d.Options.WMS != nil:
		o := d.Options.WMS
		so["layers"] = o.Layers
		putString(so, "ORDERBY", o.OrderBy)
		putString(so, "STYLES", o.Styles)
		putString(so, "version", o.Version)
		if o.MaxResolution != nil {
			so["maxResolution"] = *o.MaxResolution
		}
		if o.RequestMethod != "" {
			obj["requestMethod"] = o.RequestMethod
		}
		if o.DateFormat != "" {
			obj["dateFormat"] = o.DateFormat
		}
	case d.Options.WFS != nil:
		o := d.Options.WFS
		obj["featureType"] = o.FeatureType
		putString(so, "propertyname", o.PropertyName)
		putString(so, "version", o.Version)
		if o.MaxResolution != nil {
			so["maxResolution"] = *o.MaxResolution
		}
		putString(obj, "geomFieldName", d.Layer.GeomFieldName)
	case d.Options.ArcGISRest != nil:
		obj["url"] = d.Options.ArcGISRest.URL
	}
	if len(so) > 0 {
		obj["serverOptions"] = so
	}
}

func xyzOptions(obj map[string]any, o *model.XYZOptions) {
	if o == nil {
		return
	}
	obj["url"] = model.InjectAccessToken(o.URLTemplate, o.AccessToken)
	ol := map[string]any{}
	if o.ExtentJSON != nil {
		if v := parseJSON(*o.ExtentJSON); v != nil {
			ol["extent"] = v
		}
	}
	if o.TileGridJSON != nil {
		if v := parseJSON(*o.TileGridJSON); v != nil {
			ol["tileGrid"] = v
		}
	}
	putString(ol, "projection", o.Projection)
	if o.TileSize != nil {
		ol["tileSize"] = *o.TileSize
	}
	putString(ol, "attribution", o.AttributionHTML)
	if len(ol) == 0 {
		return
	}
	existing, _ := obj["openLayers"].(map[string]any)
	obj["openLayers"] = DeepMerge(existing, ol)
}

func styleObjects(styles []model.Style) []any {
	out := make([]any, 0, len(styles))
	for _, s := range styles {
		item := map[string]any{"name": s.Name}
		putString(item, "title", s.Title)
		putString(item, "labelRule", s.LabelRule)
		putString(item, "legendUrl", s.LegendURL)
		if s.IsDefault {
			item["default"] = true
		}
		out = append(out, item)
	}
	return out
}

func putString(m map[string]any, key string, v *string) {
	if v != nil && *v != "" {
		m[key] = *v
	}
}

func putBool(m map[string]any, key string, v *bool) {
	if v != nil {
		m[key] = *v
	}
}
