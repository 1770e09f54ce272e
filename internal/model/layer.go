package model

import (
	"errors"
	"fmt"
	"strings"
)

// LayerType discriminates how a layer is served.
type LayerType string

const (
	LayerWMS        LayerType = "wms"
	LayerWFS        LayerType = "wfs"
	LayerXYZ        LayerType = "xyz"
	LayerSwitch     LayerType = "switchlayer"
	LayerArcGISRest LayerType = "arcgisrest"
)

// LayerTypes lists every accepted discriminator, in export order.
var LayerTypes = []LayerType{LayerWMS, LayerWFS, LayerXYZ, LayerSwitch, LayerArcGISRest}

var ErrInvalidLayer = errors.New("invalid layer")

func ParseLayerType(s string) (LayerType, error) {
	t := LayerType(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown layer type %q", ErrInvalidLayer, s)
}

func (t LayerType) Valid() bool {
	for _, known := range LayerTypes {
		if t == known {
			return true
		}
	}
	return false
}

// HasOptions reports whether layers of this type carry a type-specific options row.
func (t LayerType) HasOptions() bool {
	return t.Valid() && t != LayerSwitch
}

// HasStyles reports whether styles are meaningful for the type.
func (t LayerType) HasStyles() bool {
	return t == LayerWMS || t == LayerWFS || t == LayerArcGISRest
}

type Portal struct {
	ID    int64   `json:"portalId"`
	Code  string  `json:"code"`
	Title *string `json:"title,omitempty"`
}

// Layer is one row of Layers. JSON-typed columns hold raw documents whose
// shape belongs to the map client.
type Layer struct {
	ID                     int64     `json:"layerId,omitempty"`
	PortalID               int64     `json:"portalId,omitempty"`
	Key                    string    `json:"layerKey"`
	Type                   LayerType `json:"layerType"`
	Title                  *string   `json:"title,omitempty"`
	GridXType              *string   `json:"gridXType,omitempty"`
	HelpPage               *string   `json:"helpPage,omitempty"`
	View                   *string   `json:"view,omitempty"`
	IDProperty             *string   `json:"idProperty,omitempty"`
	GeomFieldName          *string   `json:"geomFieldName,omitempty"`
	LabelClassName         *string   `json:"labelClassName,omitempty"`
	NoCluster              *bool     `json:"noCluster,omitempty"`
	Visibility             *bool     `json:"visibility,omitempty"`
	FeatureInfoWindow      *bool     `json:"featureInfoWindow,omitempty"`
	HasMetadata            *bool     `json:"hasMetadata,omitempty"`
	IsBaseLayer            *bool     `json:"isBaseLayer,omitempty"`
	VectorFeaturesMinScale *int32    `json:"vectorFeaturesMinScale,omitempty"`
	LegendWidth            *int32    `json:"legendWidth,omitempty"`
	Qtip                   *string   `json:"qtip,omitempty"`
	OpenLayersJSON         *string   `json:"openLayersJSON,omitempty"`
	GroupingJSON           *string   `json:"groupingJSON,omitempty"`
	TooltipsConfigJSON     *string   `json:"tooltipsConfigJSON,omitempty"`
	URL                    *string   `json:"url,omitempty"`
	LegendURL              *string   `json:"legendUrl,omitempty"`
	RequestMethod          *string   `json:"requestMethod,omitempty"`
}

type Style struct {
	Name         string  `json:"name"`
	Title        *string `json:"title,omitempty"`
	LabelRule    *string `json:"labelRule,omitempty"`
	LegendURL    *string `json:"legendUrl,omitempty"`
	IsDefault    bool    `json:"isDefault"`
	DisplayOrder int32   `json:"displayOrder"`
}

type SwitchChild struct {
	LayerKey string `json:"layerKey"`
	Position int32  `json:"position"`
}

// LayerSpec is the input of create and update: the layer row, its one options
// row, styles and (for switch layers) child keys in display order.
type LayerSpec struct {
	PortalCode string       `json:"portal"`
	Layer      Layer        `json:"layer"`
	Options    LayerOptions `json:"options"`
	Styles     []Style      `json:"styles,omitempty"`
	Children   []string     `json:"children,omitempty"`
}

// LayerDetail is a layer joined with everything it owns.
type LayerDetail struct {
	Layer    Layer         `json:"layer"`
	Options  LayerOptions  `json:"options"`
	Styles   []Style       `json:"styles"`
	Children []SwitchChild `json:"children,omitempty"`
}

func StringPtr(s string) *string { return &s }
func BoolPtr(b bool) *bool       { return &b }
func Int32Ptr(i int32) *int32    { return &i }
