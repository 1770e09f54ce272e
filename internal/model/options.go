package model

import "fmt"

type WMSOptions struct {
	Layers        string   `json:"layers"`
	OrderBy       *string  `json:"orderBy,omitempty"`
	Styles        *string  `json:"styles,omitempty"`
	Version       *string  `json:"version,omitempty"`
	MaxResolution *float64 `json:"maxResolution,omitempty"`
	RequestMethod string   `json:"requestMethod,omitempty"`
	DateFormat    string   `json:"dateFormat,omitempty"`
}

type WFSOptions struct {
	FeatureType   string   `json:"featureType"`
	PropertyName  *string  `json:"propertyName,omitempty"`
	Version       *string  `json:"version,omitempty"`
	MaxResolution *float64 `json:"maxResolution,omitempty"`
}

type XYZOptions struct {
	URLTemplate     string  `json:"urlTemplate"`
	AccessToken     *string `json:"accessToken,omitempty"`
	Projection      *string `json:"projection,omitempty"`
	TileSize        *int32  `json:"tileSize,omitempty"`
	AttributionHTML *string `json:"attributionHTML,omitempty"`
	ExtentJSON      *string `json:"extentJSON,omitempty"`
	TileGridJSON    *string `json:"tileGridJSON,omitempty"`
}

type ArcGISRestOptions struct {
	URL string `json:"url"`
}

// LayerOptions carries at most one populated member; which one must match the layer type.
type LayerOptions struct {
	WMS        *WMSOptions        `json:"wms,omitempty"`
	WFS        *WFSOptions        `json:"wfs,omitempty"`
	XYZ        *XYZOptions        `json:"xyz,omitempty"`
	ArcGISRest *ArcGISRestOptions `json:"arcgisrest,omitempty"`
}

const (
	DefaultRequestMethod = "POST"
	DefaultDateFormat    = "Y-m-d"
)

// Kind returns the layer type the populated member belongs to, or "" when none is set.
func (o LayerOptions) Kind() LayerType {
	switch {
	case o.WMS != nil:
		return LayerWMS
	case o.WFS != nil:
		return LayerWFS
	case o.XYZ != nil:
		return LayerXYZ
	case o.ArcGISRest != nil:
		return LayerArcGISRest
	}
	return ""
}

func (o LayerOptions) count() int {
	n := 0
	if o.WMS != nil {
		n++
	}
	if o.WFS != nil {
		n++
	}
	if o.XYZ != nil {
		n++
	}
	if o.ArcGISRest != nil {
		n++
	}
	return n
}

// Check enforces the one-options-row rule for the given type.
func (o LayerOptions) Check(t LayerType) error {
	n := o.count()
	if t == LayerSwitch {
		if n != 0 {
			return fmt.Errorf("switchlayer must not carry %s options", o.Kind())
		}
		return nil
	}
	if n != 1 {
		return fmt.Errorf("%s layer needs exactly one options block, got %d", t, n)
	}
	if o.Kind() != t {
		return fmt.Errorf("%s layer given %s options", t, o.Kind())
	}
	switch t {
	case LayerWMS:
		if o.WMS.Layers == "" {
			return fmt.Errorf("wms options: layers is required")
		}
	case LayerWFS:
		if o.WFS.FeatureType == "" {
			return fmt.Errorf("wfs options: featureType is required")
		}
	case LayerXYZ:
		if o.XYZ.URLTemplate == "" {
			return fmt.Errorf("xyz options: urlTemplate is required")
		}
	case LayerArcGISRest:
		if o.ArcGISRest.URL == "" {
			return fmt.Errorf("arcgisrest options: url is required")
		}
	}
	return nil
}

// WithDefaults fills the WMS request method and date format the way the schema defaults do.
func (o LayerOptions) WithDefaults() LayerOptions {
	if o.WMS != nil {
		w := *o.WMS
		if w.RequestMethod == "" {
			w.RequestMethod = DefaultRequestMethod
		}
		if w.DateFormat == "" {
			w.DateFormat = DefaultDateFormat
		}
		o.WMS = &w
	}
	return o
}
