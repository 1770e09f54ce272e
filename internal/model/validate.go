package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Validate collects every problem in s rather than stopping at the first.
// The returned error wraps ErrInvalidLayer.
func (s LayerSpec) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(s.PortalCode) == "" {
		add("portal code is required")
	}
	l := s.Layer
	if strings.TrimSpace(l.Key) == "" {
		add("layerKey is required")
	}
	if !l.Type.Valid() {
		add("unknown layer type %q", l.Type)
	} else if err := s.Options.Check(l.Type); err != nil {
		add("%v", err)
	}

	for name, raw := range map[string]*string{
		"openLayersJSON":     l.OpenLayersJSON,
		"groupingJSON":       l.GroupingJSON,
		"tooltipsConfigJSON": l.TooltipsConfigJSON,
	} {
		if raw != nil && !json.Valid([]byte(*raw)) {
			add("%s is not valid JSON", name)
		}
	}
	if x := s.Options.XYZ; x != nil {
		if x.ExtentJSON != nil && !json.Valid([]byte(*x.ExtentJSON)) {
			add("xyz extentJSON is not valid JSON")
		}
		if x.TileGridJSON != nil && !json.Valid([]byte(*x.TileGridJSON)) {
			add("xyz tileGridJSON is not valid JSON")
		}
	}

	if len(s.Styles) > 0 && l.Type.Valid() && !l.Type.HasStyles() {
		add("%s layers do not take styles", l.Type)
	}
	seenStyle := map[string]bool{}
	defaults := 0
	for _, st := range s.Styles {
		if st.Name == "" {
			add("style name is required")
			continue
		}
		if seenStyle[st.Name] {
			add("duplicate style %q", st.Name)
		}
		seenStyle[st.Name] = true
		if st.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		add("%d styles marked default, at most one allowed", defaults)
	}

	if len(s.Children) > 0 && l.Type != LayerSwitch {
		add("only switchlayer layers take children")
	}
	seenChild := map[string]bool{}
	for _, c := range s.Children {
		if c == l.Key {
			add("switchlayer %q cannot contain itself", c)
		}
		if seenChild[c] {
			add("duplicate child %q", c)
		}
		seenChild[c] = true
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLayer, err)
	}
	return nil
}

// NormalizeStyles assigns display orders 1..n to styles that have none, keeping
// the given order.
func NormalizeStyles(styles []Style) []Style {
	out := make([]Style, len(styles))
	copy(out, styles)
	for i := range out {
		if out[i].DisplayOrder == 0 {
			out[i].DisplayOrder = int32(i + 1)
		}
		if out[i].Title == nil {
			out[i].Title = StringPtr(out[i].Name)
		}
	}
	return out
}

func checkJSONObject(field, raw string) error {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return fmt.Errorf("%s must be a JSON object: %v", field, err)
	}
	return nil
}

// Check validates one LayerTypeDefaults entry.
func (d TypeDefaults) Check() error {
	if !d.LayerType.Valid() {
		return fmt.Errorf("type defaults: unknown layer type %q", d.LayerType)
	}
	return checkJSONObject("defaultsJSON", d.DefaultsJSON)
}

// Check validates one GlobalDefaults entry.
func (d GlobalDefault) Check() error {
	if d.Key == "" {
		return fmt.Errorf("global default: key is required")
	}
	if !json.Valid([]byte(d.ValueJSON)) {
		return fmt.Errorf("global default %q: value is not valid JSON", d.Key)
	}
	return nil
}
