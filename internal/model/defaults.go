package model

import "fmt"

type GlobalDefault struct {
	Key       string `json:"key"`
	ValueJSON string `json:"valueJSON"`
}

type TypeDefaults struct {
	LayerType    LayerType `json:"layerType"`
	DefaultsJSON string    `json:"defaultsJSON"`
}

// OverrideScope selects what an EnvironmentOverrides row patches.
type OverrideScope string

const (
	ScopeGlobal    OverrideScope = "global"
	ScopeLayerType OverrideScope = "layerType"
	ScopeLayer     OverrideScope = "layer"
)

func (s OverrideScope) Valid() bool {
	return s == ScopeGlobal || s == ScopeLayerType || s == ScopeLayer
}

// Override patches the resolved configuration for one environment. ScopeID is
// empty for global, a layer type for layerType, a layer key for layer.
type Override struct {
	EnvName       string        `json:"envName"`
	Scope         OverrideScope `json:"scope"`
	ScopeID       string        `json:"scopeId"`
	OverridesJSON string        `json:"overridesJSON"`
}

func (o Override) Check() error {
	if o.EnvName == "" {
		return fmt.Errorf("override: envName is required")
	}
	switch o.Scope {
	case ScopeGlobal:
		if o.ScopeID != "" {
			return fmt.Errorf("override: global scope takes no scopeId")
		}
	case ScopeLayerType:
		if !LayerType(o.ScopeID).Valid() {
			return fmt.Errorf("override: unknown layer type %q", o.ScopeID)
		}
	case ScopeLayer:
		if o.ScopeID == "" {
			return fmt.Errorf("override: layer scope needs a layer key")
		}
	default:
		return fmt.Errorf("override: unknown scope %q", o.Scope)
	}
	return checkJSONObject("overridesJSON", o.OverridesJSON)
}

// SwitchLayerTypeDefaults is written whenever a portal's defaults are replaced
// and no switchlayer entry was supplied.
const SwitchLayerTypeDefaults = `{"vectorFeaturesMinScale":20000,"visibility":false,"featureInfoWindow":true}`
