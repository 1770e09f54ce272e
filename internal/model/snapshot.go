package model

// PortalSnapshot is everything needed to render a portal's client document.
type PortalSnapshot struct {
	Portal       Portal
	Globals      []GlobalDefault
	TypeDefaults []TypeDefaults
	Overrides    []Override
	Layers       []LayerDetail
}
