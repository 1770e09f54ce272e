package model

type GridMData struct {
	IDField            *string `json:"idField,omitempty" yaml:"id,omitempty"`
	GetID              *string `json:"getId,omitempty" yaml:"getid,omitempty"`
	Service            *string `json:"service,omitempty" yaml:"service,omitempty"`
	Window             *string `json:"window,omitempty" yaml:"window,omitempty"`
	Model              *string `json:"model,omitempty" yaml:"model,omitempty"`
	HelpPage           *string `json:"helpPage,omitempty" yaml:"help_page,omitempty"`
	Controller         *string `json:"controller,omitempty" yaml:"controller,omitempty"`
	IsSwitch           bool    `json:"isSwitch" yaml:"isSwitch"`
	IsSpatial          bool    `json:"isSpatial" yaml:"isSpatial"`
	ExcelExporter      bool    `json:"excelExporter" yaml:"excel_exporter"`
	ShpExporter        bool    `json:"shpExporter" yaml:"shp_exporter"`
	HasEditableColumns bool    `json:"hasEditableColumns" yaml:"-"`
}

// GridColumnEdit is keyed by its column's name so it survives column id regeneration.
type GridColumnEdit struct {
	GroupEditIDProperty *string `json:"groupEditIdProperty,omitempty" yaml:"groupEditIdProperty,omitempty"`
	GroupEditDataProp   *string `json:"groupEditDataProp,omitempty" yaml:"groupEditDataProp,omitempty"`
	EditServiceURL      *string `json:"editServiceUrl,omitempty" yaml:"editServiceUrl,omitempty"`
	EditUserRole        *string `json:"editUserRole,omitempty" yaml:"editUserRole,omitempty"`
}

type GridColumn struct {
	ColumnName       string          `json:"columnName" yaml:"-"`
	Text             *string         `json:"text,omitempty" yaml:"text,omitempty"`
	Renderer         *string         `json:"renderer,omitempty" yaml:"renderer,omitempty"`
	ExType           *string         `json:"exType,omitempty" yaml:"extype,omitempty"`
	InGrid           bool            `json:"inGrid" yaml:"inGrid"`
	Hidden           bool            `json:"hidden" yaml:"hidden"`
	NullText         *string         `json:"nullText,omitempty" yaml:"nullText,omitempty"`
	NullValue        *string         `json:"nullValue,omitempty" yaml:"nullValue,omitempty"`
	Zeros            *int32          `json:"zeros,omitempty" yaml:"zeros,omitempty"`
	NoFilter         bool            `json:"noFilter" yaml:"noFilter"`
	Flex             *float64        `json:"flex,omitempty" yaml:"flex,omitempty"`
	CustomListValues *string         `json:"customListValues,omitempty" yaml:"-"`
	Editable         bool            `json:"editable" yaml:"-"`
	IndexValue       *int32          `json:"index,omitempty" yaml:"index,omitempty"`
	DisplayOrder     *int32          `json:"displayOrder,omitempty" yaml:"-"`
	Edit             *GridColumnEdit `json:"edit,omitempty" yaml:"-"`
}

type GridSorter struct {
	Property  string `json:"property" yaml:"field"`
	Direction string `json:"direction" yaml:"direction"`
}

type GridFilter struct {
	DataIndex  *string `json:"dataIndex,omitempty" yaml:"data_index,omitempty"`
	Store      *string `json:"store,omitempty" yaml:"store,omitempty"`
	StoreID    *string `json:"storeId,omitempty" yaml:"store_id,omitempty"`
	IDField    *string `json:"idField,omitempty" yaml:"id_field,omitempty"`
	LabelField *string `json:"labelField,omitempty" yaml:"label_field,omitempty"`
	LocalField *string `json:"localField,omitempty" yaml:"local_field,omitempty"`
}

// GridConfig is the attribute-grid setup of one layer.
type GridConfig struct {
	MData   *GridMData   `json:"mdata,omitempty"`
	Columns []GridColumn `json:"columns"`
	Sorters []GridSorter `json:"sorters"`
	Filters []GridFilter `json:"filters"`
}

// HasEditable reports whether any column is editable.
func (g GridConfig) HasEditable() bool {
	for _, c := range g.Columns {
		if c.Editable {
			return true
		}
	}
	return false
}
