package schemacheck

const (
	cascade  = "CASCADE"
	noAction = "NO ACTION"
	setNull  = "SET NULL"
)

func fk(col, refTable, refCol, rule string) ForeignKey {
	return ForeignKey{Column: col, RefTable: refTable, RefColumn: refCol, DeleteRule: rule}
}

func layerFK() ForeignKey { return fk("LayerId", "Layers", "LayerId", cascade) }

// Expected is the schema the store is written against. The NO ACTION keys
// are the ones whose rows the store deletes explicitly before the layer.
func Expected() Schema {
	return Schema{Tables: []Table{
		{Name: "Portals", Columns: []string{"PortalId", "code", "title"}},
		{Name: "LabelClasses", Columns: []string{"LabelClassId", "name"}},
		{
			Name: "Layers",
			Columns: []string{
				"LayerId", "PortalId", "layerKey", "layerType", "title", "gridXType", "helpPage",
				"view", "idProperty", "geomFieldName", "labelClassId", "noCluster", "visibility",
				"featureInfoWindow", "hasMetadata", "isBaseLayer", "vectorFeaturesMinScale",
				"legendWidth", "qtip", "openLayersJSON", "groupingJSON", "tooltipsConfigJSON",
				"url", "legendUrl", "requestMethod",
			},
			ForeignKeys: []ForeignKey{
				fk("PortalId", "Portals", "PortalId", cascade),
				fk("labelClassId", "LabelClasses", "LabelClassId", setNull),
			},
		},
		{
			Name:        "LayerWmsOptions",
			Columns:     []string{"LayerId", "layers", "orderBy", "styles", "version", "maxResolution", "requestMethod", "dateFormat"},
			ForeignKeys: []ForeignKey{layerFK()},
		},
		{
			Name:        "LayerWfsOptions",
			Columns:     []string{"LayerId", "featureType", "propertyName", "version", "maxResolution"},
			ForeignKeys: []ForeignKey{layerFK()},
		},
		{
			Name:        "LayerXyzOptions",
			Columns:     []string{"LayerId", "urlTemplate", "accessToken", "projection", "tileSize", "attributionHTML", "extentJSON", "tileGridJSON"},
			ForeignKeys: []ForeignKey{layerFK()},
		},
		{
			Name:        "LayerArcGisRestOptions",
			Columns:     []string{"LayerId", "url"},
			ForeignKeys: []ForeignKey{layerFK()},
		},
		{
			Name:        "LayerStyles",
			Columns:     []string{"LayerStyleId", "LayerId", "name", "title", "labelRule", "legendUrl", "isDefault", "displayOrder"},
			ForeignKeys: []ForeignKey{layerFK()},
		},
		{
			Name:    "SwitchLayerChildren",
			Columns: []string{"ParentLayerId", "ChildLayerId", "position"},
			ForeignKeys: []ForeignKey{
				fk("ParentLayerId", "Layers", "LayerId", cascade),
				fk("ChildLayerId", "Layers", "LayerId", noAction),
			},
		},
		{
			Name:        "GlobalDefaults",
			Columns:     []string{"PortalId", "key", "valueJSON"},
			ForeignKeys: []ForeignKey{fk("PortalId", "Portals", "PortalId", cascade)},
		},
		{
			Name:        "LayerTypeDefaults",
			Columns:     []string{"PortalId", "layerType", "defaultsJSON"},
			ForeignKeys: []ForeignKey{fk("PortalId", "Portals", "PortalId", cascade)},
		},
		{
			Name:        "EnvironmentOverrides",
			Columns:     []string{"EnvironmentOverrideId", "PortalId", "envName", "scope", "scopeId", "overridesJSON"},
			ForeignKeys: []ForeignKey{fk("PortalId", "Portals", "PortalId", cascade)},
		},
		{
			Name: "PortalTreeNodes",
			Columns: []string{
				"PortalTreeNodeId", "PortalId", "ParentNodeId", "IsFolder", "FolderTitle", "FolderId",
				"LayerId", "LayerTitle", "Glyph", "Tooltip", "ExpandedDefault", "CheckedDefault", "DisplayOrder",
			},
			ForeignKeys: []ForeignKey{
				fk("PortalId", "Portals", "PortalId", cascade),
				fk("ParentNodeId", "PortalTreeNodes", "PortalTreeNodeId", cascade),
				fk("LayerId", "Layers", "LayerId", noAction),
			},
		},
		{
			Name: "GridMData",
			Columns: []string{
				"LayerId", "IdField", "GetId", "Service", "WindowName", "Model", "HelpPage", "Controller",
				"IsSwitch", "IsSpatial", "ExcelExporter", "ShpExporter", "HasEditableColumns",
			},
			ForeignKeys: []ForeignKey{layerFK()},
		},
		{
			Name: "GridColumns",
			Columns: []string{
				"GridColumnId", "LayerId", "ColumnName", "Text", "Renderer", "ExType", "InGrid", "Hidden",
				"NullText", "NullValue", "Zeros", "NoFilter", "Flex", "CustomListValues", "Editable",
				"IndexValue", "DisplayOrder",
			},
			ForeignKeys: []ForeignKey{layerFK()},
		},
		{
			Name:        "GridColumnEdit",
			Columns:     []string{"GridColumnId", "GroupEditIdProperty", "GroupEditDataProp", "EditServiceUrl", "EditUserRole"},
			ForeignKeys: []ForeignKey{fk("GridColumnId", "GridColumns", "GridColumnId", cascade)},
		},
		{
			Name:        "GridSorters",
			Columns:     []string{"GridSorterId", "LayerId", "Property", "Direction", "SortOrder"},
			ForeignKeys: []ForeignKey{layerFK()},
		},
		{
			Name:        "GridFilterDefinitions",
			Columns:     []string{"GridFilterDefinitionId", "LayerId", "DataIndex", "Store", "StoreId", "IdField", "LabelField", "LocalField"},
			ForeignKeys: []ForeignKey{layerFK()},
		},
	}}
}
