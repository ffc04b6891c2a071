package models

// AdminSetting is a runtime platform toggle. Value may hold any BSON/JSON shape.
type AdminSetting struct {
	Base        `bson:",inline"`
	Key         string      `json:"key"                   bson:"key"`
	Value       interface{} `json:"value"                 bson:"value"`
	Enabled     bool        `json:"enabled"               bson:"enabled"`
	Description string      `json:"description,omitempty" bson:"description,omitempty"`
	UpdatedBy   string      `json:"updatedBy,omitempty"   bson:"updatedBy,omitempty"`
}
