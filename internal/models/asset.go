package models

import "time"

// AssetKind identifies a physical asset type.
type AssetKind string

const (
	AssetKindBin         AssetKind = "BIN"
	AssetKindToilet      AssetKind = "TOILET"
	AssetKindBeat        AssetKind = "BEAT"
	AssetKindFeederPoint AssetKind = "FEEDER_POINT"
)

// AssetStatus tracks the lifecycle of an asset.
type AssetStatus string

const (
	AssetStatusPending   AssetStatus = "PENDING"
	AssetStatusActive    AssetStatus = "ACTIVE"
	AssetStatusAssigned  AssetStatus = "ASSIGNED"
	AssetStatusCompleted AssetStatus = "COMPLETED"
	AssetStatusInactive  AssetStatus = "INACTIVE"
)

// Asset is a field asset with a location inside the geo tree.
type Asset struct {
	ID         string      `db:"id" json:"id"`
	CityID     string      `db:"city_id" json:"cityId"`
	Module     ModuleKey   `db:"module_key" json:"module"`
	Kind       AssetKind   `db:"kind" json:"kind"`
	Name       string      `db:"name" json:"name"`
	ZoneID     *string     `db:"zone_id" json:"zoneId,omitempty"`
	WardID     *string     `db:"ward_id" json:"wardId,omitempty"`
	Latitude   float64     `db:"latitude" json:"latitude"`
	Longitude  float64     `db:"longitude" json:"longitude"`
	Status     AssetStatus `db:"status" json:"status"`
	AssignedTo *string     `db:"assigned_to" json:"assignedTo,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

// ZoneOrEmpty returns the zone id or "".
func (a *Asset) ZoneOrEmpty() string { return deref(a.ZoneID) }

// WardOrEmpty returns the ward id or "".
func (a *Asset) WardOrEmpty() string { return deref(a.WardID) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// AssignAssetRequest hands a beat to a field worker.
type AssignAssetRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// BinRequest asks for a new litter bin at a location. The bin stays PENDING until its
// BIN_REQUEST record is approved.
type BinRequest struct {
	Name      string  `json:"name" validate:"required,max=120"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	ZoneID    string  `json:"zoneId" validate:"required"`
	WardID    string  `json:"wardId" validate:"required"`
}
