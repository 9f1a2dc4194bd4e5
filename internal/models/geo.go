package models

import (
	"fmt"
	"strings"
	"time"
)

// GeoLevel is a level of a city's geographic hierarchy.
type GeoLevel string

const (
	GeoLevelZone GeoLevel = "ZONE"
	GeoLevelWard GeoLevel = "WARD"
	GeoLevelArea GeoLevel = "AREA"
	GeoLevelBeat GeoLevel = "BEAT"
)

var geoParents = map[GeoLevel]GeoLevel{
	GeoLevelWard: GeoLevelZone,
	GeoLevelArea: GeoLevelWard,
	GeoLevelBeat: GeoLevelArea,
}

// Valid reports whether l is a known level.
func (l GeoLevel) Valid() bool {
	if l == GeoLevelZone {
		return true
	}
	_, ok := geoParents[l]
	return ok
}

// ParentLevel returns the level a node of level l must hang under. Zones are roots.
func (l GeoLevel) ParentLevel() (GeoLevel, bool) {
	parent, ok := geoParents[l]
	return parent, ok
}

// ParseGeoLevel accepts a level name in any case.
func ParseGeoLevel(raw string) (GeoLevel, error) {
	l := GeoLevel(strings.ToUpper(strings.TrimSpace(raw)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown geo level %q", raw)
	}
	return l, nil
}

// GeoNode is a node of the geo tree.
type GeoNode struct {
	ID        string    `db:"id" json:"id"`
	CityID    string    `db:"city_id" json:"cityId"`
	Level     GeoLevel  `db:"level" json:"level"`
	ParentID  *string   `db:"parent_id" json:"parentId,omitempty"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// GeoNodeFilter narrows geo listings.
type GeoNodeFilter struct {
	CityID   string
	Level    GeoLevel
	ParentID string
}

// CreateGeoNodeRequest is the payload for adding a geo node.
type CreateGeoNodeRequest struct {
	CityID   string   `json:"cityId" validate:"required"`
	Level    GeoLevel `json:"level" validate:"required,oneof=ZONE WARD AREA BEAT"`
	ParentID *string  `json:"parentId"`
	Name     string   `json:"name" validate:"required,max=120"`
}

// RenameGeoNodeRequest is the payload for renaming a geo node.
type RenameGeoNodeRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}
