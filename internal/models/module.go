package models

import (
	"fmt"
	"strings"
	"time"
)

// ModuleKey is the closed set of canonical module keys.
type ModuleKey string

const (
	ModuleTaskforce  ModuleKey = "TASKFORCE"
	ModuleLitterBins ModuleKey = "LITTERBINS"
	ModuleSweeping   ModuleKey = "SWEEPING"
	ModuleToilet     ModuleKey = "TOILET"
)

// CanonicalModules lists every module in display order.
var CanonicalModules = []ModuleKey{ModuleTaskforce, ModuleLitterBins, ModuleSweeping, ModuleToilet}

var moduleNames = map[ModuleKey]string{
	ModuleTaskforce:  "Taskforce",
	ModuleLitterBins: "Litter Bins",
	ModuleSweeping:   "Sweeping",
	ModuleToilet:     "Toilet",
}

// legacyModuleKeys maps retired module names to their canonical replacement.
// Only the one-time migration consults it; runtime lookups never normalise.
var legacyModuleKeys = map[string]ModuleKey{
	"TWINBIN":   ModuleLitterBins,
	"SWEEP_RES": ModuleSweeping,
	"SWEEP_COM": ModuleSweeping,
	"IEC":       ModuleToilet,
}

// Valid reports whether k is a canonical module key.
func (k ModuleKey) Valid() bool {
	_, ok := moduleNames[k]
	return ok
}

// DisplayName returns the human readable module name.
func (k ModuleKey) DisplayName() string {
	return moduleNames[k]
}

// ParseModuleKey accepts a canonical key in any case. Legacy names are rejected.
func ParseModuleKey(raw string) (ModuleKey, error) {
	k := ModuleKey(strings.ToUpper(strings.TrimSpace(raw)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown module %q", raw)
	}
	return k, nil
}

// LegacyModuleMapping returns a copy of the legacy-to-canonical module table.
func LegacyModuleMapping() map[string]ModuleKey {
	out := make(map[string]ModuleKey, len(legacyModuleKeys))
	for k, v := range legacyModuleKeys {
		out[k] = v
	}
	return out
}

// Module is a row of the module catalog.
type Module struct {
	ID          string    `db:"id" json:"id"`
	Key         ModuleKey `db:"key" json:"key"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// CityModule records that a module is enabled for a city.
type CityModule struct {
	ID        string    `db:"id" json:"id"`
	CityID    string    `db:"city_id" json:"cityId"`
	ModuleID  string    `db:"module_id" json:"moduleId"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ModuleSyncResult summarises one city synchronisation pass.
type ModuleSyncResult struct {
	CityID         string `json:"cityId"`
	ModulesCreated int64  `json:"modulesCreated"`
	GrantsCreated  int64  `json:"grantsCreated"`
}

// LegacyMigrationResult summarises the legacy module migration.
type LegacyMigrationResult struct {
	Legacy        string    `json:"legacy"`
	Canonical     ModuleKey `json:"canonical"`
	CityModules   int64     `json:"cityModules"`
	Grants        int64     `json:"grants"`
	RemovedLegacy bool      `json:"removedLegacy"`
}
