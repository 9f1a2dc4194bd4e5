package models

import "time"

// AuditAction constants represent account and administration actions to be logged.
const (
	AuditActionLogin           = "LOGIN"
	AuditActionSwitchCity      = "SWITCH_CITY"
	AuditActionBootstrapLogin  = "SUPERADMIN_BOOTSTRAP"
	AuditActionGrantUpsert     = "GRANT_UPSERT"
	AuditActionGrantRevoke     = "GRANT_REVOKE"
	AuditActionGeoCreate       = "GEO_CREATE"
	AuditActionGeoRename       = "GEO_RENAME"
	AuditActionGeoDelete       = "GEO_DELETE"
	AuditActionCatalogRefresh  = "MODULE_CATALOG_REFRESH"
	AuditActionModuleSync      = "MODULE_SYNC"
	AuditActionLegacyMigration = "MODULE_LEGACY_MIGRATION"
	AuditActionAssetAssign     = "ASSET_ASSIGN"
	AuditActionBinRequest      = "BIN_REQUEST"
)

// AuditLog represents an administrative audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	CityID     *string   `db:"city_id" json:"cityId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
