package service

import (
	"context"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
)

// AssetAdapter is the per-family capability set plugged into the shared review engine.
type AssetAdapter interface {
	Family() models.RecordFamily
	Module() models.ModuleKey
	// CheckSubmit refuses submissions the family does not accept from subjectID for asset.
	CheckSubmit(asset *models.Asset, subjectID string) error
	// OnApprove applies the asset side effect of an approval.
	OnApprove(ctx context.Context, record *models.ReviewRecord) error
	// OnEscalate picks the action officer a record is escalated to.
	OnEscalate(ctx context.Context, record *models.ReviewRecord) (string, error)
}

type actionOfficerFinder interface {
	FindActionOfficer(ctx context.Context, cityID, moduleID, zoneID, wardID string) (string, error)
}

type assetMutator interface {
	Activate(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
}

type familyAdapter struct {
	family   models.RecordFamily
	officers actionOfficerFinder
}

func (a familyAdapter) Family() models.RecordFamily { return a.family }

func (a familyAdapter) Module() models.ModuleKey { return a.family.Module() }

func (a familyAdapter) CheckSubmit(*models.Asset, string) error { return nil }

func (a familyAdapter) OnApprove(context.Context, *models.ReviewRecord) error { return nil }

func (a familyAdapter) OnEscalate(ctx context.Context, record *models.ReviewRecord) (string, error) {
	return a.officers.FindActionOfficer(ctx, record.CityID, record.ModuleID, record.ZoneOrEmpty(), record.WardOrEmpty())
}

// sweepingAdapter returns an approved beat to the assignable pool.
type sweepingAdapter struct {
	familyAdapter
	assets assetMutator
}

// CheckSubmit only accepts inspections from the worker the beat is assigned to.
func (a sweepingAdapter) CheckSubmit(asset *models.Asset, subjectID string) error {
	if asset.Status != models.AssetStatusAssigned || asset.AssignedTo == nil || *asset.AssignedTo != subjectID {
		return appErrors.Clone(appErrors.ErrForbidden, "beat is not assigned to you")
	}
	return nil
}

func (a sweepingAdapter) OnApprove(ctx context.Context, record *models.ReviewRecord) error {
	return a.assets.Release(ctx, record.AssetID)
}

// binRequestAdapter brings a requested bin into service once approved.
type binRequestAdapter struct {
	familyAdapter
	assets assetMutator
}

func (a binRequestAdapter) OnApprove(ctx context.Context, record *models.ReviewRecord) error {
	return a.assets.Activate(ctx, record.AssetID)
}

// DefaultAdapters returns one adapter per record family.
func DefaultAdapters(officers actionOfficerFinder, assets assetMutator) []AssetAdapter {
	adapters := make([]AssetAdapter, 0, len(models.AllFamilies))
	for _, family := range models.AllFamilies {
		base := familyAdapter{family: family, officers: officers}
		switch family {
		case models.FamilySweepingInspection:
			adapters = append(adapters, sweepingAdapter{familyAdapter: base, assets: assets})
		case models.FamilyBinRequest:
			adapters = append(adapters, binRequestAdapter{familyAdapter: base, assets: assets})
		default:
			adapters = append(adapters, base)
		}
	}
	return adapters
}
