package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hms-api/internal/models"
	"github.com/noah-isme/hms-api/pkg/attestation"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/geo"
	"github.com/noah-isme/hms-api/pkg/ratelimit"
)

type assetReader interface {
	GetByID(ctx context.Context, id string) (*models.Asset, error)
}

type nonceConsumer interface {
	Consume(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}

// ProximityConfig holds the two radii and the issuance rate.
type ProximityConfig struct {
	OpenRadiusMeters   float64
	SubmitRadiusMeters float64
	RatePerMinute      int
	Burst              int
}

// ProximityService issues and verifies proximity attestations.
type ProximityService struct {
	signer    *attestation.Signer
	assets    assetReader
	nonces    nonceConsumer
	limiter   *ratelimit.Keyed
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    ProximityConfig
	now       func() time.Time
}

// NewProximityService constructs a ProximityService.
func NewProximityService(signer *attestation.Signer, assets assetReader, nonces nonceConsumer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config ProximityConfig) *ProximityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.OpenRadiusMeters <= 0 {
		config.OpenRadiusMeters = 50
	}
	if config.SubmitRadiusMeters <= 0 {
		config.SubmitRadiusMeters = 50
	}
	return &ProximityService{
		signer:    signer,
		assets:    assets,
		nonces:    nonces,
		limiter:   ratelimit.PerMinute(config.RatePerMinute, config.Burst),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Attest signs an attestation when reading lies within maxDistance meters of the asset.
// A reading further away is refused with DistanceExceeded carrying the measured distance.
func (s *ProximityService) Attest(assetID, subjectID string, reading, assetAt geo.Point, maxDistance float64) (*models.Attestation, error) {
	ok, distance := geo.Within(reading, assetAt, maxDistance)
	if !ok {
		s.metrics.RecordAttestationIssued(false)
		return nil, distanceExceeded(distance, maxDistance, "asset")
	}
	token, payload, err := s.signer.Issue(assetID, subjectID, reading.Lat, reading.Lon)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign attestation")
	}
	s.metrics.RecordAttestationIssued(true)
	return &models.Attestation{
		Token:          token,
		AssetID:        assetID,
		DistanceMeters: roundMeters(distance),
		RadiusMeters:   maxDistance,
		ExpiresAt:      payload.Expiry().UTC(),
	}, nil
}

// Issue checks the caller may act on the asset and attests the reading against the open radius.
func (s *ProximityService) Issue(ctx context.Context, claims *models.Claims, req models.IssueAttestationRequest) (*models.Attestation, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	if !s.limiter.Allow(claims.SubjectID()) {
		return nil, appErrors.Clone(appErrors.ErrTooManyRequests, "too many attestation requests")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attestation request")
	}
	reading := geo.Point{Lat: req.Latitude, Lon: req.Longitude}
	if err := reading.Validate(); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	asset, err := s.assets.GetByID(ctx, req.AssetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	if !claims.IsSuperAdmin() {
		if asset.CityID != claims.ActiveCityID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		if _, ok := claims.Module(asset.Module); !ok {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no access to module "+string(asset.Module))
		}
	}

	att, err := s.Attest(asset.ID, claims.SubjectID(), reading, geo.Point{Lat: asset.Latitude, Lon: asset.Longitude}, s.config.OpenRadiusMeters)
	if err != nil {
		s.logger.Info("attestation denied",
			zap.String("asset_id", asset.ID),
			zap.String("subject_id", claims.SubjectID()),
			zap.Error(err),
		)
		return nil, err
	}
	return att, nil
}

// Verify checks a token's signature, expiry and binding to asset and subject and returns the
// attested reading. Every decode or signature failure surfaces as the same AttestationInvalid error.
func (s *ProximityService) Verify(token, assetID, subjectID string) (*models.VerifiedLocation, error) {
	payload, err := s.signer.Verify(token, assetID, subjectID)
	if err != nil {
		mapped := mapAttestationError(err)
		s.metrics.RecordAttestationFailure(mapped.Code)
		return nil, mapped
	}
	return &models.VerifiedLocation{
		Latitude:  payload.Lat,
		Longitude: payload.Lon,
		Nonce:     payload.Nonce,
		ExpiresAt: payload.Expiry().UTC(),
	}, nil
}

// VerifySubmission re-verifies presence at submit time. The live reading must lie within the submit
// radius of both the asset and the attested reading; the attestation is then consumed so it cannot be
// replayed. Returns the live distance to the asset.
func (s *ProximityService) VerifySubmission(ctx context.Context, proof models.SubmissionProof, asset *models.Asset) (float64, error) {
	attested, err := s.Verify(proof.Token, proof.AssetID, proof.SubjectID)
	if err != nil {
		return 0, err
	}
	live := geo.Point{Lat: proof.Latitude, Lon: proof.Longitude}
	if err := live.Validate(); err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	radius := s.config.SubmitRadiusMeters
	ok, toAsset := geo.Within(live, geo.Point{Lat: asset.Latitude, Lon: asset.Longitude}, radius)
	if !ok {
		s.metrics.RecordAttestationFailure(appErrors.ErrDistanceExceeded.Code)
		return 0, distanceExceeded(toAsset, radius, "asset")
	}
	ok, toAttested := geo.Within(live, geo.Point{Lat: attested.Latitude, Lon: attested.Longitude}, radius)
	if !ok {
		s.metrics.RecordAttestationFailure(appErrors.ErrDistanceExceeded.Code)
		return 0, distanceExceeded(toAttested, radius, "attestation")
	}

	remaining := attested.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		s.metrics.RecordAttestationFailure(appErrors.ErrAttestationExpired.Code)
		return 0, appErrors.Clone(appErrors.ErrAttestationExpired, "")
	}
	fresh, err := s.nonces.Consume(ctx, attested.Nonce, remaining)
	if err != nil {
		s.logger.Error("attestation nonce store failed", zap.Error(err))
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attestation could not be verified")
	}
	if !fresh {
		s.metrics.RecordAttestationFailure(appErrors.ErrAttestationConsumed.Code)
		s.logger.Warn("attestation replay refused",
			zap.String("asset_id", proof.AssetID),
			zap.String("subject_id", proof.SubjectID),
		)
		return 0, appErrors.Clone(appErrors.ErrAttestationConsumed, "")
	}
	return roundMeters(toAsset), nil
}

func mapAttestationError(err error) *appErrors.Error {
	switch {
	case errors.Is(err, attestation.ErrExpired):
		return appErrors.Clone(appErrors.ErrAttestationExpired, "")
	case errors.Is(err, attestation.ErrMismatch):
		return appErrors.Clone(appErrors.ErrAttestationMismatch, "")
	default:
		return appErrors.Clone(appErrors.ErrAttestationInvalid, "")
	}
}

func distanceExceeded(distance, radius float64, against string) *appErrors.Error {
	return appErrors.WithDetails(appErrors.ErrDistanceExceeded, map[string]interface{}{
		"distanceMeters": roundMeters(distance),
		"radiusMeters":   radius,
		"against":        against,
	})
}

func roundMeters(m float64) float64 {
	return math.Round(m*10) / 10
}
