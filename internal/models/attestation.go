package models

import "time"

// IssueAttestationRequest asks for a proximity attestation on an asset.
type IssueAttestationRequest struct {
	AssetID   string  `json:"assetId" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Attestation is an issued proximity attestation.
type Attestation struct {
	Token          string    `json:"token"`
	AssetID        string    `json:"assetId"`
	DistanceMeters float64   `json:"distanceMeters"`
	RadiusMeters   float64   `json:"radiusMeters"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// VerifiedLocation is the reading bound into a verified attestation.
type VerifiedLocation struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Nonce     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SubmissionProof carries everything needed to re-verify presence at submit time.
type SubmissionProof struct {
	Token     string
	AssetID   string
	SubjectID string
	Latitude  float64
	Longitude float64
}
