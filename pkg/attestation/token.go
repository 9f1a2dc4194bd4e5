package attestation

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Verification failures. ErrInvalid is returned for every decode or signature problem
// so callers cannot tell which part of the token was wrong.
var (
	ErrInvalid  = errors.New("attestation invalid")
	ErrExpired  = errors.New("attestation expired")
	ErrMismatch = errors.New("attestation does not match request")
)

var encoding = base64.RawURLEncoding.Strict()

// Payload is the signed body of a proximity attestation.
type Payload struct {
	AssetID   string  `json:"assetId"`
	SubjectID string  `json:"subjectId"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	ExpiresAt int64   `json:"expiresAt"`
	Nonce     string  `json:"nonce"`
}

// Expiry returns ExpiresAt as a time value.
func (p Payload) Expiry() time.Time {
	return time.UnixMilli(p.ExpiresAt)
}

// Signer issues and verifies proximity attestation tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL reports the lifetime applied to issued tokens.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Issue signs an attestation binding subject, asset and the reading taken at issuance.
func (s *Signer) Issue(assetID, subjectID string, lat, lon float64) (string, Payload, error) {
	if assetID == "" || subjectID == "" {
		return "", Payload{}, fmt.Errorf("assetID and subjectID required")
	}
	if len(s.secret) == 0 {
		return "", Payload{}, fmt.Errorf("signing secret missing")
	}
	payload := Payload{
		AssetID:   assetID,
		SubjectID: subjectID,
		Lat:       lat,
		Lon:       lon,
		ExpiresAt: s.now().Add(s.ttl).UnixMilli(),
		Nonce:     ulid.Make().String(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", Payload{}, fmt.Errorf("encode attestation: %w", err)
	}
	token := encoding.EncodeToString(body) + "." + encoding.EncodeToString(s.sign(body))
	return token, payload, nil
}

// Verify checks signature, expiry and the asset/subject binding of token.
func (s *Signer) Verify(token, assetID, subjectID string) (Payload, error) {
	payload, err := s.decode(token)
	if err != nil {
		return Payload{}, err
	}
	if !s.now().Before(payload.Expiry()) {
		return payload, ErrExpired
	}
	if payload.AssetID != assetID || payload.SubjectID != subjectID {
		return payload, ErrMismatch
	}
	return payload, nil
}

func (s *Signer) decode(token string) (Payload, error) {
	if len(s.secret) == 0 {
		return Payload{}, ErrInvalid
	}
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Payload{}, ErrInvalid
	}
	body, err := encoding.DecodeString(parts[0])
	if err != nil {
		return Payload{}, ErrInvalid
	}
	signature, err := encoding.DecodeString(parts[1])
	if err != nil {
		return Payload{}, ErrInvalid
	}
	if !hmac.Equal(s.sign(body), signature) {
		return Payload{}, ErrInvalid
	}

	var payload Payload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return Payload{}, ErrInvalid
	}
	if payload.AssetID == "" || payload.SubjectID == "" || payload.Nonce == "" {
		return Payload{}, ErrInvalid
	}
	return payload, nil
}

func (s *Signer) sign(body []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}
