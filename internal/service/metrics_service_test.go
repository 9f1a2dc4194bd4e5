package service

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-api/internal/models"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest("GET", "/api/v1/records", 200, 20*time.Millisecond)
	m.ObserveHTTPRequest("POST", "/api/v1/records", 201, 40*time.Millisecond)
	m.RecordTransition(models.FamilyBinVisit, models.ReviewStatusApproved, "ok")
	m.RecordTransition(models.FamilyBinVisit, models.ReviewStatusApproved, "INVALID_TRANSITION")
	m.RecordAttestationIssued(true)
	m.RecordAttestationIssued(false)
	m.RecordAttestationFailure("ATTESTATION_EXPIRED")
	m.RecordScopeDenial(models.ModuleToilet)

	s := m.Snapshot()
	assert.Equal(t, uint64(2), s.RequestsTotal)
	assert.InDelta(t, 30.0, s.AverageRequestDurationMs, 0.001)
	assert.Equal(t, map[string]uint64{"APPROVED": 1}, s.Transitions)
	assert.Equal(t, uint64(1), s.AttestationsIssued)
	assert.Equal(t, uint64(1), s.AttestationsDenied)
	assert.Equal(t, uint64(1), s.AttestationFailures["ATTESTATION_EXPIRED"])
	assert.Equal(t, uint64(1), s.ScopeDenials)
	assert.Positive(t, s.Goroutines)
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.RecordTransition(models.FamilyToiletInspection, models.ReviewStatusRejected, "ok")
	m.RecordScopeDenial(models.ModuleToilet)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `hms_review_transitions_total{family="TOILET_INSPECTION",outcome="ok",to="REJECTED"} 1`)
	assert.Contains(t, string(body), `hms_scope_denials_total{module="TOILET"} 1`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	m.RecordTransition(models.FamilyBinVisit, models.ReviewStatusApproved, "ok")
	m.RecordAttestationFailure("X")
	s := m.Snapshot()
	assert.NotNil(t, s.Transitions)
	assert.NotNil(t, s.AttestationFailures)
}
