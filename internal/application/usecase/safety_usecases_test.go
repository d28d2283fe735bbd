package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/dreschagin/vessel-guard/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSafetyConfig = SafetyConfig{
	ProviderTimeout:   200 * time.Millisecond,
	HarborRadiusKm:    100,
	EmergencyRadiusKm: 200,
	ReportKeyPrefix:   "reports/emergencies",
}

func newScorer() *service.SafetyScorer {
	return service.NewSafetyScorer(mustTables().Weights)
}

func zone(id string, t valueobject.ZoneType, distance float64) entity.SafetyZone {
	return entity.SafetyZone{
		ID:         id,
		Name:       "zone " + id,
		ZoneType:   t,
		Position:   mustPosition(43.5, 7.0),
		Active:     true,
		DistanceKm: distance,
	}
}

func TestAssessLocation_HazardAndExtremeWeather(t *testing.T) {
	sink := &recordingSink{}
	sources := SafetySources{
		Baselines: &fakeBaselines{score: 60, ok: true},
		Zones:     &fakeZones{zones: []entity.SafetyZone{zone("reef", valueobject.ZoneReefArea, 12)}},
		Weather:   &fakeWeather{snapshot: &entity.WeatherSnapshot{RiskLevel: valueobject.RiskExtreme}},
	}
	uc := NewAssessLocationUseCase(newScorer(), sources, sink, nil, testSafetyConfig, logger.New("error"))

	got, err := uc.Execute(context.Background(), AssessLocationCommand{VesselID: "vessel-1", Latitude: 43.6, Longitude: 7.1})
	require.NoError(t, err)

	assert.InDelta(t, 25, got.SafetyScore, 1e-9)
	assert.Equal(t, "critical", got.RiskLevel)
	assert.Len(t, got.Recommendations, 2)
	assert.Empty(t, got.NearestHarbors)
	assert.Empty(t, got.SkippedChecks)
	require.Len(t, sink.assessments, 1)
	assert.Equal(t, entity.AssessmentLocation, sink.assessments[0].Type())
}

func TestAssessLocation_DistantHazardStillPenalized(t *testing.T) {
	sources := SafetySources{
		Baselines: &fakeBaselines{score: 60, ok: true},
		Zones: &fakeZones{zones: []entity.SafetyZone{
			zone("gulf", valueobject.ZonePiracyRisk, 150),
			zone("far-marina", valueobject.ZoneMarina, 150),
		}},
		Weather: &fakeWeather{snapshot: &entity.WeatherSnapshot{RiskLevel: valueobject.RiskLow}},
	}
	uc := NewAssessLocationUseCase(newScorer(), sources, &recordingSink{}, nil, testSafetyConfig, logger.New("error"))

	got, err := uc.Execute(context.Background(), AssessLocationCommand{VesselID: "vessel-1", Latitude: 43.6, Longitude: 7.1})
	require.NoError(t, err)

	// гавань за пределами радиуса не дает бонуса, опасная зона штрафует независимо от расстояния
	assert.InDelta(t, 55, got.SafetyScore, 1e-9)
	assert.Empty(t, got.NearestHarbors)
	require.Len(t, got.Recommendations, 1)
	assert.True(t, strings.HasPrefix(got.Recommendations[0], "Caution: 1 navigation hazard"))
}

func TestAssessLocation_DegradesWhenProvidersFail(t *testing.T) {
	sources := SafetySources{
		Baselines: &fakeBaselines{err: errors.New("function missing")},
		Zones: &fakeZones{zones: []entity.SafetyZone{
			zone("marina", valueobject.ZoneMarina, 4),
		}},
		Weather: &fakeWeather{block: true},
	}
	uc := NewAssessLocationUseCase(newScorer(), sources, &recordingSink{}, nil, testSafetyConfig, logger.New("error"))

	got, err := uc.Execute(context.Background(), AssessLocationCommand{VesselID: "vessel-1", Latitude: 43.6, Longitude: 7.1})
	require.NoError(t, err)

	// default 50 + harbor bonus 10
	assert.InDelta(t, 60, got.SafetyScore, 1e-9)
	assert.Equal(t, "moderate", got.RiskLevel)
	assert.Equal(t, []string{CheckBaselineScore, CheckWeather}, got.SkippedChecks)
	require.Len(t, got.NearestHarbors, 1)
	assert.Nil(t, got.WeatherData)
}

func TestAssessLocation_Validation(t *testing.T) {
	uc := NewAssessLocationUseCase(newScorer(), SafetySources{}, nil, nil, testSafetyConfig, logger.New("error"))

	_, err := uc.Execute(context.Background(), AssessLocationCommand{Latitude: 10, Longitude: 10})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = uc.Execute(context.Background(), AssessLocationCommand{VesselID: "v", Latitude: 91, Longitude: 10})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestAnalyzeRoute_SamplesWeatherAtMidpoint(t *testing.T) {
	weather := &fakeWeather{snapshot: &entity.WeatherSnapshot{RiskLevel: valueobject.RiskLow, SafetyScore: 100}}
	sources := SafetySources{
		Weather: weather,
		Zones: &fakeZones{zones: []entity.SafetyZone{
			zone("shoal", valueobject.ZoneShallowWater, 0),
			zone("harbor", valueobject.ZoneSafeHarbor, 0),
		}},
	}
	uc := NewAnalyzeRouteUseCase(newScorer(), sources, &recordingSink{}, nil, testSafetyConfig, logger.New("error"))

	got, err := uc.Execute(context.Background(), AnalyzeRouteCommand{
		VesselID:    "vessel-1",
		Origin:      dto.PositionDTO{Latitude: 0, Longitude: 0},
		Destination: dto.PositionDTO{Latitude: 0, Longitude: 1},
	})
	require.NoError(t, err)

	require.Len(t, weather.asked, 1)
	assert.InDelta(t, 0.5, weather.asked[0].Longitude(), 1e-9)

	require.NotNil(t, got.RouteAnalysis)
	assert.InDelta(t, 60.0405, got.RouteAnalysis.DistanceNM, 1e-4)
	assert.Equal(t, 1, got.RouteAnalysis.HazardCount)
	assert.Equal(t, "midpoint", got.RouteAnalysis.WeatherSampling)
	assert.InDelta(t, 80, got.SafetyScore, 1e-9)
	assert.Equal(t, "low", got.RiskLevel)
}

func TestAnalyzeRoute_MissingSourcesAreSkipped(t *testing.T) {
	uc := NewAnalyzeRouteUseCase(newScorer(), SafetySources{}, nil, nil, testSafetyConfig, logger.New("error"))

	got, err := uc.Execute(context.Background(), AnalyzeRouteCommand{
		Origin:      dto.PositionDTO{Latitude: 43.7, Longitude: 7.3},
		Destination: dto.PositionDTO{Latitude: 42.0, Longitude: 9.0},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{CheckHazardZones, CheckWeather}, got.SkippedChecks)
	assert.InDelta(t, 85, got.SafetyScore, 1e-9)

	_, err = uc.Execute(context.Background(), AnalyzeRouteCommand{
		Origin:      dto.PositionDTO{Latitude: 43.7, Longitude: 200},
		Destination: dto.PositionDTO{Latitude: 42.0, Longitude: 9.0},
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestCheckEquipment_FailedAndExpired(t *testing.T) {
	items := []entity.Equipment{
		{ID: "1", Name: "EPIRB", Status: valueobject.EquipmentFailed},
		{ID: "2", Name: "Life raft", Status: valueobject.EquipmentFailed},
		{ID: "3", Name: "Flares", Status: valueobject.EquipmentExpired},
		{ID: "4", Name: "Fire extinguisher", Status: valueobject.EquipmentOperational},
		{ID: "5", Name: "Life jackets", Status: valueobject.EquipmentOperational},
	}
	sink := &recordingSink{}
	uc := NewCheckEquipmentUseCase(newScorer(), SafetySources{Equipment: &fakeEquipment{items: items}},
		sink, nil, testSafetyConfig, logger.New("error"))

	got, err := uc.Execute(context.Background(), "vessel-1")
	require.NoError(t, err)

	assert.InDelta(t, 50, got.SafetyScore, 1e-9)
	require.NotNil(t, got.Equipment)
	assert.Equal(t, 2, got.Equipment.Failed)
	assert.Equal(t, 1, got.Equipment.Expired)
	require.Len(t, got.Recommendations, 2)
	assert.True(t, strings.HasPrefix(got.Recommendations[0], "Urgent"))
	assert.True(t, strings.HasPrefix(got.Recommendations[1], "Warning"))
	assert.Len(t, sink.assessments, 1)
}

func TestCheckEquipment_StoreFailure(t *testing.T) {
	uc := NewCheckEquipmentUseCase(newScorer(), SafetySources{Equipment: &fakeEquipment{err: errors.New("timeout")}},
		nil, nil, testSafetyConfig, logger.New("error"))

	_, err := uc.Execute(context.Background(), "vessel-1")
	assert.Error(t, err)

	_, err = uc.Execute(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestHandleEmergency_FullResponse(t *testing.T) {
	emergency := &fakeEmergency{
		protocols: []entity.EmergencyProtocol{
			{ID: "p1", Title: "Check bilge", Severity: 2},
			{ID: "p2", Title: "Abandon ship", Steps: []string{"Issue MAYDAY on channel 16"}, Severity: 5},
		},
		contacts: []entity.EmergencyContact{
			{ContactType: "general", Name: "MRCC", Active: true},
			{ContactType: "flooding", Name: "Old tug", Active: false},
		},
	}
	archive := &fakeArchive{}
	sink := &recordingSink{}
	sources := SafetySources{
		Emergency: emergency,
		Zones:     &fakeZones{zones: []entity.SafetyZone{zone("sar", valueobject.ZoneCoastGuard, 18)}},
		Reports:   archive,
	}
	uc := NewHandleEmergencyUseCase(newScorer(), sources, sink, nil, testSafetyConfig, logger.New("error"))

	got, err := uc.Execute(context.Background(), HandleEmergencyCommand{
		VesselID:      "vessel-1",
		EmergencyType: "flooding",
		Latitude:      43.6,
		Longitude:     7.1,
	})
	require.NoError(t, err)

	require.Len(t, got.Protocols, 2)
	assert.Equal(t, "p2", got.Protocols[0].ID)
	require.Len(t, got.Contacts, 1)
	assert.Equal(t, []string{"flooding", GeneralContactType}, emergency.askedTypes)
	require.Len(t, got.NearestServices, 1)

	require.NotNil(t, got.Recommendation)
	assert.Equal(t, "urgent", got.Recommendation.Priority)
	assert.Equal(t, 1, got.Recommendation.TimeSensitivityHours)
	assert.Equal(t, 24*time.Hour, got.Recommendation.ExpiresAt.Sub(got.HandledAt))
	require.Len(t, sink.recommendations, 1)

	require.Len(t, sink.alerts, 1)
	assert.Equal(t, valueobject.SeverityCritical, sink.alerts[0].Severity)

	require.Len(t, archive.reports, 1)
	report := archive.reports[0]
	assert.True(t, strings.HasPrefix(report.Key, "reports/emergencies/vessel-1/"))
	assert.True(t, strings.HasSuffix(report.Key, "_flooding.json"))
	assert.Equal(t, "vessel-1", report.VesselID)
	assert.Equal(t, "flooding", report.EmergencyType)
	var decoded dto.EmergencyResponseDTO
	require.NoError(t, json.Unmarshal(report.Body, &decoded))
	assert.Equal(t, "flooding", decoded.EmergencyType)
	assert.Equal(t, "https://reports.example.com/"+report.Key, got.ReportURL)
}

func TestHandleEmergency_ReportKeyStaysUnderPrefix(t *testing.T) {
	archive := &fakeArchive{}
	uc := NewHandleEmergencyUseCase(newScorer(), SafetySources{Reports: archive}, &recordingSink{}, nil,
		testSafetyConfig, logger.New("error"))

	_, err := uc.Execute(context.Background(), HandleEmergencyCommand{
		VesselID:      "../../evil",
		EmergencyType: "fire/../../../x",
		Latitude:      43.6,
		Longitude:     7.1,
	})
	require.NoError(t, err)

	require.Len(t, archive.reports, 1)
	key := archive.reports[0].Key
	assert.True(t, strings.HasPrefix(key, "reports/emergencies/"), key)
	assert.NotContains(t, key, "..")
	assert.Equal(t, 3, strings.Count(key, "/"), key)
	assert.Equal(t, "../../evil", archive.reports[0].VesselID)
}

func TestReportKeySegment(t *testing.T) {
	assert.Equal(t, "vessel-1", reportKeySegment("vessel-1"))
	assert.Equal(t, "man_overboard", reportKeySegment("man_overboard"))
	assert.Equal(t, "______evil", reportKeySegment("../../evil"))
	assert.Equal(t, "a_b_c", reportKeySegment("a b\\c"))
}

func TestHandleEmergency_DegradedLookups(t *testing.T) {
	sources := SafetySources{
		Emergency: &fakeEmergency{protocolsErr: errors.New("db down")},
		Reports:   &fakeArchive{err: errors.New("bucket missing")},
	}
	sink := &recordingSink{}
	uc := NewHandleEmergencyUseCase(newScorer(), sources, sink, nil, testSafetyConfig, logger.New("error"))

	got, err := uc.Execute(context.Background(), HandleEmergencyCommand{
		VesselID:      "vessel-1",
		EmergencyType: "fire",
		Latitude:      43.6,
		Longitude:     7.1,
	})
	require.NoError(t, err)

	assert.Empty(t, got.Protocols)
	assert.Equal(t, []string{CheckProtocols, CheckServices, CheckReportArchive}, got.SkippedChecks)
	assert.Empty(t, got.ReportURL)
	assert.Len(t, sink.alerts, 1)
	assert.Contains(t, got.Recommendation.Description, "VHF channel 16")
}

func TestHandleEmergency_RequiresType(t *testing.T) {
	uc := NewHandleEmergencyUseCase(newScorer(), SafetySources{}, nil, nil, testSafetyConfig, logger.New("error"))

	_, err := uc.Execute(context.Background(), HandleEmergencyCommand{VesselID: "vessel-1", Latitude: 1, Longitude: 1})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
