package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/repository"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testStart = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seriesKey = repository.SeriesKey{VesselID: "v-1", ParameterName: "engine_temp"}
)

func newMock(t *testing.T) (sqlmock.Sqlmock, *PostgresTelemetryRepository, *ReferenceRepository, *RecordRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewPostgresTelemetryRepository(db), NewReferenceRepository(db), NewRecordRepository(db)
}

func telemetryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "vessel_id", "parameter_name", "value", "unit", "metadata", "recorded_at", "created_at"})
}

func TestTelemetryRepository_SaveBatch(t *testing.T) {
	mock, repo, _, _ := newMock(t)

	value, err := valueobject.NewMeasurement(88.5, "C")
	require.NoError(t, err)
	reading, err := entity.NewTelemetryReading("v-1", "engine_temp", value, testStart)
	require.NoError(t, err)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO telemetry_readings")
	prep.ExpectExec().
		WithArgs(reading.ID(), "v-1", "engine_temp", 88.5, "C", sqlmock.AnyArg(), testStart, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveBatch(context.Background(), []*entity.TelemetryReading{reading}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTelemetryRepository_SaveBatchRollsBackOnError(t *testing.T) {
	mock, repo, _, _ := newMock(t)

	value, _ := valueobject.NewMeasurement(1, "")
	reading, _ := entity.NewTelemetryReading("v-1", "battery_voltage", value, testStart)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO telemetry_readings").
		ExpectExec().
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SaveBatch(context.Background(), []*entity.TelemetryReading{reading})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTelemetryRepository_SaveBatchEmpty(t *testing.T) {
	mock, repo, _, _ := newMock(t)

	require.NoError(t, repo.SaveBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTelemetryRepository_FindWindowReturnsOldestFirst(t *testing.T) {
	mock, repo, _, _ := newMock(t)

	rows := telemetryRows().
		AddRow("r-3", "v-1", "engine_temp", 92.0, "C", nil, testStart.Add(2*time.Minute), testStart).
		AddRow("r-2", "v-1", "engine_temp", 90.0, "C", []byte(`{"sensor":"aft"}`), testStart.Add(time.Minute), testStart).
		AddRow("r-1", "v-1", "engine_temp", 88.0, "C", nil, testStart, testStart)
	mock.ExpectQuery("ORDER BY recorded_at DESC").
		WithArgs("v-1", "engine_temp", 3).
		WillReturnRows(rows)

	readings, err := repo.FindWindow(context.Background(), seriesKey, 3)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, "r-1", readings[0].ID())
	assert.Equal(t, "r-3", readings[2].ID())
	assert.Equal(t, "aft", readings[1].Metadata()["sensor"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTelemetryRepository_AggregateBaseline(t *testing.T) {
	tr, err := valueobject.LookbackDays(testStart, 30)
	require.NoError(t, err)

	t.Run("returns baseline", func(t *testing.T) {
		mock, repo, _, _ := newMock(t)
		mock.ExpectQuery("STDDEV_POP").
			WithArgs("v-1", "engine_temp", tr.From(), tr.To()).
			WillReturnRows(sqlmock.NewRows([]string{"count", "avg", "stddev"}).AddRow(120, 85.5, 2.25))

		baseline, err := repo.AggregateBaseline(context.Background(), seriesKey, tr)
		require.NoError(t, err)
		require.NotNil(t, baseline)
		assert.Equal(t, 120, baseline.SampleCount())
		assert.InDelta(t, 85.5, baseline.Mean(), 1e-9)
		assert.InDelta(t, 2.25, baseline.StdDev(), 1e-9)
	})

	t.Run("no readings", func(t *testing.T) {
		mock, repo, _, _ := newMock(t)
		mock.ExpectQuery("STDDEV_POP").
			WillReturnRows(sqlmock.NewRows([]string{"count", "avg", "stddev"}).AddRow(0, 0.0, 0.0))

		baseline, err := repo.AggregateBaseline(context.Background(), seriesKey, tr)
		require.NoError(t, err)
		assert.Nil(t, baseline)
	})
}

func TestTelemetryRepository_FindActiveSeriesAndDelete(t *testing.T) {
	mock, repo, _, _ := newMock(t)

	mock.ExpectQuery("GROUP BY vessel_id, parameter_name").
		WithArgs(testStart, 10).
		WillReturnRows(sqlmock.NewRows([]string{"vessel_id", "parameter_name"}).
			AddRow("v-1", "engine_temp").
			AddRow("v-2", "oil_pressure"))
	mock.ExpectExec("DELETE FROM telemetry_readings").
		WithArgs(testStart).
		WillReturnResult(sqlmock.NewResult(0, 42))

	keys, err := repo.FindActiveSeries(context.Background(), testStart, 10)
	require.NoError(t, err)
	assert.Equal(t, []repository.SeriesKey{
		{VesselID: "v-1", ParameterName: "engine_temp"},
		{VesselID: "v-2", ParameterName: "oil_pressure"},
	}, keys)

	deleted, err := repo.DeleteOlderThan(context.Background(), testStart)
	require.NoError(t, err)
	assert.Equal(t, int64(42), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepository_NearestZones(t *testing.T) {
	mock, _, refs, _ := newMock(t)
	position, err := valueobject.NewPosition(43.7, 7.42)
	require.NoError(t, err)

	mock.ExpectQuery("FROM safety_zones").
		WithArgs(43.7, 7.42, sqlmock.AnyArg(), 100.0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "zone_type", "latitude", "longitude", "radius_km", "is_active", "description", "distance_km"}).
			AddRow("z-1", "Port Hercule", "marina", 43.73, 7.42, nil, true, nil, 3.3))

	zones, err := refs.NearestZones(context.Background(), position, valueobject.SafeHarborZoneTypes(), 100)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, valueobject.ZoneMarina, zones[0].ZoneType)
	assert.InDelta(t, 3.3, zones[0].DistanceKm, 1e-9)
	assert.Empty(t, zones[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepository_NearestZonesReturnsEveryZoneInRadius(t *testing.T) {
	mock, _, refs, _ := newMock(t)
	position, err := valueobject.NewPosition(43.7, 7.42)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "name", "zone_type", "latitude", "longitude", "radius_km", "is_active", "description", "distance_km"})
	for i := range 25 {
		rows.AddRow(fmt.Sprintf("z-%d", i), fmt.Sprintf("Harbor %d", i), "safe_harbor", 43.7, 7.42, nil, true, nil, float64(i))
	}
	mock.ExpectQuery("ORDER BY distance_km ASC\\s*$").
		WithArgs(43.7, 7.42, sqlmock.AnyArg(), 100.0).
		WillReturnRows(rows)

	zones, err := refs.NearestZones(context.Background(), position, valueobject.SafeHarborZoneTypes(), 100)
	require.NoError(t, err)
	assert.Len(t, zones, 25)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepository_NearestZonesRejectsUnknownType(t *testing.T) {
	mock, _, refs, _ := newMock(t)
	position, _ := valueobject.NewPosition(0, 0)

	mock.ExpectQuery("FROM safety_zones").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "zone_type", "latitude", "longitude", "radius_km", "is_active", "description", "distance_km"}).
			AddRow("z-1", "Mystery", "volcano", 0.0, 0.0, 1.0, true, "", 0.0))

	_, err := refs.NearestZones(context.Background(), position, valueobject.HazardZoneTypes(), 50)
	assert.Error(t, err)
}

func TestReferenceRepository_BaselineScore(t *testing.T) {
	position, _ := valueobject.NewPosition(10, 20)

	t.Run("value", func(t *testing.T) {
		mock, _, refs, _ := newMock(t)
		mock.ExpectQuery("calculate_safety_score").
			WithArgs("v-1", 10.0, 20.0).
			WillReturnRows(sqlmock.NewRows([]string{"score"}).AddRow(72.5))

		score, ok, err := refs.BaselineScore(context.Background(), "v-1", position)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.InDelta(t, 72.5, score, 1e-9)
	})

	t.Run("null", func(t *testing.T) {
		mock, _, refs, _ := newMock(t)
		mock.ExpectQuery("calculate_safety_score").
			WillReturnRows(sqlmock.NewRows([]string{"score"}).AddRow(nil))

		_, ok, err := refs.BaselineScore(context.Background(), "v-1", position)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestReferenceRepository_EquipmentAndEmergency(t *testing.T) {
	mock, _, refs, _ := newMock(t)
	due := testStart.Add(-24 * time.Hour)

	mock.ExpectQuery("FROM safety_equipment").
		WithArgs("v-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "vessel_id", "name", "equipment_type", "status", "next_inspection_due"}).
			AddRow("e-1", "v-1", "Life raft", "liferaft", "operational", due).
			AddRow("e-2", "v-1", "EPIRB", "beacon", "failed", nil))
	mock.ExpectQuery("FROM emergency_protocols").
		WithArgs("fire").
		WillReturnRows(sqlmock.NewRows([]string{"id", "emergency_type", "title", "steps", "severity"}).
			AddRow("p-1", "fire", "Engine room fire", []byte(`{"Cut fuel","Discharge extinguisher"}`), 5))
	mock.ExpectQuery("FROM emergency_contacts").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "contact_type", "name", "phone", "radio_channel", "is_active"}).
			AddRow("c-1", "general", "MRCC", "+377 98 98 22 77", "16", true))

	items, err := refs.EquipmentFor(context.Background(), "v-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].InspectionOverdue(testStart))
	assert.Nil(t, items[1].NextInspectionDue)
	assert.Equal(t, valueobject.EquipmentFailed, items[1].Status)

	protocols, err := refs.ProtocolsFor(context.Background(), "fire")
	require.NoError(t, err)
	require.Len(t, protocols, 1)
	assert.Equal(t, []string{"Cut fuel", "Discharge extinguisher"}, protocols[0].Steps)

	contacts, err := refs.ActiveContacts(context.Background(), []string{"fire", "general"})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "16", contacts[0].RadioChannel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_SaveRecommendation(t *testing.T) {
	mock, _, _, records := newMock(t)

	rec, err := entity.NewEmergencyRecommendation("v-1", "man_overboard", nil, nil, testStart)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO recommendations").
		WithArgs(rec.ID, "v-1", "emergency", "urgent", rec.Title, rec.Description, 1,
			testStart.Add(24*time.Hour), sqlmock.AnyArg(), testStart).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, records.SaveRecommendation(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_SaveAssessment(t *testing.T) {
	mock, _, _, records := newMock(t)

	assessment, err := entity.NewSafetyAssessment(entity.SafetyAssessmentParams{
		VesselID:        "v-1",
		AssessmentType:  entity.AssessmentEquipment,
		SafetyScore:     50,
		RiskLevel:       valueobject.RiskModerate,
		Recommendations: []string{"Replace EPIRB"},
		AssessedAt:      testStart,
	})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO safety_assessments").
		WithArgs(assessment.ID(), sqlmock.AnyArg(), "equipment", nil, nil, 50.0, "moderate",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), testStart).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, records.SaveAssessment(context.Background(), assessment))
	assert.NoError(t, mock.ExpectationsWereMet())
}
