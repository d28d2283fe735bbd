package entity

import (
	"errors"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/google/uuid"
)

const (
	RecommendationTypeEmergency = "emergency"
	PriorityUrgent              = "urgent"

	// EmergencyTimeSensitivity и EmergencyExpiry задают срок жизни экстренной рекомендации.
	EmergencyTimeSensitivity = time.Hour
	EmergencyExpiry          = 24 * time.Hour
)

// Recommendation сохраненная рекомендация для экипажа судна
type Recommendation struct {
	ID                   string
	VesselID             string
	RecommendationType   string
	Priority             string
	Title                string
	Description          string
	TimeSensitivityHours int
	ExpiresAt            time.Time
	CreatedAt            time.Time
	Metadata             map[string]interface{}
}

// NewEmergencyRecommendation создает срочную рекомендацию с окном 1 час и сроком 24 часа
func NewEmergencyRecommendation(
	vesselID, emergencyType string,
	protocols []EmergencyProtocol,
	services []SafetyZone,
	now time.Time,
) (*Recommendation, error) {
	if strings.TrimSpace(vesselID) == "" {
		return nil, errors.New("vessel id is required")
	}
	if strings.TrimSpace(emergencyType) == "" {
		return nil, errors.New("emergency type is required")
	}

	description := "Follow emergency procedures and contact the coast guard on VHF channel 16."
	if len(protocols) > 0 {
		description = "Follow protocol: " + protocols[0].Title
		if len(protocols[0].Steps) > 0 {
			description += ". First step: " + protocols[0].Steps[0]
		}
	}
	if len(services) > 0 {
		description += ". Nearest service: " + services[0].Name
	}

	return &Recommendation{
		ID:                   uuid.New().String(),
		VesselID:             vesselID,
		RecommendationType:   RecommendationTypeEmergency,
		Priority:             PriorityUrgent,
		Title:                "Emergency: " + strings.ReplaceAll(emergencyType, "_", " "),
		Description:          description,
		TimeSensitivityHours: int(EmergencyTimeSensitivity / time.Hour),
		ExpiresAt:            now.Add(EmergencyExpiry),
		CreatedAt:            now,
		Metadata: map[string]interface{}{
			"emergency_type":  emergencyType,
			"protocol_count":  len(protocols),
			"nearest_service": len(services),
		},
	}, nil
}

// EmergencyResponse результат обработки чрезвычайной ситуации
type EmergencyResponse struct {
	VesselID        string
	EmergencyType   string
	Position        valueobject.Position
	Protocols       []EmergencyProtocol
	Contacts        []EmergencyContact
	NearestServices []SafetyZone
	Recommendation  *Recommendation
	SkippedChecks   []string
	ReportURL       string
	HandledAt       time.Time
}
