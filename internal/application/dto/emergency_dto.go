package dto

import (
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
)

type ProtocolDTO struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Steps    []string `json:"steps"`
	Severity int      `json:"severity"`
}

type ContactDTO struct {
	ContactType  string `json:"contactType"`
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	RadioChannel string `json:"radioChannel,omitempty"`
}

type RecommendationDTO struct {
	ID                   string    `json:"id"`
	RecommendationType   string    `json:"recommendationType"`
	Priority             string    `json:"priority"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	TimeSensitivityHours int       `json:"timeSensitivityHours"`
	ExpiresAt            time.Time `json:"expiresAt"`
}

// EmergencyResponseDTO ответ на сигнал бедствия
type EmergencyResponseDTO struct {
	VesselID        string             `json:"vesselId"`
	EmergencyType   string             `json:"emergencyType"`
	Position        PositionDTO        `json:"position"`
	Protocols       []ProtocolDTO      `json:"protocols"`
	Contacts        []ContactDTO       `json:"contacts"`
	NearestServices []ZoneDTO          `json:"nearestServices"`
	Recommendation  *RecommendationDTO `json:"recommendation,omitempty"`
	SkippedChecks   []string           `json:"skippedChecks,omitempty"`
	ReportURL       string             `json:"reportUrl,omitempty"`
	HandledAt       time.Time          `json:"handledAt"`
}

// FromEmergencyResponse конвертирует Domain Entity в DTO
func FromEmergencyResponse(r *entity.EmergencyResponse) *EmergencyResponseDTO {
	out := &EmergencyResponseDTO{
		VesselID:        r.VesselID,
		EmergencyType:   r.EmergencyType,
		Position:        fromPosition(r.Position),
		Protocols:       make([]ProtocolDTO, 0, len(r.Protocols)),
		Contacts:        make([]ContactDTO, 0, len(r.Contacts)),
		NearestServices: FromZones(r.NearestServices),
		SkippedChecks:   r.SkippedChecks,
		ReportURL:       r.ReportURL,
		HandledAt:       r.HandledAt,
	}
	if out.NearestServices == nil {
		out.NearestServices = []ZoneDTO{}
	}
	for _, p := range r.Protocols {
		out.Protocols = append(out.Protocols, ProtocolDTO{ID: p.ID, Title: p.Title, Steps: p.Steps, Severity: p.Severity})
	}
	for _, c := range r.Contacts {
		out.Contacts = append(out.Contacts, ContactDTO{
			ContactType:  c.ContactType,
			Name:         c.Name,
			Phone:        c.Phone,
			RadioChannel: c.RadioChannel,
		})
	}
	if rec := r.Recommendation; rec != nil {
		out.Recommendation = &RecommendationDTO{
			ID:                   rec.ID,
			RecommendationType:   rec.RecommendationType,
			Priority:             rec.Priority,
			Title:                rec.Title,
			Description:          rec.Description,
			TimeSensitivityHours: rec.TimeSensitivityHours,
			ExpiresAt:            rec.ExpiresAt,
		}
	}
	return out
}
