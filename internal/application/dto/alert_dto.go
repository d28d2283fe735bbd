package dto

import "time"

// AlertDTO представляет alert для отправки клиентам и в брокер
type AlertDTO struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Level     string      `json:"level"` // severity: "high", "critical"
	Source    string      `json:"source"`
	VesselID  string      `json:"vesselId,omitempty"`
	Message   string      `json:"message"`
	Payload   interface{} `json:"payload,omitempty"`
}
