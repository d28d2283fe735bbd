package valueobject

// EquipmentStatus is the operational status of a safety equipment item.
// The set is open: unknown statuses are treated as neither failed nor expired.
type EquipmentStatus string

const (
	EquipmentOperational EquipmentStatus = "operational"
	EquipmentFailed      EquipmentStatus = "failed"
	EquipmentExpired     EquipmentStatus = "expired"
	EquipmentMaintenance EquipmentStatus = "maintenance"
)

func (s EquipmentStatus) String() string {
	return string(s)
}
