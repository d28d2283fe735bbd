package port

import "context"

// EmergencyReport сериализованный отчет об ЧС
type EmergencyReport struct {
	Key           string
	VesselID      string
	EmergencyType string
	Body          []byte // JSON
}

// ReportArchive долговременное хранилище отчетов об ЧС.
// Archive возвращает ссылку, по которой отчет может прочитать береговая служба.
type ReportArchive interface {
	Archive(ctx context.Context, report EmergencyReport) (string, error)
}
