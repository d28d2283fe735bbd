package port

import "github.com/dreschagin/vessel-guard/internal/application/dto"

// LiveFeed доставляет события консолям, подключенным прямо сейчас.
// Доставка best-effort: медленный получатель теряет события, вызывающий не ждет.
type LiveFeed interface {
	PushVerdict(verdict *dto.AnomalyVerdictDTO)
	PushAlert(alert *dto.AlertDTO)
}
