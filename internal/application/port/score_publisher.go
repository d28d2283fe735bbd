package port

import (
	"context"
	"time"
)

// ScoreDatum одна точка для внешней системы метрик: балл безопасности,
// уверенность детектора, риск отказа
type ScoreDatum struct {
	Name       string
	Value      float64
	Unit       string
	Dimensions map[string]string
	Timestamp  time.Time // нулевое значение = момент записи
}

// ScoreRecorder принимает баллы движков. Реализация вправе агрегировать
// точки и отправлять их позже; ошибка означает, что точки отвергнуты.
type ScoreRecorder interface {
	Record(ctx context.Context, data ...ScoreDatum) error
}
