package valueobject

import (
	"errors"
	"fmt"
	"math"
)

// Measurement представляет показание датчика с единицей измерения (Value Object)
// Иммутабельный объект. Отрицательные значения допустимы (температура, ток).
type Measurement struct {
	value float64
	unit  string
}

// NewMeasurement создает новый Measurement с валидацией
func NewMeasurement(value float64, unit string) (Measurement, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Measurement{}, errors.New("value must be a finite number")
	}

	return Measurement{
		value: value,
		unit:  unit,
	}, nil
}

// Raw возвращает числовое значение
func (m Measurement) Raw() float64 {
	return m.value
}

// Unit возвращает единицу измерения (может быть пустой)
func (m Measurement) Unit() string {
	return m.unit
}

// String возвращает строковое представление
func (m Measurement) String() string {
	if m.unit == "" {
		return fmt.Sprintf("%.2f", m.value)
	}
	return fmt.Sprintf("%.2f %s", m.value, m.unit)
}
