package service

import "errors"

// ErrInvalidInput нарушение контракта вызова: пустое окно, нет позиции и т.п.
// Только эта ошибка доходит до клиента как отказ в оценке.
var ErrInvalidInput = errors.New("invalid input")
