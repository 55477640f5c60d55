package storage

import (
	"context"
)

// Storage определяет интерфейс строкового хранилища ключ-значение.
// Постоянное хранилище клиента (sqlite, postgres) и хранилище текущего
// сеанса (память) реализуют один и тот же интерфейс.
type Storage interface {
	// Get возвращает значение по ключу и признак его наличия.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set сохраняет значение, перезаписывая существующее.
	Set(ctx context.Context, key, value string) error

	// Delete удаляет ключ. Отсутствующий ключ не считается ошибкой.
	Delete(ctx context.Context, key string) error

	// Keys возвращает отсортированный список ключей с заданным префиксом.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
