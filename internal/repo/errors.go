package repo

import "errors"

// Таксономия ошибок хранилища лицензий. Хендлеры переводят их в HTTP-коды,
// rewrap-движок различает по ним терминальные и повторяемые отказы.
var (
	// ErrNotFound — лицензия или blob отсутствуют.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied — у запрашивающего нет записи в wrapped-key карте.
	// Снаружи неотличимо от отсутствия лицензии: нельзя раскрывать,
	// какие лицензии существуют.
	ErrAccessDenied = errors.New("access denied")

	// ErrDuplicateLicense — ID лицензии уже занят другим владельцем
	// (защита от подмены владения при коллизии хеша).
	ErrDuplicateLicense = errors.New("duplicate license id under different owner")

	// ErrStorage — отказ I/O бэкенда; повторяемая ошибка.
	ErrStorage = errors.New("storage failure")
)
