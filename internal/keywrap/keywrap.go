// Package keywrap задаёт тип обёрнутого ключа как явное тегированное
// объединение: Legacy (непрозрачная парольная обёртка) либо Hybrid
// (структура гибридной KEM-обёртки). На проводе тип по-прежнему
// определяется структурно — строка, начинающаяся с '{', это JSON
// HybridCiphertext, всё остальное — base64 legacy-блоба. Эвристика
// живёт только здесь, в адаптере декодирования: оба формата обязаны
// приниматься бессрочно ради уже выпущенных лицензий.
package keywrap

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"MediaKeeper/internal/crypto"
)

// ErrMalformedKey — строка не декодируется ни одним из известных форматов.
// JSON с синтаксической ошибкой не «падает» в legacy: ведущая скобка
// однозначно выбирает гибридный путь.
var ErrMalformedKey = errors.New("malformed wrapped key")

// Kind — дискриминант объединения.
type Kind int

const (
	Legacy Kind = iota
	Hybrid
)

// WrappedKey — обёрнутый медиа-ключ одного из двух форматов.
type WrappedKey struct {
	Kind       Kind
	LegacyData []byte                   // заполнено при Kind == Legacy
	HybridData *crypto.HybridCiphertext // заполнено при Kind == Hybrid
}

// NewLegacy собирает legacy-вариант.
func NewLegacy(data []byte) WrappedKey {
	return WrappedKey{Kind: Legacy, LegacyData: data}
}

// NewHybrid собирает гибридный вариант.
func NewHybrid(ct *crypto.HybridCiphertext) WrappedKey {
	return WrappedKey{Kind: Hybrid, HybridData: ct}
}

// DecodeString разбирает строку обёрнутого ключа с границы (upload/share).
func DecodeString(s string) (WrappedKey, error) {
	if s == "" {
		return WrappedKey{}, fmt.Errorf("%w: empty string", ErrMalformedKey)
	}
	if strings.HasPrefix(s, "{") {
		var ct crypto.HybridCiphertext
		if err := json.Unmarshal([]byte(s), &ct); err != nil {
			return WrappedKey{}, fmt.Errorf("%w: hybrid json: %v", ErrMalformedKey, err)
		}
		if len(ct.KEMCiphertext) == 0 || len(ct.Wrapped) == 0 {
			return WrappedKey{}, fmt.Errorf("%w: hybrid ciphertext missing fields", ErrMalformedKey)
		}
		return NewHybrid(&ct), nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return WrappedKey{}, fmt.Errorf("%w: legacy base64: %v", ErrMalformedKey, err)
	}
	if len(raw) == 0 {
		return WrappedKey{}, fmt.Errorf("%w: empty legacy payload", ErrMalformedKey)
	}
	return NewLegacy(raw), nil
}

// EncodeString сериализует обёрнутый ключ обратно в проводной вид.
func (w WrappedKey) EncodeString() (string, error) {
	switch w.Kind {
	case Legacy:
		if len(w.LegacyData) == 0 {
			return "", fmt.Errorf("%w: empty legacy payload", ErrMalformedKey)
		}
		return base64.StdEncoding.EncodeToString(w.LegacyData), nil
	case Hybrid:
		if w.HybridData == nil {
			return "", fmt.Errorf("%w: nil hybrid ciphertext", ErrMalformedKey)
		}
		b, err := json.Marshal(w.HybridData)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("%w: unknown kind %d", ErrMalformedKey, w.Kind)
	}
}

// Method возвращает имя метода обёртки для хранения рядом с ключом.
func (w WrappedKey) Method() string {
	if w.Kind == Hybrid {
		return "hybrid"
	}
	return "password"
}
