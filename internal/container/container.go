// Package container реализует самоописывающий бинарный формат пакета для
// внеполосной передачи зашифрованного элемента:
//
//	[4 байта big-endian: длина JSON][UTF-8 JSON метаданные][шифртекст]
package container

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed — буфер не является корректным контейнером: префикс длины
// выходит за границы буфера либо метаданные не парсятся как JSON.
var ErrMalformed = errors.New("malformed container")

const headerLen = 4

// Encode собирает контейнер из метаданных и шифртекста.
// Закон round-trip: Decode(Encode(m, c)) == (m, c) для любого
// JSON-сериализуемого m и любого c, включая пустой.
func Encode(metadata map[string]any, ciphertext []byte) ([]byte, error) {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	out := make([]byte, headerLen+len(meta)+len(ciphertext))
	binary.BigEndian.PutUint32(out[:headerLen], uint32(len(meta)))
	copy(out[headerLen:], meta)
	copy(out[headerLen+len(meta):], ciphertext)
	return out, nil
}

// Decode разбирает контейнер обратно на метаданные и шифртекст.
func Decode(buf []byte) (map[string]any, []byte, error) {
	if len(buf) < headerLen {
		return nil, nil, fmt.Errorf("%w: buffer shorter than length prefix", ErrMalformed)
	}
	metaLen := binary.BigEndian.Uint32(buf[:headerLen])
	if uint64(metaLen) > uint64(len(buf)-headerLen) {
		return nil, nil, fmt.Errorf("%w: metadata length %d exceeds buffer", ErrMalformed, metaLen)
	}
	var metadata map[string]any
	if err := json.Unmarshal(buf[headerLen:headerLen+int(metaLen)], &metadata); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid metadata json: %v", ErrMalformed, err)
	}
	return metadata, buf[headerLen+int(metaLen):], nil
}
