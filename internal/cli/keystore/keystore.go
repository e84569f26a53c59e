// Package keystore хранит гибридную ключевую пару пользователя на диске
// клиента. Сервер приватного материала не видит: пара живёт только здесь
// и передаётся в wrap/unwrap как непрозрачная возможность.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"MediaKeeper/internal/crypto"
)

// Store — файловое хранилище ключевой пары в каталоге клиента.
type Store struct {
	Dir string
}

// ErrNoKeypair — пара ещё не создана.
var ErrNoKeypair = errors.New("no keypair in keystore")

func (s Store) pairPath(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("empty user id for keystore path")
	}
	dir := filepath.Join(s.Dir, "users", userID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "hybrid_keypair.json"), nil
}

// Load читает сохранённую пару пользователя.
func (s Store) Load(userID string) (*crypto.HybridKeypair, error) {
	p, err := s.pairPath(userID)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoKeypair
		}
		return nil, err
	}
	var kp crypto.HybridKeypair
	if err := json.Unmarshal(b, &kp); err != nil {
		return nil, fmt.Errorf("corrupt keypair file: %w", err)
	}
	if kp.Current == nil {
		return nil, fmt.Errorf("corrupt keypair file: no current key")
	}
	return &kp, nil
}

// Save пишет пару с ограниченными правами доступа.
func (s Store) Save(userID string, kp *crypto.HybridKeypair) error {
	p, err := s.pairPath(userID)
	if err != nil {
		return err
	}
	b, err := json.Marshal(kp)
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

// LoadOrCreate возвращает существующую пару либо генерирует и сохраняет новую.
func (s Store) LoadOrCreate(userID string) (*crypto.HybridKeypair, bool, error) {
	kp, err := s.Load(userID)
	if err == nil {
		return kp, false, nil
	}
	if !errors.Is(err, ErrNoKeypair) {
		return nil, false, err
	}
	kp, err = crypto.GenerateKeypair()
	if err != nil {
		return nil, false, err
	}
	if err := s.Save(userID, kp); err != nil {
		return nil, false, err
	}
	return kp, true, nil
}

// Rotate выпускает новую текущую версию пары и сохраняет её; старая
// текущая остаётся предыдущей для grace-периода. Возвращает старую и
// новую пары — обе нужны rewrap-движку.
func (s Store) Rotate(userID string) (old, fresh *crypto.HybridKeypair, err error) {
	old, err = s.Load(userID)
	if err != nil {
		return nil, nil, err
	}
	fresh, err = old.Rotate()
	if err != nil {
		return nil, nil, err
	}
	if err := s.Save(userID, fresh); err != nil {
		return nil, nil, err
	}
	return old, fresh, nil
}
