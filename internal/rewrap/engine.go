// Package rewrap реализует движок пакетной миграции обёрнутых ключей при
// ротации гибридной ключевой пары пользователя: каждый ключ
// разворачивается старой парой, заворачивается новой и записывается на
// место. Движок работает поверх абстрактного источника, поэтому одинаково
// ходит и в gorm-репозиторий, и в HTTP-бэкенд клиента.
package rewrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"MediaKeeper/internal/crypto"
	"MediaKeeper/internal/keywrap"
)

// Значения по умолчанию для конфигурации движка.
const (
	DefaultBatchSize  = 10
	DefaultMaxRetries = 3
	DefaultBackoff    = 100 * time.Millisecond
)

// Item — одна запись wrapped-key, подлежащая перевёртке.
type Item struct {
	LicenseID  string
	WrappedKey string
}

// LicenseSource — хранилище, по которому идёт движок.
type LicenseSource interface {
	// ListKeys возвращает все записи wrapped-key, которыми владеет пользователь.
	ListKeys(ctx context.Context, userID string) ([]Item, error)

	// PutKey перезаписывает запись пользователя в лицензии.
	PutKey(ctx context.Context, licenseID, userID, wrappedKey, method, publicKeyID string) error
}

// Config — параметры одного прогона.
type Config struct {
	BatchSize  int           // размер батча и потолок одновременных обработок; 0 = DefaultBatchSize
	MaxRetries int           // попыток на элемент; 0 = DefaultMaxRetries
	Backoff    time.Duration // базовая задержка, растёт линейно с номером попытки; 0 = DefaultBackoff

	// StopOnError останавливает обработку после первого батча с отказами.
	// По умолчанию (false) отказы собираются, прогон продолжается.
	StopOnError bool

	// Progress, если задан, получает событие после каждого батча.
	// Канал потребляет вызывающий; глобальных слушателей нет.
	Progress chan<- ProgressEvent
}

// ProgressEvent — снимок прогресса после очередного батча.
type ProgressEvent struct {
	Completed    int
	Total        int
	Failed       int
	Percentage   float64
	CurrentBatch int
	TotalBatches int
}

// ItemError — отказ по одному элементу с числом израсходованных попыток.
type ItemError struct {
	LicenseID string
	Attempts  int
	Err       error
}

// Result — итог прогона. При отмене по контексту возвращается частичный
// результат с Canceled=true, а не ошибка.
type Result struct {
	Success   bool
	Total     int
	ReWrapped int
	Skipped   int // legacy-обёртки: парольная обёртка не адресована паре
	Failed    int
	Canceled  bool
	Duration  time.Duration
	Errors    []ItemError
}

// Состояния одного прогона движка.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateProcessing
	StateCompleted
	StateFailed
)

// Engine — движок перевёртки. Экземпляр рассчитан на один прогон.
type Engine struct {
	source LicenseSource
	logger *zap.SugaredLogger
	cfg    Config

	mu    sync.Mutex
	state State
}

// NewEngine создаёт движок с нормализованной конфигурацией.
func NewEngine(source LicenseSource, logger *zap.SugaredLogger, cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Engine{source: source, logger: logger, cfg: cfg, state: StateIdle}
}

// State возвращает текущее состояние прогона.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// terminal сообщает, что отказ детерминирован и повторять его бессмысленно:
// криптографический мисматч или неразбираемый формат ключа. Повторяются
// только отказы «транзитной» формы — I/O хранилища и транспорта.
func terminal(err error) bool {
	return errors.Is(err, crypto.ErrKeyMismatch) || errors.Is(err, keywrap.ErrMalformedKey)
}

type itemOutcome int

const (
	outcomeReWrapped itemOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// processItem перевёртывает один элемент с ретраями.
func (e *Engine) processItem(ctx context.Context, userID string, it Item, oldKP, newKP *crypto.HybridKeypair) (itemOutcome, ItemError) {
	wk, err := keywrap.DecodeString(it.WrappedKey)
	if err != nil {
		return outcomeFailed, ItemError{LicenseID: it.LicenseID, Attempts: 1, Err: err}
	}
	if wk.Kind == keywrap.Legacy {
		// парольная обёртка пары не касается — при ротации остаётся как есть
		return outcomeSkipped, ItemError{}
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		lastErr = e.reWrapOnce(ctx, userID, it.LicenseID, wk.HybridData, oldKP, newKP)
		if lastErr == nil {
			return outcomeReWrapped, ItemError{}
		}
		if terminal(lastErr) {
			return outcomeFailed, ItemError{LicenseID: it.LicenseID, Attempts: attempt, Err: lastErr}
		}
		// линейный backoff: base × номер попытки
		select {
		case <-time.After(e.cfg.Backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return outcomeFailed, ItemError{LicenseID: it.LicenseID, Attempts: attempt, Err: ctx.Err()}
		}
	}
	return outcomeFailed, ItemError{LicenseID: it.LicenseID, Attempts: e.cfg.MaxRetries, Err: lastErr}
}

// reWrapOnce — одна попытка: unwrap старой парой, wrap новой, запись.
// Промежуточный медиа-ключ затирается до выхода.
func (e *Engine) reWrapOnce(ctx context.Context, userID, licenseID string, ct *crypto.HybridCiphertext, oldKP, newKP *crypto.HybridKeypair) error {
	mediaKey, err := crypto.Unwrap(ct, oldKP)
	if err != nil {
		return err
	}
	defer crypto.Zeroize(mediaKey)

	newCT, err := crypto.Wrap(mediaKey, newKP.Public())
	if err != nil {
		return err
	}
	encoded, err := keywrap.NewHybrid(newCT).EncodeString()
	if err != nil {
		return err
	}
	return e.source.PutKey(ctx, licenseID, userID, encoded, "hybrid", newKP.Current.KeyID)
}

// Run выполняет полный прогон перевёртки для пользователя.
// Батчи строго последовательны; внутри батча элементы обрабатываются
// конкурентно, не более BatchSize в полёте. Контекст проверяется между
// батчами: отмена возвращает частичный результат.
func (e *Engine) Run(ctx context.Context, userID string, oldKP, newKP *crypto.HybridKeypair) (*Result, error) {
	start := time.Now()
	res := &Result{}

	e.setState(StateFetching)
	items, err := e.source.ListKeys(ctx, userID)
	if err != nil {
		e.setState(StateFailed)
		return nil, fmt.Errorf("list wrapped keys: %w", err)
	}
	res.Total = len(items)
	totalBatches := (len(items) + e.cfg.BatchSize - 1) / e.cfg.BatchSize

	e.setState(StateProcessing)
	if e.logger != nil {
		e.logger.Infow("rewrap run started",
			"user_id", userID, "total", res.Total, "batches", totalBatches)
	}

batches:
	for batch := 0; batch < totalBatches; batch++ {
		select {
		case <-ctx.Done():
			res.Canceled = true
			break batches
		default:
		}

		lo := batch * e.cfg.BatchSize
		hi := lo + e.cfg.BatchSize
		if hi > len(items) {
			hi = len(items)
		}
		chunk := items[lo:hi]

		outcomes := make([]itemOutcome, len(chunk))
		itemErrs := make([]ItemError, len(chunk))
		var g errgroup.Group
		g.SetLimit(e.cfg.BatchSize)
		for i, it := range chunk {
			g.Go(func() error {
				outcomes[i], itemErrs[i] = e.processItem(ctx, userID, it, oldKP, newKP)
				return nil
			})
		}
		_ = g.Wait() // per-item отказы собраны в itemErrs

		batchFailed := 0
		for i := range chunk {
			switch outcomes[i] {
			case outcomeReWrapped:
				res.ReWrapped++
			case outcomeSkipped:
				res.Skipped++
			case outcomeFailed:
				res.Failed++
				batchFailed++
				res.Errors = append(res.Errors, itemErrs[i])
			}
		}

		if e.cfg.Progress != nil {
			ev := ProgressEvent{
				Completed:    res.ReWrapped + res.Skipped,
				Total:        res.Total,
				Failed:       res.Failed,
				CurrentBatch: batch + 1,
				TotalBatches: totalBatches,
			}
			if res.Total > 0 {
				ev.Percentage = float64(res.ReWrapped+res.Skipped+res.Failed) / float64(res.Total) * 100
			}
			select {
			case e.cfg.Progress <- ev:
			case <-ctx.Done():
				res.Canceled = true
				break batches
			}
		}

		if e.cfg.StopOnError && batchFailed > 0 {
			if e.logger != nil {
				e.logger.Warnw("rewrap aborted after failing batch",
					"user_id", userID, "batch", batch+1, "failed", res.Failed)
			}
			break batches
		}
	}

	res.Duration = time.Since(start)
	res.Success = res.Failed == 0 || !e.cfg.StopOnError
	if res.Failed == 0 && !res.Canceled {
		e.setState(StateCompleted)
	} else if res.Failed > 0 && e.cfg.StopOnError {
		e.setState(StateFailed)
	} else {
		e.setState(StateCompleted)
	}
	if e.logger != nil {
		e.logger.Infow("rewrap run finished",
			"user_id", userID, "rewrapped", res.ReWrapped, "skipped", res.Skipped,
			"failed", res.Failed, "canceled", res.Canceled, "duration", res.Duration)
	}
	return res, nil
}
