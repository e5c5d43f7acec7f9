// Package service реализует сессии оформления заказа и регистрации поверх движка расчёта и проверки.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marios-pizza/internal/catalog"
	"github.com/mmeshcher/marios-pizza/internal/model"
	"github.com/mmeshcher/marios-pizza/internal/pricing"
	"github.com/mmeshcher/marios-pizza/internal/receipt"
	"github.com/mmeshcher/marios-pizza/internal/repository"
	"github.com/mmeshcher/marios-pizza/internal/validation"
)

// Ключи, под которыми сессия сохраняет данные в хранилище.
const (
	DraftKey          = "marios_order_draft"
	LastReceiptKey    = "last_receipt"
	RegisteredUserKey = "registered_user"
)

// DefaultPlacementDelay задаёт искусственную задержку размещения заказа.
const DefaultPlacementDelay = 700 * time.Millisecond

// DefaultSessionTTL задаёт время простоя, после которого сессия выгружается из памяти.
const DefaultSessionTTL = 30 * time.Minute

var (
	// ErrPlacementPending возвращается при повторной отправке заказа во время размещения.
	ErrPlacementPending = errors.New("order placement already in progress")
	// ErrUnknownTopping возвращается при выборе топпинга, отсутствующего в каталоге.
	ErrUnknownTopping = errors.New("unknown topping")
	// ErrUnknownSide возвращается при изменении количества гарнира, отсутствующего в каталоге.
	ErrUnknownSide = errors.New("unknown side")
	// ErrMalformedPatch возвращается, если изменения черновика не удалось разобрать.
	ErrMalformedPatch = errors.New("malformed draft patch")
)

// ValidationError содержит ошибки полей, блокирующие отправку формы.
type ValidationError struct {
	Errors validation.Errors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(slices.Sorted(maps.Keys(e.Errors)), ", ")
}

// Store описывает хранилище ключ-значение, разделённое по сессиям.
type Store interface {
	Close() error
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Put(ctx context.Context, scope, key string, value []byte) error
	Delete(ctx context.Context, scope, key string) error
}

// Service хранит общие для всех сессий зависимости и реестр сессий.
type Service struct {
	store      Store
	catalog    *catalog.Catalog
	calculator *pricing.Calculator
	builder    *receipt.Builder
	logger     *zap.Logger
	delay      time.Duration
	sleep      func(time.Duration)
	sessionTTL time.Duration
	now        func() time.Time

	mu        sync.Mutex
	sessions  map[string]*Session
	lastSweep time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithPlacementDelay задаёт задержку размещения заказа.
func WithPlacementDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

// WithReceiptBuilder задаёт сборщик чеков.
func WithReceiptBuilder(b *receipt.Builder) Option {
	return func(s *Service) { s.builder = b }
}

// WithSleep подменяет ожидание при размещении заказа.
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Service) { s.sleep = sleep }
}

// WithSessionTTL задаёт время простоя сессии до выгрузки. Ноль отключает выгрузку.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) { s.sessionTTL = d }
}

// WithClock задаёт источник времени для учёта простоя сессий.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService создаёт сервис с указанным хранилищем и каталогом.
func NewService(store Store, c *catalog.Catalog, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:      store,
		catalog:    c,
		calculator: pricing.NewCalculator(c),
		builder:    receipt.NewBuilder(c),
		logger:     logger,
		delay:      DefaultPlacementDelay,
		sleep:      time.Sleep,
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Catalog возвращает каталог, с которым работает сервис.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Session возвращает сессию по идентификатору, восстанавливая черновик заказа из хранилища при первом обращении.
// Хранилище читается без блокировки реестра.
func (s *Service) Session(ctx context.Context, id string) *Session {
	if sess, ok := s.lookup(id); ok {
		return sess
	}

	restored := &Session{
		id:      id,
		svc:     s,
		draft:   s.restoreDraft(ctx, id),
		receipt: s.restoreReceipt(ctx, id),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[id]; ok {
		sess.lastSeen = now
		return sess
	}

	s.evictIdleLocked(now)
	restored.lastSeen = now
	s.sessions[id] = restored
	return restored
}

func (s *Service) lookup(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if ok {
		sess.lastSeen = s.now()
	}
	return sess, ok
}

// evictIdleLocked выгружает сессии, простаивающие дольше sessionTTL, кроме размещающих заказ.
// Проход выполняется не чаще раза в половину sessionTTL.
func (s *Service) evictIdleLocked(now time.Time) {
	if s.sessionTTL <= 0 || now.Sub(s.lastSweep) < s.sessionTTL/2 {
		return
	}
	s.lastSweep = now

	evicted := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) < s.sessionTTL || sess.placing() {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}

	if evicted > 0 {
		s.logger.Debug("idle sessions evicted", zap.Int("evicted", evicted), zap.Int("active", len(s.sessions)))
	}
}

// restoreDraft накладывает сохранённый черновик поверх значений по умолчанию. Повреждённые данные игнорируются.
func (s *Service) restoreDraft(ctx context.Context, scope string) model.OrderDraft {
	defaults := model.DefaultOrderDraft()

	data, err := s.store.Get(ctx, scope, DraftKey)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("load order draft error", zap.Error(err), zap.String("session", scope))
		}
		return defaults
	}

	draft := defaults.Clone()
	if err := json.Unmarshal(data, &draft); err != nil {
		s.logger.Warn("ignoring malformed order draft", zap.Error(err), zap.String("session", scope))
		return defaults
	}

	return s.normalize(draft)
}

func (s *Service) restoreReceipt(ctx context.Context, scope string) *model.Receipt {
	data, err := s.store.Get(ctx, scope, LastReceiptKey)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("load last receipt error", zap.Error(err), zap.String("session", scope))
		}
		return nil
	}

	var r model.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		s.logger.Warn("ignoring malformed last receipt", zap.Error(err), zap.String("session", scope))
		return nil
	}
	return &r
}

// normalize восстанавливает инварианты черновика: топпинги без повторов, количество гарниров в допустимом диапазоне.
func (s *Service) normalize(d model.OrderDraft) model.OrderDraft {
	if d.Toppings == nil {
		d.Toppings = []string{}
	}
	seen := make(map[string]struct{}, len(d.Toppings))
	toppings := d.Toppings[:0]
	for _, id := range d.Toppings {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		toppings = append(toppings, id)
	}
	d.Toppings = toppings

	if d.SidesQty == nil {
		d.SidesQty = map[string]int{}
	}
	for id, q := range d.SidesQty {
		d.SidesQty[id] = pricing.ClampInt(q, pricing.MinSideQty, pricing.MaxSideQty)
	}

	return d
}

func (s *Service) put(ctx context.Context, scope, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.store.Put(ctx, scope, key, data)
}

// CheckRegistration возвращает ошибки формы регистрации без её отправки.
func (s *Service) CheckRegistration(d model.RegistrationDraft) validation.Errors {
	return validation.ValidateRegistration(d)
}

// Register проверяет форму регистрации и сохраняет пользователя без паролей.
func (s *Service) Register(ctx context.Context, sessionID string, d model.RegistrationDraft) error {
	if errs := validation.ValidateRegistration(d); !errs.Valid() {
		return &ValidationError{Errors: errs}
	}

	user := model.RegisteredUser{
		Name:        d.Name,
		Email:       d.Email,
		Phone:       d.Phone,
		Gender:      d.Gender,
		AcceptTerms: d.AcceptTerms,
	}
	if err := s.put(ctx, sessionID, RegisteredUserKey, user); err != nil {
		return fmt.Errorf("save registered user: %w", err)
	}

	s.logger.Info("user registered", zap.String("session", sessionID), zap.String("email", d.Email))
	return nil
}
