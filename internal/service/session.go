package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marios-pizza/internal/model"
	"github.com/mmeshcher/marios-pizza/internal/pricing"
	"github.com/mmeshcher/marios-pizza/internal/validation"
)

// OrderState содержит черновик заказа вместе с пересчитанными ошибками и стоимостью.
type OrderState struct {
	Draft      model.OrderDraft  `json:"draft"`
	Errors     validation.Errors `json:"errors"`
	Pricing    model.Pricing     `json:"pricing"`
	Valid      bool              `json:"valid"`
	Submitting bool              `json:"submitting"`
}

// Session владеет черновиком заказа одного пользователя и последним чеком.
type Session struct {
	id  string
	svc *Service

	// Защищено svc.mu.
	lastSeen time.Time

	mu         sync.Mutex
	draft      model.OrderDraft
	submitting bool
	receipt    *model.Receipt
}

// ID возвращает идентификатор сессии.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) placing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// State возвращает текущее состояние черновика.
func (s *Session) State() OrderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() OrderState {
	errs := validation.ValidateOrder(s.draft)
	return OrderState{
		Draft:      s.draft.Clone(),
		Errors:     errs,
		Pricing:    s.svc.calculator.Calculate(s.draft),
		Valid:      errs.Valid(),
		Submitting: s.submitting,
	}
}

// mutate применяет изменение к копии черновика, сохраняет результат и возвращает новое состояние.
func (s *Session) mutate(ctx context.Context, fn func(d *model.OrderDraft) error) (OrderState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.draft.Clone()
	if err := fn(&next); err != nil {
		return s.stateLocked(), err
	}
	s.draft = s.svc.normalize(next)

	if err := s.svc.put(ctx, s.id, DraftKey, s.draft); err != nil {
		s.svc.logger.Warn("save order draft error", zap.Error(err), zap.String("session", s.id))
	}

	return s.stateLocked(), nil
}

// Update накладывает переданные поля JSON поверх черновика. Поля toppings и sidesQty заменяются целиком.
func (s *Session) Update(ctx context.Context, patch []byte) (OrderState, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return s.State(), fmt.Errorf("%w: %v", ErrMalformedPatch, err)
	}

	return s.mutate(ctx, func(d *model.OrderDraft) error {
		if _, ok := fields["toppings"]; ok {
			d.Toppings = nil
		}
		if _, ok := fields["sidesQty"]; ok {
			d.SidesQty = nil
		}
		if err := json.Unmarshal(patch, d); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPatch, err)
		}
		return nil
	})
}

// SetQty задаёт количество пицц, ограничивая его диапазоном [1, 10].
func (s *Session) SetQty(ctx context.Context, qty int) (OrderState, error) {
	return s.mutate(ctx, func(d *model.OrderDraft) error {
		d.Qty = pricing.ClampInt(qty, pricing.MinQty, pricing.MaxQty)
		return nil
	})
}

// ToggleTopping добавляет топпинг в заказ или убирает его.
func (s *Session) ToggleTopping(ctx context.Context, id string) (OrderState, error) {
	return s.mutate(ctx, func(d *model.OrderDraft) error {
		if !d.HasTopping(id) {
			if _, ok := s.svc.catalog.Topping(id); !ok {
				return fmt.Errorf("%w: %s", ErrUnknownTopping, id)
			}
			d.Toppings = append(d.Toppings, id)
			return nil
		}

		toppings := d.Toppings[:0]
		for _, t := range d.Toppings {
			if t != id {
				toppings = append(toppings, t)
			}
		}
		d.Toppings = toppings
		return nil
	})
}

// SetSideQty задаёт количество гарнира, ограничивая его диапазоном [0, 99].
func (s *Session) SetSideQty(ctx context.Context, id string, qty int) (OrderState, error) {
	return s.mutate(ctx, func(d *model.OrderDraft) error {
		if _, ok := s.svc.catalog.Side(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSide, id)
		}
		d.SidesQty[id] = pricing.ClampInt(qty, pricing.MinSideQty, pricing.MaxSideQty)
		return nil
	})
}

// Reset возвращает черновик к значениям по умолчанию и удаляет его из хранилища.
func (s *Session) Reset(ctx context.Context) OrderState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = model.DefaultOrderDraft()
	if err := s.svc.store.Delete(ctx, s.id, DraftKey); err != nil {
		s.svc.logger.Warn("clear order draft error", zap.Error(err), zap.String("session", s.id))
	}

	return s.stateLocked()
}

// Place размещает заказ: проверяет черновик, выжидает задержку размещения и формирует чек.
// Начатое размещение не отменяется и всегда завершается чеком.
func (s *Session) Place(ctx context.Context) (model.Receipt, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return model.Receipt{}, ErrPlacementPending
	}
	if errs := validation.ValidateOrder(s.draft); !errs.Valid() {
		s.mu.Unlock()
		return model.Receipt{}, &ValidationError{Errors: errs}
	}
	draft := s.draft.Clone()
	s.submitting = true
	s.mu.Unlock()

	p := s.svc.calculator.Calculate(draft)
	s.svc.sleep(s.svc.delay)
	r := s.svc.builder.Build(draft, p)

	s.mu.Lock()
	s.receipt = &r
	s.submitting = false
	s.mu.Unlock()

	if err := s.svc.put(context.WithoutCancel(ctx), s.id, LastReceiptKey, r); err != nil {
		s.svc.logger.Warn("save last receipt error", zap.Error(err), zap.String("session", s.id))
	}

	s.svc.logger.Info("order placed",
		zap.String("session", s.id),
		zap.String("order", r.ID),
		zap.Int64("total", r.Total),
	)

	return r, nil
}

// Receipt возвращает последний чек сессии.
func (s *Session) Receipt() (model.Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.receipt == nil {
		return model.Receipt{}, false
	}
	return *s.receipt, true
}
