// Package handler содержит HTTP-обработчики API пиццерии.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/marios-pizza/internal/catalog"
	"github.com/mmeshcher/marios-pizza/internal/middleware"
	"github.com/mmeshcher/marios-pizza/internal/model"
	"github.com/mmeshcher/marios-pizza/internal/pricing"
	"github.com/mmeshcher/marios-pizza/internal/receipt"
	"github.com/mmeshcher/marios-pizza/internal/service"
	"github.com/mmeshcher/marios-pizza/internal/validation"
)

const maxBodySize = 64 << 10

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Catalog() *catalog.Catalog
	CheckRegistration(d model.RegistrationDraft) validation.Errors
	Register(ctx context.Context, sessionID string, d model.RegistrationDraft) error
	Session(ctx context.Context, id string) *service.Session
}

// Handler реализует HTTP-обработчики API пиццерии.
type Handler struct {
	service  Service
	logger   *zap.Logger
	sessions *middleware.SessionMiddleware
	location *time.Location
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// Даты в текстовом чеке выводятся в часовом поясе loc.
func NewHandler(s Service, logger *zap.Logger, sessions *middleware.SessionMiddleware, loc *time.Location) *Handler {
	return &Handler{
		service:  s,
		logger:   logger,
		sessions: sessions,
		location: loc,
	}
}

type catalogResponse struct {
	Sizes       []catalog.Item  `json:"sizes"`
	Crusts      []catalog.Item  `json:"crusts"`
	Toppings    []catalog.Item  `json:"toppings"`
	Sides       []catalog.Item  `json:"sides"`
	SideGroups  []catalog.Group `json:"sideGroups"`
	DeliveryFee int64           `json:"deliveryFee"`
}

// GetCatalog возвращает каталог пиццерии.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	c := h.service.Catalog()
	h.writeJSON(w, http.StatusOK, catalogResponse{
		Sizes:       c.Sizes,
		Crusts:      c.Crusts,
		Toppings:    c.Toppings,
		Sides:       c.Sides,
		SideGroups:  c.SidesByType(),
		DeliveryFee: pricing.DeliveryFee,
	})
}

type errorsResponse struct {
	Errors validation.Errors `json:"errors"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// CheckRegistration возвращает ошибки формы регистрации без её отправки.
func (h *Handler) CheckRegistration(w http.ResponseWriter, r *http.Request) {
	var req model.RegistrationDraft
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, errorsResponse{Errors: h.service.CheckRegistration(req)})
}

// Register обрабатывает отправку формы регистрации.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req model.RegistrationDraft
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.Register(r.Context(), sessionID, req); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Registration successful!"})
}

// GetOrder возвращает черновик заказа текущей сессии с ошибками и расчётом стоимости.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, sess.State())
}

// UpdateOrder накладывает переданные поля на черновик заказа.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	state, err := sess.Update(r.Context(), body)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, state)
}

type qtyRequest struct {
	Qty *int `json:"qty"`
}

func decodeQty(r *http.Request) (int, bool) {
	var req qtyRequest
	if err := decodeJSON(r, &req); err != nil || req.Qty == nil {
		return 0, false
	}
	return *req.Qty, true
}

// SetQty задаёт количество пицц.
func (h *Handler) SetQty(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	qty, ok := decodeQty(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	state, err := sess.SetQty(r.Context(), qty)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, state)
}

// ToggleTopping переключает выбор топпинга.
func (h *Handler) ToggleTopping(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	state, err := sess.ToggleTopping(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, state)
}

// SetSideQty задаёт количество гарнира.
func (h *Handler) SetSideQty(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	qty, ok := decodeQty(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	state, err := sess.SetSideQty(r.Context(), chi.URLParam(r, "id"), qty)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, state)
}

// ResetOrder сбрасывает черновик заказа.
func (h *Handler) ResetOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, sess.Reset(r.Context()))
}

// PlaceOrder размещает заказ и возвращает чек.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	rc, err := sess.Place(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, rc)
}

// GetReceipt возвращает последний чек сессии.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	rc, ok := sess.Receipt()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.writeJSON(w, http.StatusOK, rc)
}

// GetReceiptText возвращает последний чек сессии в текстовом виде для копирования и печати.
func (h *Handler) GetReceiptText(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	rc, ok := sess.Receipt()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, receipt.ToText(rc, h.location)); err != nil {
		h.logger.Warn("write receipt text error", zap.Error(err))
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	sessionID, ok := middleware.GetSessionIDFromContext(r.Context())
	if !ok {
		h.logger.Error("request without session id", zap.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return h.service.Session(r.Context(), sessionID), true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorsResponse{Errors: vErr.Errors})
	case errors.Is(err, service.ErrPlacementPending):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	case errors.Is(err, service.ErrUnknownTopping), errors.Is(err, service.ErrUnknownSide):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, service.ErrMalformedPatch):
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
	default:
		h.logger.Error("request error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response error", zap.Error(err))
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
}
