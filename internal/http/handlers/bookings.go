package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sabaihome/booking-platform/internal/bookings"
	"github.com/sabaihome/booking-platform/internal/cancellation"
	"github.com/sabaihome/booking-platform/pkg/logging"
)

// BookingsHandler exposes the cancellation and reschedule workflows over HTTP.
type BookingsHandler struct {
	svc    *cancellation.Service
	logger *logging.Logger
}

// NewBookingsHandler creates the handler.
func NewBookingsHandler(svc *cancellation.Service, logger *logging.Logger) *BookingsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingsHandler{svc: svc, logger: logger}
}

// Cancel handles POST /bookings/{bookingID}/cancel.
func (h *BookingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, false)
}

// AdminCancel handles POST /admin/bookings/{bookingID}/cancel. Same request
// shape as Cancel, but the policy window does not gate the operator.
func (h *BookingsHandler) AdminCancel(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, true)
}

func (h *BookingsHandler) cancel(w http.ResponseWriter, r *http.Request, admin bool) {
	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	var req cancellation.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var (
		result *cancellation.CancelResult
		err    error
	)
	if admin {
		result, err = h.svc.CancelBookingAdmin(r.Context(), bookingID, req)
	} else {
		result, err = h.svc.CancelBooking(r.Context(), bookingID, req)
	}
	if err != nil {
		h.writeWorkflowError(w, "cancel booking", bookingID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Reschedule handles POST /bookings/{bookingID}/reschedule.
func (h *BookingsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	var req cancellation.RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	result, err := h.svc.RescheduleBooking(r.Context(), bookingID, req)
	if err != nil {
		h.writeWorkflowError(w, "reschedule booking", bookingID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CancellationCheck handles GET /bookings/{bookingID}/cancellation-check. It
// is the read-only probe the booking-detail page calls before showing the
// cancel and reschedule buttons.
func (h *BookingsHandler) CancellationCheck(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	decision, err := h.svc.CheckEligibility(r.Context(), bookingID)
	if err != nil {
		h.writeWorkflowError(w, "cancellation check", bookingID, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (h *BookingsHandler) writeWorkflowError(w http.ResponseWriter, op string, bookingID uuid.UUID, err error) {
	switch {
	case cancellation.IsValidationError(err):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, bookings.ErrBookingNotFound):
		jsonError(w, "booking not found", http.StatusNotFound)
	default:
		h.logger.Error(op+" failed", "booking_id", bookingID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func bookingIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "bookingID")
	id, err := uuid.Parse(raw)
	if err != nil {
		jsonError(w, "invalid booking id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
