package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"shareit/internal/apperr"
	"shareit/internal/export"
	"shareit/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type commentRequest struct {
	Text string `json:"text"`
}

func callerID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(models.UserIDHeader))
	if raw == "" {
		return 0, apperr.Validation("Missing %s header", models.UserIDHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid %s header: %q", models.UserIDHeader, raw)
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid %s: %q", name, raw)
	}
	return id, nil
}

func stateParam(r *http.Request) (models.State, error) {
	state, err := models.ParseState(r.URL.Query().Get("state"))
	if err != nil {
		return state, apperr.Validation("%s", err.Error())
	}
	return state, nil
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperr.Validation("Invalid JSON body: %s", err.Error())
	}
	return nil
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}

	var req models.BookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), req, userID)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	bookingID, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), bookingID, userID)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleApproveBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	bookingID, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}

	raw := r.URL.Query().Get("approved")
	approved, err := strconv.ParseBool(raw)
	if err != nil {
		writeAppError(w, r, s.logger, apperr.Validation("Parameter approved must be true or false, got %q", raw))
		return
	}

	booking, err := s.bookings.ApproveBooking(r.Context(), bookingID, userID, approved)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleListBookerBookings(w http.ResponseWriter, r *http.Request) {
	s.listBookings(w, r, false)
}

func (s *HTTPServer) handleListOwnerBookings(w http.ResponseWriter, r *http.Request) {
	s.listBookings(w, r, true)
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request, owner bool) {
	bookings, _, _, err := s.ownerOrBookerBookings(r, owner)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *HTTPServer) ownerOrBookerBookings(r *http.Request, owner bool) ([]*models.Booking, int64, models.State, error) {
	userID, err := callerID(r)
	if err != nil {
		return nil, 0, 0, err
	}
	state, err := stateParam(r)
	if err != nil {
		return nil, 0, 0, err
	}

	var bookings []*models.Booking
	if owner {
		bookings, err = s.bookings.ListOwnerBookings(r.Context(), userID, state)
	} else {
		bookings, err = s.bookings.ListBookerBookings(r.Context(), userID, state)
	}
	return bookings, userID, state, err
}

func (s *HTTPServer) handleExportOwnerBookings(w http.ResponseWriter, r *http.Request) {
	bookings, userID, state, err := s.ownerOrBookerBookings(r, true)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}

	var buf bytes.Buffer
	title := fmt.Sprintf("Бронирования вещей владельца %d (%s)", userID, state)
	if err := export.WriteBookings(&buf, s.sheetName, title, bookings); err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}

	fileName := fmt.Sprintf("bookings_owner_%d_%s.xlsx", userID, strings.ToLower(state.String()))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleOwnerItems(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}

	items, err := s.items.GetOwnerItems(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	itemID, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}

	var req commentRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}

	comment, err := s.comments.AddComment(r.Context(), itemID, userID, req.Text)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.PingContext(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
