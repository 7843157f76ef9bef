// Package api exposes the reservation core over HTTP. Transport is thin:
// handlers decode, delegate to the services, and map business outcomes to
// status codes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"kerbside/internal/booking"
	"kerbside/internal/database"
	"kerbside/internal/export"
	"kerbside/internal/metrics"
	"kerbside/internal/models"
	"kerbside/internal/search"
)

// HTTPServer serves the reservation API.
type HTTPServer struct {
	bookings        *booking.Service
	ranker          *search.Ranker
	reports         *export.Reporter
	apiKey          string
	defaultRadiusKm float64
	log             *zerolog.Logger
}

func NewHTTPServer(bookings *booking.Service, ranker *search.Ranker, reports *export.Reporter,
	apiKey string, defaultRadiusKm float64, log *zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		bookings:        bookings,
		ranker:          ranker,
		reports:         reports,
		apiKey:          apiKey,
		defaultRadiusKm: defaultRadiusKm,
		log:             log,
	}
}

// Handler returns the routed API handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/reservations", s.auth(s.handleCreateReservation))
	mux.HandleFunc("/api/reservations/", s.auth(s.handleTransition))
	mux.HandleFunc("/api/payments/result", s.auth(s.handlePaymentResult))
	mux.HandleFunc("/api/spaces/search", s.auth(s.handleSearch))
	mux.HandleFunc("/api/spaces/", s.auth(s.handleSpaceReport))
	mux.HandleFunc("/api/availability/resolve", s.auth(s.handleResolveAvailability))
	return mux
}

// Start runs the server until ctx is cancelled.
func (s *HTTPServer) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	s.log.Info().Int("port", port).Msg("API server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// auth checks the x-api-key header when a key is configured.
func (s *HTTPServer) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("x-api-key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next(w, r)
	}
}

// CreateReservationRequest is the body for POST /api/reservations.
type CreateReservationRequest struct {
	SpaceID     int64     `json:"space_id"`
	RequesterID int64     `json:"requester_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_reservation")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CreateReservationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SpaceID <= 0 || req.RequesterID <= 0 {
		writeError(w, http.StatusBadRequest, "space_id and requester_id are required")
		return
	}

	reservation, err := s.bookings.Create(r.Context(), req.SpaceID, req.RequesterID, req.StartTime, req.EndTime)
	if err != nil {
		s.writeBusinessError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservation)
}

// TransitionRequest is the body for POST /api/reservations/{uuid}/transition.
type TransitionRequest struct {
	Action  string `json:"action"` // confirm, reject, cancel, complete
	ActorID int64  `json:"actor_id"`
}

func (s *HTTPServer) handleTransition(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("transition_reservation")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	const prefix = "/api/reservations/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	uuid, ok := strings.CutSuffix(rest, "/transition")
	if !ok || uuid == "" || strings.Contains(uuid, "/") {
		writeError(w, http.StatusBadRequest, "invalid path; expected /api/reservations/{uuid}/transition")
		return
	}

	var req TransitionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reservation, err := s.bookings.Transition(r.Context(), uuid, booking.Action(req.Action), req.ActorID)
	if err != nil {
		s.writeBusinessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

// PaymentResultRequest is the payment collaborator's webhook body.
type PaymentResultRequest struct {
	ReservationUUID string `json:"reservation_uuid"`
	Succeeded       bool   `json:"succeeded"`
}

func (s *HTTPServer) handlePaymentResult(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("payment_result")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req PaymentResultRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ReservationUUID == "" {
		writeError(w, http.StatusBadRequest, "reservation_uuid is required")
		return
	}

	reservation, err := s.bookings.HandlePaymentResult(r.Context(), req.ReservationUUID, req.Succeeded)
	if err != nil {
		s.writeBusinessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

// SearchRequest is the body for POST /api/spaces/search. Either window or
// book_now_minutes may be set, not both.
type SearchRequest struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius_km"`
	Window   *struct {
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	} `json:"window,omitempty"`
	BookNowMinutes int `json:"book_now_minutes,omitempty"`
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("search_spaces")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RadiusKm < 0 {
		writeError(w, http.StatusBadRequest, "radius_km must not be negative")
		return
	}
	if req.RadiusKm == 0 {
		req.RadiusKm = s.defaultRadiusKm
	}
	if req.Window != nil && req.BookNowMinutes > 0 {
		writeError(w, http.StatusBadRequest, "window and book_now_minutes are mutually exclusive")
		return
	}

	origin := models.Coordinates{Lat: req.Lat, Lng: req.Lng}

	var results []search.Result
	var err error
	switch {
	case req.BookNowMinutes > 0:
		results, err = s.ranker.BookNow(r.Context(), origin, req.RadiusKm,
			time.Duration(req.BookNowMinutes)*time.Minute)
	case req.Window != nil:
		results, err = s.ranker.Search(r.Context(), origin, req.RadiusKm,
			&search.Window{Start: req.Window.StartTime, End: req.Window.EndTime})
	default:
		results, err = s.ranker.Search(r.Context(), origin, req.RadiusKm, nil)
	}
	if err != nil {
		s.writeBusinessError(w, err)
		return
	}

	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// ResolveAvailabilityRequest is the pre-flight "can I book this?" body.
type ResolveAvailabilityRequest struct {
	SpaceID   int64  `json:"space_id"`
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
}

// ResolveAvailabilityResponse carries the effective rate on a match.
type ResolveAvailabilityResponse struct {
	Available  bool    `json:"available"`
	HourlyRate float64 `json:"hourly_rate,omitempty"`
}

func (s *HTTPServer) handleResolveAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("resolve_availability")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req ResolveAvailabilityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// Calendar dates are meaningful in the booking timezone, not UTC.
	date, err := time.ParseInLocation("2006-01-02", req.Date, s.bookings.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	if req.StartTime >= req.EndTime {
		writeError(w, http.StatusBadRequest, "start_time must be before end_time")
		return
	}

	match, ok, err := s.bookings.ResolveAvailability(r.Context(), req.SpaceID, date, req.StartTime, req.EndTime)
	if err != nil {
		s.writeBusinessError(w, err)
		return
	}

	resp := ResolveAvailabilityResponse{Available: ok}
	if ok {
		resp.HourlyRate = match.Rate
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSpaceReport streams a space's reservation history as an xlsx
// workbook: GET /api/spaces/{id}/report.
func (s *HTTPServer) handleSpaceReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("space_report")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	const prefix = "/api/spaces/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	idPart, ok := strings.CutSuffix(rest, "/report")
	if !ok || strings.Contains(idPart, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	spaceID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || spaceID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid space id")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=space-%d-reservations.xlsx", spaceID))

	if err := s.reports.SpaceReservations(r.Context(), spaceID, w); err != nil {
		w.Header().Del("Content-Type")
		w.Header().Del("Content-Disposition")
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "space not found")
			return
		}
		s.log.Error().Err(err).Int64("space_id", spaceID).Msg("report error")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
}

func (s *HTTPServer) writeBusinessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrSelfBooking),
		errors.Is(err, booking.ErrNotAvailable),
		errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
