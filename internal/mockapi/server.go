// Package mockapi is an in-memory stand-in for the external lead service, used
// by the dev server when USE_MOCK_API is set.
package mockapi

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const clientTokenHeader = "X-Client-Token"

var slotTimes = []string{"09:00", "10:00", "11:00", "14:00", "15:00", "16:00", "17:00"}

type lead struct {
	ID                string `json:"-"`
	Token             string `json:"-"`
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	BusinessName      string `json:"business_name"`
	BusinessTracking  string `json:"business_tracking"`
	ProductOfInterest string `json:"product_of_interest"`
	Invoicing         string `json:"invoicing"`
	Collaborators     string `json:"collaborators"`

	AppointmentDate string `json:"-"`
	AppointmentTime string `json:"-"`
}

type slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type day struct {
	Date  string `json:"date"`
	Slots []slot `json:"slots"`
}

type appointmentRequest struct {
	LeadToken string `json:"leadToken"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type Server struct {
	clientToken string
	loc         *time.Location
	now         func() time.Time
	rng         *rand.Rand

	mu     sync.Mutex
	nextID int
	leads  map[string]*lead
	router chi.Router
}

type Option func(*Server)

// WithClientToken makes every request require the given X-Client-Token.
func WithClientToken(token string) Option {
	return func(s *Server) {
		s.clientToken = strings.TrimSpace(token)
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSeed makes availability deterministic.
func WithSeed(seed uint64) Option {
	return func(s *Server) {
		s.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		loc:    time.UTC,
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		nextID: 1,
		leads:  map[string]*lead{},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.requireClientToken)
	r.Post("/leads", s.createLead)
	r.Put("/leads", s.updateLead)
	r.Get("/appointment", s.availableDays)
	r.Post("/appointment", s.createAppointment)
	r.Post("/auth", s.auth)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requireClientToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.clientToken != "" && r.Header.Get(clientTokenHeader) != s.clientToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid client token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) createLead(w http.ResponseWriter, r *http.Request) {
	var in lead
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lead"})
		return
	}

	s.mu.Lock()
	in.ID = strconv.Itoa(s.nextID)
	in.Token = uuid.NewString()
	s.nextID++
	s.leads[in.Token] = &in
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"token":   in.Token,
		"leadId":  in.ID,
	})
}

// updateLead matches the lead by email; the update body carries no token.
func (s *Server) updateLead(w http.ResponseWriter, r *http.Request) {
	var in lead
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lead"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leads {
		if !strings.EqualFold(l.Email, in.Email) {
			continue
		}
		in.ID, in.Token = l.ID, l.Token
		in.AppointmentDate, in.AppointmentTime = l.AppointmentDate, l.AppointmentTime
		*l = in
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "lead not found"})
}

// availableDays lists the next 30 days: weekends skipped, roughly 80% of
// weekdays open, each slot open with probability 0.7, fully booked days left out.
func (s *Server) availableDays(w http.ResponseWriter, _ *http.Request) {
	today := s.now().In(s.loc)
	base := time.Date(today.Year(), today.Month(), today.Day(), 12, 0, 0, 0, s.loc)

	s.mu.Lock()
	days := make([]day, 0, 30)
	for i := 1; i <= 30; i++ {
		date := base.AddDate(0, 0, i)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if s.rng.Float64() <= 0.2 {
			continue
		}
		d := day{Date: date.Format(time.DateOnly), Slots: make([]slot, 0, len(slotTimes))}
		open := false
		for _, t := range slotTimes {
			available := s.rng.Float64() > 0.3
			open = open || available
			d.Slots = append(d.Slots, slot{Time: t, Available: available})
		}
		if open {
			days = append(days, d)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, days)
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var in appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid appointment"})
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, in.Date, s.loc)
	if err != nil || in.Time == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid appointment"})
		return
	}

	s.mu.Lock()
	l, ok := s.leads[in.LeadToken]
	if ok {
		l.AppointmentDate, l.AppointmentTime = in.Date, in.Time
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "lead not found"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":       true,
		"eventId":       "evt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9],
		"confirmedDate": in.Date,
		"confirmedTime": in.Time,
		"expiresAt":     date.AddDate(0, 0, 1).Format(time.RFC3339),
	})
}

func (s *Server) auth(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid token"})
		return
	}

	s.mu.Lock()
	l, ok := s.leads[in.Token]
	var out map[string]string
	if ok && l.AppointmentDate != "" {
		out = map[string]string{
			"id":              l.ID,
			"name":            l.Name,
			"business_name":   l.BusinessName,
			"email":           l.Email,
			"phone":           l.Phone,
			"appointmentDate": l.AppointmentDate,
			"appointmentTime": l.AppointmentTime,
		}
	}
	s.mu.Unlock()

	if out == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid session"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
