package leadapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/b2bflow/front-forms/internal/domain"
)

const (
	clientTokenHeader   = "X-Client-Token"
	defaultTimeout      = 10 * time.Second
	unknownBusinessName = "Não informada"
)

// leadPayload is the lead body shared by POST and PUT /leads.
type leadPayload struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	BusinessName      string `json:"business_name"`
	BusinessTracking  string `json:"business_tracking"`
	ProductOfInterest string `json:"product_of_interest"`
	Invoicing         string `json:"invoicing"`
	Collaborators     string `json:"collaborators"`
}

type createLeadResponse struct {
	Success bool       `json:"success"`
	Token   string     `json:"token"`
	LeadID  flexString `json:"leadId"`
}

type availableDayPayload struct {
	Date  string `json:"date"`
	Slots []struct {
		Time      string `json:"time"`
		Available bool   `json:"available"`
	} `json:"slots"`
}

type appointmentPayload struct {
	LeadToken string `json:"leadToken"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type appointmentResponse struct {
	Success       *bool  `json:"success"`
	EventID       string `json:"eventId"`
	ConfirmedDate string `json:"confirmedDate"`
	ConfirmedTime string `json:"confirmedTime"`
	ExpiresAt     string `json:"expiresAt"`
}

type authRequest struct {
	Token string `json:"token"`
}

type authResponse struct {
	ID              flexString `json:"id"`
	Name            string     `json:"name"`
	BusinessName    string     `json:"business_name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	AppointmentDate string     `json:"appointmentDate"`
	AppointmentTime string     `json:"appointmentTime"`
}

// tokenPayload is the JSON shape stored in SSM for the client token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// RequestError is any transport failure or non-2xx answer from the lead service.
type RequestError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("leadapi: %s: unexpected status %d from %s %s: %s", e.Op, e.StatusCode, e.Method, e.URL, e.Body)
	}
	return fmt.Sprintf("leadapi: %s: %s %s: %v", e.Op, e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to the external lead/appointment/session service.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramName   string
	staticToken string

	tokenMu sync.Mutex
	token   string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClientToken sets the client header token directly instead of reading it from SSM.
func WithClientToken(token string) Option {
	return func(c *Client) {
		c.staticToken = strings.TrimSpace(token)
	}
}

// WithParamStore reads the client token from the given SSM parameter on first use.
func WithParamStore(g Getter, name string) Option {
	return func(c *Client) {
		c.getter = g
		c.paramName = strings.TrimSpace(name)
	}
}

// NewClient creates a Client for the service at baseURL. A client token must be
// configured through WithClientToken or WithParamStore.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("leadapi: base URL must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.staticToken == "" && (c.getter == nil || c.paramName == "") {
		return nil, errors.New("leadapi: a client token or a parameter store source is required")
	}
	return c, nil
}

// CreateLead registers a lead with the answers collected up to the company
// step. Qualification fields are sent empty.
func (c *Client) CreateLead(ctx context.Context, lead domain.LeadIdentity) (domain.CreatedLead, error) {
	const op = "create lead"
	body := leadPayload{
		Name:         lead.Name,
		Phone:        lead.Phone,
		Email:        lead.Email,
		BusinessName: lead.CompanyName,
	}
	raw, err := c.do(ctx, op, http.MethodPost, "/leads", body)
	if err != nil {
		return domain.CreatedLead{}, err
	}
	var out createLeadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.CreatedLead{}, c.decodeError(op, http.MethodPost, "/leads", err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return domain.CreatedLead{}, c.decodeError(op, http.MethodPost, "/leads", errors.New("response missing token"))
	}
	return domain.CreatedLead{Token: domain.LeadToken(out.Token), LeadID: string(out.LeadID)}, nil
}

// UpdateLead sends the complete answer set. The response body is ignored.
func (c *Client) UpdateLead(ctx context.Context, lead domain.QualifiedLead) error {
	_, err := c.do(ctx, "update lead", http.MethodPut, "/leads", leadPayload{
		Name:              lead.Name,
		Phone:             lead.Phone,
		Email:             lead.Email,
		BusinessName:      lead.CompanyName,
		BusinessTracking:  lead.Segment,
		ProductOfInterest: lead.ProductInterest,
		Invoicing:         lead.RevenueBand,
		Collaborators:     lead.Headcount,
	})
	return err
}

// GetAvailableDays lists the booking inventory in server order. An empty
// result means no availability.
func (c *Client) GetAvailableDays(ctx context.Context) ([]domain.AvailableDay, error) {
	const op = "list availability"
	raw, err := c.do(ctx, op, http.MethodGet, "/appointment", nil)
	if err != nil {
		return nil, err
	}
	var payload []availableDayPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, c.decodeError(op, http.MethodGet, "/appointment", err)
	}
	days := make([]domain.AvailableDay, 0, len(payload))
	for _, p := range payload {
		date, err := domain.ParseDate(p.Date)
		if err != nil {
			return nil, c.decodeError(op, http.MethodGet, "/appointment", err)
		}
		day := domain.AvailableDay{Date: date, Slots: make([]domain.TimeSlot, 0, len(p.Slots))}
		for _, s := range p.Slots {
			day.Slots = append(day.Slots, domain.TimeSlot{Time: s.Time, Available: s.Available})
		}
		days = append(days, day)
	}
	return days, nil
}

// CreateAppointment books the slot for the lead. Any 2xx answer is a booking;
// fields missing from the response fall back to the request.
func (c *Client) CreateAppointment(ctx context.Context, req domain.AppointmentRequest) (domain.Appointment, error) {
	const op = "create appointment"
	if req.LeadToken == "" {
		return domain.Appointment{}, errors.New("leadapi: create appointment: lead token is required")
	}
	raw, err := c.do(ctx, op, http.MethodPost, "/appointment", appointmentPayload{
		LeadToken: string(req.LeadToken),
		Date:      req.Date.String(),
		Time:      req.Time,
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	var out appointmentResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			slog.Warn("leadapi: ignoring undecodable appointment response", "err", err)
			out = appointmentResponse{}
		}
	}
	if out.Success != nil && !*out.Success {
		return domain.Appointment{}, c.decodeError(op, http.MethodPost, "/appointment", errors.New("service reported success=false"))
	}

	appt := domain.Appointment{
		Success:       true,
		EventID:       out.EventID,
		ConfirmedDate: out.ConfirmedDate,
		ConfirmedTime: out.ConfirmedTime,
	}
	if appt.EventID == "" {
		appt.EventID = newEventID()
	}
	if appt.ConfirmedDate == "" {
		appt.ConfirmedDate = req.Date.String()
	}
	if appt.ConfirmedTime == "" {
		appt.ConfirmedTime = req.Time
	}
	if out.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, out.ExpiresAt); err == nil {
			appt.ExpiresAt = t
		}
	}
	return appt, nil
}

// ValidateSession resolves a session token. Failures and rejections both
// report false.
func (c *Client) ValidateSession(ctx context.Context, token string) (domain.SessionData, bool) {
	const op = "validate session"
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.SessionData{}, false
	}
	raw, err := c.do(ctx, op, http.MethodPost, "/auth", authRequest{Token: token})
	if err != nil {
		slog.Warn("leadapi: session validation failed", "err", err)
		return domain.SessionData{}, false
	}
	var out authResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.Warn("leadapi: session validation returned malformed body", "err", err)
		return domain.SessionData{}, false
	}
	if out.ID == "" {
		return domain.SessionData{}, false
	}
	business := out.BusinessName
	if business == "" {
		business = unknownBusinessName
	}
	return domain.SessionData{
		LeadID:          string(out.ID),
		Name:            out.Name,
		BusinessName:    business,
		Email:           out.Email,
		Phone:           out.Phone,
		AppointmentDate: out.AppointmentDate,
		AppointmentTime: out.AppointmentTime,
	}, true
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	url := c.baseURL + path

	token, err := c.resolveClientToken(ctx)
	if err != nil {
		return nil, &RequestError{Op: op, Method: method, URL: url, Err: err}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("leadapi: %s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("leadapi: %s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(clientTokenHeader, token)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, &RequestError{Op: op, Method: method, URL: url, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &RequestError{Op: op, Method: method, URL: url, StatusCode: res.StatusCode, Body: string(buf)}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, &RequestError{Op: op, Method: method, URL: url, Err: fmt.Errorf("read response body: %w", err)}
	}
	return buf, nil
}

func (c *Client) decodeError(op, method, path string, err error) *RequestError {
	return &RequestError{Op: op, Method: method, URL: c.baseURL + path, Err: fmt.Errorf("decode response: %w", err)}
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

// resolveClientToken returns the static token or the SSM-held one. A failed
// SSM read is retried on the next call.
func (c *Client) resolveClientToken(ctx context.Context) (string, error) {
	if c.staticToken != "" {
		return c.staticToken, nil
	}
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	token, err := fetchClientToken(ctx, c.getter, c.paramName)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// fetchClientToken accepts either a raw token or {"token": "..."}.
func fetchClientToken(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("leadapi: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("leadapi: token parameter name is empty")
	}
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("leadapi: fetch client token: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var tp tokenPayload
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			return "", fmt.Errorf("leadapi: unmarshal client token parameter: %w", err)
		}
		raw = strings.TrimSpace(tp.Token)
	}
	if raw == "" {
		return "", errors.New("leadapi: client token is empty")
	}
	return raw, nil
}

// flexString decodes JSON strings and numbers alike; ids arrive as either.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

var newEventID = func() string {
	return "evt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
