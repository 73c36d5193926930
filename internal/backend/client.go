package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"pawcare/booking/internal/domain"
)

const maxResponseBytes = 4 << 20

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

type availabilityFetcher interface {
	FetchAvailability(ctx context.Context, auth AuthContext, providerID string) (AvailabilityResponse, error)
}

type Client struct {
	baseURL      string
	http         *http.Client
	limiter      *rate.Limiter
	availability availabilityFetcher
	log          *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: limiter,
		log:     log.With(slog.String("component", "backend.client")),
	}
	c.availability = c
	return c, nil
}

// UseAvailabilityCache routes availability reads through cache. The cache must
// wrap this client's FetchAvailability.
func (c *Client) UseAvailabilityCache(cache *AvailabilityCache) {
	if cache != nil {
		c.availability = cache
	}
}

func (c *Client) FetchAvailability(ctx context.Context, auth AuthContext, providerID string) (AvailabilityResponse, error) {
	var out AvailabilityResponse
	path := "/providers/" + url.PathEscape(providerID) + "/availability"
	if err := c.do(ctx, auth, http.MethodGet, path, nil, nil, nil, &out); err != nil {
		return AvailabilityResponse{}, err
	}
	return out, nil
}

func (c *Client) GetAvailability(ctx context.Context, auth AuthContext, providerID string) (domain.WeeklyAvailability, error) {
	raw, err := c.availability.FetchAvailability(ctx, auth, providerID)
	if err != nil {
		return nil, err
	}
	avail, err := raw.WeeklyAvailability()
	if err != nil {
		return nil, fmt.Errorf("%w: provider %s availability: %w", ErrMalformedResponse, providerID, err)
	}
	return avail, nil
}

// ListAppointments returns the provider's non-cancelled appointments on date.
func (c *Client) ListAppointments(ctx context.Context, auth AuthContext, providerID string, date domain.DateOnly) ([]domain.ExistingAppointment, error) {
	var out AppointmentsResponse
	path := "/providers/" + url.PathEscape(providerID) + "/appointments"
	query := url.Values{"date": []string{date.String()}}
	if err := c.do(ctx, auth, http.MethodGet, path, query, nil, nil, &out); err != nil {
		return nil, err
	}

	appts := make([]domain.ExistingAppointment, 0, len(out.Appointments))
	for _, raw := range out.Appointments {
		a, err := raw.toAppointment()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		if a.Cancelled() {
			continue
		}
		appts = append(appts, a.Existing())
	}
	return appts, nil
}

func (c *Client) CreateAppointment(ctx context.Context, auth AuthContext, req AppointmentRequest, idempotencyKey string) (Appointment, error) {
	var headers map[string]string
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		headers = map[string]string{"Idempotency-Key": key}
	}
	var out AppointmentContract
	if err := c.do(ctx, auth, http.MethodPost, "/appointments", nil, req.body(), headers, &out); err != nil {
		return Appointment{}, err
	}
	return c.decodeAppointment(out)
}

func (c *Client) UpdateAppointment(ctx context.Context, auth AuthContext, appointmentID string, req AppointmentRequest) (Appointment, error) {
	var out AppointmentContract
	path := "/appointments/" + url.PathEscape(appointmentID)
	if err := c.do(ctx, auth, http.MethodPut, path, nil, req.body(), nil, &out); err != nil {
		return Appointment{}, err
	}
	return c.decodeAppointment(out)
}

func (c *Client) decodeAppointment(raw AppointmentContract) (Appointment, error) {
	a, err := raw.toAppointment()
	if err != nil {
		return Appointment{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return a, nil
}

func (c *Client) do(ctx context.Context, auth AuthContext, method, path string, query url.Values, body any, headers map[string]string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+auth.BearerToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	c.log.Debug(
		"api call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
	}
	return nil
}
