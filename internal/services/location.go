package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"keywe-backend/internal/cache"
	"keywe-backend/internal/config"

	"github.com/rs/zerolog/log"
)

// LocationService detects a visitor's city from their IP address.
type LocationService struct {
	cfg    config.GeoIPConfig
	client *http.Client
	cache  cache.Cache
	ttl    time.Duration
}

func NewLocationService(cfg config.GeoIPConfig, c cache.Cache) *LocationService {
	if c == nil {
		c = cache.Noop{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &LocationService{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		cache:  c,
		ttl:    24 * time.Hour,
	}
}

// ResolveClientIP prefers the first X-Forwarded-For entry over the socket
// address. Loopback addresses are replaced by the configured fallback so
// local development still resolves a city. Anything that is not an IP
// address yields "".
func (s *LocationService) ResolveClientIP(forwardedFor, remoteIP string) string {
	parsed := net.ParseIP(strings.TrimSpace(remoteIP))
	if forwardedFor != "" {
		if first := net.ParseIP(strings.TrimSpace(strings.SplitN(forwardedFor, ",", 2)[0])); first != nil {
			parsed = first
		}
	}
	if parsed == nil {
		return ""
	}
	if parsed.IsLoopback() && s.cfg.FallbackIP != "" {
		return s.cfg.FallbackIP
	}
	return parsed.String()
}

type geoResponse struct {
	Status string `json:"status"`
	City   string `json:"city"`
}

// DetectCity returns the city for ip, or "" when it cannot be determined.
// Lookup failures are logged and never fail the request.
func (s *LocationService) DetectCity(ctx context.Context, ip string) string {
	if !s.cfg.Enabled || s.cfg.URL == "" || net.ParseIP(ip) == nil {
		return ""
	}

	// keyed by provider too, so switching GEOIP_URL does not serve stale cities
	key := cache.QueryKey("geo", map[string]string{"ip": ip, "provider": s.cfg.URL})
	var city string
	if ok, err := s.cache.Get(ctx, key, &city); err == nil && ok {
		return city
	}

	city, err := s.lookup(ctx, ip)
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("city lookup failed")
		return ""
	}
	if city != "" {
		if err := s.cache.Set(ctx, key, city, s.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to cache city")
		}
	}
	return city
}

func (s *LocationService) lookup(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(s.cfg.URL, url.PathEscape(ip)), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo lookup returned status %d", resp.StatusCode)
	}
	var body geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode geo response: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return "", nil
	}
	return body.City, nil
}
