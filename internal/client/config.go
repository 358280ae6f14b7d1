package client

import (
	"net"
	"net/http"
	"time"
)

// Config holds the information needed to connect to the validation backend.
type Config struct {
	Service Service `json:"service"`
}

// Service contains information how to connect to the validation backend.
type Service struct {
	// Server is the URL of the backend (the part before /api/...).
	Server string `json:"server"`
}

func (c *Config) Equal(c2 *Config) bool {
	if c == c2 {
		return true
	}
	if c == nil || c2 == nil {
		return false
	}
	return c.Service.Equal(&c2.Service)
}

func (s *Service) Equal(s2 *Service) bool {
	if s == s2 {
		return true
	}
	if s == nil || s2 == nil {
		return false
	}
	return s.Server == s2.Server
}

func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}
	return &Config{Service: *c.Service.DeepCopy()}
}

func (s *Service) DeepCopy() *Service {
	if s == nil {
		return nil
	}
	s2 := *s
	return &s2
}

func NewDefault() *Config {
	return &Config{}
}

// NewHTTPClientFromConfig returns a new HTTP client from the given config.
func NewHTTPClientFromConfig(config *Config) (*http.Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	return httpClient, nil
}
