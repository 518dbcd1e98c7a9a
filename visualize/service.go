package visualize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ServiceSink pushes per-epoch metrics to an external visualization
// service over HTTP. It satisfies the trainer's sink interface.
type ServiceSink struct {
	endpoint string
	client   *http.Client
	retries  int
}

// NewServiceSink creates a sink for the given base endpoint, e.g.
// "http://localhost:8080".
func NewServiceSink(endpoint string) *ServiceSink {
	return &ServiceSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		retries:  3,
	}
}

// CheckHealth verifies the service is reachable before training starts.
func (s *ServiceSink) CheckHealth() error {
	resp, err := s.client.Get(s.endpoint + "/health")
	if err != nil {
		return fmt.Errorf("metrics service unreachable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("metrics service unhealthy: %s", resp.Status)
	}
	return nil
}

type metricsPayload struct {
	Scope  string             `json:"scope"`
	Epoch  int                `json:"epoch"`
	Values map[string]float64 `json:"values"`
}

// PushScalars posts one epoch's scalars, retrying transient failures
// with a short backoff.
func (s *ServiceSink) PushScalars(scope string, epoch int, values map[string]float64) error {
	body, err := json.Marshal(metricsPayload{Scope: scope, Epoch: epoch, Values: values})
	if err != nil {
		return fmt.Errorf("encoding metrics: %v", err)
	}

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		resp, err := s.client.Post(s.endpoint+"/metrics", "application/json", bytes.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
			return nil
		}
		lastErr = fmt.Errorf("metrics service returned %s", resp.Status)
	}
	return fmt.Errorf("pushing metrics after %d attempts: %v", s.retries, lastErr)
}

// Close is a no-op; the service owns its own lifecycle.
func (s *ServiceSink) Close() error { return nil }
