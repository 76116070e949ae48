// Package webhook notifies an external endpoint when a podcast job finishes.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nikhilbhutani/podcastai/internal/models"
	"github.com/nikhilbhutani/podcastai/internal/retry"
)

const (
	EventCompleted = "podcast.completed"
	EventFailed    = "podcast.failed"

	queueSize = 1000
)

// Payload is the JSON body posted for every finished job.
type Payload struct {
	Event       string           `json:"event"`
	JobID       string           `json:"jobId"`
	Status      models.JobStatus `json:"status"`
	Topic       string           `json:"topic"`
	Error       string           `json:"error,omitempty"`
	AudioBytes  int              `json:"audioBytes,omitempty"`
	FailedURLs  []string         `json:"failedUrls,omitempty"`
	CompletedAt time.Time        `json:"completedAt"`
}

type deliveryRequest struct {
	event   string
	jobID   string
	payload []byte
}

// Dispatcher delivers job notifications from a single background loop.
type Dispatcher struct {
	url        string
	secret     string
	httpClient *http.Client
	retry      retry.Policy
	deliveries chan deliveryRequest
	done       chan struct{}
	mu         sync.Mutex
	closed     bool
	now        func() time.Time
}

func NewDispatcher(url, secret string, timeout time.Duration, policy retry.Policy) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &Dispatcher{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
		retry:      policy,
		deliveries: make(chan deliveryRequest, queueSize),
		done:       make(chan struct{}),
		now:        time.Now,
	}
	go d.processLoop()
	return d
}

// Notify queues a notification for a job in a terminal state. It never
// blocks; when the queue is full or the dispatcher is closed the
// notification is dropped.
func (d *Dispatcher) Notify(job models.Job) {
	event := EventCompleted
	if job.Status == models.JobStatusError {
		event = EventFailed
	}

	body, err := json.Marshal(Payload{
		Event:       event,
		JobID:       job.ID,
		Status:      job.Status,
		Topic:       job.Topic,
		Error:       job.Error,
		AudioBytes:  len(job.Audio),
		FailedURLs:  job.FailedURLs,
		CompletedAt: d.now().UTC(),
	})
	if err != nil {
		slog.Error("webhook payload encoding failed", "job_id", job.ID, "error", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		slog.Warn("webhook dispatcher closed, dropping", "job_id", job.ID, "event", event)
		return
	}
	select {
	case d.deliveries <- deliveryRequest{event: event, jobID: job.ID, payload: body}:
	default:
		slog.Warn("webhook delivery queue full, dropping", "job_id", job.ID, "event", event)
	}
}

// Close stops accepting notifications and waits for queued ones to be
// delivered or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.deliveries)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) processLoop() {
	defer close(d.done)
	for req := range d.deliveries {
		d.deliver(req)
	}
}

func (d *Dispatcher) deliver(req deliveryRequest) {
	signature := sign(req.payload, d.secret)

	_, err := retry.Do(context.Background(), d.retry, "webhook.deliver", func(ctx context.Context) (int, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(req.payload))
		if err != nil {
			return 0, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-Webhook-Event", req.event)
		httpReq.Header.Set("X-Webhook-Signature", signature)
		httpReq.Header.Set("X-Webhook-ID", req.jobID)

		resp, err := d.httpClient.Do(httpReq)
		if err != nil {
			return 0, err
		}
		resp.Body.Close()

		if resp.StatusCode >= 400 {
			return resp.StatusCode, fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		slog.Error("webhook delivery failed", "job_id", req.jobID, "event", req.event, "error", err)
		return
	}
	slog.Info("webhook delivered", "job_id", req.jobID, "event", req.event)
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}
