package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Suryanandx/2d-code-verifier/pkg/models"
)

// VerificationEvent describes one step of a verification request
type VerificationEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	ReportID       string                 `json:"report_id,omitempty"`
	Source         string                 `json:"source,omitempty"`
	Symbology      string                 `json:"symbology,omitempty"`
	Grade          models.Grade           `json:"grade,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of verification event
type EventType string

const (
	// VerificationStarted when an image enters the pipeline
	VerificationStarted EventType = "verification_started"
	// VerificationCompleted when a report was produced
	VerificationCompleted EventType = "verification_completed"
	// VerificationFailed when the pipeline returned an error
	VerificationFailed EventType = "verification_failed"
	// ImageFetched when a remote image was downloaded
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when a remote image could not be downloaded
	ImageFetchFailed EventType = "image_fetch_failed"
	// ReportStored when the record was persisted
	ReportStored EventType = "report_stored"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event VerificationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event VerificationEvent)
}

// LoggingObserver logs verification events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles verification events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event VerificationEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"report_id":       event.ReportID,
		"source":          event.Source,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.Symbology != "" {
		fields["symbology"] = event.Symbology
	}
	if event.Grade != "" {
		fields["grade"] = event.Grade
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case VerificationStarted:
		entry.Debug("Verification started")
	case VerificationCompleted:
		entry.Info("Verification completed")
	case VerificationFailed:
		entry.Warn("Verification failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	case ReportStored:
		entry.Debug("Report stored")
	default:
		entry.Info("Verification event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from verification events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalVerifications  int64
	completed           int64
	failed              int64
	fetchFailures       int64
	totalProcessingTime time.Duration
	grades              map[models.Grade]int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{grades: make(map[models.Grade]int64)}
}

// OnEvent handles verification events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event VerificationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case VerificationStarted:
		o.totalVerifications++
	case VerificationCompleted:
		o.completed++
		o.totalProcessingTime += event.ProcessingTime
		if event.Grade != "" {
			o.grades[event.Grade]++
		}
	case VerificationFailed:
		o.failed++
	case ImageFetchFailed:
		o.fetchFailures++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current counters
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.completed > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.completed)
	}
	grades := make(map[string]int64, len(o.grades))
	for g, n := range o.grades {
		grades[string(g)] = n
	}

	return map[string]interface{}{
		"total_verifications":    o.totalVerifications,
		"completed":              o.completed,
		"failed":                 o.failed,
		"fetch_failures":         o.fetchFailures,
		"avg_processing_time_ms": avgProcessingTime.Milliseconds(),
		"grades":                 grades,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	wg        sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Observers run
// concurrently and must not block the request that raised the event.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event VerificationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// The request context may be cancelled before observers run.
	ctx = context.WithoutCancel(ctx)
	for _, observer := range observers {
		p.wg.Add(1)
		go func(obs Observer) {
			defer p.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until every notification dispatched so far has been handled.
func (p *EventPublisher) Wait() {
	p.wg.Wait()
}
