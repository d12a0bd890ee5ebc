// Package notify delivers email payloads to the transactional-email
// collaborator through a message broker.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"quoteportal/internal/model"

	"go.uber.org/zap"
)

// Renderer fills subject and body from stored templates.
type Renderer interface {
	Render(ctx context.Context, n model.Notification) (model.Notification, error)
}

// Publisher writes one encoded payload to the broker.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Dispatcher queues notifications and publishes them from a single worker.
// Notify never blocks; payloads are dropped when the buffer is full.
type Dispatcher struct {
	renderer Renderer
	pub      Publisher
	log      *zap.Logger
	timeout  time.Duration

	queue chan model.Notification
	wg    sync.WaitGroup
	once  sync.Once
}

func NewDispatcher(renderer Renderer, pub Publisher, log *zap.Logger, buffer int) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 128
	}
	return &Dispatcher{
		renderer: renderer,
		pub:      pub,
		log:      log,
		timeout:  10 * time.Second,
		queue:    make(chan model.Notification, buffer),
	}
}

// Start launches the worker. It drains the queue after Close.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for n := range d.queue {
			d.deliver(n)
		}
	}()
}

// Notify enqueues n.
func (d *Dispatcher) Notify(_ context.Context, n model.Notification) {
	select {
	case d.queue <- n:
	default:
		d.log.Warn("notification queue full, dropping payload",
			zap.String("template_type", n.TemplateType),
			zap.String("recipient", n.RecipientEmail))
	}
}

// Close stops accepting work and waits for queued payloads to be published.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.queue) })
	d.wg.Wait()
}

func (d *Dispatcher) deliver(n model.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if d.renderer != nil {
		rendered, err := d.renderer.Render(ctx, n)
		if err != nil {
			d.log.Warn("failed to render email template, sending variables only",
				zap.String("template_type", n.TemplateType), zap.Error(err))
		} else {
			n = rendered
		}
	}

	body, err := json.Marshal(n)
	if err != nil {
		d.log.Error("failed to encode notification", zap.Error(err))
		return
	}
	if err := d.pub.Publish(ctx, body); err != nil {
		d.log.Error("failed to publish notification",
			zap.String("template_type", n.TemplateType),
			zap.String("recipient", n.RecipientEmail),
			zap.Error(err))
		return
	}
	d.log.Debug("notification published",
		zap.String("template_type", n.TemplateType),
		zap.String("recipient", n.RecipientEmail))
}
