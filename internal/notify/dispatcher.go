package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/metrics"
)

// Sender performs one delivery attempt.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

type DispatcherOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	PollInterval   time.Duration
}

// Dispatcher drains a Queue and delivers each notification with retries.
// Failures are logged and counted and never reach the request that queued
// the notification.
type Dispatcher struct {
	queue   Queue
	senders map[Kind]Sender
	logger  logger.Logger
	opts    DispatcherOptions

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(queue Queue, log logger.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Dispatcher{
		queue:   queue,
		senders: map[Kind]Sender{},
		logger:  log.WithFields(map[string]interface{}{"component": "notify-dispatcher"}),
		opts:    opts,
		sleep:   sleepContext,
	}
}

// Register routes a kind to a sender. Call it before the dispatcher is
// shared; notifications of unregistered kinds are never queued.
func (d *Dispatcher) Register(kind Kind, sender Sender) {
	d.senders[kind] = sender
}

// Enqueue implements Enqueuer. A kind with no sender is skipped so that a
// disabled channel does not fill the queue.
func (d *Dispatcher) Enqueue(ctx context.Context, n *Notification) error {
	if _, ok := d.senders[n.Kind]; !ok {
		metrics.NotificationsSent.WithLabelValues(string(n.Kind), "skipped").Inc()
		d.logger.Debug("no sender for notification kind, skipping", map[string]interface{}{
			"kind": string(n.Kind),
			"id":   n.ID,
		})
		return nil
	}
	if err := d.queue.Push(ctx, n); err != nil {
		metrics.NotificationsSent.WithLabelValues(string(n.Kind), "enqueue_failed").Inc()
		return err
	}
	return nil
}

// Run starts workers and blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.work(ctx, id)
		}(i)
	}

	d.logger.Info("notification dispatcher started", map[string]interface{}{"workers": workers})
	wg.Wait()
	d.logger.Info("notification dispatcher stopped", nil)
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := d.queue.Pop(ctx, d.opts.PollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Warn("failed to read notification queue", map[string]interface{}{
				"worker": id,
				"error":  err,
			})
			if d.sleep(ctx, d.opts.PollInterval) != nil {
				return
			}
			continue
		}
		if n == nil {
			continue
		}

		_ = d.Deliver(ctx, n)
	}
}

// Deliver attempts n up to MaxAttempts times with exponential backoff and
// returns the last error.
func (d *Dispatcher) Deliver(ctx context.Context, n *Notification) error {
	sender, ok := d.senders[n.Kind]
	if !ok {
		metrics.NotificationsSent.WithLabelValues(string(n.Kind), "dropped").Inc()
		d.logger.Warn("no sender registered for notification", map[string]interface{}{
			"kind": n.Kind,
			"id":   n.ID,
		})
		return fmt.Errorf("no sender for kind %s", n.Kind)
	}

	backoff := d.opts.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		lastErr = sender.Send(ctx, n)
		if lastErr == nil {
			metrics.NotificationsSent.WithLabelValues(string(n.Kind), "delivered").Inc()
			d.logger.Debug("notification delivered", map[string]interface{}{
				"kind":    n.Kind,
				"id":      n.ID,
				"target":  n.Target,
				"attempt": attempt,
			})
			return nil
		}

		d.logger.Warn("notification attempt failed", map[string]interface{}{
			"kind":    n.Kind,
			"id":      n.ID,
			"target":  n.Target,
			"attempt": attempt,
			"error":   lastErr,
		})

		if attempt == d.opts.MaxAttempts {
			break
		}
		metrics.NotificationsSent.WithLabelValues(string(n.Kind), "retried").Inc()
		if err := d.sleep(ctx, backoff); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
		backoff *= 2
	}

	metrics.NotificationsSent.WithLabelValues(string(n.Kind), "failed").Inc()
	d.logger.Error("notification abandoned", map[string]interface{}{
		"kind":   n.Kind,
		"id":     n.ID,
		"target": n.Target,
		"error":  lastErr,
	})
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
