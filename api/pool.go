package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"menu-api/domain"
)

// NotifyOptions sizes the order notification pool.
type NotifyOptions struct {
	Workers        int
	Buffer         int
	Timeout        time.Duration
	HandoffTimeout time.Duration
}

type orderJob struct {
	order domain.OrderConfirmation
	key   string // idempotency key to roll back on publish failure
}

// orderSender publishes confirmed orders on a bounded set of workers so the
// confirm request does not wait on the queue.
type orderSender struct {
	publisher OrderPublisher
	deduper   Deduper
	log       *log.Logger
	timeout   time.Duration
	handoff   time.Duration

	jobs      chan orderJob
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newOrderSender(publisher OrderPublisher, deduper Deduper, logger *log.Logger, opts NotifyOptions) *orderSender {
	if logger == nil {
		panic("Logger is not initialized")
	}
	if publisher == nil {
		publisher = logPublisher{log: logger}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	s := &orderSender{
		publisher: publisher,
		deduper:   deduper,
		log:       logger,
		timeout:   opts.Timeout,
		handoff:   opts.HandoffTimeout,
		jobs:      make(chan orderJob, opts.Buffer),
	}
	for i := 0; i < opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	logger.Infof("order sender started, workers: %d, buffer: %d, timeout: %v, handoff: %v", opts.Workers, opts.Buffer, opts.Timeout, opts.HandoffTimeout)
	return s
}

func (s *orderSender) worker(id int) {
	defer s.wg.Done()
	for j := range s.jobs {
		if err := s.publish(j); err != nil {
			s.log.Errorf("order publish failed, err: %v, order: %s, session: %s, worker: %d", err, j.order.ID, j.order.SessionID, id)
		}
	}
}

// send hands the job to a worker, publishing inline when the pool is
// saturated.
func (s *orderSender) send(job orderJob) error {
	if s.tryEnqueue(job) {
		return nil
	}
	s.log.Warn("order buffer saturated; publishing inline")
	return s.publish(job)
}

func (s *orderSender) publish(j orderJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	err := s.publisher.PublishOrder(ctx, j.order)
	cancel()
	if err != nil {
		s.rollback(j)
	}
	return err
}

func (s *orderSender) rollback(j orderJob) {
	if s.deduper == nil || j.key == "" {
		return
	}
	if err := s.deduper.Remove(context.Background(), j.order.SessionID, j.key); err != nil {
		s.log.Errorf("dedupe rollback failed, err: %v, key: %s, session: %s", err, j.key, j.order.SessionID)
	}
}

func (s *orderSender) tryEnqueue(job orderJob) bool {
	if ok, closed := trySendNonBlocking(s.jobs, job); closed {
		return false
	} else if ok {
		return true
	}

	if s.handoff <= 0 {
		return false
	}

	timer := time.NewTimer(s.handoff)
	defer timer.Stop()

	ok, _ := sendWithTimer(s.jobs, job, timer.C)
	return ok
}

// shutdown stops accepting jobs and waits for queued ones to be published.
func (s *orderSender) shutdown() {
	s.closeOnce.Do(func() { close(s.jobs) })
	s.wg.Wait()
}

func trySendNonBlocking(ch chan orderJob, job orderJob) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan orderJob, job orderJob, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	case <-timer:
		return false, false
	}
}

// logPublisher records orders in the log when no queue is configured.
type logPublisher struct {
	log *log.Logger
}

func (p logPublisher) PublishOrder(_ context.Context, order domain.OrderConfirmation) error {
	p.log.WithFields(log.Fields{
		"order":    order.ID,
		"session":  order.SessionID,
		"business": order.BusinessID,
		"items":    len(order.Items),
		"total":    order.Summary.Total.String(),
	}).Info("order.confirmed")
	return nil
}
