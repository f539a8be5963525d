package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/metrics"
	"github.com/lalithlochan/solebox/internal/sqs"
)

// Consumer is the subset of the SQS consumer the worker needs.
type Consumer interface {
	ReceiveMessage(ctx context.Context) (*sqs.Message, string, error)
	DeleteMessage(ctx context.Context, receiptHandle string) error
}

// Checker runs an achievement check for one user.
type Checker interface {
	Check(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Worker consumes wardrobe activity events and runs the achievement
// checker for the user in each one. A message is deleted only after the
// check succeeded; failed checks become visible again after the queue's
// visibility timeout.
type Worker struct {
	consumer Consumer
	checker  Checker
	config   Config
	logger   *zap.Logger
}

// Config tunes the worker loop. Zero values take defaults.
type Config struct {
	// ErrorBackoff is the pause after a failed receive.
	ErrorBackoff time.Duration
	// CheckTimeout bounds a single achievement check.
	CheckTimeout time.Duration
}

// New creates a worker. Call Start to begin consuming.
func New(consumer Consumer, checker Checker, cfg Config, logger *zap.Logger) *Worker {
	if cfg.ErrorBackoff == 0 {
		cfg.ErrorBackoff = 5 * time.Second
	}
	if cfg.CheckTimeout == 0 {
		cfg.CheckTimeout = 30 * time.Second
	}

	return &Worker{
		consumer: consumer,
		checker:  checker,
		config:   cfg,
		logger:   logger,
	}
}

// Start polls until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("activity worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return
		default:
		}

		if err := w.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to receive activity message", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(w.config.ErrorBackoff):
			}
		}
	}
}

// pollOnce receives and handles at most one message. Only receive errors
// are returned; per-message failures are logged.
func (w *Worker) pollOnce(ctx context.Context) error {
	msg, receipt, err := w.consumer.ReceiveMessage(ctx)
	if errors.Is(err, sqs.ErrInvalidMessage) {
		metrics.RecordActivityMessage("invalid")
		w.logger.Warn("dropping invalid activity message", zap.Error(err))
		w.delete(ctx, receipt)
		return nil
	}
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	w.process(ctx, msg, receipt)
	return nil
}

func (w *Worker) process(ctx context.Context, msg *sqs.Message, receipt string) {
	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		metrics.RecordActivityMessage("invalid")
		w.delete(ctx, receipt)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, w.config.CheckTimeout)
	defer cancel()

	unlocked, err := w.checker.Check(checkCtx, userID)
	if err != nil {
		metrics.RecordActivityMessage("failed")
		w.logger.Error("achievement check failed",
			zap.String("user_id", msg.UserID),
			zap.String("reason", msg.Reason),
			zap.Error(err),
		)
		return
	}

	metrics.RecordActivityMessage("processed")
	w.logger.Info("activity processed",
		zap.String("user_id", msg.UserID),
		zap.String("reason", msg.Reason),
		zap.Strings("unlocked", unlocked),
	)

	w.delete(ctx, receipt)
}

func (w *Worker) delete(ctx context.Context, receipt string) {
	if receipt == "" {
		return
	}
	if err := w.consumer.DeleteMessage(ctx, receipt); err != nil {
		w.logger.Error("failed to delete activity message", zap.Error(err))
	}
}
