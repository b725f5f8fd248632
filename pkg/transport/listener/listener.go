// Package listener drains domain events from a channel and hands them to a
// forwarding function, so a slow broker never blocks the caller that raised them.
package listener

import (
	"context"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"go.uber.org/zap"
)

type (
	Forward func(entity.Event) error

	Listener struct {
		inputChan chan entity.Event
		forward   Forward
		logger    *logger.Logger
		done      chan struct{}
	}
)

func Init(buffer int, forward Forward, logger *logger.Logger) *Listener {
	return &Listener{
		inputChan: make(chan entity.Event, buffer),
		forward:   forward,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Enqueue queues an event for forwarding. It blocks while the buffer is full.
// It has the eventbus handler signature.
func (list *Listener) Enqueue(event entity.Event) {
	list.inputChan <- event
}

// Listen forwards queued events until ctx is cancelled or Close drains the queue.
func (list *Listener) Listen(ctx context.Context) {
	defer close(list.done)

	for {
		select {
		case event, ok := <-list.inputChan:
			if !ok {
				return
			}

			if err := event.Validate(); err != nil {
				list.logger.Error("skip invalid event",
					zap.String("event_type", event.Type),
					zap.String("event_id", event.ID),
					zap.Error(err))
				continue
			}

			if err := list.forward(event); err != nil {
				list.logger.Error("error forward event",
					zap.String("event_type", event.Type),
					zap.String("event_id", event.ID),
					zap.Error(err))
				continue
			}

		case <-ctx.Done():
			list.logger.Info("stopping listeners...")
			return
		}
	}
}

// Close stops accepting events and waits until Listen has forwarded the queued ones.
// Enqueue must not be called after Close.
func (list *Listener) Close() error {
	close(list.inputChan)
	<-list.done
	return nil
}
