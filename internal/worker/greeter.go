package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/luxserv365/guest-concierge/internal/model"
	"github.com/luxserv365/guest-concierge/internal/rabbitmq/queue"
)

type welcomeQueue interface {
	Consume(out chan<- queue.WelcomeMessage, strategy retry.Strategy) error
}

type messageHandler interface {
	HandleMessage(ctx context.Context, msg queue.WelcomeMessage, strategy retry.Strategy)
}

type bookingService interface {
	GetWelcomeStatusByID(ctx context.Context, id uuid.UUID) (model.WelcomeStatus, error)
}

// Greeter drains the welcome queue with a pool of workers. A message is
// handled only while its booking is still pending, so redeliveries after a
// successful send are skipped.
type Greeter struct {
	queue   welcomeQueue
	handler messageHandler
	service bookingService
}

func NewGreeter(q welcomeQueue, h messageHandler, s bookingService) *Greeter {
	return &Greeter{
		queue:   q,
		handler: h,
		service: s,
	}
}

func (g *Greeter) Run(ctx context.Context, strategy retry.Strategy, workerCount int) {
	var wg sync.WaitGroup
	msgChan := make(chan queue.WelcomeMessage, workerCount*10)

	go func() {
		if err := g.queue.Consume(msgChan, strategy); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to consume messages")
		}
	}()

	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func(id int) {
			defer wg.Done()

			zlog.Logger.Printf("greeter-%d started", id)

			for {
				select {
				case <-ctx.Done():
					zlog.Logger.Printf("greeter-%d shutting down", id)
					return
				case msg, ok := <-msgChan:
					if !ok {
						zlog.Logger.Printf("greeter-%d channel closed, shutting down", id)
						return
					}

					status, err := g.service.GetWelcomeStatusByID(ctx, msg.BookingID)
					if err != nil {
						zlog.Logger.Printf("failed to get welcome status for %s: %v", msg.BookingID, err)
						continue
					}

					if status != model.WelcomePending {
						zlog.Logger.Printf("booking %s already %s, skipping", msg.BookingID, status)
						continue
					}

					g.handler.HandleMessage(ctx, msg, strategy)
				}
			}
		}(i)
	}

	<-ctx.Done()
	wg.Wait()
	zlog.Logger.Print("greeter stopped")
}
