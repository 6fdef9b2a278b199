package worker

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/mailer"
)

// StartMailWorker launches the dispatcher worker pool together with the
// retry drain loop that moves parked tasks back onto the ready queue.
// Both stop when ctx is cancelled; Run blocks until its workers exit.
func StartMailWorker(ctx context.Context, dispatcher *mailer.Dispatcher, queue *mailer.RedisQueue, drainInterval time.Duration) {
	go queue.DrainRetries(ctx, drainInterval)
	dispatcher.Run(ctx)
}
