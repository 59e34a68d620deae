package queue

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

// SubjectPrefix is prepended to the event type to form the NATS subject,
// e.g. csms.events.transaction_started.
const SubjectPrefix = "csms.events."

// Bridge forwards envelopes from the in-process event bus to the message
// queue so external consumers see the same event stream.
type Bridge struct {
	queue ports.MessageQueue
	sub   *events.Subscriber
	log   *zap.Logger
	done  chan struct{}
}

func NewBridge(bus *events.Bus, queue ports.MessageQueue, log *zap.Logger) *Bridge {
	return &Bridge{
		queue: queue,
		sub:   bus.Subscribe(),
		log:   log,
		done:  make(chan struct{}),
	}
}

// Run pumps envelopes until the bus closes or Stop is called. Publish
// failures are logged and skipped; the queue is best-effort delivery.
func (b *Bridge) Run() {
	defer close(b.done)
	for env := range b.sub.C {
		data, err := json.Marshal(env)
		if err != nil {
			b.log.Error("failed to marshal event envelope",
				zap.String("type", env.Type),
				zap.Error(err))
			continue
		}
		if err := b.queue.Publish(SubjectPrefix+env.Type, data); err != nil {
			b.log.Error("failed to publish event",
				zap.String("type", env.Type),
				zap.Error(err))
		}
	}
}

// Stop detaches from the bus and waits for the pump goroutine to drain.
func (b *Bridge) Stop() {
	b.sub.Unsubscribe()
	<-b.done
}
