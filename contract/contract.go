//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"dmcore/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// SnapshotFunc receives the complete ordered history of a channel.
// Invocations for a single subscription are strictly ordered.
type SnapshotFunc func(snap domain.Snapshot)

// ErrorFunc receives subscription failures, distinct from the snapshot path.
type ErrorFunc func(err error)

// SubscriptionHandle owns the lifetime of one live subscription.
// Release is idempotent; after it returns no further deliveries occur.
type SubscriptionHandle interface {
	Release()
}

// SnapshotSink is the delivery side of a subscription, consumed by the
// fanout worker. A sink drops snapshots shorter than one already delivered,
// so the observed history never shrinks or reorders.
type SnapshotSink interface {
	Deliver(snap domain.Snapshot)
}

type IRegistry interface {
	SinksFor(channel domain.ChannelID) []SnapshotSink
}

// IExchange is the subscription/notification engine seen by callers.
type IExchange interface {
	Subscribe(channel domain.ChannelID, onSnapshot SnapshotFunc, onError ErrorFunc) SubscriptionHandle
	Send(ctx context.Context, cmd domain.AppendCommand) (domain.Message, error)
}
