/*
 * backend/watchstream/watchstream.go
 *
 * Watch-to-stream adapter.
 * - Opens a watch through the auth retry wrapper.
 * - Relays Added/Modified/Deleted events to a consumer in order.
 * - Tears down on caller cancellation, Unsubscribe, or transport end.
 */

package watchstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	goruntime "runtime"
	"strconv"
	"sync"
	"sync/atomic"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/klog/v2"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/cluster"
	"github.com/luxury-yacht/dashboard/backend/internal/telemetry"
	"github.com/luxury-yacht/dashboard/backend/resources/common"
)

// EventType is the change kind carried by an envelope.
type EventType string

const (
	Added    EventType = "ADDED"
	Modified EventType = "MODIFIED"
	Deleted  EventType = "DELETED"
)

// Event is the envelope handed to consumers.
type Event[T any] struct {
	Type   EventType `json:"type"`
	Object T         `json:"object"`
}

// Config describes one subscription.
type Config[T any] struct {
	// Resource names the watched collection in logs and errors, e.g. "configmaps in default".
	Resource string
	Open     func(ctx context.Context, clients *cluster.Clients) (watch.Interface, error)
	Map      func(obj runtime.Object) (T, error)
	OnEvent  func(Event[T])
	// OnError receives mapping failures (the stream continues) and transport
	// failures (the stream ends).
	OnError func(error)

	Logger    common.Logger
	Telemetry *telemetry.Recorder
}

// Subscription is a live watch relay.
type Subscription struct {
	resource  string
	watcher   watch.Interface
	cancel    context.CancelFunc
	logger    common.Logger
	telemetry *telemetry.Recorder

	detachMu sync.Mutex
	detach   func() bool

	// deliverMu is held for the whole of every callback; Unsubscribe takes it
	// so no callback starts after it returns.
	deliverMu sync.Mutex
	relayID   atomic.Uint64

	stopped  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

// Subscribe opens the watch and starts relaying events on a dedicated
// goroutine. Only the open handshake is retried on auth failure. ctx is the
// caller's cancellation signal; cancelling it is equivalent to Unsubscribe.
func Subscribe[T any](ctx context.Context, creds *cluster.Credentials, cfg Config[T]) (*Subscription, error) {
	if cfg.Open == nil || cfg.Map == nil || cfg.OnEvent == nil {
		return nil, errors.New("watchstream: Open, Map and OnEvent are required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = common.NoopLogger{}
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	watcher, err := cluster.Do(streamCtx, creds, "watch "+cfg.Resource, func(ctx context.Context, clients *cluster.Clients) (watch.Interface, error) {
		return cfg.Open(ctx, clients)
	})
	if err != nil {
		cancel()
		logger.Error(fmt.Sprintf("Failed to open watch on %s: %v", cfg.Resource, err), "WatchStream")
		return nil, err
	}

	sub := &Subscription{
		resource:  cfg.Resource,
		watcher:   watcher,
		cancel:    cancel,
		logger:    logger,
		telemetry: cfg.Telemetry,
		done:      make(chan struct{}),
	}
	sub.detachMu.Lock()
	sub.detach = context.AfterFunc(ctx, sub.Unsubscribe)
	sub.detachMu.Unlock()

	sub.telemetry.RecordStreamConnect(telemetry.StreamResources)
	logger.Debug(fmt.Sprintf("Watch opened on %s", cfg.Resource), "WatchStream")

	go relay(streamCtx, sub, cfg)
	return sub, nil
}

func relay[T any](ctx context.Context, sub *Subscription, cfg Config[T]) {
	sub.relayID.Store(goroutineID())
	defer close(sub.done)
	defer sub.Unsubscribe()

	results := sub.watcher.ResultChan()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-results:
			if !ok {
				sub.emitError(cfg.OnError, apperrors.NewTransport("watch "+sub.resource, errors.New("watch channel closed by server")))
				return
			}
			switch ev.Type {
			case watch.Bookmark:
				continue
			case watch.Error:
				sub.emitError(cfg.OnError, apperrors.NewTransport("watch "+sub.resource, apierrors.FromObject(ev.Object)))
				return
			case watch.Added, watch.Modified, watch.Deleted:
				item, err := cfg.Map(ev.Object)
				if err != nil {
					sub.emitError(cfg.OnError, fmt.Errorf("failed to project %s event: %w", sub.resource, err))
					continue
				}
				delivered := sub.deliver(func() {
					cfg.OnEvent(Event[T]{Type: EventType(ev.Type), Object: item})
				})
				if !delivered {
					return
				}
				sub.telemetry.RecordStreamDelivery(telemetry.StreamResources, 1)
			default:
				klog.V(2).InfoS("ignoring unknown watch event", "resource", sub.resource, "type", ev.Type)
			}
		}
	}
}

func (s *Subscription) emitError(onError func(error), err error) {
	s.deliver(func() {
		s.telemetry.RecordStreamError(telemetry.StreamResources, err)
		s.logger.Warn(fmt.Sprintf("Watch on %s reported: %v", s.resource, err), "WatchStream")
		if onError != nil {
			onError(err)
		}
	})
}

// deliver runs fn under deliverMu unless the subscription has stopped.
func (s *Subscription) deliver(fn func()) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.stopped.Load() {
		return false
	}
	fn()
	return true
}

// goroutineID returns the runtime id of the calling goroutine. It is only
// used to recognise Unsubscribe calls made from inside a callback, where
// waiting on deliverMu would deadlock.
func goroutineID() uint64 {
	var buf [64]byte
	n := goruntime.Stack(buf[:], false)
	// "goroutine 42 [running]:"
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Unsubscribe stops the watch. It is idempotent and safe to call from inside a
// callback. Called from any other goroutine it waits for a running callback to
// return, so once it returns no callback is running or will start. Callbacks
// must therefore not block on the goroutine that unsubscribes.
func (s *Subscription) Unsubscribe() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.cancel()
		s.watcher.Stop()
		s.detachMu.Lock()
		if s.detach != nil {
			s.detach()
		}
		s.detachMu.Unlock()
		s.telemetry.RecordStreamDisconnect(telemetry.StreamResources)
		s.logger.Debug(fmt.Sprintf("Watch closed on %s", s.resource), "WatchStream")
	})
	if goroutineID() != s.relayID.Load() {
		//lint:ignore SA2001 waits out a callback that is still running
		s.deliverMu.Lock()
		s.deliverMu.Unlock()
	}
}

// Done is closed once the relay goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
