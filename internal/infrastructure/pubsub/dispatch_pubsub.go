package pubsub

import (
	"context"
	"sync"

	"archie-core-forms-layer/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DispatchEventChannel represents a subscription channel
type DispatchEventChannel struct {
	ID     string
	Filter *DispatchEventFilter
	Events chan *domain.DispatchResult
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// DispatchEventFilter filters dispatch results
type DispatchEventFilter struct {
	FormID        string // Filter by form
	IntegrationID string // Filter by integration
	FailuresOnly  bool
}

// DispatchPubSub fans dispatch results out to live subscribers (the SSE stream)
type DispatchPubSub struct {
	mu       sync.RWMutex
	channels map[string]*DispatchEventChannel
	logger   zerolog.Logger
}

// NewDispatchPubSub creates a new dispatch pub/sub system
func NewDispatchPubSub(logger zerolog.Logger) *DispatchPubSub {
	return &DispatchPubSub{
		channels: make(map[string]*DispatchEventChannel),
		logger:   logger,
	}
}

// Subscribe creates a new subscription channel, removed when ctx is cancelled
func (ps *DispatchPubSub) Subscribe(ctx context.Context, filter *DispatchEventFilter) *DispatchEventChannel {
	id := uuid.New().String()
	subCtx, cancel := context.WithCancel(ctx)

	channel := &DispatchEventChannel{
		ID:     id,
		Filter: filter,
		Events: make(chan *domain.DispatchResult, 10),
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", id).
		Interface("filter", filter).
		Msg("Dispatch subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *DispatchPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().
		Str("channelId", channelID).
		Msg("Dispatch subscription removed")
}

// OnDispatch publishes a result; it never blocks the dispatcher
func (ps *DispatchPubSub) OnDispatch(_ context.Context, result *domain.DispatchResult) error {
	ps.Publish(result)
	return nil
}

// Publish broadcasts a dispatch result to all matching subscribers
func (ps *DispatchPubSub) Publish(result *domain.DispatchResult) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	publishedCount := 0
	for _, channel := range ps.channels {
		if !matchesFilter(result, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- result:
			publishedCount++
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Str("dispatchId", result.ID).
				Msg("Channel buffer full, dropping dispatch event")
		}
	}

	if publishedCount > 0 {
		ps.logger.Debug().
			Str("formId", result.FormID).
			Str("integration", result.IntegrationID).
			Int("subscribers", publishedCount).
			Msg("Published dispatch result to subscribers")
	}
}

func matchesFilter(result *domain.DispatchResult, filter *DispatchEventFilter) bool {
	if filter == nil {
		return true
	}
	if filter.FormID != "" && result.FormID != filter.FormID {
		return false
	}
	if filter.IntegrationID != "" && result.IntegrationID != filter.IntegrationID {
		return false
	}
	if filter.FailuresOnly && result.Success && len(result.Failures()) == 0 {
		return false
	}
	return true
}

// Stats returns pub/sub statistics
func (ps *DispatchPubSub) Stats() map[string]interface{} {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return map[string]interface{}{
		"active_subscriptions": len(ps.channels),
	}
}
