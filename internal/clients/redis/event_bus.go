package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

const (
	EventIdeaCreated  = "idea.created"
	EventIdeaUpdated  = "idea.updated"
	EventIdeaEnriched = "idea.enriched"
	EventIdeaVoted    = "idea.voted"
	EventIdeaHidden   = "idea.hidden"
	EventIdeaShown    = "idea.shown"

	DefaultChannel = "idea-events"
)

type IdeaEvent struct {
	Type   string         `json:"type"`
	IdeaID string         `json:"idea_id"`
	At     time.Time      `json:"at"`
	Data   map[string]any `json:"data,omitempty"`
}

type IdeaEventBus interface {
	Publish(ctx context.Context, evt IdeaEvent) error
	StartForwarder(ctx context.Context, onEvt func(evt IdeaEvent)) error
	Close() error
}

type eventBus struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

func NewEventBus(log *logger.Logger, rdb goredis.UniversalClient, channel string) (IdeaEventBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &eventBus{
		log:     log.With("service", "IdeaEventBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *eventBus) Publish(ctx context.Context, evt IdeaEvent) error {
	raw, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *eventBus) StartForwarder(ctx context.Context, onEvt func(evt IdeaEvent)) error {
	if onEvt == nil {
		return fmt.Errorf("onEvt callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				evt, err := decodeEvent(m.Payload)
				if err != nil {
					b.log.Warn("bad idea event payload", "error", err)
					continue
				}
				onEvt(evt)
			}
		}
	}()
	return nil
}

// Close leaves the shared client open; its owner closes it.
func (b *eventBus) Close() error { return nil }

func encodeEvent(evt IdeaEvent) ([]byte, error) {
	if evt.Type == "" || evt.IdeaID == "" {
		return nil, fmt.Errorf("idea event needs type and idea_id")
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	return json.Marshal(evt)
}

func decodeEvent(payload string) (IdeaEvent, error) {
	var evt IdeaEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return IdeaEvent{}, err
	}
	if evt.Type == "" || evt.IdeaID == "" {
		return IdeaEvent{}, fmt.Errorf("idea event needs type and idea_id")
	}
	return evt, nil
}

type nopEventBus struct{}

// NopEventBus drops every event. It stands in when redis is not configured.
func NopEventBus() IdeaEventBus { return nopEventBus{} }

func (nopEventBus) Publish(context.Context, IdeaEvent) error { return nil }

func (nopEventBus) StartForwarder(context.Context, func(IdeaEvent)) error { return nil }

func (nopEventBus) Close() error { return nil }
