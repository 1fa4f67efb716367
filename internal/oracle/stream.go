package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/mselser95/updown-rounds/pkg/websocket"
	"go.uber.org/zap"
)

// TickSource delivers price ticks. Implemented by websocket.Manager.
type TickSource interface {
	Start() error
	Subscribe(ctx context.Context, assets []string) error
	TickChan() <-chan *websocket.Tick
	Close() error
}

// StreamFeed pumps ticks from a price stream into a Feed.
type StreamFeed struct {
	feed   *Feed
	source TickSource
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewStreamFeed wires source into feed.
func NewStreamFeed(feed *Feed, source TickSource, logger *zap.Logger) *StreamFeed {
	return &StreamFeed{feed: feed, source: source, logger: logger}
}

// Start connects the stream, subscribes to every registered asset and
// starts forwarding ticks until the source channel closes.
func (s *StreamFeed) Start(ctx context.Context) error {
	err := s.source.Start()
	if err != nil {
		return fmt.Errorf("start price stream: %w", err)
	}

	err = s.source.Subscribe(ctx, s.feed.Assets())
	if err != nil {
		return fmt.Errorf("subscribe price stream: %w", err)
	}

	s.wg.Add(1)
	go s.pump()

	return nil
}

func (s *StreamFeed) pump() {
	defer s.wg.Done()

	for tick := range s.source.TickChan() {
		err := s.feed.update(tick.Asset, tick.Price, tick.Timestamp)
		if err != nil {
			s.logger.Warn("price-tick-rejected",
				zap.String("asset", tick.Asset),
				zap.Error(err))
		}
	}
}

// Close stops the stream and waits for the pump to drain.
func (s *StreamFeed) Close() error {
	err := s.source.Close()
	s.wg.Wait()
	return err
}
