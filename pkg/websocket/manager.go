package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tick is one price observation pushed by a price stream.
type Tick struct {
	Asset     string          `json:"asset"`
	Price     decimal.Decimal `json:"price"`
	Timestamp uint64          `json:"timestamp"`
}

// Manager manages a single WebSocket connection to a price stream.
type Manager struct {
	url             string
	conn            *websocket.Conn
	logger          *zap.Logger
	reconnectMgr    *ReconnectManager
	config          Config
	tickChan        chan *Tick
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	subscribed      map[string]bool // tracks subscribed asset keys
	connected       atomic.Bool
	lastPongTime    atomic.Int64
	connectionStart atomic.Int64 // Unix timestamp of connection start
}

// Config holds WebSocket manager configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	ReconnectMaxAttempts  int
	MessageBufferSize     int
	Logger                *zap.Logger
}

type subscription struct {
	Type   string   `json:"type"`
	Assets []string `json:"assets"`
}

// New creates a new WebSocket manager.
func New(cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
		MaxAttempts:       cfg.ReconnectMaxAttempts,
	}

	return &Manager{
		url:          cfg.URL,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		tickChan:     make(chan *Tick, cfg.MessageBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		subscribed:   make(map[string]bool),
	}
}

// Start dials the stream and starts the read, ping and reconnect loops.
func (m *Manager) Start() error {
	m.logger.Info("price-stream-starting", zap.String("url", m.url))

	err := m.connect(m.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()

	return nil
}

func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: m.config.DialTimeout,
	}

	m.logger.Info("connecting-to-price-stream", zap.String("url", m.url))

	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		m.lastPongTime.Store(time.Now().Unix())
		return nil
	})

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	now := time.Now()
	m.connected.Store(true)
	m.lastPongTime.Store(now.Unix())
	m.connectionStart.Store(now.Unix())
	ActiveConnections.Set(1)

	m.logger.Info("price-stream-connected")

	return nil
}

// Subscribe asks the stream for ticks of the given assets.
func (m *Manager) Subscribe(ctx context.Context, assets []string) error {
	if len(assets) == 0 {
		return nil
	}

	m.mu.Lock()

	newAssets := make([]string, 0, len(assets))
	for _, asset := range assets {
		if !m.subscribed[asset] {
			newAssets = append(newAssets, asset)
			m.subscribed[asset] = true
		}
	}

	if len(newAssets) == 0 {
		m.mu.Unlock()
		m.logger.Debug("all-assets-already-subscribed")
		return nil
	}

	totalSubscribed := len(m.subscribed)
	conn := m.conn
	m.mu.Unlock()

	err := writeJSON(conn, subscription{Type: "subscribe", Assets: newAssets})
	if err != nil {
		// Rollback subscription state on failure
		m.mu.Lock()
		for _, asset := range newAssets {
			delete(m.subscribed, asset)
		}
		totalSubscribed = len(m.subscribed)
		m.mu.Unlock()

		SubscriptionCount.Set(float64(totalSubscribed))
		return fmt.Errorf("write subscribe message: %w", err)
	}

	SubscriptionCount.Set(float64(totalSubscribed))

	m.logger.Info("subscribed-to-assets",
		zap.Int("new-count", len(newAssets)),
		zap.Int("total-count", totalSubscribed))

	return nil
}

var errNotConnected = errors.New("not connected")

func writeJSON(conn *websocket.Conn, v any) error {
	if conn == nil {
		return errNotConnected
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// parseTicks decodes a stream frame. Streams send either one tick or an
// array of ticks; anything else is a heartbeat or control frame.
func parseTicks(message []byte) ([]Tick, bool) {
	if len(message) == 0 {
		return nil, false
	}

	var ticks []Tick
	if message[0] == '[' {
		if json.Unmarshal(message, &ticks) != nil {
			return nil, false
		}
	} else {
		var tick Tick
		if json.Unmarshal(message, &tick) != nil {
			return nil, false
		}
		ticks = []Tick{tick}
	}

	valid := ticks[:0]
	for _, t := range ticks {
		if t.Asset != "" && t.Timestamp != 0 {
			valid = append(valid, t)
		}
	}
	return valid, len(valid) > 0
}

func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("read-error", zap.Error(err))

			startTime := m.connectionStart.Load()
			if startTime > 0 {
				ConnectionDuration.Observe(time.Since(time.Unix(startTime, 0)).Seconds())
			}

			m.connected.Store(false)
			ActiveConnections.Set(0)
			return
		}

		ticks, ok := parseTicks(message)
		if !ok {
			m.logger.Debug("price-stream-control-message", zap.Int("bytes", len(message)))
			continue
		}

		for i := range ticks {
			tick := &ticks[i]
			MessagesReceivedTotal.WithLabelValues(tick.Asset).Inc()

			select {
			case m.tickChan <- tick:
			default:
				m.logger.Warn("tick-channel-full", zap.String("asset", tick.Asset))
				MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
			}
		}
	}
}

func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() {
				continue
			}

			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				m.logger.Warn("ping-error", zap.Error(err))
			}
		}
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		m.logger.Warn("connection-lost-initiating-reconnect")

		err := m.reconnectMgr.Reconnect(m.ctx, m.connect)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.logger.Error("reconnection-failed", zap.Error(err))
			continue
		}

		err = m.resubscribeAll()
		if err != nil {
			m.logger.Error("resubscribe-failed", zap.Error(err))
			m.connected.Store(false)
			continue
		}

		m.wg.Add(1)
		go m.readLoop()
	}
}

func (m *Manager) resubscribeAll() error {
	m.mu.RLock()
	assets := make([]string, 0, len(m.subscribed))
	for asset := range m.subscribed {
		assets = append(assets, asset)
	}
	conn := m.conn
	m.mu.RUnlock()

	if len(assets) == 0 {
		return nil
	}

	err := writeJSON(conn, subscription{Type: "subscribe", Assets: assets})
	if err != nil {
		return fmt.Errorf("write resubscribe message: %w", err)
	}

	m.logger.Info("resubscribed-to-all-assets", zap.Int("count", len(assets)))
	return nil
}

// Connected reports whether the stream connection is up.
func (m *Manager) Connected() bool {
	return m.connected.Load()
}

// TickChan returns the channel ticks are delivered on.
func (m *Manager) TickChan() <-chan *Tick {
	return m.tickChan
}

// Close stops all loops and closes the connection.
func (m *Manager) Close() error {
	m.logger.Info("closing-price-stream")

	m.cancel()

	m.mu.RLock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.RUnlock()

	m.wg.Wait()

	close(m.tickChan)

	ActiveConnections.Set(0)

	return nil
}
