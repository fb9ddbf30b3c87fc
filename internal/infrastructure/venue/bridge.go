package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/domain"
)

// tickMaxAge is how long a streamed quote stays usable before GetTick falls
// back to REST.
const tickMaxAge = 2 * time.Second

// BridgeAdapter talks to an MT5-style terminal bridge over HTTP, with an
// optional websocket tick stream. It implements domain.Venue. REST calls run
// behind a circuit breaker so a dead bridge fails fast instead of stalling
// every cycle on timeouts.
type BridgeAdapter struct {
	baseURL string
	wsURL   string
	token   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger

	mu     sync.Mutex
	wsConn *websocket.Conn
	ticks  map[string]domain.Tick
}

func NewBridgeAdapter(baseURL, wsURL, token string, log *zap.Logger) *BridgeAdapter {
	settings := gobreaker.Settings{
		Name:    "bridge",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &BridgeAdapter{
		baseURL: baseURL,
		wsURL:   wsURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     log,
		ticks:   make(map[string]domain.Tick),
	}
}

// --- REST ---

func (b *BridgeAdapter) sendRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		var body []byte
		if payload != nil {
			jsonBody, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			body = jsonBody
		}

		req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewBuffer(body))
		if err != nil {
			return nil, err
		}
		if b.token != "" {
			req.Header.Set("X-Bridge-Token", b.token)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := b.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("bridge error %d: %s", resp.StatusCode, string(respBody))
		}
		return respBody, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

type barPayload struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

func (b *BridgeAdapter) FetchBars(ctx context.Context, symbol string, tf domain.Timeframe, count int) ([]domain.Bar, error) {
	path := "/bars?" + url.Values{
		"symbol":    {symbol},
		"timeframe": {string(tf)},
		"count":     {strconv.Itoa(count)},
	}.Encode()
	body, err := b.sendRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var payload []barPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]domain.Bar, 0, len(payload))
	for _, p := range payload {
		bars = append(bars, domain.Bar{
			Time:  time.Unix(p.Time, 0).UTC(),
			Open:  p.Open,
			High:  p.High,
			Low:   p.Low,
			Close: p.Close,
		})
	}
	return bars, nil
}

func (b *BridgeAdapter) GetTick(ctx context.Context, symbol string) (domain.Tick, error) {
	b.mu.Lock()
	cached, ok := b.ticks[symbol]
	b.mu.Unlock()
	if ok && time.Since(cached.Time) < tickMaxAge {
		return cached, nil
	}

	body, err := b.sendRequest(ctx, http.MethodGet, "/tick?symbol="+url.QueryEscape(symbol), nil)
	if err != nil {
		return domain.Tick{}, err
	}
	var payload struct {
		Bid  float64 `json:"bid"`
		Ask  float64 `json:"ask"`
		Time int64   `json:"time"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Tick{}, fmt.Errorf("decode tick: %w", err)
	}
	return domain.Tick{Bid: payload.Bid, Ask: payload.Ask, Time: time.Unix(payload.Time, 0).UTC()}, nil
}

func (b *BridgeAdapter) SymbolConstraints(ctx context.Context, symbol string) (domain.SymbolConstraints, error) {
	body, err := b.sendRequest(ctx, http.MethodGet, "/symbol?symbol="+url.QueryEscape(symbol), nil)
	if err != nil {
		return domain.SymbolConstraints{}, err
	}
	var payload struct {
		VolumeMin    float64 `json:"volume_min"`
		VolumeMax    float64 `json:"volume_max"`
		VolumeStep   float64 `json:"volume_step"`
		TickValue    float64 `json:"tick_value"`
		TickSize     float64 `json:"tick_size"`
		ContractSize float64 `json:"contract_size"`
		TradeAllowed bool    `json:"trade_allowed"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.SymbolConstraints{}, fmt.Errorf("decode symbol: %w", err)
	}
	return domain.SymbolConstraints{
		VolumeMin:    payload.VolumeMin,
		VolumeMax:    payload.VolumeMax,
		VolumeStep:   payload.VolumeStep,
		TickValue:    payload.TickValue,
		TickSize:     payload.TickSize,
		ContractSize: payload.ContractSize,
		Tradable:     payload.TradeAllowed,
	}, nil
}

func (b *BridgeAdapter) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	payload := map[string]interface{}{
		"symbol":    req.Symbol,
		"direction": string(req.Direction),
		"volume":    req.Volume,
		"price":     req.Price,
		"stop":      req.Stop,
		"target":    req.Target,
		"deviation": req.Deviation,
		"comment":   req.Comment,
	}
	if req.Filling != domain.FillingDefault {
		payload["filling"] = string(req.Filling)
	}
	body, err := b.sendRequest(ctx, http.MethodPost, "/order", payload)
	if err != nil {
		return domain.OrderResult{}, err
	}
	var result struct {
		Ticket  int64  `json:"ticket"`
		RetCode int    `json:"retcode"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.OrderResult{}, fmt.Errorf("decode order result: %w", err)
	}
	return domain.OrderResult{Ticket: result.Ticket, Code: result.RetCode, Message: result.Message}, nil
}

func (b *BridgeAdapter) ModifyStops(ctx context.Context, ticket int64, stop, target float64) error {
	payload := map[string]interface{}{
		"ticket": ticket,
		"stop":   stop,
		"target": target,
	}
	body, err := b.sendRequest(ctx, http.MethodPost, "/modify", payload)
	if err != nil {
		return err
	}
	var result struct {
		RetCode int    `json:"retcode"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode modify result: %w", err)
	}
	res := domain.OrderResult{Code: result.RetCode, Message: result.Message}
	if !res.Success() {
		return fmt.Errorf("modify rejected code=%d: %s", result.RetCode, result.Message)
	}
	return nil
}

func (b *BridgeAdapter) OpenPositions(ctx context.Context, symbol string) ([]domain.Position, error) {
	path := "/positions"
	if symbol != "" {
		path += "?symbol=" + url.QueryEscape(symbol)
	}
	body, err := b.sendRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var payload []struct {
		Ticket    int64   `json:"ticket"`
		Symbol    string  `json:"symbol"`
		Direction string  `json:"direction"`
		OpenPrice float64 `json:"open_price"`
		Volume    float64 `json:"volume"`
		Stop      float64 `json:"stop"`
		Target    float64 `json:"target"`
		OpenTime  int64   `json:"open_time"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}
	positions := make([]domain.Position, 0, len(payload))
	for _, p := range payload {
		positions = append(positions, domain.Position{
			Ticket:    p.Ticket,
			Symbol:    p.Symbol,
			Direction: domain.Direction(p.Direction),
			OpenPrice: p.OpenPrice,
			Volume:    p.Volume,
			Stop:      p.Stop,
			Target:    p.Target,
			OpenTime:  time.Unix(p.OpenTime, 0).UTC(),
		})
	}
	return positions, nil
}

func (b *BridgeAdapter) ClosedDeals(ctx context.Context, from, to time.Time) ([]domain.Deal, error) {
	path := "/deals?" + url.Values{
		"from": {strconv.FormatInt(from.Unix(), 10)},
		"to":   {strconv.FormatInt(to.Unix(), 10)},
	}.Encode()
	body, err := b.sendRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var payload []struct {
		Ticket     int64   `json:"position_ticket"`
		Symbol     string  `json:"symbol"`
		Profit     float64 `json:"profit"`
		Commission float64 `json:"commission"`
		Swap       float64 `json:"swap"`
		Entry      string  `json:"entry"` // "in" or "out"
		Time       int64   `json:"time"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode deals: %w", err)
	}
	deals := make([]domain.Deal, 0, len(payload))
	for _, d := range payload {
		deals = append(deals, domain.Deal{
			Ticket:     d.Ticket,
			Symbol:     d.Symbol,
			Profit:     d.Profit,
			Commission: d.Commission,
			Swap:       d.Swap,
			Exit:       d.Entry == "out",
			Time:       time.Unix(d.Time, 0).UTC(),
		})
	}
	return deals, nil
}

func (b *BridgeAdapter) AccountSnapshot(ctx context.Context) (domain.AccountSnapshot, error) {
	body, err := b.sendRequest(ctx, http.MethodGet, "/account", nil)
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	var payload struct {
		Balance    float64 `json:"balance"`
		Equity     float64 `json:"equity"`
		MarginUsed float64 `json:"margin_used"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.AccountSnapshot{}, fmt.Errorf("decode account: %w", err)
	}
	return domain.AccountSnapshot{Balance: payload.Balance, Equity: payload.Equity, MarginUsed: payload.MarginUsed}, nil
}

// --- Websocket tick stream ---

// ConnectWS subscribes to the bridge's tick stream for the given symbols.
// Streamed quotes serve GetTick until they age out.
func (b *BridgeAdapter) ConnectWS(symbols []string) error {
	if b.wsURL == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.wsConn != nil {
		return b.subscribe(symbols)
	}

	header := http.Header{}
	if b.token != "" {
		header.Set("X-Bridge-Token", b.token)
	}
	c, _, err := websocket.DefaultDialer.Dial(b.wsURL, header)
	if err != nil {
		return err
	}
	b.wsConn = c

	go b.readLoop(c)

	return b.subscribe(symbols)
}

func (b *BridgeAdapter) subscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	subMsg := map[string]interface{}{
		"op":      "subscribe",
		"symbols": symbols,
	}
	return b.wsConn.WriteJSON(subMsg)
}

func (b *BridgeAdapter) readLoop(c *websocket.Conn) {
	defer func() {
		c.Close()
		b.mu.Lock()
		if b.wsConn == c {
			b.wsConn = nil
		}
		b.mu.Unlock()
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			b.log.Warn("tick stream closed", zap.Error(err))
			return
		}

		var event struct {
			Symbol string  `json:"symbol"`
			Bid    float64 `json:"bid"`
			Ask    float64 `json:"ask"`
		}
		if err := json.Unmarshal(message, &event); err != nil {
			b.log.Debug("tick stream decode error", zap.Error(err))
			continue
		}
		if event.Symbol == "" {
			continue
		}

		b.mu.Lock()
		b.ticks[event.Symbol] = domain.Tick{Bid: event.Bid, Ask: event.Ask, Time: time.Now().UTC()}
		b.mu.Unlock()
	}
}

func (b *BridgeAdapter) CloseWS() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wsConn != nil {
		b.wsConn.Close()
		b.wsConn = nil
	}
}
