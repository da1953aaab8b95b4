// Package rpcclient implements broker.Client against the narrow JSON/HTTP
// bridge a broker terminal (e.g. an MT5 Expert Advisor or manager API
// gateway) exposes locally. The terminal client library itself is an
// external collaborator outside this module's scope; this package is the
// thin adapter an operator points at whatever bridge their broker's
// terminal actually runs: a resty.Client with a fixed base URL, bounded
// retries on 5xx, and a timeout per call.
package rpcclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mt5copier/tradecopier/pkg/types"
)

// Client talks to a broker terminal bridge over HTTP. It implements
// broker.Client.
type Client struct {
	http *resty.Client
}

// New creates a Client against baseURL (e.g. "http://127.0.0.1:18812"),
// with bounded retries on 5xx and a 10s per-request timeout. Response
// bodies are decoded as JSON whatever Content-Type the bridge reports.
func New(baseURL string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			r.ForceContentType("application/json")
			return nil
		}).
		SetHeader("Content-Type", "application/json")
	return &Client{http: http}
}

func (c *Client) Initialise(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Post("/initialise")
	return checkResponse("initialise", resp, err)
}

func (c *Client) Shutdown(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Post("/shutdown")
	return checkResponse("shutdown", resp, err)
}

type loginRequest struct {
	Login    uint64 `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
}

func (c *Client) Login(ctx context.Context, login uint64, password, server string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(loginRequest{Login: login, Password: password, Server: server}).
		Post("/login")
	return checkResponse("login", resp, err)
}

type positionWire struct {
	Ticket    uint64 `json:"ticket"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Volume    string `json:"volume"`
	PriceOpen string `json:"price_open"`
	SL        string `json:"sl"`
	TP        string `json:"tp"`
	OpenTime  int64  `json:"open_time"`
	Comment   string `json:"comment"`
}

func (w positionWire) toPosition() (types.Position, error) {
	volume, err := decimalField("volume", w.Volume)
	if err != nil {
		return types.Position{}, err
	}
	priceOpen, err := decimalField("price_open", w.PriceOpen)
	if err != nil {
		return types.Position{}, err
	}
	sl, err := decimalField("sl", w.SL)
	if err != nil {
		return types.Position{}, err
	}
	tp, err := decimalField("tp", w.TP)
	if err != nil {
		return types.Position{}, err
	}
	return types.Position{
		Ticket:    w.Ticket,
		Symbol:    w.Symbol,
		Side:      parseSide(w.Side),
		Volume:    volume,
		PriceOpen: priceOpen,
		SL:        sl,
		TP:        tp,
		OpenTime:  time.Unix(w.OpenTime, 0).UTC(),
		Comment:   w.Comment,
	}, nil
}

func (c *Client) PositionsGet(ctx context.Context) ([]types.Position, error) {
	var wire []positionWire
	resp, err := c.http.R().SetContext(ctx).SetResult(&wire).Get("/positions")
	if err := checkResponse("positions_get", resp, err); err != nil {
		return nil, err
	}
	out := make([]types.Position, 0, len(wire))
	for _, w := range wire {
		p, err := w.toPosition()
		if err != nil {
			return nil, fmt.Errorf("positions_get: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) PositionByTicket(ctx context.Context, ticket uint64) (*types.Position, error) {
	var wire positionWire
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&wire).
		SetQueryParam("ticket", fmt.Sprintf("%d", ticket)).
		Get("/position")
	if resp != nil && resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := checkResponse("position_by_ticket", resp, err); err != nil {
		return nil, err
	}
	p, err := wire.toPosition()
	if err != nil {
		return nil, fmt.Errorf("position_by_ticket: %w", err)
	}
	return &p, nil
}

type symbolInfoWire struct {
	Symbol      string `json:"symbol"`
	FillingMode string `json:"filling_mode"`
}

func (c *Client) SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	var wire symbolInfoWire
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&wire).
		SetQueryParam("symbol", symbol).
		Get("/symbol_info")
	if err := checkResponse("symbol_info", resp, err); err != nil {
		return types.SymbolInfo{}, err
	}
	return types.SymbolInfo{Symbol: wire.Symbol, FillingMode: parseFillingMode(wire.FillingMode)}, nil
}

type tickWire struct {
	Bid string `json:"bid"`
	Ask string `json:"ask"`
}

func (c *Client) SymbolInfoTick(ctx context.Context, symbol string) (types.Tick, error) {
	var wire tickWire
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&wire).
		SetQueryParam("symbol", symbol).
		Get("/symbol_info_tick")
	if err := checkResponse("symbol_info_tick", resp, err); err != nil {
		return types.Tick{}, err
	}
	bid, err := decimalField("bid", wire.Bid)
	if err != nil {
		return types.Tick{}, err
	}
	ask, err := decimalField("ask", wire.Ask)
	if err != nil {
		return types.Tick{}, err
	}
	return types.Tick{Bid: bid, Ask: ask}, nil
}

type symbolSelectRequest struct {
	Symbol string `json:"symbol"`
	Select bool   `json:"select"`
}

func (c *Client) SymbolSelect(ctx context.Context, symbol string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(symbolSelectRequest{Symbol: symbol, Select: true}).
		Post("/symbol_select")
	return checkResponse("symbol_select", resp, err)
}

type orderRequestWire struct {
	Action      string `json:"action"`
	Symbol      string `json:"symbol"`
	Position    uint64 `json:"position,omitempty"`
	Side        string `json:"side"`
	Volume      string `json:"volume"`
	Price       string `json:"price"`
	SL          string `json:"sl"`
	TP          string `json:"tp"`
	Deviation   int    `json:"deviation"`
	Magic       int    `json:"magic"`
	Comment     string `json:"comment"`
	FillingMode string `json:"filling_mode"`
	TimeMode    string `json:"time_mode"`
}

type orderResultWire struct {
	Retcode string `json:"retcode"`
	Order   uint64 `json:"order"`
	Comment string `json:"comment"`
}

func (c *Client) OrderSend(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	wire := orderRequestWire{
		Action:      actionString(req.Action),
		Symbol:      req.Symbol,
		Position:    req.Position,
		Side:        req.Side.String(),
		Volume:      req.Volume.String(),
		Price:       req.Price.String(),
		SL:          req.SL.String(),
		TP:          req.TP.String(),
		Deviation:   req.Deviation,
		Magic:       req.Magic,
		Comment:     req.Comment,
		FillingMode: req.FillingMode.String(),
		TimeMode:    req.TimeMode.String(),
	}

	var result orderResultWire
	resp, err := c.http.R().SetContext(ctx).SetBody(wire).SetResult(&result).Post("/order_send")
	if err := checkResponse("order_send", resp, err); err != nil {
		return types.OrderResult{}, err
	}
	return types.OrderResult{
		Retcode: parseRetcode(result.Retcode),
		Order:   result.Order,
		Comment: result.Comment,
	}, nil
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), resp.String())
	}
	return nil
}

