// Package notify delivers position lifecycle events to external sinks.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	apphttp "FlowTrader/pkg/http"
)

const (
	DefaultUsername = "ctb"
	timeLayout      = "2006-01-02 15:04:05 UTC"
)

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type webhookMessage struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

// Webhook posts one embed per event to a chat webhook URL.
type Webhook struct {
	url      string
	username string
	client   *apphttp.Client
}

var _ drepo.Notifier = (*Webhook)(nil)

func NewWebhook(url, username string, client *apphttp.Client) *Webhook {
	if username == "" {
		username = DefaultUsername
	}
	if client == nil {
		client = apphttp.NewClient(apphttp.WithTimeout(5 * time.Second))
	}
	return &Webhook{url: url, username: username, client: client}
}

func (w *Webhook) PositionOpened(ctx context.Context, ev models.PositionEvent) error {
	return w.send(ctx, "Buy signal", buyText(ev))
}

func (w *Webhook) PositionClosed(ctx context.Context, ev models.PositionEvent) error {
	return w.send(ctx, "Sell signal", sellText(ev))
}

func (w *Webhook) SessionEnded(ctx context.Context, s models.SessionSummary) error {
	return w.send(ctx, "Trade summary", summaryText(s))
}

func (w *Webhook) send(ctx context.Context, title, description string) error {
	err := w.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method:  apphttp.MethodPost,
		URL:     w.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body: webhookMessage{
			Username: w.username,
			Embeds:   []embed{{Title: title, Description: description}},
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("webhook %q: %w", title, err)
	}
	return nil
}

func buyText(ev models.PositionEvent) string {
	var b strings.Builder
	upside := (ev.TakeProfit - ev.Price) / ev.Price * 100
	downside := (ev.Price - ev.StopLoss) / ev.Price * 100
	fmt.Fprintf(&b, "**%s** buy signal\n\n", ev.Market)
	fmt.Fprintf(&b, "**Price**: %.4f\n", ev.Price)
	fmt.Fprintf(&b, "**Volume**: %.6f\n", ev.Volume)
	fmt.Fprintf(&b, "**Strategy**: %s\n", ev.Strategy)
	fmt.Fprintf(&b, "**Reason**: %s\n", ev.Reason)
	fmt.Fprintf(&b, "**Stop**: %.4f (-%.2f%%)\n", ev.StopLoss, downside)
	fmt.Fprintf(&b, "**Target**: %.4f (+%.2f%%)\n", ev.TakeProfit, upside)
	fmt.Fprintf(&b, "**R/R**: %.2f\n\n", ev.RiskReward)
	fmt.Fprintf(&b, "**Time**: %s", ev.At.UTC().Format(timeLayout))
	return b.String()
}

func sellText(ev models.PositionEvent) string {
	var b strings.Builder
	verdict := "profit taken"
	if ev.PnL < 0 {
		verdict = "stopped out"
	}
	fmt.Fprintf(&b, "**%s** sell signal, %s\n\n", ev.Market, verdict)
	fmt.Fprintf(&b, "**Price**: %.4f\n", ev.Price)
	fmt.Fprintf(&b, "**Volume**: %.6f\n", ev.Volume)
	fmt.Fprintf(&b, "**Strategy**: %s\n", ev.Strategy)
	fmt.Fprintf(&b, "**PnL**: %.4f (%+.2f%%)\n", ev.PnL, ev.PnLPct*100)
	fmt.Fprintf(&b, "**Reason**: %s\n\n", ev.Reason)
	fmt.Fprintf(&b, "**Time**: %s", ev.At.UTC().Format(timeLayout))
	return b.String()
}

func summaryText(s models.SessionSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** %s session summary\n\n", s.Market, s.Strategy)
	fmt.Fprintf(&b, "**Trades**: %d\n", s.TotalTrades)
	fmt.Fprintf(&b, "**Wins**: %d\n", s.Wins)
	fmt.Fprintf(&b, "**Win rate**: %.2f%%\n", s.WinRate*100)
	fmt.Fprintf(&b, "**Cumulative PnL**: %+.2f%%\n", s.CumulativePnLPct*100)
	fmt.Fprintf(&b, "**Average PnL**: %+.2f%%\n", s.AvgPnLPct*100)
	fmt.Fprintf(&b, "**Max drawdown**: %.2f%%\n", s.MaxDrawdownPct*100)
	fmt.Fprintf(&b, "**Free capital**: %.2f\n\n", s.FreeCapital)
	fmt.Fprintf(&b, "**Time**: %s", s.At.UTC().Format(timeLayout))
	return b.String()
}
