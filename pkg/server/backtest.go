package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"FlowTrader/internal/domain/models"
	"FlowTrader/internal/usecase"
	applogger "FlowTrader/pkg/logger"
)

// BacktestApp runs one historical replay and prints its report.
type BacktestApp struct {
	bt  *usecase.Backtester
	l   *applogger.Logger
	out io.Writer
}

func NewBacktestApp(bt *usecase.Backtester, l *applogger.Logger) *BacktestApp {
	if l == nil {
		l = applogger.Nop()
	}
	return &BacktestApp{bt: bt, l: l, out: os.Stdout}
}

// Run executes the replay. With asJSON the full result is written as JSON,
// otherwise as a trade table followed by the summary.
func (b *BacktestApp) Run(ctx context.Context, p usecase.BacktestParams, asJSON bool) error {
	b.l.Info("backtest starting",
		applogger.String("market", p.Market),
		applogger.String("strategy", string(p.Strategy)),
		applogger.Int("count", p.Count),
		applogger.Int("warmup", p.Warmup),
	)
	res, err := b.bt.Run(ctx, p)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(b.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	writeReport(b.out, res)
	return nil
}

func writeReport(w io.Writer, res *usecase.BacktestResult) {
	fmt.Fprintf(w, "%s %s: %d candles from %s to %s (warmup %d)\n\n",
		res.Market, res.Strategy, res.Candles,
		res.From.Format("2006-01-02 15:04"), res.To.Format("2006-01-02 15:04"), res.Warmup)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY TIME\tEXIT TIME\tENTRY\tEXIT\tPNL\tREASON")
	for _, t := range res.Trades {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%+.2f%%\t%s\n",
			t.EntryTime.Format("01-02 15:04"), t.ExitTime.Format("01-02 15:04"),
			t.EntryPrice, t.ExitPrice, t.PnLPct*100, t.Reason)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
	writeSummaries(w, []models.SessionSummary{res.Summary})
}
