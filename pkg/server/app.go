package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"FlowTrader/internal/domain/models"
	"FlowTrader/internal/usecase"
	xhttp "FlowTrader/pkg/http"
	applogger "FlowTrader/pkg/logger"
)

// App runs live trading and the status API until its context is cancelled.
type App struct {
	runner *usecase.LiveRunner
	http   *xhttp.Server
	l      *applogger.Logger
	out    io.Writer
}

// New builds the live app. srv may be nil when the API is disabled.
func New(runner *usecase.LiveRunner, srv *xhttp.Server, l *applogger.Logger) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{runner: runner, http: srv, l: l, out: os.Stdout}
}

// Run blocks until ctx is cancelled, the feed fails to open, or the HTTP
// listener dies. It always prints the final per-market summary.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var httpErrs <-chan error
	if a.http != nil {
		if err := a.http.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		httpErrs = a.http.Errors()
	}

	runErr := make(chan error, 1)
	go func() { runErr <- a.runner.Run(ctx) }()

	var err error
	select {
	case err = <-runErr:
	case err = <-httpErrs:
		a.l.Error("http listener failed, stopping", applogger.Error(err))
		cancel()
		<-runErr
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
		err = <-runErr
	}

	a.shutdown()
	a.report(a.runner.Summaries())
	return err
}

func (a *App) shutdown() {
	if a.http == nil {
		return
	}
	if err := a.http.Stop(context.Background()); err != nil {
		a.l.Warn("http shutdown error", applogger.Error(err))
	}
}

func (a *App) report(sums []models.SessionSummary) {
	writeSummaries(a.out, sums)
}

func writeSummaries(w io.Writer, sums []models.SessionSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MARKET\tSTRATEGY\tTRADES\tWINS\tWIN RATE\tCUM PNL\tAVG PNL\tMAX DD\tCAPITAL")
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.2f%%\t%+.2f%%\t%+.2f%%\t%.2f%%\t%.2f\n",
			s.Market, s.Strategy, s.TotalTrades, s.Wins, s.WinRate*100,
			s.CumulativePnLPct*100, s.AvgPnLPct*100, s.MaxDrawdownPct*100, s.FreeCapital)
	}
	_ = tw.Flush()
}
