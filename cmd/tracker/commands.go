package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/investracker/tracker/internal/api"
	"github.com/investracker/tracker/internal/config"
	"github.com/investracker/tracker/internal/domain"
	"github.com/investracker/tracker/internal/export"
	"github.com/investracker/tracker/internal/portfolio"
	"github.com/investracker/tracker/internal/price"
	"github.com/investracker/tracker/internal/worker"
)

func serve(c *cli.Context) error {
	ctx := c.Context
	cfg := config.Load()

	prices := newPriceService(cfg)
	holdings, closeRepo, err := newHoldingService(ctx, cfg, prices)
	if err != nil {
		return err
	}
	defer closeRepo()

	if cfg.RefreshWorkerInterval > 0 {
		var hook worker.AfterRefreshHook
		if cfg.GoogleSheetsID != "" && cfg.GoogleCredentialsJSON != "" {
			writer, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
			if err != nil {
				return fmt.Errorf("creating sheets writer: %w", err)
			}
			hook = export.NewService(writer)
		}
		refreshWorker := worker.NewRefreshWorker(holdings, cfg.RefreshWorkerInterval, hook)
		go refreshWorker.Run(ctx)
	}

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, bulk and refresh endpoints are unprotected")
	}

	srv := api.NewServer(cfg.HTTPPort, holdings, prices, cfg.AdminAPIKey)
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on :%s (storage %s, currency %s)", cfg.HTTPPort, cfg.StorageBackend, cfg.TargetCurrency)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	}
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func refresh(c *cli.Context) error {
	cfg := config.Load()
	holdings, closeRepo, err := newHoldingService(c.Context, cfg, newPriceService(cfg))
	if err != nil {
		return err
	}
	defer closeRepo()

	refreshed, err := holdings.Refresh(c.Context, c.String("user"))
	if err != nil {
		return err
	}
	return printHoldings(c.App.Writer, refreshed, cfg.TargetCurrency)
}

func list(c *cli.Context) error {
	cfg := config.Load()
	holdings, closeRepo, err := newHoldingService(c.Context, cfg, newPriceService(cfg))
	if err != nil {
		return err
	}
	defer closeRepo()

	all, err := holdings.List(c.Context, c.String("user"))
	if err != nil {
		return err
	}
	return printHoldings(c.App.Writer, all, cfg.TargetCurrency)
}

func exportHoldings(c *cli.Context) error {
	path, toSheets := c.String("xlsx"), c.Bool("sheets")
	if (path == "") == !toSheets {
		return cli.Exit("exactly one of --xlsx FILE or --sheets is required", 2)
	}

	cfg := config.Load()
	var writer export.SheetWriter
	if toSheets {
		if cfg.GoogleSheetsID == "" || cfg.GoogleCredentialsJSON == "" {
			return cli.Exit("GOOGLE_SHEETS_ID and GOOGLE_CREDENTIALS_JSON are required for --sheets", 2)
		}
		sheetsWriter, err := export.NewSheetsWriter(c.Context, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
		if err != nil {
			return err
		}
		writer = sheetsWriter
	} else {
		writer = export.NewXLSXWriter(path)
	}

	holdings, closeRepo, err := newHoldingService(c.Context, cfg, newPriceService(cfg))
	if err != nil {
		return err
	}
	defer closeRepo()

	user := c.String("user")
	all, err := holdings.List(c.Context, user)
	if err != nil {
		return err
	}
	if err := export.NewService(writer).Export(c.Context, user, all); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "exported %d holdings for %s\n", len(all), user)
	return nil
}

func quoteCrypto(c *cli.Context) error {
	return quoteSymbol(c, (*price.Service).CryptoPrice)
}

func quoteStock(c *cli.Context) error {
	return quoteSymbol(c, (*price.Service).StockPrice)
}

func quoteSymbol(c *cli.Context, lookup func(*price.Service, context.Context, string) price.Result) error {
	symbol := c.Args().First()
	if symbol == "" {
		return cli.Exit("SYMBOL is required", 2)
	}
	res := lookup(newPriceService(config.Load()), c.Context, symbol)
	if !res.OK() {
		return cli.Exit(fmt.Sprintf("no price for %s: %s", symbol, res.Status), 1)
	}
	fmt.Fprintf(c.App.Writer, "%s\t%s\n", symbol, domain.FormatAmount(res.Quote.Amount, res.Quote.Currency))
	return nil
}

func quoteGold(c *cli.Context) error {
	q := newPriceService(config.Load()).GoldPrice(c.Context)
	fmt.Fprintf(c.App.Writer, "gold/g\t%s\n", domain.FormatAmount(q.Amount, q.Currency))
	return nil
}

func printHoldings(out io.Writer, holdings []domain.Holding, currency string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tNAME\tSYMBOL\tQTY\tCOST\tVALUE\tGAIN %")
	for _, h := range holdings {
		value, gain := "-", "-"
		if h.Valuation != nil {
			value = domain.FormatAmount(h.Valuation.CurrentTotalValue, h.Valuation.Currency)
			gain = h.Valuation.UnallocatedGainPercent.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			h.ID, h.Kind, h.Name, h.Symbol, h.Quantity,
			domain.FormatAmount(h.CostBasis(), currency), value, gain)
	}

	s := portfolio.Summarize(holdings)
	fmt.Fprintf(tw, "\nTOTAL\t%d holdings\t%d priced\t\t\t%s\t%s\t%s\n",
		s.Count, s.Priced,
		domain.FormatAmount(s.Invested, currency),
		domain.FormatAmount(s.CurrentValue, currency),
		s.GainPercent.StringFixed(2))
	return tw.Flush()
}
