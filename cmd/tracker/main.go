package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/investracker/tracker/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	config.LoadDotEnv()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	userFlag := &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Value:   "default_user",
		Usage:   "user whose holdings to use",
	}

	return &cli.App{
		Name:  "tracker",
		Usage: "track an investment portfolio at market prices",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and, when configured, the refresh worker",
				Action: serve,
			},
			{
				Name:   "refresh",
				Usage:  "revalue a user's holdings at current prices",
				Flags:  []cli.Flag{userFlag},
				Action: refresh,
			},
			{
				Name:  "quote",
				Usage: "look up a single price",
				Subcommands: []*cli.Command{
					{Name: "crypto", Usage: "crypto price by ticker", ArgsUsage: "SYMBOL", Action: quoteCrypto},
					{Name: "stock", Usage: "equity price by ticker", ArgsUsage: "SYMBOL", Action: quoteStock},
					{Name: "gold", Usage: "gold price per gram", Action: quoteGold},
				},
			},
			{
				Name:   "list",
				Usage:  "print a user's holdings and portfolio summary",
				Flags:  []cli.Flag{userFlag},
				Action: list,
			},
			{
				Name:  "export",
				Usage: "write a user's holdings to a spreadsheet",
				Flags: []cli.Flag{
					userFlag,
					&cli.StringFlag{Name: "xlsx", Usage: "write to a local .xlsx `FILE`"},
					&cli.BoolFlag{Name: "sheets", Usage: "write to the configured Google Sheet"},
				},
				Action: exportHoldings,
			},
		},
	}
}
