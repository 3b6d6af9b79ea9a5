package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/trogers1052/investment-simulator/internal/cache"
	"github.com/trogers1052/investment-simulator/internal/config"
	"github.com/trogers1052/investment-simulator/internal/models"
)

func newWatchPricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch-prices",
		Short: "Print the cached prices, then follow price updates from Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				return err
			}
			defer client.Close()

			prices := cache.NewPriceCache(client, cfg.Redis.PriceKey, cfg.Redis.Channel)

			current, err := prices.GetAll(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(current) > 0 {
				update := cache.PriceUpdate{Prices: current}
				fmt.Fprintln(out, "cached: "+formatUpdate(update))
			}

			return prices.Watch(ctx, func(update cache.PriceUpdate) {
				fmt.Fprintln(out, update.Timestamp.Format("15:04:05")+" "+formatUpdate(update))
			})
		},
	}
}

func formatUpdate(update cache.PriceUpdate) string {
	tickers := make([]string, 0, len(update.Prices))
	for ticker := range update.Prices {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	parts := make([]string, len(tickers))
	for i, ticker := range tickers {
		parts[i] = ticker + "=$" + update.Prices[ticker].StringFixed(models.PricePrecision)
	}
	return strings.Join(parts, " ")
}
