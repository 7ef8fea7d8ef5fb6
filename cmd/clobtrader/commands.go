package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethanvb/clobtrader/internal/app"
	"github.com/ethanvb/clobtrader/internal/domain"
)

// watchPollInterval paces the one-shot watch command.
const watchPollInterval = 5 * time.Second

// runCommand executes a one-shot subcommand against the wired dependencies:
//
//	resolve <market>      look up an instrument by id or slug
//	buy | sell [flags]    build, sign, and submit an order
//	status <order-id>     fetch the status of an order (venue, then history)
//	cancel <order-id>     cancel a resting order
//	watch <order-id>      poll until the order matches
//	price <token-id>...   read cached prices for position tokens
//	archive <key>         print an archived object from blob storage
func runCommand(ctx context.Context, deps *app.Dependencies, args []string) error {
	switch args[0] {
	case "resolve":
		if len(args) != 2 {
			return fmt.Errorf("usage: resolve <market-id-or-slug>")
		}
		ex, err := deps.Trader.ResolveExchange(ctx, args[1])
		if err != nil {
			return err
		}
		return printJSON(ex)

	case "buy", "sell":
		return runTrade(ctx, deps, args)

	case "status":
		if len(args) != 2 {
			return fmt.Errorf("usage: status <order-id>")
		}
		return runStatus(ctx, deps, args[1])

	case "cancel":
		if len(args) != 2 {
			return fmt.Errorf("usage: cancel <order-id>")
		}
		if err := deps.Trader.CancelOrder(ctx, args[1], ""); err != nil {
			return err
		}
		fmt.Printf("order %s cancelled\n", args[1])
		return nil

	case "watch":
		if len(args) != 2 {
			return fmt.Errorf("usage: watch <order-id>")
		}
		return runWatch(ctx, deps, args[1])

	case "price":
		if len(args) < 2 {
			return fmt.Errorf("usage: price <token-id>...")
		}
		return runPrice(ctx, deps, args[1:])

	case "archive":
		if len(args) != 2 {
			return fmt.Errorf("usage: archive <object-key>")
		}
		return runArchive(ctx, deps, args[1])

	default:
		return fmt.Errorf("unknown command %q (want resolve, buy, sell, status, cancel, watch, price, or archive)", args[0])
	}
}

// runStatus fetches the live status from the venue, falling back to stored
// order history when the venue cannot answer.
func runStatus(ctx context.Context, deps *app.Dependencies, orderID string) error {
	snap, err := deps.Clob.GetOrder(ctx, orderID)
	if err == nil {
		return printJSON(snap)
	}
	if deps.Orders == nil {
		return err
	}

	stored, storeErr := deps.Orders.GetByID(ctx, orderID)
	if storeErr != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "venue unavailable (%v); showing stored history\n", err)
	return printJSON(stored)
}

// runPrice reads cached prices written by the feed relay.
func runPrice(ctx context.Context, deps *app.Dependencies, tokenIDs []string) error {
	if deps.Prices == nil {
		return fmt.Errorf("price command requires redis to be enabled")
	}

	if len(tokenIDs) == 1 {
		price, ts, err := deps.Prices.GetPrice(ctx, tokenIDs[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%g\t%s\n", tokenIDs[0], price, ts.UTC().Format(time.RFC3339))
		return nil
	}

	prices, err := deps.Prices.GetPrices(ctx, tokenIDs)
	if err != nil {
		return err
	}
	for _, id := range tokenIDs {
		if price, ok := prices[id]; ok {
			fmt.Printf("%s\t%g\n", id, price)
		} else {
			fmt.Printf("%s\t-\n", id)
		}
	}
	return nil
}

// runArchive streams one archived object to stdout.
func runArchive(ctx context.Context, deps *app.Dependencies, key string) error {
	if deps.Archiver == nil {
		return fmt.Errorf("archive command requires s3 to be enabled")
	}

	body, err := deps.Archiver.Fetch(ctx, key)
	if err != nil {
		return err
	}
	defer body.Close()

	_, err = io.Copy(os.Stdout, body)
	return err
}

// runTrade handles the buy and sell subcommands.
func runTrade(ctx context.Context, deps *app.Dependencies, args []string) error {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	market := fs.String("market", "", "market id or slug")
	outcome := fs.String("outcome", "Yes", "outcome name, e.g. Yes or No")
	usdc := fs.Float64("usdc", 0, "notional in USDC (ignored when -size and -price are set)")
	size := fs.Float64("size", 0, "explicit share size")
	price := fs.Float64("price", 0, "explicit limit price")
	orderType := fs.String("type", "GTC", "order type: GTC, GTD, FOK, or FAK")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	side := domain.OrderSideBuy
	if args[0] == "sell" {
		side = domain.OrderSideSell
	}

	intent := domain.TradeIntent{
		MarketIDOrSlug:   *market,
		PositionIDOrName: *outcome,
		Side:             side,
		USDCFlowAbs:      *usdc,
		Size:             *size,
		Price:            *price,
	}

	signed, err := deps.Trader.BuildOrder(ctx, intent)
	if err != nil {
		return err
	}

	result, err := deps.Trader.ExecuteOrder(ctx, signed, domain.OrderType(*orderType), "")
	if err != nil {
		return err
	}
	return printJSON(result)
}

// runWatch polls a single order until it matches or the context ends.
func runWatch(ctx context.Context, deps *app.Dependencies, orderID string) error {
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		if deps.Trader.WaitOrderMatched(ctx, orderID, "") {
			fmt.Printf("order %s matched\n", orderID)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
