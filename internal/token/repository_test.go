package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/babylon-watch/ibc-lifecycle-indexer/internal/token"
)

type fakePriceFetcher struct {
	prices map[string]float64
	err    error
}

func (f *fakePriceFetcher) GetPrice(ctx context.Context, id string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.prices[id], nil
}

func (f *fakePriceFetcher) GetPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		out[id] = f.prices[id]
	}
	return out, nil
}

func TestGetTokenStablecoinAlwaysOne(t *testing.T) {
	svc := token.NewService(token.NewMetadataRegistry(), &fakePriceFetcher{err: context.DeadlineExceeded})
	tok := svc.GetToken(context.Background(), "uusdc")
	if !tok.HasPrice() || tok.Price.Price != 1.0 {
		t.Errorf("expected stablecoin price 1.0 even on provider failure, got %+v", tok.Price)
	}
}

func TestGetTokenCachesByBaseDenom(t *testing.T) {
	svc := token.NewService(token.NewMetadataRegistry(), nil)
	a := svc.GetToken(context.Background(), "transfer/channel-0/ubbn")
	b := svc.GetToken(context.Background(), "ubbn")
	if a.Metadata.Symbol != b.Metadata.Symbol {
		t.Errorf("expected same cached metadata regardless of trace prefix")
	}
}

func TestConvertToUsdNoPrice(t *testing.T) {
	svc := token.NewService(token.NewMetadataRegistry(), nil)
	usd, hasPrice, err := svc.ConvertToUsd(context.Background(), "1000000", "uxyzunknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hasPrice {
		t.Error("expected hasPrice=false for token with no price")
	}
	if !usd.IsZero() {
		t.Errorf("expected zero usd, got %s", usd.String())
	}
}

func TestConvertBatchToUsdOrdersDescendingWithPercentages(t *testing.T) {
	svc := token.NewService(token.NewMetadataRegistry(), &fakePriceFetcher{
		prices: map[string]float64{"cosmos": 10, "osmosis": 1},
	})
	// prime the cache with prices synchronously by waiting briefly after GetToken
	svc.GetToken(context.Background(), "uatom")
	svc.GetToken(context.Background(), "uosmo")
	time.Sleep(20 * time.Millisecond)

	result := svc.ConvertBatchToUsd(context.Background(), map[string]string{
		"uatom": "1000000", // 1 ATOM * $10
		"uosmo": "5000000", // 5 OSMO * $1
	})

	if len(result.Breakdown) != 2 {
		t.Fatalf("expected 2 breakdown items, got %d", len(result.Breakdown))
	}
	if result.Breakdown[0].UsdValue.LessThan(result.Breakdown[1].UsdValue) {
		t.Errorf("expected descending order by usd value")
	}
	sumPct := decimal.Zero
	for _, item := range result.Breakdown {
		sumPct = sumPct.Add(item.Percentage)
	}
	if !sumPct.Sub(decimal.NewFromInt(100)).Abs().LessThan(decimal.RequireFromString("0.0001")) {
		t.Errorf("expected percentages to sum to ~100, got %s", sumPct.String())
	}
}

func TestFormatAmountZero(t *testing.T) {
	svc := token.NewService(token.NewMetadataRegistry(), nil)
	got, err := svc.FormatAmount("0", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0" {
		t.Errorf("expected 0, got %s", got)
	}
}

func TestFormatAmountGroupsThousands(t *testing.T) {
	svc := token.NewService(token.NewMetadataRegistry(), nil)
	got, err := svc.FormatAmount("1234567000000", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1,234,567" {
		t.Errorf("expected 1,234,567, got %s", got)
	}
}

func TestFormatAmountScientificForSmallValues(t *testing.T) {
	svc := token.NewService(token.NewMetadataRegistry(), nil)
	// 1234 base units at 6 decimals = 0.001234, which is < 0.01
	got, err := svc.FormatAmount("1234", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1.2e-3" {
		t.Errorf("expected scientific notation 1.2e-3, got %s", got)
	}
}

func TestFormatUsd(t *testing.T) {
	svc := token.NewService(token.NewMetadataRegistry(), nil)
	got := svc.FormatUsd(decimal.RequireFromString("1234.5"))
	if got != "$1,234.50" {
		t.Errorf("expected $1,234.50, got %s", got)
	}
}
