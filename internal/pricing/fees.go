package pricing

import (
    "context"

    "github.com/shopspring/decimal"

    "autoquote/internal/catalog"
)

// FeeCatalog is the fee lookup surface of the catalog store.
type FeeCatalog interface {
    SpecialFees(ctx context.Context, auction catalog.Auction) ([]catalog.SpecialFee, error)
    FeeBand(ctx context.Context, auction catalog.Auction, class catalog.FeeClass, price int64) (*catalog.FeeBand, error)
    ProxyFee(ctx context.Context, price int64) (int64, bool, error)
    LiveFee(ctx context.Context, price int64) (int64, bool, error)
}

// Line is one named amount in an itemized breakdown.
type Line struct {
    Name   string `json:"name"`
    Amount int64  `json:"amount"`
}

// Surcharge is the total non-shipping surcharge for a purchase: flat special
// fees plus the banded auction fee plus the bidding-channel fee.
type Surcharge struct {
    Total       int64  `json:"total"`
    AuctionFee  int64  `json:"auction_fee"`
    InternetFee int64  `json:"internet_fee"`
    LiveFee     int64  `json:"live_fee"`
    Breakdown   []Line `json:"breakdown"`
}

// FeeEngine computes surcharges from the banded fee catalog.
type FeeEngine struct {
    cat FeeCatalog

    // strictChannel makes a missing channel-surcharge band fail like a
    // missing base-fee band instead of contributing zero. The lenient
    // default matches observed behavior.
    strictChannel bool
}

func NewFeeEngine(cat FeeCatalog, strictChannel bool) *FeeEngine {
    return &FeeEngine{cat: cat, strictChannel: strictChannel}
}

// Surcharge computes the itemized surcharge for an auction and price. The
// fee classification defaults to the non-clean-title schedule when the
// caller does not override it. A price outside every base-fee band is a hard
// failure: defaulting to zero would silently under-charge.
func (e *FeeEngine) Surcharge(ctx context.Context, auction catalog.Auction, class catalog.FeeClass, price int64) (*Surcharge, error) {
    if class == "" {
        class = catalog.FeeNonCleanTitle
    }

    special, err := e.cat.SpecialFees(ctx, auction)
    if err != nil {
        return nil, err
    }
    var specialTotal int64
    breakdown := make([]Line, 0, len(special)+3)
    for _, f := range special {
        specialTotal += f.Amount
        breakdown = append(breakdown, Line{Name: f.Label, Amount: f.Amount})
    }

    band, err := e.cat.FeeBand(ctx, auction, class, price)
    if err != nil {
        return nil, err
    }
    if band == nil {
        return nil, ErrFeeNotFound
    }
    auctionFee := flatOrPercentage(band.Fee, price)

    var internetFee, liveFee int64
    switch auction {
    case catalog.AuctionIAAI:
        fee, ok, err := e.cat.ProxyFee(ctx, price)
        if err != nil {
            return nil, err
        }
        if !ok && e.strictChannel {
            return nil, ErrFeeNotFound
        }
        internetFee = fee
    case catalog.AuctionCopart:
        fee, ok, err := e.cat.LiveFee(ctx, price)
        if err != nil {
            return nil, err
        }
        if !ok && e.strictChannel {
            return nil, ErrFeeNotFound
        }
        liveFee = fee
    }

    breakdown = append(breakdown,
        Line{Name: "Auction Fee", Amount: auctionFee},
        Line{Name: "Internet Fee", Amount: internetFee},
        Line{Name: "Live Fee", Amount: liveFee},
    )

    return &Surcharge{
        Total:       specialTotal + auctionFee + internetFee + liveFee,
        AuctionFee:  auctionFee,
        InternetFee: internetFee,
        LiveFee:     liveFee,
        Breakdown:   breakdown,
    }, nil
}

// flatOrPercentage interprets a band fee below 1 as a fraction of the price
// and anything else as a flat amount, rounded to the nearest unit.
func flatOrPercentage(fee decimal.Decimal, price int64) int64 {
    if fee.LessThan(decimal.NewFromInt(1)) {
        return decimal.NewFromInt(price).Mul(fee).Round(0).IntPart()
    }
    return fee.Round(0).IntPart()
}
