package pricing

import (
    "context"

    "github.com/rs/zerolog"
    "github.com/shopspring/decimal"
    "golang.org/x/sync/errgroup"

    "autoquote/internal/catalog"
)

const (
    // BrokerFee is the fixed broker commission, charged in both regimes.
    BrokerFee = 250
    // CustomsAgencyFee is the flat customs clearance charge on EU routes,
    // held constant in the secondary currency when converting.
    CustomsAgencyFee = 350
)

var (
    euTaxRate = decimal.NewFromFloat(0.10)
    vatRate   = decimal.NewFromFloat(0.21)
)

// Catalog is everything the calculator reads from the pricing catalogs.
type Catalog interface {
    FeeCatalog
    LocationIndex
    VehicleType(ctx context.Context, auction catalog.Auction, class catalog.VehicleClass) (*catalog.VehicleType, error)
    DestinationByName(ctx context.Context, name string) (*catalog.Destination, error)
    EnsureDefaultDestination(ctx context.Context) (*catalog.Destination, error)
    DeliveryLegs(ctx context.Context, locationID, vehicleTypeID int64) ([]catalog.Leg, error)
    ShippingLegs(ctx context.Context, destinationID, vehicleTypeID int64) ([]catalog.Leg, error)
    ReachableDestinations(ctx context.Context, locationID, vehicleTypeID int64) ([]string, error)
}

// RateStore holds USD to EUR rate observations; only the latest is read.
type RateStore interface {
    LatestRate(ctx context.Context) (*catalog.ExchangeRate, error)
    InsertRate(ctx context.Context, rate decimal.Decimal) (*catalog.ExchangeRate, error)
}

// RateSource produces a current rate to seed an empty store on first use.
type RateSource interface {
    Fetch(ctx context.Context) (decimal.Decimal, error)
}

// Request is one quoting input from the transport layer.
type Request struct {
    Price       int64                `json:"price"`
    Auction     catalog.Auction      `json:"auction"`
    VehicleType catalog.VehicleClass `json:"vehicle_type"`
    Location    string               `json:"location"`
    City        string               `json:"city,omitempty"`
    State       string               `json:"state,omitempty"`
    FeeType     catalog.FeeClass     `json:"fee_type,omitempty"`
    Destination string               `json:"destination,omitempty"`
}

// Options tune the engine knobs that the observed behavior left open.
type Options struct {
    SimilarityThreshold float64
    StrictChannelFees   bool
    Logger              zerolog.Logger
}

// Calculator composes resolution, fee lookup, route sync and currency
// conversion into a two-regime, two-currency quote.
type Calculator struct {
    cat      Catalog
    rates    RateStore
    src      RateSource
    resolver *Resolver
    fees     *FeeEngine
    log      zerolog.Logger
}

func NewCalculator(cat Catalog, rates RateStore, src RateSource, opts Options) *Calculator {
    return &Calculator{
        cat:      cat,
        rates:    rates,
        src:      src,
        resolver: NewResolver(cat, opts.SimilarityThreshold, opts.Logger),
        fees:     NewFeeEngine(cat, opts.StrictChannelFees),
        log:      opts.Logger,
    }
}

// Calculate produces the full quote or fails fast with a domain error; no
// partial quote is ever returned.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*Quote, error) {
    vt, err := c.cat.VehicleType(ctx, req.Auction, req.VehicleType)
    if err != nil {
        return nil, err
    }
    if vt == nil {
        return nil, ErrVehicleTypeNotFound
    }

    var dest *catalog.Destination
    if req.Destination != "" {
        dest, err = c.cat.DestinationByName(ctx, req.Destination)
        if err != nil {
            return nil, err
        }
        if dest == nil {
            return nil, ErrDestinationNotFound
        }
    } else {
        dest, err = c.cat.EnsureDefaultDestination(ctx)
        if err != nil {
            return nil, err
        }
    }

    surcharge, err := c.fees.Surcharge(ctx, req.Auction, req.FeeType, req.Price)
    if err != nil {
        return nil, err
    }

    loc, err := c.resolver.Resolve(ctx, ResolveQuery{
        Text:          req.Location,
        City:          req.City,
        State:         req.State,
        VehicleTypeID: vt.ID,
    })
    if err != nil {
        return nil, err
    }

    delivery, err := c.cat.DeliveryLegs(ctx, loc.ID, vt.ID)
    if err != nil {
        return nil, err
    }
    if len(delivery) == 0 {
        return nil, ErrDeliveryPriceNotFound
    }

    shipping, err := c.cat.ShippingLegs(ctx, dest.ID, vt.ID)
    if err != nil {
        return nil, err
    }
    if len(shipping) == 0 {
        return nil, ErrShippingPriceNotFound
    }

    // A zero delivery price means the route is not actually offered.
    priced := delivery[:0:0]
    for _, d := range delivery {
        if d.Price > 0 {
            priced = append(priced, d)
        }
    }
    delivery, shipping = SyncRoutes(priced, shipping)

    destinations, err := c.cat.ReachableDestinations(ctx, loc.ID, vt.ID)
    if err != nil {
        return nil, err
    }

    rate, err := c.exchangeRate(ctx)
    if err != nil {
        return nil, err
    }

    usd := c.buildUSD(req.Price, surcharge, delivery, shipping)
    eur := ConvertQuote(usd, rate, "EUR")

    return &Quote{USD: usd, EUR: eur, Destinations: destinations}, nil
}

func (c *Calculator) buildUSD(price int64, surcharge *Surcharge, delivery, shipping []catalog.Leg) CurrencyQuote {
    n := len(delivery)
    dom := DomesticQuote{
        BrokerFee:   BrokerFee,
        AuctionFee:  surcharge.AuctionFee,
        InternetFee: surcharge.InternetFee,
        LiveFee:     surcharge.LiveFee,
        Additional:  surcharge.Total,
        Breakdown:   surcharge.Breakdown,
        Delivery:    make([]Line, 0, n),
        Ocean:       make([]Line, 0, n),
        Totals:      make([]Line, 0, n),
    }
    eu := EUQuote{
        BrokerFee:     BrokerFee,
        CustomsAgency: CustomsAgencyFee,
        Additional:    surcharge.Total,
        Breakdown:     surcharge.Breakdown,
        Delivery:      make([]Line, 0, n),
        Ocean:         make([]Line, 0, n),
        EUTax:         make([]Line, 0, n),
        VAT:           make([]Line, 0, n),
        TaxAndFees:    make([]Line, 0, n),
        Totals:        make([]Line, 0, n),
    }

    for i := range delivery {
        d, s := delivery[i], shipping[i]
        dom.Delivery = append(dom.Delivery, Line{Name: d.Terminal, Amount: d.Price})
        dom.Ocean = append(dom.Ocean, Line{Name: s.Terminal, Amount: s.Price})
        dom.Totals = append(dom.Totals, Line{
            Name:   d.Terminal,
            Amount: d.Price + s.Price + surcharge.Total + BrokerFee + price,
        })

        base := BrokerFee + s.Price + d.Price + surcharge.Total + price
        euTax := decimal.NewFromInt(base).Mul(euTaxRate).Round(0).IntPart()
        vat := decimal.NewFromInt(euTax + base).Mul(vatRate).Round(0).IntPart()
        total := d.Price + BrokerFee + surcharge.Total + price + euTax + vat + s.Price + CustomsAgencyFee

        eu.Delivery = append(eu.Delivery, Line{Name: d.Terminal, Amount: d.Price})
        eu.Ocean = append(eu.Ocean, Line{Name: s.Terminal, Amount: s.Price})
        eu.EUTax = append(eu.EUTax, Line{Name: d.Terminal, Amount: euTax})
        eu.VAT = append(eu.VAT, Line{Name: d.Terminal, Amount: vat})
        eu.TaxAndFees = append(eu.TaxAndFees, Line{Name: d.Terminal, Amount: total - base})
        eu.Totals = append(eu.Totals, Line{Name: d.Terminal, Amount: total})
    }

    return CurrencyQuote{Currency: "USD", Domestic: dom, EU: eu}
}

// exchangeRate returns the latest stored rate, seeding the store from the
// live source on first use. A duplicate seed from a racing instance is
// harmless: the store resolves it to one authoritative row.
func (c *Calculator) exchangeRate(ctx context.Context) (decimal.Decimal, error) {
    last, err := c.rates.LatestRate(ctx)
    if err != nil {
        return decimal.Decimal{}, err
    }
    if last != nil {
        return last.Rate, nil
    }
    fetched, err := c.src.Fetch(ctx)
    if err != nil {
        return decimal.Decimal{}, err
    }
    stored, err := c.rates.InsertRate(ctx, fetched)
    if err != nil {
        return decimal.Decimal{}, err
    }
    c.log.Info().Str("rate", stored.Rate.String()).Msg("seeded initial exchange rate")
    return stored.Rate, nil
}

// BatchResult is one slot of a batch quote; exactly one of Quote and Err is
// set.
type BatchResult struct {
    Quote *Quote
    Err   error
}

// batchConcurrency caps in-flight items per batch call.
const batchConcurrency = 8

// CalculateBatch quotes every item independently. One item's failure lands
// in its own slot and never aborts or corrupts the siblings.
func (c *Calculator) CalculateBatch(ctx context.Context, reqs []Request) []BatchResult {
    results := make([]BatchResult, len(reqs))
    var g errgroup.Group
    g.SetLimit(batchConcurrency)
    for i, req := range reqs {
        i, req := i, req
        g.Go(func() error {
            q, err := c.Calculate(ctx, req)
            results[i] = BatchResult{Quote: q, Err: err}
            return nil
        })
    }
    _ = g.Wait()
    return results
}
