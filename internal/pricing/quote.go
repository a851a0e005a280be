package pricing

// DomesticQuote is the landed cost without VAT or customs, itemized per
// surviving terminal.
type DomesticQuote struct {
    BrokerFee   int64  `json:"broker_fee"`
    AuctionFee  int64  `json:"auction_fee"`
    InternetFee int64  `json:"internet_fee"`
    LiveFee     int64  `json:"live_fee"`
    Additional  int64  `json:"additional"`
    Breakdown   []Line `json:"breakdown"`
    Delivery    []Line `json:"transportation_price"`
    Ocean       []Line `json:"ocean_ship"`
    Totals      []Line `json:"totals"`
}

// EUQuote is the landed cost for EU-bound routes, including the import tax,
// VAT and the customs agency charge.
type EUQuote struct {
    BrokerFee     int64  `json:"broker_fee"`
    CustomsAgency int64  `json:"customs_agency"`
    Additional    int64  `json:"additional"`
    Breakdown     []Line `json:"breakdown"`
    Delivery      []Line `json:"transportation_price"`
    Ocean         []Line `json:"ocean_ship"`
    EUTax         []Line `json:"eu_vats"`
    VAT           []Line `json:"vats"`
    TaxAndFees    []Line `json:"tax_and_fees"`
    Totals        []Line `json:"totals"`
}

// CurrencyQuote is both tax regimes rendered in one currency.
type CurrencyQuote struct {
    Currency string        `json:"currency"`
    Domestic DomesticQuote `json:"calculator"`
    EU       EUQuote       `json:"eu_calculator"`
}

// Quote is the full two-currency, two-regime answer plus the destinations
// reachable from the resolved pickup location.
type Quote struct {
    USD          CurrencyQuote `json:"usd"`
    EUR          CurrencyQuote `json:"eur"`
    Destinations []string      `json:"available_destinations"`
}
