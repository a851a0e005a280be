package catalog

import (
    "time"

    "github.com/shopspring/decimal"
)

// Auction identifies the auction house a vehicle is bought from.
type Auction string

const (
    AuctionCopart Auction = "COPART"
    AuctionIAAI   Auction = "IAAI"
)

func (a Auction) Valid() bool {
    switch a {
    case AuctionCopart, AuctionIAAI:
        return true
    }
    return false
}

// VehicleClass is the coarse vehicle category used as a pricing dimension.
type VehicleClass string

const (
    VehicleCar  VehicleClass = "CAR"
    VehicleMoto VehicleClass = "MOTO"
)

func (v VehicleClass) Valid() bool {
    switch v {
    case VehicleCar, VehicleMoto:
        return true
    }
    return false
}

// FeeClass selects which base-fee schedule applies to a purchase.
type FeeClass string

const (
    FeeCleanTitle    FeeClass = "clean_title_fee"
    FeeNonCleanTitle FeeClass = "non_clean_title_fee"
    FeeCrashedToys   FeeClass = "crashed_toys_fee"
    FeeLess          FeeClass = "less_fee"
)

func (f FeeClass) Valid() bool {
    switch f {
    case FeeCleanTitle, FeeNonCleanTitle, FeeCrashedToys, FeeLess:
        return true
    }
    return false
}

// Location is a U.S. auction yard or branch where a vehicle is collected.
type Location struct {
    ID    int64
    Name  string
    City  string
    State string
}

// VehicleType is the (auction, vehicle class) pricing dimension, optionally
// refined by an auction-specific sub-type.
type VehicleType struct {
    ID           int64
    Auction      Auction
    Class        VehicleClass
    SpecificType string
}

// Destination is a non-U.S. port of arrival. Exactly one row is flagged as
// the default, auto-selected when a caller omits a destination.
type Destination struct {
    ID        int64
    Name      string
    IsDefault bool
}

// Leg is a priced route segment keyed by the terminal it passes through.
// Delivery legs run pickup location -> terminal, shipping legs run
// terminal -> destination; both reduce to (terminal, price) for quoting.
type Leg struct {
    Terminal string
    Price    int64
}

// FeeBand is a price-banded auction base fee. A fee value below 1 is a
// fraction of the vehicle price, a value of 1 or more is a flat amount.
type FeeBand struct {
    MinPrice int64
    MaxPrice int64
    Fee      decimal.Decimal
}

// SpecialFee is a flat per-auction fee that always applies in full.
type SpecialFee struct {
    Label  string
    Amount int64
}

// ExchangeRate is one observation of the USD to EUR conversion rate.
// Only the most recent row is authoritative for pricing.
type ExchangeRate struct {
    ID        int64
    Rate      decimal.Decimal
    CreatedAt time.Time
}
