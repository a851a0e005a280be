package pricing

import "github.com/shopspring/decimal"

// ConvertQuote re-expresses an already-computed quote in the secondary
// currency. It is a pure projection: every monetary amount is multiplied by
// the rate and rounded to the nearest unit, labels and terminal names pass
// through, and no fee tier or route lookup is re-run, so currency rounding
// can never change which band or terminal was selected. The customs agency
// charge is the one exception: it is a flat amount held constant in the
// secondary currency rather than re-derived, both as its own field and as
// its share inside the EU totals and tax rollups.
func ConvertQuote(q CurrencyQuote, rate decimal.Decimal, currency string) CurrencyQuote {
    out := CurrencyQuote{
        Currency: currency,
        Domestic: DomesticQuote{
            BrokerFee:   mulRound(q.Domestic.BrokerFee, rate),
            AuctionFee:  mulRound(q.Domestic.AuctionFee, rate),
            InternetFee: mulRound(q.Domestic.InternetFee, rate),
            LiveFee:     mulRound(q.Domestic.LiveFee, rate),
            Additional:  mulRound(q.Domestic.Additional, rate),
            Breakdown:   convertLines(q.Domestic.Breakdown, rate),
            Delivery:    convertLines(q.Domestic.Delivery, rate),
            Ocean:       convertLines(q.Domestic.Ocean, rate),
            Totals:      convertLines(q.Domestic.Totals, rate),
        },
        EU: EUQuote{
            BrokerFee:     mulRound(q.EU.BrokerFee, rate),
            CustomsAgency: q.EU.CustomsAgency,
            Additional:    mulRound(q.EU.Additional, rate),
            Breakdown:     convertLines(q.EU.Breakdown, rate),
            Delivery:      convertLines(q.EU.Delivery, rate),
            Ocean:         convertLines(q.EU.Ocean, rate),
            EUTax:         convertLines(q.EU.EUTax, rate),
            VAT:           convertLines(q.EU.VAT, rate),
            TaxAndFees:    convertLinesHoldingCustoms(q.EU.TaxAndFees, rate),
            Totals:        convertLinesHoldingCustoms(q.EU.Totals, rate),
        },
    }
    return out
}

func convertLines(lines []Line, rate decimal.Decimal) []Line {
    if lines == nil {
        return nil
    }
    out := make([]Line, len(lines))
    for i, l := range lines {
        out[i] = Line{Name: l.Name, Amount: mulRound(l.Amount, rate)}
    }
    return out
}

// convertLinesHoldingCustoms converts lines that embed the flat customs
// agency charge: only the remainder is multiplied, the customs share stays
// as-is in the target currency.
func convertLinesHoldingCustoms(lines []Line, rate decimal.Decimal) []Line {
    if lines == nil {
        return nil
    }
    out := make([]Line, len(lines))
    for i, l := range lines {
        out[i] = Line{
            Name:   l.Name,
            Amount: mulRound(l.Amount-CustomsAgencyFee, rate) + CustomsAgencyFee,
        }
    }
    return out
}

func mulRound(amount int64, rate decimal.Decimal) int64 {
    return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}
