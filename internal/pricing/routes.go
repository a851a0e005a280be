package pricing

import "autoquote/internal/catalog"

// SyncRoutes intersects delivery and shipping legs on terminal name. Only
// terminals present in both sets survive, and the returned slices are
// index-aligned: entry i on each side refers to the same terminal, in the
// original delivery order, so per-terminal totals can zip the two.
func SyncRoutes(delivery, shipping []catalog.Leg) ([]catalog.Leg, []catalog.Leg) {
    byTerminal := make(map[string]catalog.Leg, len(shipping))
    for _, s := range shipping {
        if _, ok := byTerminal[s.Terminal]; !ok {
            byTerminal[s.Terminal] = s
        }
    }

    outDelivery := make([]catalog.Leg, 0, len(delivery))
    outShipping := make([]catalog.Leg, 0, len(delivery))
    seen := make(map[string]bool, len(delivery))
    for _, d := range delivery {
        s, ok := byTerminal[d.Terminal]
        if !ok || seen[d.Terminal] {
            continue
        }
        seen[d.Terminal] = true
        outDelivery = append(outDelivery, d)
        outShipping = append(outShipping, s)
    }
    return outDelivery, outShipping
}
