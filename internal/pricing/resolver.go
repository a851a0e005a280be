package pricing

import (
    "context"
    "regexp"
    "strings"

    "github.com/rs/zerolog"

    "autoquote/internal/catalog"
)

// LocationIndex is the catalog search surface the resolver matches against.
// Every primitive only returns locations that have a priced delivery leg for
// the given vehicle type, and breaks ties by name so resolution stays
// deterministic across calls.
type LocationIndex interface {
    LocationExact(ctx context.Context, name string, vehicleTypeID int64) (*catalog.Location, error)
    LocationContains(ctx context.Context, text string, vehicleTypeID int64) (*catalog.Location, error)
    LocationCityState(ctx context.Context, city, state string, vehicleTypeID int64) (*catalog.Location, error)
    LocationAllTokens(ctx context.Context, tokens []string, vehicleTypeID int64) (*catalog.Location, error)
    LocationSimilar(ctx context.Context, text string, vehicleTypeID int64, threshold float64) (*catalog.Location, error)
}

// DefaultSimilarityThreshold is the trigram score below which a fuzzy
// candidate is rejected rather than guessed. Tunable via config.
const DefaultSimilarityThreshold = 0.45

// Resolver turns free-text pickup descriptions from auction feeds into
// canonical locations. Auction feeds misspell names, append parenthetical
// qualifiers and sometimes send only a city/state fragment, so resolution is
// a fixed-priority list of matcher strategies; the first one that produces a
// candidate wins.
type Resolver struct {
    idx       LocationIndex
    threshold float64
    log       zerolog.Logger
}

func NewResolver(idx LocationIndex, threshold float64, log zerolog.Logger) *Resolver {
    if threshold <= 0 {
        threshold = DefaultSimilarityThreshold
    }
    return &Resolver{idx: idx, threshold: threshold, log: log}
}

// ResolveQuery carries the raw pickup text plus the optional city/state the
// feed supplied alongside it.
type ResolveQuery struct {
    Text          string
    City          string
    State         string
    VehicleTypeID int64
}

type strategy struct {
    name string
    run  func(ctx context.Context, q ResolveQuery) (*catalog.Location, error)
}

var parenthetical = regexp.MustCompile(`\s*\([^)]*\)`)

// StripParenthetical removes parenthetical qualifiers, so "Dallas (TX)"
// normalizes to "Dallas".
func StripParenthetical(s string) string {
    return strings.TrimSpace(parenthetical.ReplaceAllString(s, ""))
}

func (r *Resolver) strategies() []strategy {
    return []strategy{
        {name: "exact", run: func(ctx context.Context, q ResolveQuery) (*catalog.Location, error) {
            return r.idx.LocationExact(ctx, q.Text, q.VehicleTypeID)
        }},
        {name: "exact-normalized", run: func(ctx context.Context, q ResolveQuery) (*catalog.Location, error) {
            norm := StripParenthetical(q.Text)
            if norm == "" || norm == q.Text {
                return nil, nil
            }
            return r.idx.LocationExact(ctx, norm, q.VehicleTypeID)
        }},
        {name: "contains", run: func(ctx context.Context, q ResolveQuery) (*catalog.Location, error) {
            norm := StripParenthetical(q.Text)
            if norm == "" {
                return nil, nil
            }
            return r.idx.LocationContains(ctx, norm, q.VehicleTypeID)
        }},
        {name: "city-state", run: func(ctx context.Context, q ResolveQuery) (*catalog.Location, error) {
            if q.City == "" || q.State == "" {
                return nil, nil
            }
            return r.idx.LocationCityState(ctx, q.City, q.State, q.VehicleTypeID)
        }},
        {name: "token-overlap", run: func(ctx context.Context, q ResolveQuery) (*catalog.Location, error) {
            tokens := strings.Fields(q.City)
            if len(tokens) < 2 {
                return nil, nil
            }
            return r.idx.LocationAllTokens(ctx, tokens, q.VehicleTypeID)
        }},
        {name: "similarity", run: func(ctx context.Context, q ResolveQuery) (*catalog.Location, error) {
            norm := StripParenthetical(q.Text)
            if norm == "" {
                return nil, nil
            }
            return r.idx.LocationSimilar(ctx, norm, q.VehicleTypeID, r.threshold)
        }},
    }
}

// Resolve tries each strategy in priority order and returns the first
// candidate. It returns ErrLocationNotFound rather than a low-confidence
// guess when nothing scores above the similarity threshold.
func (r *Resolver) Resolve(ctx context.Context, q ResolveQuery) (*catalog.Location, error) {
    q.Text = strings.TrimSpace(q.Text)
    q.City = strings.TrimSpace(q.City)
    q.State = strings.TrimSpace(q.State)
    if q.Text == "" && q.City == "" {
        return nil, ErrLocationNotFound
    }
    for _, st := range r.strategies() {
        loc, err := st.run(ctx, q)
        if err != nil {
            return nil, err
        }
        if loc != nil {
            r.log.Debug().
                Str("strategy", st.name).
                Str("pickup_text", q.Text).
                Str("location", loc.Name).
                Msg("pickup location resolved")
            return loc, nil
        }
    }
    return nil, ErrLocationNotFound
}
