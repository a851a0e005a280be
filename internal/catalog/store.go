package catalog

import (
    "context"
    "errors"
    "fmt"
    "math"
    "strings"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/shopspring/decimal"
)

// DefaultDestinationName is promoted to the default destination when no row
// carries the default flag.
const DefaultDestinationName = "Klaipeda"

// Store reads the pricing catalogs from Postgres. All lookups are plain
// reads; the only writes are the idempotent lazy creates for the default
// destination and the initial exchange rate.
type Store struct {
    db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
    return &Store{db: db}
}

func (s *Store) VehicleType(ctx context.Context, auction Auction, class VehicleClass) (*VehicleType, error) {
    var vt VehicleType
    err := s.db.QueryRow(ctx, `
        SELECT id, auction, vehicle_type, COALESCE(specific_type, '')
        FROM vehicle_type
        WHERE auction = $1 AND vehicle_type = $2
        LIMIT 1`, string(auction), string(class)).
        Scan(&vt.ID, &vt.Auction, &vt.Class, &vt.SpecificType)
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return nil, nil
        }
        return nil, err
    }
    return &vt, nil
}

func (s *Store) DestinationByName(ctx context.Context, name string) (*Destination, error) {
    var d Destination
    err := s.db.QueryRow(ctx, `
        SELECT id, name, is_default
        FROM destination
        WHERE name ILIKE $1
        LIMIT 1`, name).Scan(&d.ID, &d.Name, &d.IsDefault)
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return nil, nil
        }
        return nil, err
    }
    return &d, nil
}

// EnsureDefaultDestination returns the destination flagged as default,
// promoting or inserting the well-known fallback if none is flagged. The
// upsert rides on the unique name constraint so concurrent callers across
// processes converge on the same row.
func (s *Store) EnsureDefaultDestination(ctx context.Context) (*Destination, error) {
    var d Destination
    err := s.db.QueryRow(ctx, `
        SELECT id, name, is_default
        FROM destination
        WHERE is_default
        LIMIT 1`).Scan(&d.ID, &d.Name, &d.IsDefault)
    if err == nil {
        return &d, nil
    }
    if !errors.Is(err, pgx.ErrNoRows) {
        return nil, err
    }
    err = s.db.QueryRow(ctx, `
        INSERT INTO destination (name, is_default)
        VALUES ($1, TRUE)
        ON CONFLICT (name) DO UPDATE SET is_default = TRUE
        RETURNING id, name, is_default`, DefaultDestinationName).
        Scan(&d.ID, &d.Name, &d.IsDefault)
    if err != nil {
        return nil, err
    }
    return &d, nil
}

func (s *Store) ListDestinations(ctx context.Context) ([]Destination, error) {
    rows, err := s.db.Query(ctx, `
        SELECT id, name, is_default
        FROM destination
        ORDER BY name`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []Destination
    for rows.Next() {
        var d Destination
        if err := rows.Scan(&d.ID, &d.Name, &d.IsDefault); err != nil {
            return nil, err
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

// DeliveryLegs returns the priced pickup->terminal legs for a location and
// vehicle type. Zero-priced rows mean the route is not actually offered and
// are excluded here as well as in the engine.
func (s *Store) DeliveryLegs(ctx context.Context, locationID, vehicleTypeID int64) ([]Leg, error) {
    return s.legs(ctx, `
        SELECT t.name, dp.price
        FROM delivery_price dp
        JOIN terminal t ON t.id = dp.terminal_id
        WHERE dp.location_id = $1 AND dp.vehicle_type_id = $2 AND dp.price > 0
        ORDER BY dp.id`, locationID, vehicleTypeID)
}

// ShippingLegs returns the priced terminal->destination ocean legs for a
// destination and vehicle type.
func (s *Store) ShippingLegs(ctx context.Context, destinationID, vehicleTypeID int64) ([]Leg, error) {
    return s.legs(ctx, `
        SELECT t.name, sp.price
        FROM shipping_price sp
        JOIN terminal t ON t.id = sp.terminal_id
        WHERE sp.destination_id = $1 AND sp.vehicle_type_id = $2
        ORDER BY sp.id`, destinationID, vehicleTypeID)
}

func (s *Store) legs(ctx context.Context, sql string, args ...any) ([]Leg, error) {
    rows, err := s.db.Query(ctx, sql, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []Leg
    for rows.Next() {
        var l Leg
        if err := rows.Scan(&l.Terminal, &l.Price); err != nil {
            return nil, err
        }
        out = append(out, l)
    }
    return out, rows.Err()
}

// ReachableDestinations lists every destination served from any terminal
// that has a priced delivery leg for the location and vehicle type,
// de-duplicated and sorted by name.
func (s *Store) ReachableDestinations(ctx context.Context, locationID, vehicleTypeID int64) ([]string, error) {
    rows, err := s.db.Query(ctx, `
        SELECT DISTINCT d.name
        FROM delivery_price dp
        JOIN shipping_price sp
          ON sp.terminal_id = dp.terminal_id AND sp.vehicle_type_id = dp.vehicle_type_id
        JOIN destination d ON d.id = sp.destination_id
        WHERE dp.location_id = $1 AND dp.vehicle_type_id = $2 AND dp.price > 0
        ORDER BY d.name`, locationID, vehicleTypeID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []string
    for rows.Next() {
        var name string
        if err := rows.Scan(&name); err != nil {
            return nil, err
        }
        out = append(out, name)
    }
    return out, rows.Err()
}

func (s *Store) SpecialFees(ctx context.Context, auction Auction) ([]SpecialFee, error) {
    rows, err := s.db.Query(ctx, `
        SELECT name, amount
        FROM additional_special_fee
        WHERE auction = $1
        ORDER BY name`, string(auction))
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []SpecialFee
    for rows.Next() {
        var label string
        var amount float64
        if err := rows.Scan(&label, &amount); err != nil {
            return nil, err
        }
        out = append(out, SpecialFee{Label: label, Amount: int64(math.Round(amount))})
    }
    return out, rows.Err()
}

// FeeBand returns the first base-fee band whose price range contains the
// price, ordered by range lower bound. Nil means no band covers the price.
func (s *Store) FeeBand(ctx context.Context, auction Auction, class FeeClass, price int64) (*FeeBand, error) {
    var minP, maxP, fee float64
    err := s.db.QueryRow(ctx, `
        SELECT f.car_price_min, f.car_price_max, f.car_price_fee
        FROM fee f
        JOIN fee_type ft ON ft.id = f.fee_type_id
        WHERE ft.auction = $1 AND ft.fee_type = $2
          AND f.car_price_min <= $3 AND f.car_price_max >= $3
        ORDER BY f.car_price_min
        LIMIT 1`, string(auction), string(class), price).Scan(&minP, &maxP, &fee)
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return nil, nil
        }
        return nil, err
    }
    return &FeeBand{
        MinPrice: int64(minP),
        MaxPrice: int64(maxP),
        Fee:      decimal.NewFromFloat(fee),
    }, nil
}

// ProxyFee returns the online-proxy channel surcharge for the price, if a
// band covers it.
func (s *Store) ProxyFee(ctx context.Context, price int64) (int64, bool, error) {
    return s.channelFee(ctx, `
        SELECT int_fee
        FROM additional_fee
        WHERE int_proxy_min IS NOT NULL AND int_proxy_max IS NOT NULL
          AND int_proxy_min <= $1 AND int_proxy_max >= $1
        ORDER BY int_proxy_min
        LIMIT 1`, price)
}

// LiveFee returns the live-bid channel surcharge for the price, if a band
// covers it.
func (s *Store) LiveFee(ctx context.Context, price int64) (int64, bool, error) {
    return s.channelFee(ctx, `
        SELECT live_bid_fee
        FROM additional_fee
        WHERE live_bid_min IS NOT NULL AND live_bid_max IS NOT NULL
          AND live_bid_min <= $1 AND live_bid_max >= $1
        ORDER BY live_bid_min
        LIMIT 1`, price)
}

func (s *Store) channelFee(ctx context.Context, sql string, price int64) (int64, bool, error) {
    var fee float64
    err := s.db.QueryRow(ctx, sql, price).Scan(&fee)
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return 0, false, nil
        }
        return 0, false, err
    }
    return int64(math.Round(fee)), true, nil
}

func (s *Store) LatestRate(ctx context.Context) (*ExchangeRate, error) {
    return s.scanRate(s.db.QueryRow(ctx, `
        SELECT id, rate, created_at
        FROM exchange_rate
        ORDER BY created_at DESC, id DESC
        LIMIT 1`))
}

// InsertRate appends a rate observation. A duplicate insert from a racing
// seeder is treated as success and the stored row is returned instead.
func (s *Store) InsertRate(ctx context.Context, rate decimal.Decimal) (*ExchangeRate, error) {
    f, _ := rate.Float64()
    r, err := s.scanRate(s.db.QueryRow(ctx, `
        INSERT INTO exchange_rate (rate)
        VALUES ($1)
        RETURNING id, rate, created_at`, f))
    if err != nil {
        var pgErr *pgconn.PgError
        if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
            return s.LatestRate(ctx)
        }
        return nil, err
    }
    return r, nil
}

func (s *Store) scanRate(row pgx.Row) (*ExchangeRate, error) {
    var r ExchangeRate
    var rate float64
    if err := row.Scan(&r.ID, &rate, &r.CreatedAt); err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return nil, nil
        }
        return nil, err
    }
    r.Rate = decimal.NewFromFloat(rate)
    return &r, nil
}

// Location search primitives. Every query joins delivery_price so a match is
// only possible for locations that are actually priced for the requested
// vehicle type, and every query orders by name so ties resolve the same way
// on every call.

const locationColumns = `l.id, l.name, COALESCE(l.city, ''), COALESCE(l.state, '')`

func (s *Store) LocationExact(ctx context.Context, name string, vehicleTypeID int64) (*Location, error) {
    return s.oneLocation(ctx, `
        SELECT DISTINCT `+locationColumns+`
        FROM location l
        JOIN delivery_price dp ON dp.location_id = l.id
        WHERE dp.vehicle_type_id = $2 AND l.name ILIKE $1
        ORDER BY l.name
        LIMIT 1`, name, vehicleTypeID)
}

func (s *Store) LocationContains(ctx context.Context, text string, vehicleTypeID int64) (*Location, error) {
    return s.oneLocation(ctx, `
        SELECT DISTINCT `+locationColumns+`
        FROM location l
        JOIN delivery_price dp ON dp.location_id = l.id
        WHERE dp.vehicle_type_id = $2
          AND (l.name ILIKE '%' || $1 || '%' OR $1 ILIKE '%' || l.name || '%')
        ORDER BY l.name
        LIMIT 1`, text, vehicleTypeID)
}

func (s *Store) LocationCityState(ctx context.Context, city, state string, vehicleTypeID int64) (*Location, error) {
    return s.oneLocation(ctx, `
        SELECT DISTINCT `+locationColumns+`
        FROM location l
        JOIN delivery_price dp ON dp.location_id = l.id
        WHERE dp.vehicle_type_id = $3
          AND (l.name ILIKE ($1 || ' ' || $2)
               OR (COALESCE(l.city, '') ILIKE $1 AND COALESCE(l.state, '') ILIKE $2))
        ORDER BY l.name
        LIMIT 1`, city, state, vehicleTypeID)
}

// LocationAllTokens matches locations where every token appears as a
// substring of the name, city or state.
func (s *Store) LocationAllTokens(ctx context.Context, tokens []string, vehicleTypeID int64) (*Location, error) {
    if len(tokens) == 0 {
        return nil, nil
    }
    args := []any{vehicleTypeID}
    var conds []string
    for _, tok := range tokens {
        args = append(args, tok)
        n := len(args)
        conds = append(conds, fmt.Sprintf(
            `(l.name ILIKE '%%' || $%d || '%%'
              OR COALESCE(l.city, '') ILIKE '%%' || $%d || '%%'
              OR COALESCE(l.state, '') ILIKE '%%' || $%d || '%%')`, n, n, n))
    }
    sql := `
        SELECT DISTINCT ` + locationColumns + `
        FROM location l
        JOIN delivery_price dp ON dp.location_id = l.id
        WHERE dp.vehicle_type_id = $1
          AND ` + strings.Join(conds, " AND ") + `
        ORDER BY l.name
        LIMIT 1`
    return s.oneLocation(ctx, sql, args...)
}

// LocationSimilar ranks locations by pg_trgm similarity against name and
// city and returns the best candidate at or above the threshold.
func (s *Store) LocationSimilar(ctx context.Context, text string, vehicleTypeID int64, threshold float64) (*Location, error) {
    var l Location
    var score float64
    err := s.db.QueryRow(ctx, `
        SELECT DISTINCT `+locationColumns+`,
               GREATEST(similarity(l.name, $1), similarity(COALESCE(l.city, ''), $1)) AS score
        FROM location l
        JOIN delivery_price dp ON dp.location_id = l.id
        WHERE dp.vehicle_type_id = $2
          AND GREATEST(similarity(l.name, $1), similarity(COALESCE(l.city, ''), $1)) >= $3
        ORDER BY score DESC, l.name
        LIMIT 1`, text, vehicleTypeID, threshold).
        Scan(&l.ID, &l.Name, &l.City, &l.State, &score)
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return nil, nil
        }
        return nil, err
    }
    return &l, nil
}

// SearchLocations is the listing query behind GET /locations. An empty
// search returns all locations; an auction filter keeps only locations that
// have a priced delivery leg for that auction.
func (s *Store) SearchLocations(ctx context.Context, search string, auction Auction, limit int) ([]Location, error) {
    if limit <= 0 {
        limit = 50
    }
    sql := `
        SELECT DISTINCT ` + locationColumns + `
        FROM location l
        WHERE ($1 = '' OR l.name ILIKE '%' || $1 || '%')
        ORDER BY l.name
        LIMIT $2`
    args := []any{search, limit}
    if auction != "" {
        sql = `
        SELECT DISTINCT ` + locationColumns + `
        FROM location l
        JOIN delivery_price dp ON dp.location_id = l.id
        JOIN vehicle_type vt ON vt.id = dp.vehicle_type_id
        WHERE ($1 = '' OR l.name ILIKE '%' || $1 || '%') AND vt.auction = $3
        ORDER BY l.name
        LIMIT $2`
        args = append(args, string(auction))
    }
    rows, err := s.db.Query(ctx, sql, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []Location
    for rows.Next() {
        var l Location
        if err := rows.Scan(&l.ID, &l.Name, &l.City, &l.State); err != nil {
            return nil, err
        }
        out = append(out, l)
    }
    return out, rows.Err()
}

func (s *Store) oneLocation(ctx context.Context, sql string, args ...any) (*Location, error) {
    var l Location
    err := s.db.QueryRow(ctx, sql, args...).Scan(&l.ID, &l.Name, &l.City, &l.State)
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return nil, nil
        }
        return nil, err
    }
    return &l, nil
}
