package rate

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/shopspring/decimal"
)

// Provider fetches the current USD to EUR conversion rate. It is only
// consulted to seed an empty rate store; pricing always reads the stored
// rate.
type Provider interface {
    Fetch(ctx context.Context) (decimal.Decimal, error)
}

// Static returns a fixed rate. Used as the fallback provider and in tests.
type Static struct {
    Rate decimal.Decimal
}

func NewStatic() *Static {
    return &Static{Rate: decimal.NewFromFloat(0.92)}
}

func (s *Static) Fetch(ctx context.Context) (decimal.Decimal, error) {
    return s.Rate, nil
}

// Frankfurter pulls the rate from the public frankfurter.app API.
type Frankfurter struct {
    BaseURL string
    Client  *http.Client
}

func NewFrankfurter() *Frankfurter {
    return &Frankfurter{
        BaseURL: "https://api.frankfurter.app",
        Client:  &http.Client{Timeout: 10 * time.Second},
    }
}

func (f *Frankfurter) Fetch(ctx context.Context) (decimal.Decimal, error) {
    url := f.BaseURL + "/latest?from=USD&to=EUR"
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    if err != nil {
        return decimal.Decimal{}, err
    }
    resp, err := f.Client.Do(req)
    if err != nil {
        return decimal.Decimal{}, err
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        return decimal.Decimal{}, fmt.Errorf("rate source returned status %d", resp.StatusCode)
    }
    var body struct {
        Rates map[string]float64 `json:"rates"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
        return decimal.Decimal{}, err
    }
    eur, ok := body.Rates["EUR"]
    if !ok || eur <= 0 {
        return decimal.Decimal{}, fmt.Errorf("rate source returned no EUR rate")
    }
    return decimal.NewFromFloat(eur), nil
}

// NewByName returns a Provider by name. Unknown names fall back to Static.
func NewByName(name string) Provider {
    switch strings.ToLower(strings.TrimSpace(name)) {
    case "frankfurter":
        return NewFrankfurter()
    case "static", "":
        return NewStatic()
    default:
        return NewStatic()
    }
}
