package server

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/rs/zerolog"

    "autoquote/internal/catalog"
    "autoquote/internal/pricing"
)

type fakeQuoter struct {
    quote *pricing.Quote
    err   error
    last  *pricing.Request
}

func (f *fakeQuoter) Calculate(ctx context.Context, req pricing.Request) (*pricing.Quote, error) {
    f.last = &req
    return f.quote, f.err
}

func (f *fakeQuoter) CalculateBatch(ctx context.Context, reqs []pricing.Request) []pricing.BatchResult {
    out := make([]pricing.BatchResult, len(reqs))
    for i := range reqs {
        q, err := f.Calculate(ctx, reqs[i])
        out[i] = pricing.BatchResult{Quote: q, Err: err}
    }
    return out
}

type fakeCatalogAPI struct {
    locations    []catalog.Location
    destinations []catalog.Destination
    err          error
}

func (f *fakeCatalogAPI) SearchLocations(ctx context.Context, search string, auction catalog.Auction, limit int) ([]catalog.Location, error) {
    return f.locations, f.err
}

func (f *fakeCatalogAPI) ListDestinations(ctx context.Context) ([]catalog.Destination, error) {
    return f.destinations, f.err
}

func newTestHandler(q Quoter, c CatalogAPI) http.Handler {
    if q == nil {
        q = &fakeQuoter{}
    }
    if c == nil {
        c = &fakeCatalogAPI{}
    }
    return New(q, c, zerolog.Nop())
}

func sampleQuote() *pricing.Quote {
    return &pricing.Quote{
        USD: pricing.CurrencyQuote{
            Currency: "USD",
            Domestic: pricing.DomesticQuote{
                BrokerFee: pricing.BrokerFee,
                Totals:    []pricing.Line{{Name: "Newark", Amount: 2738}},
            },
        },
        EUR:          pricing.CurrencyQuote{Currency: "EUR"},
        Destinations: []string{"Klaipeda"},
    }
}

const validCalcBody = `{"price":1000,"auction":"COPART","vehicle_type":"CAR","location":"TX - Dallas"}`

func TestHealthz(t *testing.T) {
    h := newTestHandler(nil, nil)
    req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    if body := rr.Body.String(); body != "ok" {
        t.Fatalf("expected body 'ok', got %q", body)
    }
}

func TestRequestIDHeaderPresent(t *testing.T) {
    h := newTestHandler(nil, nil)
    req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rid := rr.Header().Get("X-Request-ID"); rid == "" {
        t.Fatalf("expected X-Request-ID header to be set")
    }
}

func TestRequestIDHeaderPropagated(t *testing.T) {
    h := newTestHandler(nil, nil)
    req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
    req.Header.Set("X-Request-ID", "test-rid-123")
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rid := rr.Header().Get("X-Request-ID"); rid != "test-rid-123" {
        t.Fatalf("expected propagated request id, got %q", rid)
    }
}

func TestCalculate_HappyPath(t *testing.T) {
    q := &fakeQuoter{quote: sampleQuote()}
    h := newTestHandler(q, nil)

    req := httptest.NewRequest(http.MethodPost, "/calculator", strings.NewReader(validCalcBody))
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
    }
    if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
        t.Fatalf("unexpected content type %q", ct)
    }

    var res struct {
        USD struct {
            Currency   string `json:"currency"`
            Calculator struct {
                BrokerFee int64 `json:"broker_fee"`
            } `json:"calculator"`
        } `json:"usd"`
        Destinations []string `json:"available_destinations"`
    }
    if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
        t.Fatalf("failed to unmarshal: %v", err)
    }
    if res.USD.Currency != "USD" || res.USD.Calculator.BrokerFee != pricing.BrokerFee {
        t.Fatalf("unexpected response: %+v", res)
    }
    if len(res.Destinations) != 1 || res.Destinations[0] != "Klaipeda" {
        t.Fatalf("unexpected destinations: %v", res.Destinations)
    }
    if q.last == nil || q.last.Price != 1000 || q.last.Auction != catalog.AuctionCopart {
        t.Fatalf("engine saw wrong request: %+v", q.last)
    }
}

func TestCalculateBatch_MixedItems(t *testing.T) {
    q := &fakeQuoter{quote: sampleQuote()}
    h := newTestHandler(q, nil)

    body := `{"items":[` + validCalcBody + `,{"price":-5,"auction":"COPART","vehicle_type":"CAR","location":"x"},` + validCalcBody + `]}`
    req := httptest.NewRequest(http.MethodPost, "/calculator/batch", strings.NewReader(body))
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
    }

    var res struct {
        Items []struct {
            Quote *json.RawMessage `json:"quote"`
            Error *struct {
                Code string `json:"code"`
            } `json:"error"`
        } `json:"items"`
    }
    if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
        t.Fatalf("failed to unmarshal: %v", err)
    }
    if len(res.Items) != 3 {
        t.Fatalf("expected 3 items, got %d", len(res.Items))
    }
    if res.Items[0].Quote == nil || res.Items[0].Error != nil {
        t.Fatalf("item 0 should carry a quote: %+v", res.Items[0])
    }
    if res.Items[1].Error == nil || res.Items[1].Error.Code != "invalid_request" {
        t.Fatalf("item 1 should be rejected: %+v", res.Items[1])
    }
    if res.Items[2].Quote == nil {
        t.Fatalf("item 2 should carry a quote: %+v", res.Items[2])
    }
}

func TestLocations_List(t *testing.T) {
    c := &fakeCatalogAPI{locations: []catalog.Location{
        {ID: 1, Name: "TX - Dallas", City: "Dallas", State: "TX"},
        {ID: 3, Name: "Phoenix"},
    }}
    h := newTestHandler(nil, c)

    req := httptest.NewRequest(http.MethodGet, "/locations?search=dal&auction=copart", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
    }
    var res []LocationResponse
    if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
        t.Fatalf("failed to unmarshal: %v", err)
    }
    if len(res) != 2 || res[0].Name != "TX - Dallas" || res[0].State != "TX" {
        t.Fatalf("unexpected response: %+v", res)
    }
}

func TestDestinations_List(t *testing.T) {
    c := &fakeCatalogAPI{destinations: []catalog.Destination{
        {ID: 11, Name: "Klaipeda", IsDefault: true},
        {ID: 10, Name: "Bremerhaven"},
    }}
    h := newTestHandler(nil, c)

    req := httptest.NewRequest(http.MethodGet, "/destinations", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
    }
    var res []DestinationResponse
    if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
        t.Fatalf("failed to unmarshal: %v", err)
    }
    if len(res) != 2 || !res[0].IsDefault {
        t.Fatalf("unexpected response: %+v", res)
    }
}
