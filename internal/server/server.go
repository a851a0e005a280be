package server

import (
    "context"
    "encoding/json"
    "net/http"
    "strings"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/google/uuid"
    "github.com/rs/zerolog"

    "autoquote/internal/catalog"
    "autoquote/internal/pricing"
)

// Quoter is the pricing engine surface the transport consumes.
type Quoter interface {
    Calculate(ctx context.Context, req pricing.Request) (*pricing.Quote, error)
    CalculateBatch(ctx context.Context, reqs []pricing.Request) []pricing.BatchResult
}

// CatalogAPI backs the thin listing endpoints.
type CatalogAPI interface {
    SearchLocations(ctx context.Context, search string, auction catalog.Auction, limit int) ([]catalog.Location, error)
    ListDestinations(ctx context.Context) ([]catalog.Destination, error)
}

type Server struct {
    quoter Quoter
    cat    CatalogAPI
    log    zerolog.Logger
}

func New(quoter Quoter, cat CatalogAPI, log zerolog.Logger) http.Handler {
    s := &Server{quoter: quoter, cat: cat, log: log}
    r := chi.NewRouter()
    // Observability: Request ID and basic logger
    r.Use(requestIDMiddleware)
    r.Use(middleware.Logger)
    r.Get("/healthz", s.handleHealth)
    r.Post("/calculator", s.handleCalculate)
    r.Post("/calculator/batch", s.handleCalculateBatch)
    r.Get("/locations", s.handleLocations)
    r.Get("/destinations", s.handleDestinations)
    return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
    w.WriteHeader(http.StatusOK)
    w.Write([]byte("ok"))
}

// validateRequest normalizes and checks one quote request. Returns an error
// code and message for the standard error envelope when invalid.
func validateRequest(req *pricing.Request) (string, string) {
    req.Location = strings.TrimSpace(req.Location)
    if req.Price <= 0 {
        return "invalid_request", "price must be positive"
    }
    if !req.Auction.Valid() {
        return "invalid_request", "unknown auction"
    }
    if !req.VehicleType.Valid() {
        return "invalid_request", "unknown vehicle_type"
    }
    if req.Location == "" {
        return "invalid_request", "location required"
    }
    if req.FeeType != "" && !req.FeeType.Valid() {
        return "invalid_request", "unknown fee_type"
    }
    return "", ""
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
    var req pricing.Request
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
        return
    }
    if code, msg := validateRequest(&req); code != "" {
        writeErrorJSON(w, http.StatusBadRequest, code, msg)
        return
    }

    quote, err := s.quoter.Calculate(r.Context(), req)
    if err != nil {
        s.writeQuoteError(w, req, err)
        return
    }
    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(quote)
}

// Batch quoting: items are processed independently and failures are
// reported per item, so one bad lot never sinks the rest of the page.
type batchRequest struct {
    Items []pricing.Request `json:"items"`
}

type batchItemResponse struct {
    Quote *pricing.Quote `json:"quote,omitempty"`
    Error *errorBody     `json:"error,omitempty"`
}

type batchResponse struct {
    Items []batchItemResponse `json:"items"`
}

const maxBatchItems = 50

func (s *Server) handleCalculateBatch(w http.ResponseWriter, r *http.Request) {
    var req batchRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
        return
    }
    if len(req.Items) == 0 {
        writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "items required")
        return
    }
    if len(req.Items) > maxBatchItems {
        writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "too many items")
        return
    }

    out := make([]batchItemResponse, len(req.Items))
    valid := make([]int, 0, len(req.Items))
    toQuote := make([]pricing.Request, 0, len(req.Items))
    for i := range req.Items {
        if code, msg := validateRequest(&req.Items[i]); code != "" {
            out[i].Error = &errorBody{Code: code, Message: msg}
            continue
        }
        valid = append(valid, i)
        toQuote = append(toQuote, req.Items[i])
    }

    results := s.quoter.CalculateBatch(r.Context(), toQuote)
    for n, i := range valid {
        res := results[n]
        if res.Err != nil {
            out[i].Error = s.quoteErrorBody(req.Items[i], res.Err)
            continue
        }
        out[i].Quote = res.Quote
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(batchResponse{Items: out})
}

type LocationResponse struct {
    ID    int64  `json:"id"`
    Name  string `json:"name"`
    City  string `json:"city,omitempty"`
    State string `json:"state,omitempty"`
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
    q := r.URL.Query()
    search := strings.TrimSpace(q.Get("search"))
    auction := catalog.Auction(strings.ToUpper(strings.TrimSpace(q.Get("auction"))))
    if auction != "" && !auction.Valid() {
        writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "unknown auction")
        return
    }

    locations, err := s.cat.SearchLocations(r.Context(), search, auction, 50)
    if err != nil {
        s.log.Error().Err(err).Str("search", search).Msg("location search failed")
        writeErrorJSON(w, http.StatusInternalServerError, "internal_error", "internal error")
        return
    }
    out := make([]LocationResponse, 0, len(locations))
    for _, l := range locations {
        out = append(out, LocationResponse{ID: l.ID, Name: l.Name, City: l.City, State: l.State})
    }
    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(out)
}

type DestinationResponse struct {
    ID        int64  `json:"id"`
    Name      string `json:"name"`
    IsDefault bool   `json:"is_default"`
}

func (s *Server) handleDestinations(w http.ResponseWriter, r *http.Request) {
    destinations, err := s.cat.ListDestinations(r.Context())
    if err != nil {
        s.log.Error().Err(err).Msg("destination listing failed")
        writeErrorJSON(w, http.StatusInternalServerError, "internal_error", "internal error")
        return
    }
    out := make([]DestinationResponse, 0, len(destinations))
    for _, d := range destinations {
        out = append(out, DestinationResponse{ID: d.ID, Name: d.Name, IsDefault: d.IsDefault})
    }
    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(out)
}

// writeQuoteError maps engine errors onto the response: the not-found class
// surfaces with its message, anything else is logged with the request
// context and reported opaquely.
func (s *Server) writeQuoteError(w http.ResponseWriter, req pricing.Request, err error) {
    body := s.quoteErrorBody(req, err)
    status := http.StatusInternalServerError
    if body.Code == "resource_not_found" {
        status = http.StatusNotFound
    }
    writeErrorJSON(w, status, body.Code, body.Message)
}

func (s *Server) quoteErrorBody(req pricing.Request, err error) *errorBody {
    if pricing.IsNotFound(err) {
        return &errorBody{Code: "resource_not_found", Message: err.Error()}
    }
    s.log.Error().
        Err(err).
        Str("auction", string(req.Auction)).
        Int64("price", req.Price).
        Str("pickup_text", req.Location).
        Msg("quote calculation failed")
    return &errorBody{Code: "internal_error", Message: "internal error"}
}

type errorBody struct {
    Code    string `json:"code"`
    Message string `json:"message"`
}

// writeErrorJSON writes a standardized JSON error response:
// {"error": {"code": string, "message": string}}
func writeErrorJSON(w http.ResponseWriter, status int, code string, message string) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(map[string]any{
        "error": errorBody{Code: code, Message: message},
    })
}

// requestIDMiddleware ensures X-Request-ID is set on the response.
// If provided in the request header, it is propagated; otherwise a UUID is generated.
func requestIDMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
        if rid == "" {
            rid = uuid.New().String()
        }
        w.Header().Set("X-Request-ID", rid)
        next.ServeHTTP(w, r)
    })
}
