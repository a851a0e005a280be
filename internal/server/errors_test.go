package server

import (
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "autoquote/internal/pricing"
)

// helper to parse standardized error
type stdError struct {
    Error struct {
        Code    string `json:"code"`
        Message string `json:"message"`
    } `json:"error"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) stdError {
    t.Helper()
    var e stdError
    if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
        t.Fatalf("unmarshal error: %v; body=%s", err, rr.Body.String())
    }
    return e
}

func TestCalculate_InvalidJSON_ErrorJSON(t *testing.T) {
    h := newTestHandler(nil, nil)
    req := httptest.NewRequest(http.MethodPost, "/calculator", strings.NewReader("{not json"))
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rr.Code)
    }
    if e := decodeError(t, rr); e.Error.Code != "invalid_json" {
        t.Fatalf("unexpected error code: %s", e.Error.Code)
    }
}

func TestCalculate_Validation_ErrorJSON(t *testing.T) {
    tests := []struct {
        name string
        body string
        want string
    }{
        {"non-positive price", `{"price":0,"auction":"COPART","vehicle_type":"CAR","location":"x"}`, "price must be positive"},
        {"unknown auction", `{"price":100,"auction":"MANHEIM","vehicle_type":"CAR","location":"x"}`, "unknown auction"},
        {"unknown vehicle type", `{"price":100,"auction":"COPART","vehicle_type":"BOAT","location":"x"}`, "unknown vehicle_type"},
        {"blank location", `{"price":100,"auction":"COPART","vehicle_type":"CAR","location":"   "}`, "location required"},
        {"unknown fee type", `{"price":100,"auction":"COPART","vehicle_type":"CAR","location":"x","fee_type":"mystery"}`, "unknown fee_type"},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            h := newTestHandler(nil, nil)
            req := httptest.NewRequest(http.MethodPost, "/calculator", strings.NewReader(tt.body))
            rr := httptest.NewRecorder()
            h.ServeHTTP(rr, req)
            if rr.Code != http.StatusBadRequest {
                t.Fatalf("expected 400, got %d; body=%s", rr.Code, rr.Body.String())
            }
            e := decodeError(t, rr)
            if e.Error.Code != "invalid_request" || e.Error.Message != tt.want {
                t.Fatalf("unexpected error: %+v", e.Error)
            }
        })
    }
}

func TestCalculate_NotFound_ErrorJSON(t *testing.T) {
    q := &fakeQuoter{err: pricing.ErrLocationNotFound}
    h := newTestHandler(q, nil)

    req := httptest.NewRequest(http.MethodPost, "/calculator", strings.NewReader(validCalcBody))
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusNotFound {
        t.Fatalf("expected 404, got %d; body=%s", rr.Code, rr.Body.String())
    }
    e := decodeError(t, rr)
    if e.Error.Code != "resource_not_found" {
        t.Fatalf("unexpected error code: %s", e.Error.Code)
    }
    if e.Error.Message != pricing.ErrLocationNotFound.Error() {
        t.Fatalf("unexpected message: %s", e.Error.Message)
    }
}

func TestCalculate_InternalError_ErrorJSON(t *testing.T) {
    q := &fakeQuoter{err: errors.New("pool exhausted")}
    h := newTestHandler(q, nil)

    req := httptest.NewRequest(http.MethodPost, "/calculator", strings.NewReader(validCalcBody))
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusInternalServerError {
        t.Fatalf("expected 500, got %d", rr.Code)
    }
    e := decodeError(t, rr)
    if e.Error.Code != "internal_error" {
        t.Fatalf("unexpected error code: %s", e.Error.Code)
    }
    // The underlying cause never leaks to the caller.
    if strings.Contains(e.Error.Message, "pool exhausted") {
        t.Fatalf("internal detail leaked: %s", e.Error.Message)
    }
}

func TestCalculateBatch_EmptyItems_ErrorJSON(t *testing.T) {
    h := newTestHandler(nil, nil)
    req := httptest.NewRequest(http.MethodPost, "/calculator/batch", strings.NewReader(`{"items":[]}`))
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rr.Code)
    }
    if e := decodeError(t, rr); e.Error.Code != "invalid_request" {
        t.Fatalf("unexpected error code: %s", e.Error.Code)
    }
}

func TestCalculateBatch_TooManyItems_ErrorJSON(t *testing.T) {
    h := newTestHandler(nil, nil)
    items := make([]string, maxBatchItems+1)
    for i := range items {
        items[i] = validCalcBody
    }
    body := `{"items":[` + strings.Join(items, ",") + `]}`
    req := httptest.NewRequest(http.MethodPost, "/calculator/batch", strings.NewReader(body))
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rr.Code)
    }
    e := decodeError(t, rr)
    if e.Error.Code != "invalid_request" || e.Error.Message != "too many items" {
        t.Fatalf("unexpected error: %+v", e.Error)
    }
}

func TestLocations_UnknownAuction_ErrorJSON(t *testing.T) {
    h := newTestHandler(nil, nil)
    req := httptest.NewRequest(http.MethodGet, "/locations?auction=manheim", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rr.Code)
    }
    if e := decodeError(t, rr); e.Error.Code != "invalid_request" {
        t.Fatalf("unexpected error code: %s", e.Error.Code)
    }
}

func TestLocations_StoreFailure_ErrorJSON(t *testing.T) {
    c := &fakeCatalogAPI{err: errors.New("connection reset")}
    h := newTestHandler(nil, c)

    req := httptest.NewRequest(http.MethodGet, "/locations", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusInternalServerError {
        t.Fatalf("expected 500, got %d", rr.Code)
    }
    if e := decodeError(t, rr); e.Error.Code != "internal_error" {
        t.Fatalf("unexpected error code: %s", e.Error.Code)
    }
}
