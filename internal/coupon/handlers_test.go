package coupon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	byID   map[string]Coupon
	nextID int
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]Coupon{}}
}

func (m *memStore) Create(_ context.Context, c Coupon) (Coupon, error) {
	for _, existing := range m.byID {
		if existing.Code == c.Code {
			return Coupon{}, fmt.Errorf("duplicate code %s", c.Code)
		}
	}
	m.nextID++
	c.ID = fmt.Sprintf("c-%d", m.nextID)
	m.byID[c.ID] = c
	return c, nil
}

func (m *memStore) List(context.Context) ([]Coupon, error) {
	out := make([]Coupon, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (Coupon, error) {
	c, ok := m.byID[id]
	if !ok {
		return Coupon{}, ErrNotFound
	}
	return c, nil
}

func (m *memStore) Update(_ context.Context, c Coupon) (Coupon, error) {
	if _, ok := m.byID[c.ID]; !ok {
		return Coupon{}, ErrNotFound
	}
	m.byID[c.ID] = c
	return c, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func newAdminHandlers(store *memStore) *AdminHandlers {
	return &AdminHandlers{
		Store:    store,
		Validate: validator.New(),
		Now:      func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func validBody() string {
	return `{
		"code": "save10",
		"kind": "percentage",
		"value": "10",
		"min_order_amount": "499",
		"max_discount": "80",
		"expiry_date": "2025-12-31T00:00:00Z",
		"active": true
	}`
}

func TestAdminCreateNormalizesCode(t *testing.T) {
	store := newMemStore()
	h := newAdminHandlers(store)

	req := httptest.NewRequest(http.MethodPost, "/admin/coupons", strings.NewReader(validBody()))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "SAVE10", body.Data.Code)
}

func TestAdminCreateRejectsBadPayloads(t *testing.T) {
	h := newAdminHandlers(newMemStore())

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing code", `{"kind":"flat","value":"50","expiry_date":"2025-12-31T00:00:00Z"}`},
		{"bad kind", `{"code":"X50","kind":"bogo","value":"50","expiry_date":"2025-12-31T00:00:00Z"}`},
		{"bad charset", `{"code":"SAVE 10","kind":"flat","value":"50","expiry_date":"2025-12-31T00:00:00Z"}`},
		{"zero value", `{"code":"X50","kind":"flat","value":"0","expiry_date":"2025-12-31T00:00:00Z"}`},
		{"percent over 100", `{"code":"X50","kind":"percentage","value":"120","expiry_date":"2025-12-31T00:00:00Z"}`},
		{"past expiry", `{"code":"X50","kind":"flat","value":"50","expiry_date":"2020-01-01T00:00:00Z"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/coupons", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.Create(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAdminGetUnknownCouponReturns404(t *testing.T) {
	h := newAdminHandlers(newMemStore())

	r := chi.NewRouter()
	r.Get("/admin/coupons/{id}", h.Get)
	req := httptest.NewRequest(http.MethodGet, "/admin/coupons/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminUpdateAndDelete(t *testing.T) {
	store := newMemStore()
	h := newAdminHandlers(store)

	created, err := store.Create(context.Background(), Coupon{Code: "SAVE10", Kind: KindPercentage})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Put("/admin/coupons/{id}", h.Update)
	r.Delete("/admin/coupons/{id}", h.Delete)

	update := strings.Replace(validBody(), `"save10"`, `"save15"`, 1)
	req := httptest.NewRequest(http.MethodPut, "/admin/coupons/"+created.ID, strings.NewReader(update))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "SAVE15", store.byID[created.ID].Code)

	req = httptest.NewRequest(http.MethodDelete, "/admin/coupons/"+created.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, store.byID)
}
