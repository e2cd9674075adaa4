package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"dealership/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL + "/", Timeout: time.Second, Logger: zerolog.Nop()})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("returns access token", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/users/login", r.URL.Path)
			assert.Empty(t, r.Header.Get("Authorization"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "0550000000", body["phone_number"])
			assert.Equal(t, "secret", body["password"])
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer"}`))
		})

		tok, err := client.Login(context.Background(), "0550000000", "secret")
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok.AccessToken)
	})

	t.Run("rejects empty token", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})
		_, err := client.Login(context.Background(), "1", "2")
		require.Error(t, err)
	})

	t.Run("bad credentials are unauthorized", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Incorrect phone number or password"}`))
		})
		_, err := client.Login(context.Background(), "1", "2")
		require.ErrorIs(t, err, ErrUnauthorized)
		assert.Contains(t, err.Error(), "Incorrect phone number")
	})
}

func TestScopedSendsBearerAndDecodes(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "/cars/all", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":1,"model":"Clio","color":"rouge, noir","price":"2500000","currency_id":1}]`))
	})

	cars, err := client.With(Session{Token: "abc"}).AllCars(context.Background())
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, model.Colors{"rouge", "noir"}, cars[0].Color)
	assert.True(t, cars[0].Price.Equal(decimal.NewFromInt(2500000)))
}

func TestUnauthorizedCallbackFiresOnce(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token expired"}`))
	})

	var calls atomic.Int32
	scoped := client.With(Session{Token: "old", OnUnauthorized: func(context.Context) { calls.Add(1) }})

	_, err := scoped.Orders(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = scoped.Clients(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, int32(1), calls.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Token expired", apiErr.Detail)
	assert.True(t, apiErr.IsClientError())
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	t.Parallel()

	s := "prix: 1500000 دج"
	for n := 0; n <= len(s); n++ {
		got := truncate(s, n)
		assert.True(t, utf8.ValidString(got), "n=%d", n)
		assert.LessOrEqual(t, len(got), n)
		assert.True(t, strings.HasPrefix(s, got))
	}
}

func TestAPIErrorShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		detail string
		is     error
	}{
		{name: "string detail", status: 404, body: `{"detail":"Car not found"}`, detail: "Car not found", is: ErrNotFound},
		{name: "validation detail", status: 422, body: `{"detail":[{"loc":["body","price"],"msg":"field required"}]}`, detail: "price: field required"},
		{name: "plain body", status: 500, body: `Internal Server Error`, detail: "Internal Server Error"},
		{name: "empty body", status: 502, body: ``, detail: ""},
		{name: "long body cut on a rune boundary", status: 500, body: strings.Repeat("a", 199) + "ééé", detail: strings.Repeat("a", 199)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			err := client.With(Session{}).Do(context.Background(), http.MethodGet, "/cars/9", nil, nil)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.detail, apiErr.Detail)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			assert.NotErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestRawPassthrough(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"Ali"}`, string(body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":5,"name":"Ali"}`))
	})

	var raw json.RawMessage
	err := client.With(Session{Token: "t"}).Do(context.Background(), http.MethodPost, "/clients/", map[string]string{"name": "Ali"}, &raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":5,"name":"Ali"}`, string(raw))
}

func TestUploadImage(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cars/12/images", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "front.jpg", hdr.Filename)
		assert.Equal(t, "jpegbytes", string(content))
		_, _ = w.Write([]byte(`{"url":"/static/front.jpg"}`))
	})

	var out map[string]string
	err := client.With(Session{Token: "t"}).UploadImage(context.Background(), "cars", "12", "front.jpg", strings.NewReader("jpegbytes"), &out)
	require.NoError(t, err)
	assert.Equal(t, "/static/front.jpg", out["url"])

	err = client.With(Session{}).UploadImage(context.Background(), "orders", "1", "x.jpg", strings.NewReader(""), nil)
	require.ErrorIs(t, err, ErrUnknownResource)
}

func TestPeriodValidation(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.With(Session{}).Expenses(context.Background(), "weekly")
	require.Error(t, err)
	_, err = client.With(Session{}).Earnings(context.Background(), "daily")
	require.Error(t, err)
}

func TestExpensesAndCashRegister(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/expenses/monthly":
			_, _ = w.Write([]byte(`[{"id":1,"month":3,"year":2024,"purchases":100,"transport":20,"other":5,"total_amount":125}]`))
		case "/cash_register/":
			_, _ = w.Write([]byte(`{"id":1,"amount":"9000.50"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	scoped := client.With(Session{Token: "t"})
	expenses, err := scoped.Expenses(context.Background(), model.PeriodMonthly)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.True(t, expenses[0].TotalAmount.Equal(decimal.NewFromInt(125)))

	cash, err := scoped.CashRegister(context.Background())
	require.NoError(t, err)
	assert.True(t, cash.Amount.Equal(decimal.RequireFromString("9000.50")))

	_, err = scoped.Earnings(context.Background(), model.PeriodYearly)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestContextCancellationAbortsRequest(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := client.With(Session{}).Currencies(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestResourcePaths(t *testing.T) {
	t.Parallel()

	p, err := CollectionPath("suppliers_items")
	require.NoError(t, err)
	assert.Equal(t, "/suppliers_items/", p)

	p, err = ItemPath("cars", "7")
	require.NoError(t, err)
	assert.Equal(t, "/cars/7", p)

	_, err = ItemPath("cars", "")
	require.Error(t, err)

	_, err = CollectionPath("users")
	require.ErrorIs(t, err, ErrUnknownResource)

	p, err = ImagePath("social_links", "3")
	require.NoError(t, err)
	assert.Equal(t, "/social_links/3/images", p)
}
