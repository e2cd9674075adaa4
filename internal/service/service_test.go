package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dealership/internal/database"
	"dealership/internal/inventory"
	"dealership/internal/middleware"
	"dealership/internal/model"
	"dealership/internal/repository"
	"dealership/internal/upstream"
	ws "dealership/internal/websocket"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func init() {
	middleware.SetJWTSecret([]byte("secret"))
}

func clock() time.Time { return fixedNow }

type reply struct {
	status int
	body   string
}

// fakeAPI serves canned replies keyed by "METHOD /path" and records request bodies.
type fakeAPI struct {
	mu      sync.Mutex
	replies map[string]reply
	bodies  map[string]string
}

func newFakeAPI(t *testing.T, replies map[string]reply) (*fakeAPI, *upstream.Client) {
	t.Helper()
	f := &fakeAPI{replies: replies, bodies: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		raw, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.bodies[key] = string(raw)
		rep, ok := f.replies[key]
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
			return
		}
		if rep.status == 0 {
			rep.status = http.StatusOK
		}
		w.WriteHeader(rep.status)
		_, _ = w.Write([]byte(rep.body))
	}))
	t.Cleanup(srv.Close)
	return f, upstream.NewClient(upstream.Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
}

func (f *fakeAPI) body(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

const (
	currenciesJSON = `[{"id":1,"code":"dzd","name":"Dinar","exchange_rate_to_dzd":"1"},
		{"id":2,"code":"eur","name":"Euro","exchange_rate_to_dzd":"150"}]`
	carsJSON = `[
		{"id":1,"model":"Clio","color":"red,blue","year":2022,"fuel_type":"petrol","country":"France","quantity":2,
		 "price":"1000","wholesale_price":"900","currency_id":2,"arriving_date":"2026-03-01","images":["/img/1.jpg"]},
		{"id":2,"model":"Golf","color":["white"],"year":2021,"fuel_type":"diesel","country":"Germany","quantity":1,
		 "price":"2000000","wholesale_price":"1800000","currency_id":1,"images":["/img/2.jpg"]}]`
	ordersJSON = `[
		{"order_id":10,"client_id":1,"car_id":1,"payment_amount":"150000","created_at":"2026-03-14T09:00:00Z","delivery_status":"arrived"},
		{"order_id":11,"client_id":1,"car_id":2,"payment_amount":"500000","created_at":"2026-03-10T09:00:00Z","delivery_status":"showroom"},
		{"order_id":12,"client_id":2,"car_id":99,"payment_amount":"0","created_at":"2026-03-09T09:00:00Z"}]`
	clientsJSON     = `[{"id":1,"first_name":"Sara","last_name":"B","commercial_id":7},{"id":2,"first_name":"Ali"}]`
	commercialsJSON = `[{"id":7,"first_name":"Amine","last_name":"K","wilayas":["Alger"]}]`
)

func dashboardReplies() map[string]reply {
	return map[string]reply{
		"GET /currencies/":       {body: currenciesJSON},
		"GET /cars/all":          {body: carsJSON},
		"GET /orders/":           {body: ordersJSON},
		"GET /wholesale_orders/": {status: http.StatusInternalServerError, body: `{"detail":"boom"}`},
		"GET /suppliers_items/":  {body: `[{"supplier_item_id":1,"car_id":1,"supplier_id":1,"currency_id":2,"price":"800","payment_amount":"120000"}]`},
		"GET /clients/":          {body: clientsJSON},
		"GET /commercials/":      {body: commercialsJSON},
		"GET /expenses/yearly":   {body: `[{"id":1,"year":2026,"purchases":"100","transport":"20","other":"5","total_amount":"0"}]`},
		"GET /earnings/yearly":   {body: `[{"id":1,"year":2026,"total_amount":"900"}]`},
		"GET /cash_register/":    {body: `{"id":1,"amount":"4200"}`},
		"GET /social_links/":     {body: `[{"id":1,"platform":"instagram","url":"https://instagram.com/x"}]`},
	}
}

func TestDashboardAdminKeepsPartialSections(t *testing.T) {
	t.Parallel()
	_, api := newFakeAPI(t, dashboardReplies())
	svc := NewDashboardService(api, 4, clock)

	dash, sections, err := svc.Admin(context.Background(), upstream.Session{Token: "tok"})
	require.NoError(t, err)

	require.Contains(t, sections, SectionWholesaleOrders)
	assert.Len(t, sections, 1)

	assertDec(t, "2150000", dash.Sales.TotalCost)
	assertDec(t, "650000", dash.Sales.TotalPaid)
	assert.Equal(t, 1, dash.Sales.StatusCounts["paid"])
	assert.Equal(t, 1, dash.Sales.StatusCounts["partial"])
	assert.Equal(t, 0, dash.Wholesale.Count)
	assertDec(t, "120000", dash.Purchases.TotalCost)
	assertDec(t, "2030000", dash.Balance.Net)
	assertDec(t, "2300000", dash.StockValue)
	assert.Equal(t, []int64{12}, dash.OrphanOrders)
	assert.Equal(t, map[string]int{"shipping": 1, "arrived": 1, "showroom": 1}, dash.DeliveryCounts)
	assert.Equal(t, 2, dash.CarCount)
	assert.Equal(t, 2, dash.ClientCount)
	require.Len(t, dash.Commercials, 1)
	assert.Equal(t, 1, dash.Commercials[0].ClientCount)
	assert.Equal(t, 1, dash.Commercials[0].DayTransactions)
	assert.Equal(t, fixedNow, dash.GeneratedAt)
}

func TestDashboardUnauthorizedShortCircuits(t *testing.T) {
	t.Parallel()
	replies := dashboardReplies()
	replies["GET /orders/"] = reply{status: http.StatusUnauthorized, body: `{"detail":"Could not validate credentials"}`}
	_, api := newFakeAPI(t, replies)
	svc := NewDashboardService(api, 0, clock)

	var fired atomic.Int32
	sess := upstream.Session{Token: "stale", OnUnauthorized: func(context.Context) { fired.Add(1) }}

	_, sections, err := svc.Admin(context.Background(), sess)
	require.ErrorIs(t, err, upstream.ErrUnauthorized)
	assert.Nil(t, sections)
	assert.Equal(t, int32(1), fired.Load())
}

func TestDashboardCommercial(t *testing.T) {
	t.Parallel()
	_, api := newFakeAPI(t, dashboardReplies())
	svc := NewDashboardService(api, 4, clock)

	stats, _, err := svc.Commercial(context.Background(), upstream.Session{}, 7)
	require.NoError(t, err)
	assert.Equal(t, "Amine K", stats.Name)
	assert.Equal(t, 1, stats.ClientCount)
	// only today's order counts toward the day totals
	assertDec(t, "150000", stats.TotalRevenue)
	require.Len(t, stats.Activities, 2)
	assert.Equal(t, int64(10), stats.Activities[0].OrderID)

	_, _, err = svc.Commercial(context.Background(), upstream.Session{}, 8)
	assert.ErrorIs(t, err, upstream.ErrNotFound)
}

func TestDashboardCommercialUsesClockZone(t *testing.T) {
	t.Parallel()
	algiers := time.FixedZone("CET", 60*60)
	// 11:00 in Algiers; the order below was placed at 00:30 Algiers time, still yesterday in UTC
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC).In(algiers)

	replies := dashboardReplies()
	replies["GET /orders/"] = reply{body: `[
		{"order_id":20,"client_id":1,"car_id":1,"payment_amount":"150000","created_at":"2026-10-16T23:30:00Z","delivery_status":"arrived"},
		{"order_id":21,"client_id":1,"car_id":1,"payment_amount":"150000","created_at":"2026-10-16T22:59:00Z","delivery_status":"arrived"}]`}
	_, api := newFakeAPI(t, replies)

	svc := NewDashboardService(api, 4, func() time.Time { return now })
	stats, _, err := svc.Commercial(context.Background(), upstream.Session{}, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DayTransactions)
	assertDec(t, "150000", stats.TotalRevenue)
	require.Len(t, stats.Activities, 2)

	utc := NewDashboardService(api, 4, func() time.Time { return now.UTC() })
	stats, _, err = utc.Commercial(context.Background(), upstream.Session{}, 7)
	require.NoError(t, err)
	assert.Zero(t, stats.DayTransactions)
}

func TestDashboardAccountant(t *testing.T) {
	t.Parallel()
	_, api := newFakeAPI(t, dashboardReplies())
	svc := NewDashboardService(api, 4, clock)

	_, _, err := svc.Accountant(context.Background(), upstream.Session{}, "weekly")
	require.ErrorIs(t, err, ErrInvalidInput)

	dash, sections, err := svc.Accountant(context.Background(), upstream.Session{}, model.PeriodYearly)
	require.NoError(t, err)
	assert.Empty(t, sections)
	assert.Equal(t, model.PeriodYearly, dash.Period)
	assertDec(t, "125", dash.ExpenseTotal)
	assertDec(t, "900", dash.EarningTotal)
	require.NotNil(t, dash.CashRegister)
	assertDec(t, "4200", dash.CashRegister.Amount)

	// monthly rollups are not served by the fake API
	dash, sections, err = svc.Accountant(context.Background(), upstream.Session{}, "")
	require.NoError(t, err)
	assert.Equal(t, model.PeriodMonthly, dash.Period)
	assert.Contains(t, sections, SectionExpenses)
	assert.Contains(t, sections, SectionEarnings)
	assert.Empty(t, dash.Expenses)
}

func TestDashboardMarketer(t *testing.T) {
	t.Parallel()
	_, api := newFakeAPI(t, dashboardReplies())
	svc := NewDashboardService(api, 4, clock)

	dash, sections, err := svc.Marketer(context.Background(), upstream.Session{})
	require.NoError(t, err)
	assert.Empty(t, sections)
	assert.Equal(t, 2, dash.CarCount)
	assert.Equal(t, map[string]int{"France": 1, "Germany": 1}, dash.CarsByCountry)
	require.Len(t, dash.NewArrivals, 2)
	assert.Equal(t, int64(1), dash.NewArrivals[0].ID)
	assert.Len(t, dash.SocialLinks, 1)
}

type recordingPrefetcher struct {
	mu   sync.Mutex
	seen []int64
}

func (p *recordingPrefetcher) Prefetch(cars []model.Car) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range cars {
		p.seen = append(p.seen, c.ID)
	}
	return len(cars)
}

func TestInventoryBrowse(t *testing.T) {
	t.Parallel()
	_, api := newFakeAPI(t, dashboardReplies())
	pf := &recordingPrefetcher{}
	svc := NewInventoryService(api, pf, 2)

	res, _, err := svc.Browse(context.Background(), upstream.Session{}, BrowseRequest{PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.True(t, res.HasMore)
	require.Len(t, res.Cars, 1)
	assertDec(t, "150000", res.Cars[0].PriceDZD)
	assert.Equal(t, 1, res.Prefetched)

	res, _, err = svc.Browse(context.Background(), upstream.Session{}, BrowseRequest{PageSize: 1, Pages: 2})
	require.NoError(t, err)
	assert.False(t, res.HasMore)
	assert.Len(t, res.Cars, 2)
	assert.Equal(t, []int64{1, 2}, pf.seen)
	key := res.Key

	res, _, err = svc.Browse(context.Background(), upstream.Session{}, BrowseRequest{PageSize: 1, Pages: 2, PrevKey: key})
	require.NoError(t, err)
	assert.Len(t, res.Cars, 2, "same criteria keep the reveal count")

	diesel := inventory.Criteria{FuelType: "diesel"}
	res, _, err = svc.Browse(context.Background(), upstream.Session{}, BrowseRequest{Criteria: diesel, PageSize: 1, Pages: 2, PrevKey: key})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages, "new criteria go back to the first page")
	assert.Equal(t, diesel.Key(), res.Key)

	maxPrice := decimal.NewFromInt(200000)
	res, _, err = svc.Browse(context.Background(), upstream.Session{}, BrowseRequest{
		Criteria: inventory.Criteria{PriceMaxDZD: &maxPrice},
	})
	require.NoError(t, err)
	require.Len(t, res.Cars, 1)
	assert.Equal(t, "Clio", res.Cars[0].Model)
}

func TestInventoryBrowseFailsWithoutCars(t *testing.T) {
	t.Parallel()
	replies := dashboardReplies()
	delete(replies, "GET /cars/all")
	_, api := newFakeAPI(t, replies)

	_, _, err := NewInventoryService(api, nil, 2).Browse(context.Background(), upstream.Session{}, BrowseRequest{})
	assert.ErrorIs(t, err, upstream.ErrNotFound)
}

func TestCurrencyServiceRecordsSnapshots(t *testing.T) {
	t.Parallel()
	replies := dashboardReplies()
	replies["PUT /currencies/2"] = reply{body: `{"id":2,"code":"eur","name":"Euro","exchange_rate_to_dzd":"152.5"}`}
	fake, api := newFakeAPI(t, replies)
	db := newTestDB(t)
	snapshots := repository.NewRateSnapshotRepository(db)
	audits := repository.NewAuditRepository(db)
	svc := NewCurrencyService(api, snapshots, audits, repository.NewTransactionManager(db), ws.NewHub())
	ctx := context.Background()

	_, err := svc.List(ctx, upstream.Session{})
	require.NoError(t, err)
	_, err = svc.List(ctx, upstream.Session{})
	require.NoError(t, err)

	history, total, err := svc.History(ctx, 2, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "unchanged rates are recorded once")
	assert.Equal(t, model.SnapshotObserved, history[0].Source)

	_, err = svc.Update(ctx, upstream.Session{}, Actor{ID: "1", Role: "admin"}, 2, UpdateCurrencyRequest{ExchangeRateToDZD: "-1"})
	require.ErrorIs(t, err, ErrInvalidInput)

	cur, err := svc.Update(ctx, upstream.Session{}, Actor{ID: "1", Role: "admin"}, 2, UpdateCurrencyRequest{ExchangeRateToDZD: "152.50"})
	require.NoError(t, err)
	assertDec(t, "152.5", cur.ExchangeRateToDZD)
	assert.JSONEq(t, `{"exchange_rate_to_dzd":"152.5"}`, fake.body("PUT /currencies/2"))

	latest, err := snapshots.Latest(ctx, []int64{2})
	require.NoError(t, err)
	assert.Equal(t, model.SnapshotEdited, latest[2].Source)

	logs, _, err := audits.List(ctx, repository.AuditFilter{Action: model.ActionUpdateRate}, 1, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "2", logs[0].EntityID)
}

func TestProxyServiceMutateAudits(t *testing.T) {
	t.Parallel()
	replies := map[string]reply{
		"GET /clients/":           {body: clientsJSON},
		"POST /clients/":          {status: http.StatusCreated, body: `{"id":31,"first_name":"Nour"}`},
		"DELETE /clients/1":       {body: `{"ok":true}`},
		"PUT /expenses/monthly/4": {body: `{"id":4,"month":3,"year":2026,"purchases":"10","transport":"2","other":"1","total_amount":"13"}`},
	}
	fake, api := newFakeAPI(t, replies)
	db := newTestDB(t)
	audits := repository.NewAuditRepository(db)
	svc := NewProxyService(api, audits, repository.NewTransactionManager(db), ws.NewHub())
	ctx := context.Background()
	actor := Actor{ID: "9", Role: "admin"}

	raw, err := svc.List(ctx, upstream.Session{}, "clients")
	require.NoError(t, err)
	assert.JSONEq(t, clientsJSON, string(raw))

	_, err = svc.List(ctx, upstream.Session{}, "users")
	require.ErrorIs(t, err, upstream.ErrUnknownResource)

	_, err = svc.Mutate(ctx, upstream.Session{}, actor, MutateRequest{Resource: "clients", Method: http.MethodPost, Body: json.RawMessage(`not json`)})
	require.ErrorIs(t, err, ErrInvalidInput)

	raw, err = svc.Mutate(ctx, upstream.Session{}, actor, MutateRequest{
		Resource: "clients",
		Method:   http.MethodPost,
		Body:     json.RawMessage(`{"first_name":"Nour","password":"hunter2"}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":31,"first_name":"Nour"}`, string(raw))
	assert.JSONEq(t, `{"first_name":"Nour","password":"hunter2"}`, fake.body("POST /clients/"))

	_, err = svc.Mutate(ctx, upstream.Session{}, actor, MutateRequest{Resource: "clients", Method: http.MethodDelete, ID: "1"})
	require.NoError(t, err)

	_, err = svc.UpdateExpense(ctx, upstream.Session{}, actor, model.PeriodMonthly, 4, model.ExpenseRollup{
		Month: 3, Year: 2026,
		Purchases: decimal.NewFromInt(10), Transport: decimal.NewFromInt(2), Other: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	assert.Contains(t, fake.body("PUT /expenses/monthly/4"), `"total_amount":"13"`)

	created, _, err := audits.List(ctx, repository.AuditFilter{Action: model.ActionCreate}, 1, 10)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "31", created[0].EntityID)
	assert.Equal(t, "9", created[0].Actor)
	assert.JSONEq(t, `{"first_name":"Nour","password":"***"}`, created[0].Details)

	_, total, err := audits.List(ctx, repository.AuditFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestProxyServiceUpstreamErrorSkipsAudit(t *testing.T) {
	t.Parallel()
	_, api := newFakeAPI(t, map[string]reply{
		"PUT /cars/5": {status: http.StatusUnprocessableEntity, body: `{"detail":[{"loc":["body","price"],"msg":"field required"}]}`},
	})
	db := newTestDB(t)
	audits := repository.NewAuditRepository(db)
	svc := NewProxyService(api, audits, repository.NewTransactionManager(db), nil)

	_, err := svc.Mutate(context.Background(), upstream.Session{}, Actor{}, MutateRequest{
		Resource: "cars", Method: http.MethodPut, ID: "5", Body: json.RawMessage(`{}`),
	})
	var apiErr *upstream.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "price: field required", apiErr.Detail)

	_, total, err := audits.List(context.Background(), repository.AuditFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAuthServiceLogin(t *testing.T) {
	t.Parallel()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "0550", "role": "Marketer", "exp": fixedNow.Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, api := newFakeAPI(t, map[string]reply{
		"POST /users/login": {body: `{"access_token":"` + tok + `","token_type":"bearer"}`},
	})
	svc := NewAuthService(api, clock)

	_, err = svc.Login(context.Background(), LoginRequest{PhoneNumber: "  ", Password: "x"})
	require.ErrorIs(t, err, ErrInvalidInput)

	res, err := svc.Login(context.Background(), LoginRequest{PhoneNumber: "0550", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, tok, res.AccessToken)
	assert.Equal(t, "marketer", res.Role)
	assert.Equal(t, "0550", res.UserID)
	require.NotNil(t, res.ExpiresAt)
	assert.Equal(t, fixedNow.Add(time.Hour).Unix(), res.ExpiresAt.Unix())
}

func TestAuditServiceDefaultsActor(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	repo := repository.NewAuditRepository(db)
	require.NoError(t, repo.Log(context.Background(), &model.AuditLog{Action: model.ActionDelete, Resource: "cars", EntityID: "3"}))

	logs, total, err := NewAuditService(repo).GetAuditLogs(context.Background(), repository.AuditFilter{Resource: "cars"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, "System", logs[0].Actor)
}

func TestSanitizeDetails(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "{}", sanitizeDetails(nil))
	assert.Equal(t, "{}", sanitizeDetails([]byte("nope")))
	assert.JSONEq(t,
		`{"user":{"Password":"***","name":"a"},"items":[{"access_token":"***"}]}`,
		sanitizeDetails([]byte(`{"user":{"Password":"p","name":"a"},"items":[{"access_token":"t"}]}`)))
}

func TestEntityIDFrom(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "12", entityIDFrom(json.RawMessage(`{"id":12}`)))
	assert.Equal(t, "7", entityIDFrom(json.RawMessage(`{"order_id":7}`)))
	assert.Equal(t, "abc", entityIDFrom(json.RawMessage(`{"supplier_item_id":"abc"}`)))
	assert.Equal(t, "", entityIDFrom(json.RawMessage(`[1,2]`)))
}
