package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorsUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		json string
		want Colors
	}{
		{name: "array", json: `["Red"," Blue "]`, want: Colors{"Red", "Blue"}},
		{name: "json encoded string", json: `"[\"Red\", \"Blue\"]"`, want: Colors{"Red", "Blue"}},
		{name: "bracket stripped", json: `"Red, Blue"`, want: Colors{"Red", "Blue"}},
		{name: "brackets without quotes", json: `"[Red, Blue]"`, want: Colors{"Red", "Blue"}},
		{name: "single quoted items", json: `"['Red','Blue']"`, want: Colors{"Red", "Blue"}},
		{name: "single value", json: `"white"`, want: Colors{"white"}},
		{name: "empty string", json: `""`, want: nil},
		{name: "empty array", json: `[]`, want: nil},
		{name: "null", json: `null`, want: nil},
		{name: "drops blanks", json: `"red,, ,blue,"`, want: Colors{"red", "blue"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got Colors
			require.NoError(t, json.Unmarshal([]byte(tt.json), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColorsUnmarshalRejectsNumbers(t *testing.T) {
	t.Parallel()

	var got Colors
	require.Error(t, json.Unmarshal([]byte(`42`), &got))
}

func TestColorsMarshalAlwaysArray(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(struct {
		Color Colors `json:"color"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"color":[]}`, string(out))
}

func TestColorsContains(t *testing.T) {
	t.Parallel()

	c := Colors{"Noir", "Blanc"}
	assert.True(t, c.Contains("noir"))
	assert.True(t, c.Contains(" BLANC "))
	assert.False(t, c.Contains("bl"))
}

func TestCarDecodesUpstreamPayload(t *testing.T) {
	t.Parallel()

	payload := `{
		"id": 7, "model": "Golf 8", "color": "[\"gris\",\"noir\"]", "year": 2023,
		"price": 20000, "wholesale_price": "18500.50", "currency_id": 2, "quantity": 3,
		"shipping_date": "2024-03-01", "arriving_date": null, "commercial_id": 4
	}`
	var car Car
	require.NoError(t, json.Unmarshal([]byte(payload), &car))
	assert.Equal(t, Colors{"gris", "noir"}, car.Color)
	assert.True(t, car.Price.Equal(decimal.NewFromInt(20000)))
	assert.True(t, car.WholesalePrice.Equal(decimal.RequireFromString("18500.50")))
	require.NotNil(t, car.CommercialID)
	assert.Equal(t, int64(4), *car.CommercialID)
	require.NotNil(t, car.ShippingDate)
	assert.Equal(t, 2024, car.ShippingDate.Year())
}

func TestParseTimestamp(t *testing.T) {
	SetLocation(time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T10:20:30Z", time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)},
		{"2024-05-01T10:20:30+01:00", time.Date(2024, 5, 1, 9, 20, 30, 0, time.UTC)},
		{"2024-05-01T10:20:30.123456", time.Date(2024, 5, 1, 10, 20, 30, 123456000, time.UTC)},
		{"2024-05-01T10:20:30", time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)},
		{"2024-05-01 10:20:30", time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got.Time), "%s: got %s", tt.in, got.Time)
	}

	_, err := ParseTimestamp("yesterday")
	require.Error(t, err)

	empty, err := ParseTimestamp("")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestTimestampJSON(t *testing.T) {
	SetLocation(time.UTC)

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())

	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	require.NoError(t, json.Unmarshal([]byte(`"2024-05-01 08:00:00"`), &ts))
	out, err = json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-01T08:00:00Z"`, string(out))
}

func TestDeliveryStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Complété", DeliveryShowroom.Label())
	assert.Equal(t, "Arrivé", DeliveryArrived.Label())
	assert.Equal(t, "En expédition", DeliveryShipping.Label())
	assert.Equal(t, "En expédition", DeliveryStatus("").Label())
	assert.Equal(t, "Complété", DeliveryStatus(" Showroom ").Label())

	assert.Less(t, DeliveryShipping.Stage(), DeliveryArrived.Stage())
	assert.Less(t, DeliveryArrived.Stage(), DeliveryShowroom.Stage())
}

func TestWholesaleOrderFlattensOrder(t *testing.T) {
	t.Parallel()

	var wo WholesaleOrder
	require.NoError(t, json.Unmarshal([]byte(`{"order_id":3,"client_id":1,"car_id":9,"quantity":5,"payment_amount":"100"}`), &wo))
	assert.Equal(t, int64(3), wo.OrderID)
	assert.Equal(t, 5, wo.Quantity)
	assert.True(t, wo.PaymentAmount.Equal(decimal.NewFromInt(100)))
}

func TestExpenseRollupComputedTotal(t *testing.T) {
	t.Parallel()

	e := ExpenseRollup{
		Purchases: decimal.NewFromInt(100),
		Transport: decimal.NewFromInt(20),
		Other:     decimal.RequireFromString("0.5"),
	}
	assert.True(t, e.ComputedTotal().Equal(decimal.RequireFromString("120.5")))
	assert.True(t, ValidPeriod(PeriodMonthly))
	assert.False(t, ValidPeriod("weekly"))
}

func TestFullName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Amine Benali", Client{FirstName: "Amine", LastName: "Benali"}.FullName())
	assert.Equal(t, "Amine", Client{FirstName: "Amine"}.FullName())
	assert.Equal(t, "Benali", Staff{LastName: "Benali"}.FullName())
}
