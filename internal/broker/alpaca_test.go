package broker

import (
	"testing"

	"tradingbridge/internal/models"
)

func TestMapStatus(t *testing.T) {
	cases := map[string]models.OrderStatus{
		"filled":         models.OrderFilled,
		"canceled":       models.OrderCanceled,
		"pending_cancel": models.OrderCanceled,
		"rejected":       models.OrderRejected,
		"expired":        models.OrderExpired,
		"new":            models.OrderPendingNew,
		"accepted":       models.OrderPendingNew,
		"partially_filled": models.OrderOpen,
	}
	for in, want := range cases {
		if got := mapStatus(in); got != want {
			t.Errorf("mapStatus(%q) = %s, want %s", in, got, want)
		}
	}
}
