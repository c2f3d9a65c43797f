package handler

import (
	"net/http"

	"github.com/sahilnarang/optigate/internal/api/response"
)

// Version is the gateway release reported by GET /api/v1/version.
const Version = "1.0.0"

var (
	methods  = []string{"hrp", "gmv", "mvo"}
	features = []string{"walk_forward", "transaction_costs", "volatility_scaling"}
)

// NewVersionHandler returns an http.HandlerFunc for GET /api/v1/version.
func NewVersionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, map[string]any{
			"version":  Version,
			"methods":  methods,
			"features": features,
		})
	}
}
