package tests

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// chiContext подставляет URL-параметр, как это сделал бы роутер.
func chiContext(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
