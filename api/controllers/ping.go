package controllers

import (
	"net/http"

	"github.com/angelmondragon/tipflow-backend/api/middleware"
	"github.com/angelmondragon/tipflow-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if tenant := middleware.TenantIDFromContext(r.Context()); tenant != "" {
			payload["tenant_id"] = tenant
		}
		responses.WriteSuccess(w, payload)
	}
}
