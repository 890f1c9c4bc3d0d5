package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"

	"github.com/tradeboard/billing-service/internal/http/response"
)

// APIKeyMiddleware защищает внутренние эндпоинты для межсервисных
// вызовов. В конфигурации хранится bcrypt-хэш ключа, сам ключ
// передаётся в заголовке X-API-Key.
func APIKeyMiddleware(log *slog.Logger, apiKeyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.APIKeyMiddleware"

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				log.Error("missing api key", slog.String("op", op))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing api key"))
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(apiKeyHash), []byte(apiKey)); err != nil {
				log.Error("invalid api key", slog.String("op", op))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid api key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
