package httpmw

import (
	"crypto/subtle"
	"net/http"
)

const cronSecretHeader = "X-Cron-Secret"

// CronSecretMiddleware закрывает внутренние cron-эндпоинты общим секретом.
// Неверный или отсутствующий секрет отбрасывается до каких-либо побочных
// эффектов.
func CronSecretMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(cronSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
