package middleware

import (
	"compress/gzip"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (w gzipResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

func GzipHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") == "gzip" {
			gzr, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(rw, "Failed to create gzip reader", http.StatusBadRequest)
				return
			}
			defer gzr.Close()
			r.Body = io.NopCloser(gzr)
		}

		if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			rw.Header().Set("Content-Encoding", "gzip")
			gzw := gzip.NewWriter(rw)
			defer gzw.Close()

			gzrw := gzipResponseWriter{Writer: gzw, ResponseWriter: rw}
			next.ServeHTTP(gzrw, r)
		} else {
			next.ServeHTTP(rw, r)
		}
	})
}

// WebhookSignature verifies the gateway's x-signature header
// ("ts=<unix>,v1=<hex hmac>") against an HMAC-SHA256 of the manifest
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;". With an empty secret the
// check is disabled.
func WebhookSignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ts, v1, ok := parseSignature(r.Header.Get("x-signature"))
			if !ok {
				http.Error(w, "missing or malformed x-signature", http.StatusBadRequest)
				return
			}

			manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;",
				strings.ToLower(r.URL.Query().Get("data.id")),
				r.Header.Get("x-request-id"),
				ts)
			mac := hmac.New(sha256.New, []byte(secret))
			mac.Write([]byte(manifest))

			recv, err := hex.DecodeString(v1)
			if err != nil || !hmac.Equal(recv, mac.Sum(nil)) {
				http.Error(w, "invalid signature", http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseSignature(header string) (ts, v1 string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			v1 = v
		}
	}
	return ts, v1, ts != "" && v1 != ""
}

// SubjectChecker validates the subject claim of a presented token.
type SubjectChecker interface {
	ValidSubject(subject string) bool
}

func JWTMiddleware(secret []byte, checker SubjectChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimPrefix(auth, "Bearer ")

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			})
			if err != nil || !token.Valid || !checker.ValidSubject(claims.Subject) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
