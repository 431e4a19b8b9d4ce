package middleware

import (
	"net/http"

	"github.com/rpattn/memberimport/internal/memberloader"
	"github.com/rpattn/memberimport/internal/repository"
)

// DataLoaderMiddleware attaches a fresh member loader to each request so
// lookups made while testing an import are batched and cached per request.
func DataLoaderMiddleware(repo repository.MemberRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := memberloader.NewMemberLoader(repo)
			next.ServeHTTP(w, r.WithContext(memberloader.WithLoader(r.Context(), loader)))
		})
	}
}
