// Package middleware's auth layer authorizes by spatial-index operation
// rather than bare path prefixes. Every request against /v1/indexes/...
// resolves to one of three operations - query (knn/join/stats/list),
// build, or admin (create/delete an index) - and a caller's JWT must carry
// a role that covers it. The roles form a hierarchy: admin covers build
// and query, build covers query, so a single "admin" grant is still
// enough to run a build or a knn lookup against the same index.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret   string
	Enabled     bool
	PublicPaths []string
	// AdminPaths forces the admin operation for any request path with one
	// of these prefixes, regardless of the method-based classification in
	// operationForRequest. Useful for locking down an entire sub-tree
	// (e.g. a future /v1/admin/... surface) without a per-route rule.
	AdminPaths []string
}

// Claims represents JWT claims. Roles are operation names ("query",
// "build", "admin") rather than generic app roles, so a token's authority
// over a named index is legible directly from its claim set.
type Claims struct {
	UserID    string   `json:"user_id"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	IndexName string   `json:"index_name,omitempty"`
	jwt.RegisteredClaims
}

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for user claims in context
	UserContextKey contextKey = "user"
)

// operation is a point in the build/query/admin hierarchy that a request
// requires and a claim set's roles are checked against.
type operation int

const (
	opQuery operation = iota
	opBuild
	opAdmin
)

func (o operation) String() string {
	switch o {
	case opBuild:
		return "build"
	case opAdmin:
		return "admin"
	default:
		return "query"
	}
}

// rank orders operations so that a higher-privilege role satisfies a
// lower-privilege requirement: admin satisfies build and query, build
// satisfies query.
func (o operation) rank() int {
	return int(o)
}

// operationForRequest classifies a request against /v1/indexes/... into
// the operation it exercises on the named index.
//
//	PUT/DELETE /v1/indexes/{name}          admin (create/destroy the index)
//	POST       /v1/indexes/{name}/build    build
//	GET        /v1/indexes                 query (list)
//	*          /v1/indexes/{name}/...      query (knn, join, stats)
func operationForRequest(r *http.Request) operation {
	const prefix = "/v1/indexes"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		return opQuery
	}

	rest := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		return opQuery
	}

	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodPut, http.MethodDelete:
			return opAdmin
		default:
			return opQuery
		}
	}

	if parts[1] == "build" && r.Method == http.MethodPost {
		return opBuild
	}
	return opQuery
}

// satisfies reports whether roles grants at least the privilege of op:
// an "admin" role always satisfies; a "build" role satisfies build and
// query; a "query" role satisfies query only.
func satisfies(roles []string, op operation) bool {
	best := -1
	for _, r := range roles {
		switch r {
		case "admin":
			best = max(best, opAdmin.rank())
		case "build":
			best = max(best, opBuild.rank())
		case "query":
			best = max(best, opQuery.rank())
		}
	}
	return best >= op.rank()
}

// AuthMiddleware creates a JWT authentication middleware that also
// enforces the build/query/admin role hierarchy for /v1/indexes/... routes.
func AuthMiddleware(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			for _, path := range config.PublicPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, "Missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSONError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			tokenString := parts[1]

			token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(config.JWTSecret), nil
			})
			if err != nil {
				writeJSONError(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*Claims)
			if !ok || !token.Valid {
				writeJSONError(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			op := operationForRequest(r)
			for _, path := range config.AdminPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					op = opAdmin
					break
				}
			}

			if !satisfies(claims.Roles, op) {
				writeJSONError(w, fmt.Sprintf("%s privileges required", op), http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaimsFromContext retrieves user claims from request context
func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	return claims, ok
}

// GenerateToken creates a JWT token for testing/development.
func GenerateToken(userID, username string, roles []string, indexName string, secret string) (string, error) {
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		Roles:     roles,
		IndexName: indexName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "geoindex",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"error": "%s", "status": %d}`, message, statusCode)
}
