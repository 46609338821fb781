package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
)

func NewRouter(handlers *Handlers, jwtService *auth.JWTService, socket http.Handler, webDir string) http.Handler {
	mux := http.NewServeMux()
	authed := middleware.AuthMiddleware(jwtService)
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }
	sellerOrAdmin := func(h http.HandlerFunc) http.Handler { return middleware.RequireSellerOrAdmin(h) }

	// Static files (web UI)
	if webDir != "" {
		fs := http.FileServer(http.Dir(webDir))
		mux.Handle("/", fs)
	}

	// Chat
	if socket != nil {
		mux.Handle("/socket", socket)
	}

	// Config
	mux.HandleFunc("/api/keys/paypal", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.PayPalClientID(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	// Orders
	mux.Handle("/api/orders", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sellerOrAdmin(handlers.ListOrders).ServeHTTP(w, r)
		case http.MethodPost:
			handlers.PlaceOrder(w, r)
		default:
			methodNotAllowed(w)
		}
	})))

	mux.Handle("/api/orders/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/orders/")
		switch {
		case path == "mine" && r.Method == http.MethodGet:
			handlers.MyOrders(w, r)
		case path == "summary" && r.Method == http.MethodGet:
			admin(handlers.Summary).ServeHTTP(w, r)
		case isOrderAction(path, "pay") && r.Method == http.MethodPut:
			handlers.PayOrder(w, r)
		case isOrderAction(path, "deliver") && r.Method == http.MethodPut:
			admin(handlers.DeliverOrder).ServeHTTP(w, r)
		case isOrderID(path) && r.Method == http.MethodGet:
			handlers.GetOrder(w, r)
		case isOrderID(path) && r.Method == http.MethodDelete:
			admin(handlers.DeleteOrder).ServeHTTP(w, r)
		case isOrderID(path) || isOrderAction(path, "pay") || isOrderAction(path, "deliver"):
			methodNotAllowed(w)
		default:
			respondMessage(w, http.StatusNotFound, "Not Found")
		}
	})))

	return withLogging(mux)
}

func isOrderID(path string) bool {
	return path != "" && !strings.Contains(path, "/")
}

func isOrderAction(path, action string) bool {
	id, ok := strings.CutSuffix(path, "/"+action)
	return ok && isOrderID(id)
}

func methodNotAllowed(w http.ResponseWriter) {
	respondMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
