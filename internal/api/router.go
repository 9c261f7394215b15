package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	"github.com/harrylevesque/listqr/internal/auth"
)

// NewRouter wires pages, the JSON API and the middleware chain.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(s.log), middleware.Recoverer, s.sessions.Middleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if _, err := fmt.Fprintln(w, "OK"); err != nil {
			s.log.Warn().Err(err).Msg("health write failed")
		}
	}).Methods("GET")

	// Pages.
	r.HandleFunc("/", s.HomePage).Methods("GET")
	r.HandleFunc("/login", s.LoginPage).Methods("GET")
	r.HandleFunc("/login", s.LoginSubmit).Methods("POST")
	r.HandleFunc("/signup", s.SignUpSubmit).Methods("POST")
	r.HandleFunc("/logout", s.LogoutSubmit).Methods("POST")
	r.Handle("/new", auth.RequireIdentity(http.HandlerFunc(s.ComposePage))).Methods("GET", "POST")
	r.HandleFunc("/list/{listId}", s.ListPage).Methods("GET")
	r.Handle("/list/{listId}/edit", auth.RequireIdentity(http.HandlerFunc(s.EditPage))).Methods("GET", "POST")
	r.HandleFunc("/list/{listId}/pdf", s.ListPDF).Methods("GET")
	r.HandleFunc("/list/{listId}/qr.png", s.ListQR).Methods("GET")
	r.HandleFunc("/list/{listId}/qr/print", s.PrintQRPage).Methods("GET")

	// JSON API.
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", s.GetSessionHandler).Methods("GET")
	api.HandleFunc("/session", s.SignInHandler).Methods("POST")
	api.HandleFunc("/session", s.SignOutHandler).Methods("DELETE")
	api.HandleFunc("/signup", s.SignUpHandler).Methods("POST")
	api.Handle("/lists", requireIdentityJSON(http.HandlerFunc(s.ListListsHandler))).Methods("GET")
	api.Handle("/lists", requireIdentityJSON(http.HandlerFunc(s.CreateListHandler))).Methods("POST")
	api.HandleFunc("/lists/{listId}", s.GetListHandler).Methods("GET")
	api.Handle("/lists/{listId}", requireIdentityJSON(http.HandlerFunc(s.UpdateListHandler))).Methods("PUT")

	return r
}
