package api

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/harrylevesque/listqr/internal/auth"
	"github.com/harrylevesque/listqr/internal/models"
	"github.com/harrylevesque/listqr/internal/store"
	"github.com/harrylevesque/listqr/internal/utils"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server holds what the handlers share. Each request is served independently.
type Server struct {
	repo     store.ListRepository
	sessions *auth.Sessions
	log      *utils.Logger
	origin   string
	tmpl     *template.Template
}

type ServerOptions struct {
	Repo     store.ListRepository
	Sessions *auth.Sessions
	Logger   *utils.Logger
	// PublicOrigin prefixes share links. Empty means derive it from the request.
	PublicOrigin string
}

func NewServer(opts ServerOptions) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = utils.NewNopLogger()
	}
	return &Server{
		repo:     opts.Repo,
		sessions: opts.Sessions,
		log:      log,
		origin:   strings.TrimRight(opts.PublicOrigin, "/"),
		tmpl:     tmpl,
	}, nil
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Local().Format("02/01/2006")
	},
}

// originFor returns the configured public origin or the one the request came in on.
func (s *Server) originFor(r *http.Request) string {
	if s.origin != "" {
		return s.origin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	switch p := strings.ToLower(r.Header.Get("X-Forwarded-Proto")); p {
	case "http", "https":
		scheme = p
	}
	return scheme + "://" + r.Host
}

// statusFor maps the error taxonomy to HTTP.
func statusFor(err error) int {
	var ve *models.ValidationError
	var re *models.RemoteError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &re):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrSignInRequired):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, models.ErrEmailTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) logErr(r *http.Request, err error, msg string) {
	ev := s.log.Warn()
	if statusFor(err) >= 500 {
		ev = s.log.Error()
	}
	ev.Err(err).Str("req_id", middleware.GetReqID(r.Context())).Str("path", r.URL.Path).Msg(msg)
}

// requestLogger writes one structured line per request.
func requestLogger(log *utils.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				log.Info().
					Str("req_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
