package api

import (
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/render"
	"github.com/gorilla/mux"

	"github.com/harrylevesque/listqr/internal/auth"
	"github.com/harrylevesque/listqr/internal/dtos"
	"github.com/harrylevesque/listqr/internal/editor"
	"github.com/harrylevesque/listqr/internal/export"
	"github.com/harrylevesque/listqr/internal/models"
	"github.com/harrylevesque/listqr/internal/store"
	"github.com/harrylevesque/listqr/internal/utils"
	"github.com/harrylevesque/listqr/internal/viewer"
)

// writeError renders err as {"error": ...} with the matching status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	s.logErr(r, err, "api request failed")
	he := utils.New(statusFor(err), models.UserMessage(err, fallback))
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		he.Reason = ve.Reason
	}
	_ = render.Render(w, r, he)
}

func requireIdentityJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.IdentityFrom(r.Context()) == nil {
			_ = render.Render(w, r, utils.New(http.StatusUnauthorized, models.UserMessage(models.ErrSignInRequired, "")))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSessionHandler returns the current identity, or null.
func (s *Server) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, dtos.SessionResponse{Identity: auth.IdentityFrom(r.Context())})
}

func (s *Server) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, models.NewValidationError("bad json", "Solicitud inválida"), "")
		return
	}
	id, err := s.sessions.SignInWithPassword(w, r, req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err, "No se pudo iniciar sesión")
		return
	}
	render.JSON(w, r, dtos.SessionResponse{Identity: &id})
}

func (s *Server) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, models.NewValidationError("bad json", "Solicitud inválida"), "")
		return
	}
	id, err := s.sessions.SignUpWithPassword(w, r, req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err, "No se pudo crear la cuenta")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, dtos.SessionResponse{Identity: &id})
}

func (s *Server) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(w, r); err != nil {
		s.writeError(w, r, err, "No se pudo cerrar sesión")
		return
	}
	render.NoContent(w, r)
}

// ListListsHandler returns the caller's gallery.
func (s *Server) ListListsHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFrom(r.Context())
	lists, err := s.repo.FetchListsForOwner(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err, "Error al cargar las listas")
		return
	}
	if lists == nil {
		lists = []models.ListSummary{}
	}
	render.JSON(w, r, dtos.ListsResponse{Lists: lists})
}

// CreateListHandler validates an editor snapshot and stores it.
func (s *Server) CreateListHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.CreateListRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, models.NewValidationError("bad json", "Solicitud inválida"), "")
		return
	}
	if err := editor.CheckSnapshot(req.Columns, len(req.Rows)); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	ed := editor.FromState(req.Title, req.Columns, req.Rows, "")
	if err := ed.Validate(); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	p := ed.ToPersistable()
	id := auth.IdentityFrom(r.Context())
	l, err := store.CreateListWithItems(r.Context(), s.repo, id.UserID, p.Title, p.Rows)
	if err != nil {
		s.writeError(w, r, err, "Error al crear la lista")
		return
	}
	s.log.Info().Str("list_id", l.ID).Int("items", len(l.Items)).Msg("list created")
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, s.listResponse(r, l))
}

// GetListHandler looks a list up by id or public id. No sign-in needed.
func (s *Server) GetListHandler(w http.ResponseWriter, r *http.Request) {
	l, err := s.repo.FetchListByID(r.Context(), mux.Vars(r)["listId"])
	if err != nil {
		s.writeError(w, r, err, "Error al cargar la lista")
		return
	}
	render.JSON(w, r, s.listResponse(r, l))
}

// UpdateListHandler commits an edit session: items in order, then the title.
func (s *Server) UpdateListHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.UpdateListRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, models.NewValidationError("bad json", "Solicitud inválida"), "")
		return
	}
	l, err := s.repo.FetchListByID(r.Context(), mux.Vars(r)["listId"])
	if err != nil {
		s.writeError(w, r, err, "Error al cargar la lista")
		return
	}
	sess, err := viewer.Begin(auth.IdentityFrom(r.Context()), l)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if err := sess.SetTitle(req.Title); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	for _, it := range req.Items {
		cols := make([]string, 0, len(it.Cells))
		for c := range it.Cells {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			if err := sess.SetCell(it.ID, c, it.Cells[c]); err != nil {
				s.writeError(w, r, models.NewValidationError("unknown item", "Ítem desconocido"), "")
				return
			}
		}
	}
	saved, err := sess.Save(r.Context(), s.repo)
	if err != nil {
		s.writeError(w, r, err, viewer.SaveFailedMessage)
		return
	}
	s.log.Info().Str("list_id", saved.ID).Msg("list updated")
	render.JSON(w, r, s.listResponse(r, saved))
}

func (s *Server) listResponse(r *http.Request, l models.List) dtos.GetListResponse {
	if l.Items == nil {
		l.Items = []models.Item{}
	}
	id := auth.IdentityFrom(r.Context())
	return dtos.GetListResponse{
		List:     l,
		Header:   viewer.Header(l),
		ShareURL: export.ShareURL(s.originFor(r), l.PublicID),
		CanEdit:  id != nil && l.Owned(id.UserID),
	}
}
