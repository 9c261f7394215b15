package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/harrylevesque/listqr/internal/auth"
	"github.com/harrylevesque/listqr/internal/editor"
	"github.com/harrylevesque/listqr/internal/export"
	"github.com/harrylevesque/listqr/internal/models"
	"github.com/harrylevesque/listqr/internal/store"
	"github.com/harrylevesque/listqr/internal/viewer"
)

type page struct {
	Identity  *models.Identity
	PageTitle string
	Error     string
	Data      any
}

type loginView struct {
	ReturnURL string
	Email     string
	SignUp    bool
}

type composeView struct {
	Title   string
	Pending string
	Columns []string
	Rows    [][]string
}

type listView struct {
	List       models.List
	Header     []string
	Rows       [][]string
	ShareURL   string
	CanEdit    bool
	ShowEdit   bool
	PDFName    string
	QRImageURL string
}

type editView struct {
	List   models.List
	Header []string
	Items  []editItemView
}

type editItemView struct {
	ID    string
	Cells []string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	p.Identity = auth.IdentityFrom(r.Context())
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, p); err != nil {
		s.logErr(r, err, "template failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	s.logErr(r, err, "page failed")
	s.render(w, r, statusFor(err), "error.html", page{PageTitle: "Error", Error: models.UserMessage(err, fallback)})
}

// HomePage shows the gallery, or the sign-in choice when nobody is signed in.
func (s *Server) HomePage(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		s.render(w, r, http.StatusOK, "login.html", page{PageTitle: "Iniciar sesión", Data: loginView{ReturnURL: "/"}})
		return
	}
	lists, err := s.repo.FetchListsForOwner(r.Context(), id.UserID)
	if err != nil {
		s.renderError(w, r, err, "Error al cargar las listas")
		return
	}
	s.render(w, r, http.StatusOK, "gallery.html", page{PageTitle: "Mis listas", Data: lists})
}

func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	ret := auth.SafeReturnURL(r.URL.Query().Get("returnUrl"))
	if auth.IdentityFrom(r.Context()) != nil {
		http.Redirect(w, r, ret, http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", page{
		PageTitle: "Iniciar sesión",
		Data:      loginView{ReturnURL: ret, SignUp: r.URL.Query().Get("mode") == "signup"},
	})
}

func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	s.credentialsSubmit(w, r, false)
}

func (s *Server) SignUpSubmit(w http.ResponseWriter, r *http.Request) {
	s.credentialsSubmit(w, r, true)
}

func (s *Server) credentialsSubmit(w http.ResponseWriter, r *http.Request, signUp bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	email, password := r.PostFormValue("email"), r.PostFormValue("password")
	ret := auth.SafeReturnURL(r.PostFormValue("returnUrl"))

	var err error
	if signUp {
		_, err = s.sessions.SignUpWithPassword(w, r, email, password)
	} else {
		_, err = s.sessions.SignInWithPassword(w, r, email, password)
	}
	if err != nil {
		s.logErr(r, err, "sign in failed")
		s.render(w, r, statusFor(err), "login.html", page{
			PageTitle: "Iniciar sesión",
			Error:     models.UserMessage(err, "No se pudo iniciar sesión"),
			Data:      loginView{ReturnURL: ret, Email: email, SignUp: signUp},
		})
		return
	}
	http.Redirect(w, r, ret, http.StatusSeeOther)
}

func (s *Server) LogoutSubmit(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(w, r); err != nil {
		s.renderError(w, r, err, "No se pudo cerrar sesión")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// editorFromForm rebuilds the composer state posted by compose.html. A
// missing or negative row count means no rows.
func editorFromForm(r *http.Request) (*editor.Editor, error) {
	columns := r.PostForm["col"]
	n, _ := strconv.Atoi(r.PostFormValue("rows"))
	n = max(n, 0)
	if err := editor.CheckSnapshot(columns, n); err != nil {
		return nil, err
	}
	rows := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		row := make(map[string]string, len(columns))
		for j, c := range columns {
			row[c] = r.PostFormValue(fmt.Sprintf("cell-%d-%d", i, j))
		}
		rows = append(rows, row)
	}
	return editor.FromState(r.PostFormValue("title"), columns, rows, r.PostFormValue("pending_column")), nil
}

func composeViewOf(ed *editor.Editor) composeView {
	cols := ed.Columns()
	v := composeView{Title: ed.Title(), Pending: ed.PendingColumnName(), Columns: cols}
	for i := 0; i < ed.RowCount(); i++ {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = ed.Cell(i, c)
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

// ComposePage drives the table editor. Each button posts the whole state back
// with an action: add_column, add_row or save.
func (s *Server) ComposePage(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "compose.html", page{PageTitle: "Nueva lista", Data: composeViewOf(editor.New())})
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	p := page{PageTitle: "Nueva lista"}
	ed, err := editorFromForm(r)
	if err != nil {
		p.Error = models.UserMessage(err, "")
		p.Data = composeViewOf(editor.New())
		s.render(w, r, statusFor(err), "compose.html", p)
		return
	}
	status := http.StatusOK

	switch r.PostFormValue("action") {
	case "add_column":
		ed.CommitPendingColumn()
	case "add_row":
		ed.AddRow()
	case "save":
		if err := ed.Validate(); err != nil {
			p.Error = models.UserMessage(err, "")
			status = statusFor(err)
			break
		}
		pers := ed.ToPersistable()
		id := auth.IdentityFrom(r.Context())
		l, err := store.CreateListWithItems(r.Context(), s.repo, id.UserID, pers.Title, pers.Rows)
		if err != nil {
			s.logErr(r, err, "create list failed")
			p.Error = models.UserMessage(err, "Error al crear la lista")
			status = statusFor(err)
			break
		}
		s.log.Info().Str("list_id", l.ID).Int("items", len(l.Items)).Msg("list created")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	p.Data = composeViewOf(ed)
	s.render(w, r, status, "compose.html", p)
}

func (s *Server) listViewOf(r *http.Request, l models.List) listView {
	id := auth.IdentityFrom(r.Context())
	canEdit := id != nil && l.Owned(id.UserID)
	return listView{
		List:       l,
		Header:     viewer.Header(l),
		Rows:       viewer.Rows(l),
		ShareURL:   export.ShareURL(s.originFor(r), l.PublicID),
		CanEdit:    canEdit,
		ShowEdit:   canEdit || id == nil,
		PDFName:    export.PDFFilename(l.Title),
		QRImageURL: "/list/" + url.PathEscape(l.PublicID) + "/qr.png",
	}
}

// ListPage is the public read-only view.
func (s *Server) ListPage(w http.ResponseWriter, r *http.Request) {
	l, err := s.repo.FetchListByID(r.Context(), mux.Vars(r)["listId"])
	if err != nil {
		s.renderError(w, r, err, "Error al cargar la lista")
		return
	}
	s.render(w, r, http.StatusOK, "list.html", page{PageTitle: l.Title, Data: s.listViewOf(r, l)})
}

func editViewOf(l models.List) editView {
	header := viewer.Header(l)
	v := editView{List: l, Header: header}
	rows := viewer.Rows(l)
	for i, it := range l.Items {
		v.Items = append(v.Items, editItemView{ID: it.ID, Cells: rows[i]})
	}
	return v
}

// EditPage runs an edit session over one form post. Cancel discards the draft.
func (s *Server) EditPage(w http.ResponseWriter, r *http.Request) {
	listID := mux.Vars(r)["listId"]
	l, err := s.repo.FetchListByID(r.Context(), listID)
	if err != nil {
		s.renderError(w, r, err, "Error al cargar la lista")
		return
	}
	sess, err := viewer.Begin(auth.IdentityFrom(r.Context()), l)
	if err != nil {
		s.renderError(w, r, err, "")
		return
	}
	back := "/list/" + url.PathEscape(listID)

	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "edit.html", page{PageTitle: "Editar " + l.Title, Data: editViewOf(sess.Draft())})
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if r.PostFormValue("action") == "cancel" {
		sess.Cancel()
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	_ = sess.SetTitle(r.PostFormValue("title"))
	header := viewer.Header(l)
	for _, it := range l.Items {
		for j, col := range header {
			key := fmt.Sprintf("cell-%s-%d", it.ID, j)
			if _, ok := r.PostForm[key]; !ok {
				continue
			}
			_ = sess.SetCell(it.ID, col, r.PostFormValue(key))
		}
	}
	if _, err := sess.Save(r.Context(), s.repo); err != nil {
		s.logErr(r, err, "save list failed")
		s.render(w, r, statusFor(err), "edit.html", page{
			PageTitle: "Editar " + l.Title,
			Error:     models.UserMessage(err, viewer.SaveFailedMessage),
			Data:      editViewOf(sess.Draft()),
		})
		return
	}
	s.log.Info().Str("list_id", l.ID).Msg("list updated")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) ListPDF(w http.ResponseWriter, r *http.Request) {
	l, err := s.repo.FetchListByID(r.Context(), mux.Vars(r)["listId"])
	if err != nil {
		s.renderError(w, r, err, "Error al cargar la lista")
		return
	}
	var buf bytes.Buffer
	if err := export.PDF(&buf, l); err != nil {
		s.renderError(w, r, err, "Error al generar el PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", export.ContentDisposition(export.PDFFilename(l.Title)))
	_, _ = buf.WriteTo(w)
}

// ListQR serves the share link as a PNG. ?size= is clamped to 64..1024.
func (s *Server) ListQR(w http.ResponseWriter, r *http.Request) {
	l, err := s.repo.FetchListByID(r.Context(), mux.Vars(r)["listId"])
	if err != nil {
		s.renderError(w, r, err, "Error al cargar la lista")
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	switch {
	case size == 0:
		size = export.DefaultQRSize
	case size < 64:
		size = 64
	case size > 1024:
		size = 1024
	}
	png, err := export.QRPNG(export.ShareURL(s.originFor(r), l.PublicID), size)
	if err != nil {
		s.renderError(w, r, err, "Error al generar el código QR")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

func (s *Server) PrintQRPage(w http.ResponseWriter, r *http.Request) {
	l, err := s.repo.FetchListByID(r.Context(), mux.Vars(r)["listId"])
	if err != nil {
		s.renderError(w, r, err, "Error al cargar la lista")
		return
	}
	s.render(w, r, http.StatusOK, "print_qr.html", page{PageTitle: "QR " + l.Title, Data: s.listViewOf(r, l)})
}
