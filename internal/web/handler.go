// Package web serves the server-rendered list page. Every viewer gets a
// page controller per list; form posts update it, start mutations in the
// background and redirect back, so the next render shows optimistic rows.
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/listpage"
	"github.com/Tomlord1122/space-todo/internal/logger"
	"github.com/Tomlord1122/space-todo/internal/policy"
	"github.com/Tomlord1122/space-todo/internal/service"
)

const mutationTimeout = 30 * time.Second

// Services are the server operations the page runs on.
type Services struct {
	Spaces service.SpaceService
	Tasks  service.TaskService
	Todos  service.TodoService
	Users  service.UserService
}

// Options configures the web handler.
type Options struct {
	// SessionTTL is how long an idle page controller is kept.
	SessionTTL time.Duration
	// RefreshSeconds is the auto-refresh interval while rows are pending.
	RefreshSeconds int
	Now            func() time.Time
}

type sessionKey struct {
	userID string
	listID string
}

type session struct {
	page *listpage.Page
	// csrf must accompany every form post of the session.
	csrf     string
	lastSeen time.Time
}

// Handler serves the list page.
type Handler struct {
	svc       Services
	ttl       time.Duration
	refresh   int
	now       func() time.Time
	templates *template.Template

	mu       sync.Mutex
	sessions map[sessionKey]*session

	inflight sync.WaitGroup
}

func NewHandler(svc Services, opts Options) *Handler {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.RefreshSeconds <= 0 {
		opts.RefreshSeconds = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{
		svc:       svc,
		ttl:       opts.SessionTTL,
		refresh:   opts.RefreshSeconds,
		now:       opts.Now,
		templates: newTemplates(),
		sessions:  make(map[sessionKey]*session),
	}
}

// Mount registers the page routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/space/{slug}", h.handleSpace)
	r.Route("/space/{slug}/{listId}", func(r chi.Router) {
		r.Get("/", h.handlePage)
		r.Post("/query", h.handleQuery)
		r.Post("/select", h.handleSelect)
		r.Post("/submit", h.handleSubmit)
		r.Post("/todos/{todoID}/toggle", h.handleToggle)
		r.Post("/todos/{todoID}/delete", h.handleDelete)
	})
}

// Wait blocks until background mutations finish or ctx is done.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func pagePath(slug, listID string) string {
	return "/space/" + url.PathEscape(slug) + "/" + url.PathEscape(listID)
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug, listID := chi.URLParam(r, "slug"), chi.URLParam(r, "listId")

	principal := policy.FromContext(ctx)
	if !principal.Authenticated() {
		h.renderNotFound(w)
		return
	}
	props, err := h.svc.Spaces.ResolveListPage(ctx, slug, listID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.renderNotFound(w)
			return
		}
		logger.Error(ctx, "Error resolving list page", "slug", slug, "list_id", listID, "error", err)
		http.Error(w, "Failed to load page", http.StatusInternalServerError)
		return
	}

	sess, err := h.open(ctx, principal.UserID, *props)
	if err != nil {
		logger.Error(ctx, "Error opening list page", "list_id", listID, "error", err)
		http.Error(w, "Failed to load page", http.StatusInternalServerError)
		return
	}
	if err := sess.page.Refresh(ctx); err != nil {
		logger.Warn(ctx, "Error refreshing list page", "list_id", listID, "error", err)
	}
	h.render(w, sess)
}

func (h *Handler) handleSpace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")
	if !policy.FromContext(ctx).Authenticated() {
		h.renderNotFound(w)
		return
	}
	props, err := h.svc.Spaces.ResolveSpacePage(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.renderNotFound(w)
			return
		}
		logger.Error(ctx, "Error resolving space page", "slug", slug, "error", err)
		http.Error(w, "Failed to load page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = h.templates.ExecuteTemplate(w, "space", props)
}

// open returns the viewer's session for the list, creating it on first use.
func (h *Handler) open(ctx context.Context, userID string, props service.ListPageProps) (*session, error) {
	key := sessionKey{userID: userID, listID: props.List.ID}
	if sess := h.lookup(key, props.Space.Slug); sess != nil {
		return sess, nil
	}

	viewer, err := h.svc.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	page := listpage.New(props, *viewer,
		taskSource{tasks: h.svc.Tasks, spaceID: props.Space.ID},
		todoSource{todos: h.svc.Todos, listID: props.List.ID},
	)

	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[key]; ok {
		s.lastSeen = h.now()
		return s, nil
	}
	sess := &session{page: page, csrf: uuid.NewString(), lastSeen: h.now()}
	h.sessions[key] = sess
	return sess, nil
}

// lookup returns a live session and evicts idle ones.
func (h *Handler) lookup(key sessionKey, slug string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	for k, s := range h.sessions {
		if now.Sub(s.lastSeen) > h.ttl {
			delete(h.sessions, k)
		}
	}
	s, ok := h.sessions[key]
	if !ok || s.page.Props().Space.Slug != slug {
		return nil
	}
	s.lastSeen = now
	return s
}

// session returns the controller a form post targets. When there is none
// the viewer is sent back to the page, which creates one.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*listpage.Page, bool) {
	slug, listID := chi.URLParam(r, "slug"), chi.URLParam(r, "listId")
	principal := policy.FromContext(r.Context())
	if !principal.Authenticated() {
		h.renderNotFound(w)
		return nil, false
	}
	sess := h.lookup(sessionKey{userID: principal.UserID, listID: listID}, slug)
	if sess == nil {
		http.Redirect(w, r, pagePath(slug, listID), http.StatusSeeOther)
		return nil, false
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form input", http.StatusBadRequest)
		return nil, false
	}
	if subtle.ConstantTimeCompare([]byte(r.PostFormValue("csrf")), []byte(sess.csrf)) != 1 {
		http.Error(w, "invalid form token", http.StatusForbidden)
		return nil, false
	}
	return sess.page, true
}

func (h *Handler) back(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, pagePath(chi.URLParam(r, "slug"), chi.URLParam(r, "listId")), http.StatusSeeOther)
}

// dispatch runs m in the background with the request's principal.
func (h *Handler) dispatch(r *http.Request, name string, m listpage.Mutation) {
	if m == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), mutationTimeout)
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer cancel()
		if err := m(ctx); err != nil {
			logger.Warn(ctx, "List page mutation failed", "mutation", name, "error", err)
		}
	}()
}

func applyInput(page *listpage.Page, r *http.Request) {
	if _, ok := r.PostForm["q"]; ok {
		page.SetQuery(strings.TrimSpace(r.PostFormValue("q")))
	}
	if _, ok := r.PostForm["description"]; ok {
		page.SetDescription(strings.TrimSpace(r.PostFormValue("description")))
	}
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	page, ok := h.session(w, r)
	if !ok {
		return
	}
	applyInput(page, r)
	h.back(w, r)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	page, ok := h.session(w, r)
	if !ok {
		return
	}
	page.Select(r.PostFormValue("task"))
	h.back(w, r)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	page, ok := h.session(w, r)
	if !ok {
		return
	}
	applyInput(page, r)
	h.dispatch(r, "submit", page.PrepareSubmit())
	h.back(w, r)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	page, ok := h.session(w, r)
	if !ok {
		return
	}
	completed, err := strconv.ParseBool(r.PostFormValue("completed"))
	if err != nil {
		http.Error(w, "invalid completed value", http.StatusBadRequest)
		return
	}
	h.dispatch(r, "toggle", page.PrepareToggle(chi.URLParam(r, "todoID"), completed))
	h.back(w, r)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	page, ok := h.session(w, r)
	if !ok {
		return
	}
	h.dispatch(r, "delete", page.PrepareDelete(chi.URLParam(r, "todoID")))
	h.back(w, r)
}

type pageData struct {
	listpage.View
	Path           string
	SpacePath      string
	CSRF           string
	RefreshSeconds int
}

func (h *Handler) render(w http.ResponseWriter, sess *session) {
	v := sess.page.View()
	data := pageData{
		View:           v,
		Path:           pagePath(v.Space.Slug, v.List.ID),
		SpacePath:      "/space/" + url.PathEscape(v.Space.Slug),
		CSRF:           sess.csrf,
		RefreshSeconds: h.refresh,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = h.templates.ExecuteTemplate(w, "page", data)
}

func (h *Handler) renderNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_ = h.templates.ExecuteTemplate(w, "notfound", nil)
}
