package web

import (
	"context"
	"embed"
	"errors"
	"github.com/sebuszqo/PaymentWidget/internal/auth"
	"github.com/sebuszqo/PaymentWidget/internal/catalog"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type CatalogLoader interface {
	Load(ctx context.Context, agentID string) catalog.Snapshot
}

type Notifier interface {
	Notify(ctx context.Context, transactionID string)
}

type Pages struct {
	loader    CatalogLoader
	decoder   auth.TokenDecoder
	notifier  Notifier
	templates *template.Template
	logger    *slog.Logger
}

// LoadTemplates parses the page templates from dir, or from the embedded
// copies when dir is empty.
func LoadTemplates(dir string) (*template.Template, error) {
	if dir == "" {
		return template.ParseFS(templateFS, "templates/*.html")
	}
	return template.ParseGlob(filepath.Join(dir, "*.html"))
}

func NewPages(loader CatalogLoader, decoder auth.TokenDecoder, notifier Notifier, templates *template.Template, logger *slog.Logger) *Pages {
	if loader == nil || decoder == nil || notifier == nil || templates == nil {
		panic("Loader, decoder, notifier and templates must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pages{
		loader:    loader,
		decoder:   decoder,
		notifier:  notifier,
		templates: templates,
		logger:    logger,
	}
}

// StaticHandler serves the widget script and stylesheet under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

type servicesPage struct {
	Token            string
	Query            string
	ActiveCategoryID int
	Categories       []catalog.NavItem
	Breadcrumb       []catalog.Crumb
	Services         []catalog.Service
	Selected         *catalog.Service
}

type catalogResponse struct {
	ActiveCategoryID int               `json:"activeCategoryId"`
	Categories       []catalog.Category `json:"categories"`
	Services         []catalog.Service  `json:"services"`
	Breadcrumb       []catalog.Crumb    `json:"breadcrumb"`
}

// build resolves the token and the catalog view shared by the HTML page
// and its JSON twin.
func (p *Pages) build(r *http.Request) (*servicesPage, *catalog.Navigator, int, string) {
	token := r.URL.Query().Get("token")
	claims, err := p.decoder.Decode(token)
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return nil, nil, http.StatusBadRequest, "Token not provided"
	case err != nil:
		return nil, nil, http.StatusUnauthorized, "Invalid token"
	}

	query := r.URL.Query().Get("q")
	snap := p.loader.Load(r.Context(), claims.AgentID)

	base := url.Values{"token": {token}}
	nav := catalog.NewNavigator(snap.Categories, base)
	activeID := nav.ActiveCategoryID(r.URL.Query().Get("categoryId"))

	var selected *catalog.Service
	if raw := r.URL.Query().Get("serviceId"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			selected, _ = catalog.FindService(snap.Services, id)
		}
	}

	return &servicesPage{
		Token:            token,
		Query:            query,
		ActiveCategoryID: activeID,
		Categories:       nav.Items(activeID),
		Breadcrumb:       nav.Breadcrumb(activeID, selected),
		Services:         catalog.Filter(snap.Services, activeID, query),
		Selected:         selected,
	}, nav, http.StatusOK, ""
}

func (p *Pages) Services(w http.ResponseWriter, r *http.Request) {
	page, _, status, message := p.build(r)
	if page == nil {
		p.renderError(w, status, message)
		return
	}
	p.render(w, r, http.StatusOK, "services", page)
}

func (p *Pages) Catalog(w http.ResponseWriter, r *http.Request) {
	page, nav, status, message := p.build(r)
	if page == nil {
		RespondError(w, status, message)
		return
	}
	RespondJSON(w, http.StatusOK, catalogResponse{
		ActiveCategoryID: page.ActiveCategoryID,
		Categories:       nav.Categories,
		Services:         page.Services,
		Breadcrumb:       page.Breadcrumb,
	})
}

// Success renders the confirmation page and fires the partner callback for
// the transaction in the query, if any.
func (p *Pages) Success(w http.ResponseWriter, r *http.Request) {
	transactionID := r.URL.Query().Get("transactionId")
	p.notifier.Notify(r.Context(), transactionID)

	p.render(w, r, http.StatusOK, "success", map[string]string{"TransactionID": transactionID})
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := p.templates.ExecuteTemplate(w, name, data); err != nil {
		p.logger.ErrorContext(r.Context(), "Error rendering template", "template", name, "error", err)
	}
}

func (p *Pages) renderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := p.templates.ExecuteTemplate(w, "error", map[string]string{"Message": message}); err != nil {
		p.logger.Error("Error rendering error page", "error", err)
	}
}
