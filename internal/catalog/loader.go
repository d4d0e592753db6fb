package catalog

import (
	"context"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"sync"
	"time"
)

type Source interface {
	GetCategories(ctx context.Context) ([]Category, error)
	GetServices(ctx context.Context, agentID string) ([]Service, error)
}

type Snapshot struct {
	Categories []Category
	Services   []Service
}

// Loader fetches the catalog for an agent. Categories are shared by every
// agent and served from a cache that a cron job refreshes; services are
// always fetched live.
type Loader struct {
	source Source
	logger *slog.Logger

	mu         sync.RWMutex
	categories []Category
	loadedAt   time.Time
}

func NewLoader(source Source, logger *slog.Logger) *Loader {
	if source == nil {
		panic("catalog.NewLoader: nil source")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{source: source, logger: logger}
}

func (l *Loader) RefreshCategories(ctx context.Context) error {
	categories, err := l.source.GetCategories(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.categories = categories
	l.loadedAt = time.Now()
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Categories refreshed", "count", len(categories))
	return nil
}

func (l *Loader) Categories(ctx context.Context) []Category {
	l.mu.RLock()
	cached := l.categories
	l.mu.RUnlock()

	if len(cached) > 0 {
		return cached
	}

	if err := l.RefreshCategories(ctx); err != nil {
		l.logger.ErrorContext(ctx, "Error loading categories", "error", err)
		return []Category{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.categories
}

// Load fetches categories and the agent's services concurrently. A failing
// source degrades to an empty list so the page still renders.
func (l *Loader) Load(ctx context.Context, agentID string) Snapshot {
	var snap Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Categories = l.Categories(gctx)
		return nil
	})
	g.Go(func() error {
		services, err := l.source.GetServices(gctx, agentID)
		if err != nil {
			l.logger.ErrorContext(gctx, "Error loading services", "agentId", agentID, "error", err)
			services = []Service{}
		}
		snap.Services = services
		return nil
	})
	_ = g.Wait()

	return snap
}

func (l *Loader) StartRefresh(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := l.RefreshCategories(ctx); err != nil {
			l.logger.Error("Error refreshing categories", "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
