// Package app is the application container: it owns the stores, the request
// draft and the last response, and exposes every user operation.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/artpar/requst/internal/backup"
	"github.com/artpar/requst/internal/collection"
	"github.com/artpar/requst/internal/config"
	"github.com/artpar/requst/internal/cookies"
	"github.com/artpar/requst/internal/core"
	"github.com/artpar/requst/internal/globalheaders"
	"github.com/artpar/requst/internal/history"
	"github.com/artpar/requst/internal/pipeline"
	httpclient "github.com/artpar/requst/internal/protocol/http"
	"github.com/artpar/requst/internal/settings"
	"github.com/artpar/requst/internal/storage"
	"github.com/artpar/requst/internal/storage/sqlite"
	"github.com/artpar/requst/internal/theme"
)

// Common errors
var (
	ErrSendInProgress = errors.New("a request is already in progress")
)

// Requester is the interface for protocol adapters.
type Requester interface {
	Send(ctx context.Context, req httpclient.Request) (*core.Response, error)
	Protocol() string
}

// App is the main application container with dependency injection.
type App struct {
	config    config.Config
	store     storage.Store
	ownsStore bool
	transport Requester
	logger    hclog.Logger
	fs        afero.Fs
	now       func() time.Time

	history     *history.Manager
	collections *collection.Manager
	globals     *globalheaders.Sync
	backups     *backup.Service
	pipeline    *pipeline.Pipeline
	jar         *cookies.Jar

	mu          sync.Mutex
	draft       core.Draft
	response    *core.Response
	historyList []core.HistoryItem
	layout      []core.CollectionItem
	theme       theme.Theme
	loading     bool
}

// Option is a function that configures the App.
type Option func(*App)

// WithConfig sets the application configuration.
func WithConfig(cfg config.Config) Option {
	return func(a *App) {
		a.config = cfg
	}
}

// WithStore sets the store instead of opening the configured database.
func WithStore(store storage.Store) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithTransport sets the protocol adapter used to send requests.
func WithTransport(transport Requester) Option {
	return func(a *App) {
		a.transport = transport
	}
}

// WithLogger sets the root logger.
func WithLogger(logger hclog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithFs sets the filesystem used for backup files.
func WithFs(fs afero.Fs) Option {
	return func(a *App) {
		a.fs = fs
	}
}

// WithClock sets the clock used for history and backup timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// New creates a new App with the given options. When no store is given the
// configured database is opened; if that fails the app runs without
// persistence and every storage operation returns storage.ErrStorageUnavailable.
func New(opts ...Option) *App {
	a := &App{
		config: config.DefaultConfig(),
		logger: hclog.NewNullLogger(),
		fs:     afero.NewOsFs(),
		now:    time.Now,
		draft:  core.NewDraft(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.theme = theme.Resolve(a.config.DefaultTheme)

	if a.store == nil {
		store, err := openStore(a.config, a.logger)
		if err != nil {
			a.logger.Error("storage unavailable, running without persistence", "error", err)
		} else {
			a.store = store
			a.ownsStore = true
		}
	}

	if a.store != nil {
		jar, err := cookies.NewJar(context.Background(), a.store,
			cookies.WithLogger(a.logger.Named("cookies")),
			cookies.WithClock(a.now))
		if err != nil {
			a.logger.Error("failed to load cookies", "error", err)
		} else {
			a.jar = jar
		}
	}

	if a.transport == nil {
		clientOpts := []httpclient.Option{httpclient.WithTimeout(a.config.Timeout)}
		if !a.config.FollowRedirects {
			clientOpts = append(clientOpts, httpclient.WithNoRedirects())
		}
		if a.jar != nil {
			clientOpts = append(clientOpts, httpclient.WithCookieJar(a.jar))
		}
		a.transport = httpclient.NewClient(clientOpts...)
	}

	var recorder pipeline.HistoryWriter
	if a.store != nil {
		a.history = history.NewManager(a.store, history.WithLogger(a.logger.Named("history")))
		a.collections = collection.NewManager(a.store, collection.WithLogger(a.logger.Named("collections")))
		a.backups = backup.NewService(a.store,
			backup.WithFs(a.fs),
			backup.WithLogger(a.logger.Named("backup")),
			backup.WithClock(a.now))
		recorder = a.history
	}
	a.globals = globalheaders.New(a.store, globalheaders.WithLogger(a.logger.Named("headers")))
	a.pipeline = pipeline.New(a.transport, recorder,
		pipeline.WithPolicy(a.config.HeaderPolicy()),
		pipeline.WithLogger(a.logger.Named("pipeline")),
		pipeline.WithClock(a.now),
		pipeline.WithStateHook(a.onState))

	return a
}

func openStore(cfg config.Config, logger hclog.Logger) (storage.Store, error) {
	path := cfg.Database()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create data directory: %w", storage.ErrStorageUnavailable, err)
	}
	return sqlite.New(path, sqlite.WithLogger(logger.Named("storage")))
}

// Config returns the application configuration.
func (a *App) Config() config.Config {
	return a.config
}

// Persistent reports whether a store is available.
func (a *App) Persistent() bool {
	return a.store != nil
}

// Close releases the store if the app opened it.
func (a *App) Close() error {
	if a.ownsStore && a.store != nil {
		return a.store.Close()
	}
	return nil
}

func (a *App) requireStore() error {
	if a.store == nil {
		return storage.ErrStorageUnavailable
	}
	return nil
}

// LoadData refreshes history, collections, global headers and the theme from
// the store. Failed lists are left empty and the failures are returned together.
func (a *App) LoadData(ctx context.Context) error {
	if err := a.requireStore(); err != nil {
		a.mu.Lock()
		a.historyList, a.layout = nil, nil
		a.mu.Unlock()
		a.globals.Reset()
		return err
	}

	var result *multierror.Error

	items, err := a.history.List(ctx)
	if err != nil {
		result = multierror.Append(result, err)
		items = nil
	}
	layout, err := a.collections.List(ctx)
	if err != nil {
		result = multierror.Append(result, err)
		layout = nil
	}
	if _, err := a.globals.Load(ctx); err != nil {
		result = multierror.Append(result, err)
		a.globals.Reset()
	}
	t, err := a.loadTheme(ctx)
	if err != nil {
		result = multierror.Append(result, err)
	}

	a.mu.Lock()
	a.historyList = items
	a.layout = layout
	a.theme = t
	a.mu.Unlock()

	if err := result.ErrorOrNil(); err != nil {
		a.logger.Error("failed to load data", "error", err)
		return err
	}
	return nil
}

func (a *App) loadTheme(ctx context.Context) (theme.Theme, error) {
	name, err := settings.StoredTheme(ctx, a.store)
	if err != nil {
		return theme.Resolve(a.config.DefaultTheme), err
	}
	if name == "" {
		name = a.config.DefaultTheme
	}
	return theme.Resolve(name), nil
}

// reload refreshes the lists after a mutation. Failures are logged by LoadData.
func (a *App) reload(ctx context.Context) {
	_ = a.LoadData(ctx)
}

// Draft returns a copy of the request being composed.
func (a *App) Draft() core.Draft {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneDraft(a.draft)
}

// SetDraft replaces the request being composed.
func (a *App) SetDraft(d core.Draft) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.draft = cloneDraft(d)
}

// LoadRequest copies a saved request into the draft and clears the response.
// Empty header and query lists become one blank row.
func (a *App) LoadRequest(item core.CollectionItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.draft = core.Draft{
		Name:        item.Name,
		Method:      item.Method,
		URL:         item.URL,
		Body:        item.Body,
		Headers:     core.NormalizeRows(item.Headers),
		QueryParams: core.NormalizeRows(item.QueryParams),
		BearerToken: item.BearerToken,
	}
	if a.draft.Method == "" {
		a.draft.Method = "GET"
	}
	a.response = nil
}

// LoadHistoryItem copies a history entry into the draft.
func (a *App) LoadHistoryItem(item core.HistoryItem) {
	a.LoadRequest(collection.FromHistory(item))
}

// Response returns the last response, or nil.
func (a *App) Response() *core.Response {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.response
}

// IsLoading reports whether a send is in flight.
func (a *App) IsLoading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

func (a *App) onState(runID string, s pipeline.State) {
	if s == pipeline.Sending {
		a.mu.Lock()
		a.response = nil
		a.mu.Unlock()
	}
}

// SendRequest sends the draft with the global headers applied, stores the
// normalized response and reloads the lists. A concurrent call fails with
// ErrSendInProgress.
func (a *App) SendRequest(ctx context.Context) (*pipeline.Result, error) {
	a.mu.Lock()
	if a.loading {
		a.mu.Unlock()
		return nil, ErrSendInProgress
	}
	a.loading = true
	draft := cloneDraft(a.draft)
	a.mu.Unlock()

	res, err := a.pipeline.Run(ctx, draft, a.globals.Entries())

	a.mu.Lock()
	a.loading = false
	if res != nil {
		resp := res.Response
		a.response = &resp
	}
	a.mu.Unlock()

	if errors.Is(err, pipeline.ErrInvalidRequestBody) {
		return res, err
	}
	if a.store != nil {
		a.reload(ctx)
	}
	return res, err
}

// History returns the loaded history, newest first.
func (a *App) History() []core.HistoryItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.historyList)
}

// Collections returns the loaded collection layout.
func (a *App) Collections() []core.CollectionItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.layout)
}

// CollectionTree returns the nested view of the loaded layout.
func (a *App) CollectionTree() []*collection.Node {
	return collection.BuildTree(a.Collections())
}

// GlobalHeaders returns the loaded global headers.
func (a *App) GlobalHeaders() []core.GlobalHeader {
	return a.globals.List()
}

// DeleteHistoryItem removes a history entry.
func (a *App) DeleteHistoryItem(ctx context.Context, id int64) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	if err := a.history.Delete(ctx, id); err != nil {
		return err
	}
	a.reload(ctx)
	return nil
}

// SaveToCollection saves a history entry as a collection request. The draft
// name wins over the entry name and is cleared afterwards.
func (a *App) SaveToCollection(ctx context.Context, item core.HistoryItem) (core.CollectionItem, error) {
	if err := a.requireStore(); err != nil {
		return core.CollectionItem{}, err
	}
	a.mu.Lock()
	proposed := a.draft.Name
	a.mu.Unlock()

	saved, err := a.collections.SaveToCollection(ctx, collection.FromHistory(item), proposed)
	if err != nil {
		return core.CollectionItem{}, err
	}

	a.mu.Lock()
	a.draft.Name = ""
	a.mu.Unlock()
	a.reload(ctx)
	return saved, nil
}

// CreateGroup adds a root group.
func (a *App) CreateGroup(ctx context.Context, name string) (core.CollectionItem, error) {
	if err := a.requireStore(); err != nil {
		return core.CollectionItem{}, err
	}
	group, err := a.collections.CreateGroup(ctx, name)
	if err != nil {
		return core.CollectionItem{}, err
	}
	a.reload(ctx)
	return group, nil
}

// RenameCollectionItem renames a request or group.
func (a *App) RenameCollectionItem(ctx context.Context, id int64, name string) (core.CollectionItem, error) {
	return a.EditCollectionItem(ctx, id, collection.Changes{Name: name})
}

// EditCollectionItem applies changes to a request or group.
func (a *App) EditCollectionItem(ctx context.Context, id int64, changes collection.Changes) (core.CollectionItem, error) {
	if err := a.requireStore(); err != nil {
		return core.CollectionItem{}, err
	}
	item, err := a.collections.Edit(ctx, id, changes)
	if err != nil {
		return core.CollectionItem{}, err
	}
	a.reload(ctx)
	return item, nil
}

// MoveCollectionItem attaches an item under parent at index.
func (a *App) MoveCollectionItem(ctx context.Context, id int64, parent *int64, index int) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	if err := a.collections.Move(ctx, id, parent, index); err != nil {
		return err
	}
	a.reload(ctx)
	return nil
}

// ReplaceCollections stores a whole new layout.
func (a *App) ReplaceCollections(ctx context.Context, layout []core.CollectionItem) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	if err := a.collections.ReplaceLayout(ctx, layout); err != nil {
		return err
	}
	a.reload(ctx)
	return nil
}

// DeleteCollectionItem removes a request, or a group with everything below it.
func (a *App) DeleteCollectionItem(ctx context.Context, id int64) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	if err := a.collections.Delete(ctx, id); err != nil {
		return err
	}
	a.reload(ctx)
	return nil
}

// SetGlobalHeaders replaces the global headers.
func (a *App) SetGlobalHeaders(ctx context.Context, rows []core.HeaderEntry) ([]core.GlobalHeader, error) {
	if err := a.requireStore(); err != nil {
		return nil, err
	}
	return a.globals.Set(ctx, rows)
}

// Theme returns the selected theme.
func (a *App) Theme() theme.Theme {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.theme
}

// SetTheme selects and stores a built-in theme.
func (a *App) SetTheme(ctx context.Context, name string) (theme.Theme, error) {
	if err := a.requireStore(); err != nil {
		return theme.Theme{}, err
	}
	t, err := settings.SetTheme(ctx, a.store, name)
	if err != nil {
		return theme.Theme{}, err
	}
	a.mu.Lock()
	a.theme = t
	a.mu.Unlock()
	return t, nil
}

// Export returns a backup of every store.
func (a *App) Export(ctx context.Context) (*backup.Document, error) {
	if err := a.requireStore(); err != nil {
		return nil, err
	}
	return a.backups.Export(ctx)
}

// ExportFile writes a backup file into dir.
func (a *App) ExportFile(ctx context.Context, dir string) (string, int64, error) {
	if err := a.requireStore(); err != nil {
		return "", 0, err
	}
	return a.backups.ExportFile(ctx, dir)
}

// ReadBackup reads and validates a backup file without importing it.
func (a *App) ReadBackup(path string) (*backup.Document, error) {
	if err := a.requireStore(); err != nil {
		return nil, err
	}
	return a.backups.ReadFile(path)
}

// Import replaces every store with doc and reloads.
func (a *App) Import(ctx context.Context, doc *backup.Document) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	if err := a.backups.Import(ctx, doc); err != nil {
		return err
	}
	return a.LoadData(ctx)
}

// ImportFile imports the backup at path and reloads.
func (a *App) ImportFile(ctx context.Context, path string) (*backup.Document, error) {
	if err := a.requireStore(); err != nil {
		return nil, err
	}
	doc, err := a.backups.ImportFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return doc, a.LoadData(ctx)
}

// Cookies lists the stored cookies of credentialed requests.
func (a *App) Cookies(ctx context.Context) ([]cookies.Cookie, error) {
	if a.jar == nil {
		return nil, storage.ErrStorageUnavailable
	}
	return a.jar.List(ctx)
}

// ClearCookies removes the cookies of domain, or every cookie when domain is
// empty. Expired cookies are purged either way.
func (a *App) ClearCookies(ctx context.Context, domain string) (int, error) {
	if a.jar == nil {
		return 0, storage.ErrStorageUnavailable
	}
	if _, err := a.jar.DeleteExpired(ctx); err != nil {
		return 0, err
	}
	if domain != "" {
		return a.jar.ClearDomain(ctx, domain)
	}
	list, err := a.jar.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), a.jar.Clear(ctx)
}

func cloneDraft(d core.Draft) core.Draft {
	d.Headers = slices.Clone(d.Headers)
	d.QueryParams = slices.Clone(d.QueryParams)
	return d
}
