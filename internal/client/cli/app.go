package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/agriai/agrisync/internal/client/client"
	"github.com/agriai/agrisync/internal/client/config"
	"github.com/agriai/agrisync/internal/client/connectivity"
	"github.com/agriai/agrisync/internal/client/repositories/diagnoses"
	"github.com/agriai/agrisync/internal/client/repositories/metadata"
	"github.com/agriai/agrisync/internal/client/services"
	"github.com/agriai/agrisync/internal/client/session"
	"github.com/agriai/agrisync/internal/logging"
	"github.com/agriai/agrisync/internal/netx"
)

// App is the process-wide context object: it owns the database handle, the
// session, the connectivity monitor and the services built on them. It is
// created once at startup and closed on exit.
type App struct {
	config  *config.Config
	log     logging.Logger
	db      *sql.DB
	store   *diagnoses.SQLiteRepository
	session *session.Session
	monitor *connectivity.Monitor
	history *services.HistoryService
	predict *services.PredictionService
	deleter *services.DeletionService

	out            io.Writer
	reader         *bufio.Reader
	renderMarkdown func(string) (string, error)
}

// AppOption customizes NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	out        io.Writer
	in         io.Reader
	prober     connectivity.Prober
	httpClient *http.Client
}

// WithIO sets where commands print and read from.
func WithIO(out io.Writer, in io.Reader) AppOption {
	return func(o *appOptions) { o.out, o.in = out, in }
}

// WithProber replaces the network prober.
func WithProber(p connectivity.Prober) AppOption {
	return func(o *appOptions) { o.prober = p }
}

// WithHTTPClient replaces the HTTP client used for the remote API.
func WithHTTPClient(c *http.Client) AppOption {
	return func(o *appOptions) { o.httpClient = c }
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger, opts ...AppOption) (*App, error) {
	o := appOptions{out: os.Stdout, in: os.Stdin}
	for _, fn := range opts {
		fn(&o)
	}
	if log == nil {
		log = logging.Nop()
	}

	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DBPath, "error", err)
		return nil, err
	}

	sess, err := session.Load(ctx, metadata.NewSQLiteRepository(db))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	prober := o.prober
	switch {
	case prober != nil:
	case c.ForceOffline:
		prober = connectivity.NewStaticProber(false, false)
	default:
		addr, err := netx.HostPort(c.APIBaseURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("api base url: %w", err)
		}
		prober = connectivity.NetworkProber{Addr: addr}
	}
	monitor := connectivity.NewMonitor(prober, c.NetworkPollInterval, log.With("component", "connectivity"))

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: c.RequestTimeout}
	}
	remote, err := client.NewHTTPClient(c.APIBaseURL, sess, httpClient)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store := diagnoses.NewSQLiteRepository(db)
	history := services.NewHistoryService(store, remote, monitor, sess, log.With("component", "history"),
		services.WithFreshFor(c.HistoryFreshFor))
	predict := services.NewPredictionService(store, remote, monitor, sess, history, log.With("component", "prediction"),
		services.WithStubDelay(c.OfflineStubDelay))
	deleter := services.NewDeletionService(store, remote, monitor, sess, history, log.With("component", "deletion"))

	return &App{
		config:         c,
		log:            log,
		db:             db,
		store:          store,
		session:        sess,
		monitor:        monitor,
		history:        history,
		predict:        predict,
		deleter:        deleter,
		out:            o.out,
		reader:         bufio.NewReader(o.in),
		renderMarkdown: newMarkdownRenderer(),
	}, nil
}

// Start takes the first network sample and begins polling.
func (a *App) Start(ctx context.Context) {
	a.monitor.Start(ctx)
}

// Close stops background work and closes the database.
func (a *App) Close() error {
	a.monitor.Stop()
	a.history.Close()
	return a.db.Close()
}

func (a *App) promptStatus() string {
	s := ""
	if id := a.session.Identity(); id != "" {
		s = id + " "
	}
	if a.monitor.IsConnected() {
		s += string(connectivity.ModeOnline)
	} else {
		s += string(connectivity.ModeOffline)
	}
	return fmt.Sprintf("(%s)", s)
}
