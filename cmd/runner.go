package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrapectl/internal/models"
	"github.com/desertthunder/scrapectl/internal/repositories"
	"github.com/desertthunder/scrapectl/internal/services"
	"github.com/desertthunder/scrapectl/internal/shared"
	"github.com/desertthunder/scrapectl/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are wired on first use by connect, so commands that only touch local files never open the database.
type Runner struct {
	config     *shared.Config
	configPath string
	ephemeral  bool
	db         *sql.DB
	jar        *repositories.CookieJar
	session    models.SessionStore
	httpClient *http.Client
	api        *services.APIService
	client     *services.AuthenticatedClient
	auth       *services.AuthService
	scrape     *services.ScrapeService
	stream     *tasks.Stream
	bulk       *tasks.BulkSubmitter
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// When Session is set the services are wired immediately against it and HTTPClient.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Session    models.SessionStore
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if opts.Session != nil {
		r.wire(opts.Session, opts.HTTPClient)
	}
	return r
}

// Bootstrap loads the configuration named by the --config flag. A missing file leaves the defaults in place.
func (r *Runner) Bootstrap(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	r.ephemeral = cmd.Bool("ephemeral")

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	shared.SetLogLevel(r.logger, r.config.LogLevel())
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// Shutdown releases the database, if one was opened. The next connect reopens it.
func (r *Runner) Shutdown(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.jar, r.session = nil, nil, nil
	return err
}

// SetLogger replaces the logger used by services wired after the call.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// connect opens the local database and wires every service to it. Ephemeral runs keep the session in memory.
func (r *Runner) connect() error {
	if r.session != nil {
		return nil
	}
	if r.ephemeral {
		r.wire(repositories.NewMemorySessionStore(""), nil)
		return nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	jar, err := repositories.NewCookieJar(db, r.logger)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	r.db = db
	r.jar = jar
	r.wire(repositories.NewSessionRepository(db), &http.Client{Jar: jar, Timeout: r.config.Server.Timeout})
	return nil
}

func (r *Runner) wire(session models.SessionStore, client *http.Client) {
	if client == nil {
		jar, _ := cookiejar.New(nil)
		client = &http.Client{Jar: jar, Timeout: r.config.Server.Timeout}
	}

	r.session = session
	r.httpClient = client
	r.api = services.NewAPIService(r.config.Server.BaseURL, client)
	r.client = services.NewAuthenticatedClient(r.api, session, r.logger)
	r.auth = services.NewAuthService(r.api, r.client, session, r.logger)
	r.scrape = services.NewScrapeService(r.client, r.logger)
	r.stream = tasks.NewStream(r.api.BaseURL(), client, r.client, tasks.StreamOptionsFromConfig(r.config.Stream), r.logger)
	r.bulk = tasks.NewBulkSubmitter(r.scrape, r.logger)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, tasksCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
