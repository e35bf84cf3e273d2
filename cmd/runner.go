package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jitdj/internal/queue"
	"github.com/desertthunder/jitdj/internal/repositories"
	"github.com/desertthunder/jitdj/internal/services"
	"github.com/desertthunder/jitdj/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// tokenSource is implemented by services whose OAuth2 token may be refreshed during a run.
type tokenSource interface {
	Token() (*oauth2.Token, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	service    services.Service
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Service and DB are built lazily from the config when left nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Service    services.Service
	DB         *sql.DB
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		service:    opts.Service,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		playCommand, resolveCommand, statusCommand, journalCommand, cacheCommand, sessionsCommand, authCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Load reads the config file named by --config before any command runs. A missing file keeps the defaults.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	if cmd.Bool("verbose") || r.config.Debug {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// spotify returns the configured service, authenticating a Spotify client on first use.
func (r *Runner) spotify(ctx context.Context) (services.Service, error) {
	if r.service != nil {
		return r.service, nil
	}

	creds := r.config.Credentials.Spotify
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	svc, err := services.NewSpotifyService(creds.Map(), services.SpotifyOpts{
		DeviceID:  creds.DeviceID,
		Timeout:   time.Duration(creds.RequestTimeout) * time.Second,
		RateLimit: creds.RateLimit,
		Logger:    shared.WithLogger(r.logger, "component", "spotify"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}
	if err := svc.Authenticate(ctx, creds.Token()); err != nil {
		return nil, err
	}

	r.service = svc
	return svc, nil
}

// database opens the configured database and runs pending migrations on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// resolver wraps svc with the sqlite resolution cache. Without a database the service is used directly.
func (r *Runner) resolver(svc services.Service, useCache bool) queue.Resolver {
	if !useCache {
		return svc
	}

	db, err := r.database()
	if err != nil {
		r.logger.Warn("resolution cache unavailable", "err", err)
		return svc
	}
	return repositories.NewCachingResolver(
		repositories.NewResolutionRepository(db),
		svc,
		shared.WithLogger(r.logger, "component", "cache"),
	)
}

// persistToken writes a refreshed access token back to the config file.
func (r *Runner) persistToken() {
	ts, ok := r.service.(tokenSource)
	if !ok || r.configPath == "" {
		return
	}

	token, err := ts.Token()
	if err != nil {
		r.logger.Warn("could not read refreshed token", "err", err)
		return
	}
	if token.AccessToken == r.config.Credentials.Spotify.AccessToken {
		return
	}
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		r.logger.Warn("could not update token", "err", err)
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("could not save refreshed token", "err", err)
		return
	}
	r.logger.Debug("refreshed token saved", "path", r.configPath)
}

// Close releases the database handle, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
