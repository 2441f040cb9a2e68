// ABOUTME: Wires configuration, durable memory, completion, retrieval and SQL Server into one app
// ABOUTME: Every command that touches memory or the database opens an app and closes it when done
package commands

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/chat2db/internal/charm"
	"github.com/harper/chat2db/internal/config"
	"github.com/harper/chat2db/internal/core"
	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/executor"
	"github.com/harper/chat2db/internal/llm"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
	"github.com/harper/chat2db/internal/mssql"
	"github.com/harper/chat2db/internal/retrieval"
	"github.com/harper/chat2db/internal/sqlparse"
	"github.com/harper/chat2db/internal/storage"
)

// appOptions selects which collaborators a command needs
type appOptions struct {
	// requireCompleter fails the open when the completion service cannot be built
	requireCompleter bool
	// requireIndex fails the open when the retrieval index cannot be opened
	requireIndex bool
	// logFormat overrides the configured log format
	logFormat string
}

type app struct {
	cfg           *config.Config
	log           *logger.Logger
	backend       storage.Backend
	charm         *charm.Client
	schema        *storage.SchemaStore
	conversations *storage.ConversationStore
	users         *storage.UserRegistry
	index         *retrieval.Index
	connector     *mssql.Connector
	catalog       *mssql.Catalog
	mediator      *core.Mediator
	closers       []io.Closer
}

// openApp loads configuration and builds every collaborator
func openApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid configuration", err)
	}

	a := &app{cfg: cfg}
	a.log = newLogger(cmd, cfg, opts.logFormat)
	logger.SetGlobal(a.log)

	if err := a.openBackend(); err != nil {
		return nil, err
	}

	a.schema = storage.NewSchemaStore(a.backend, a.log)
	a.conversations = storage.NewConversationStore(a.backend, cfg.UserMemoryLimit, a.log)
	a.users = storage.NewUserRegistry(a.backend, a.log)

	completer, err := llm.NewCompleter(cfg)
	if err != nil {
		if opts.requireCompleter {
			a.Close()
			return nil, err
		}
		a.log.Debugf("completion service unavailable: %v", err)
		cause := err
		completer = llm.CompleterFunc(func(ctx context.Context, msgs []models.Message) (string, error) {
			return "", cause
		})
	}

	var retriever retrieval.Retriever = retrieval.Nop{}
	indexOpts := []retrieval.Option{
		retrieval.WithCandidates(cfg.RAGCandidates),
		retrieval.WithLogger(a.log),
	}
	if embedder, ok := completer.(llm.Embedder); ok {
		indexOpts = append(indexOpts, retrieval.WithEmbedder(embedder))
	}
	index, err := retrieval.Open(filepath.Join(cfg.DataDir, retrieval.IndexFile), indexOpts...)
	switch {
	case err == nil:
		a.index = index
		a.closers = append(a.closers, index)
		retriever = index
	case opts.requireIndex:
		a.Close()
		return nil, err
	default:
		a.log.WarnErr("retrieval index unavailable, continuing without it", err)
	}

	a.connector = mssql.NewConnector(mssql.ConnConfigFrom(cfg))
	a.closers = append(a.closers, a.connector)
	a.catalog = mssql.NewCatalog(a.connector)

	analyzer := sqlparse.New()
	assembler := core.NewAssembler(a.schema, a.conversations, a.users,
		core.WithRetriever(retriever),
		core.WithTokenBudget(cfg.TokenBudget, retrieval.ApproxTokens),
		core.WithAssemblerLogger(a.log),
	)
	a.mediator = core.NewMediator(core.MediatorConfig{
		Assembler:     assembler,
		Completer:     completer,
		Engine:        executor.NewEngine(a.connector, analyzer, a.log),
		Synchronizer:  core.NewSynchronizer(analyzer, a.schema, a.conversations, a.log),
		Conversations: a.conversations,
		Schema:        a.schema,
		Databases:     a.catalog,
		Logger:        a.log,
	})

	return a, nil
}

func (a *app) openBackend() error {
	switch a.cfg.MemoryBackend {
	case config.BackendCharm:
		charmCfg := charm.DefaultConfig()
		if a.cfg.CharmHost != "" {
			charmCfg.Host = a.cfg.CharmHost
		}
		charmCfg.DBName = a.cfg.CharmDBName
		client, err := charm.NewClient(charmCfg)
		if err != nil {
			return errs.Wrap(errs.ErrKindPersistence, "failed to connect to Charm", err)
		}
		a.charm = client
		a.backend = client
		a.closers = append(a.closers, client)
	default:
		fb, err := storage.NewFileBackend(a.cfg.DataDir)
		if err != nil {
			return errs.Wrap(errs.ErrKindPersistence, "failed to open data directory", err)
		}
		a.backend = fb
	}
	return nil
}

// Close releases everything the app opened, newest first
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.log != nil {
			a.log.WarnErr("error during shutdown", err)
		}
	}
	a.closers = nil
}

// currentUser resolves --user against the registry
func (a *app) currentUser() (models.User, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return models.User{}, errs.New(errs.ErrKindInvalidInput, "no user selected: pass --user or set CHAT2DB_USER")
	}
	u, err := a.users.Lookup(name)
	if err != nil {
		return models.User{}, err
	}
	return *u, nil
}

// currentAdmin is currentUser restricted to admins
func (a *app) currentAdmin() (models.User, error) {
	u, err := a.currentUser()
	if err != nil {
		return u, err
	}
	if !u.IsAdmin() {
		return u, errs.Newf(errs.ErrKindInvalidInput, "user %s is not an admin", u.Username)
	}
	return u, nil
}

// newLogger builds the process logger from config and the verbosity flags
func newLogger(cmd *cobra.Command, cfg *config.Config, format string) *logger.Logger {
	level := cfg.LogLevel
	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "error"
	}
	if format == "" {
		format = cfg.LogFormat
	}
	return logger.New(&logger.Config{
		Level:  level,
		Format: format,
		Output: cmd.ErrOrStderr(),
	})
}
