package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/erp/ledger/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

type command struct {
	usage string
	help  string
	// needsDB commands get an open migrator; the rest only touch files
	needsDB bool
	run     func(env *cliEnv, args []string) error
}

type cliEnv struct {
	log  *zap.Logger
	path string
	m    *migration.Migrator
}

var errUsage = errors.New("bad arguments")

var commands = map[string]command{
	"up": {
		usage: "up", help: "Apply all pending migrations", needsDB: true,
		run: func(env *cliEnv, _ []string) error { return env.m.Up() },
	},
	"down": {
		usage: "down", help: "Roll back all migrations", needsDB: true,
		run: func(env *cliEnv, _ []string) error { return env.m.Down() },
	},
	"step": {
		usage: "step <n>", help: "Apply n migrations (negative rolls back)", needsDB: true,
		run: func(env *cliEnv, args []string) error {
			n, err := intArg(args)
			if err != nil {
				return err
			}
			return env.m.Steps(n)
		},
	},
	"goto": {
		usage: "goto <version>", help: "Migrate to a specific version", needsDB: true,
		run: func(env *cliEnv, args []string) error {
			if len(args) < 1 {
				return errUsage
			}
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("%w: version %q", errUsage, args[0])
			}
			return env.m.GoTo(uint(v))
		},
	},
	"version": {
		usage: "version", help: "Show the applied migration version", needsDB: true,
		run: func(env *cliEnv, _ []string) error {
			v, dirty, err := env.m.Version()
			if err != nil {
				return err
			}
			if v == 0 {
				env.log.Info("No migrations applied")
				return nil
			}
			env.log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
			return nil
		},
	},
	"force": {
		usage: "force <version>", help: "Mark a version clean without running it", needsDB: true,
		run: func(env *cliEnv, args []string) error {
			v, err := intArg(args)
			if err != nil {
				return err
			}
			return env.m.Force(v)
		},
	},
	"create": {
		usage: "create <name> [desc]", help: "Scaffold the next numbered up/down pair",
		run: func(env *cliEnv, args []string) error {
			if len(args) < 1 {
				return errUsage
			}
			dir := env.path
			if dir == "" {
				dir = defaultMigrationsDir
			}
			var desc string
			if len(args) > 1 {
				desc = args[1]
			}
			pair, err := migration.Scaffold(dir, args[0], desc)
			if err != nil {
				return err
			}
			env.log.Info("Migration created",
				zap.String("version", pair.Version),
				zap.String("up_file", pair.UpPath),
				zap.String("down_file", pair.DownPath),
			)
			return nil
		},
	},
	"list": {
		usage: "list", help: "List available migrations",
		run: func(env *cliEnv, _ []string) error {
			var fsys fs.FS = migrations.FS
			if env.path != "" {
				fsys = os.DirFS(env.path)
			}
			names, err := migration.List(fsys)
			if err != nil {
				return err
			}
			env.log.Info("Available migrations", zap.Int("count", len(names)))
			for _, n := range names {
				fmt.Println("  -", n)
			}
			return nil
		},
	},
}

// order of the usage listing
var commandOrder = []string{"up", "down", "step", "goto", "version", "force", "create", "list"}

func intArg(args []string) (int, error) {
	if len(args) < 1 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[0])
	}
	return n, nil
}

func main() {
	path := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	name, rest := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	env := &cliEnv{log: log, path: *path}
	log.Info("Migration CLI started", zap.String("command", name), zap.String("source", env.source()))

	if cmd.needsDB {
		closeFn, err := env.openMigrator()
		if err != nil {
			log.Fatal("Failed to prepare migrator", zap.Error(err))
		}
		defer closeFn()
	}

	if err := cmd.run(env, rest); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\nusage: migrate %s\n", err, cmd.usage)
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

func (env *cliEnv) source() string {
	if env.path == "" {
		return "embedded"
	}
	return env.path
}

// openMigrator connects with the service's database settings
func (env *cliEnv) openMigrator() (func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("migrations only run against postgres, got %q", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	source := migration.WithFS(migrations.FS)
	if env.path != "" {
		abs, err := filepath.Abs(env.path)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("resolve %s: %w", env.path, err)
		}
		source = migration.WithPath(abs)
	}

	m, err := migration.New(db, env.log, source)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	env.m = m
	return func() {
		if err := m.Close(); err != nil {
			env.log.Warn("Closing migrator", zap.Error(err))
		}
	}, nil
}

func printUsage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Ledger database migration tool")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage: migrate [flags] <command> [arguments]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, name := range commandOrder {
		c := commands[name]
		fmt.Fprintf(out, "  %-22s%s\n", c.usage, c.help)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Database settings come from LEDGER_DATABASE_* environment variables.")
}
