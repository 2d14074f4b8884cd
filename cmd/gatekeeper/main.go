package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	gate "github.com/goliatone/go-auth-gate"
	"github.com/goliatone/go-auth-gate/activitymap"
	"github.com/goliatone/go-auth-gate/internal/config"
	"github.com/goliatone/go-auth-gate/internal/shell"
	"github.com/goliatone/go-auth-gate/provider/gotrue"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

//go:embed data/fixtures/*.yml
var fixturesFS embed.FS

type App struct {
	config   config.Config
	logger   *glog.BaseLogger
	bunDB    *bun.DB
	users    gate.Users
	provider *gotrue.Client
	machine  *gate.Machine
	history  *gate.History
	notices  *gate.NoticeBoard
	srv      router.Server[*fiber.App]
}

func (a *App) SetDB(db *bun.DB) {
	a.bunDB = db
}

func (a *App) SetLogger(lgr *glog.BaseLogger) *App {
	a.logger = lgr
	return a
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) SetHTTPServer(srv router.Server[*fiber.App]) {
	a.srv = srv
}

func main() {

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("gatekeeper"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybeSecureJSON(cfg))
		fmt.Println("============")
	}

	app := &App{config: cfg}
	app.SetLogger(lgr)

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		log.Fatal(err)
	}

	if err := WithIdentityProvider(ctx, app); err != nil {
		log.Fatal(err)
	}

	if err := WithGate(ctx, app); err != nil {
		log.Fatal(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := app.srv.Serve(cfg.HTTPAddr); err != nil {
			app.GetLogger("app").Error("http server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	app.GetLogger("app").Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		app.GetLogger("app").Error("shutdown http server", "error", err)
	}

	if err := app.machine.Close(); err != nil {
		app.GetLogger("app").Error("close gate", "error", err)
	}
	app.provider.Close()
	if err := app.bunDB.Close(); err != nil {
		app.GetLogger("app").Error("close database", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.config.Persistence

	db, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*gate.User)(nil))

	client, err := persistence.New(cfg, db, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(gate.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	if cfg.Seed {
		client.RegisterFixtures(fixturesFS).AddOptions(persistence.WithTrucateTables())
		if err := client.Seed(ctx); err != nil {
			return err
		}
	}

	if report := client.Report(); report != nil && !report.IsZero() {
		app.GetLogger("persistence").Info("migrations applied", "report", report.String())
	}

	app.SetDB(client.DB())
	app.users = gate.NewUsersRepository(client.DB(),
		gate.WithUsersDefaultRole(gate.Role(app.config.DefaultRole)),
	)

	return nil
}

func WithIdentityProvider(_ context.Context, app *App) error {
	client, err := gotrue.New(gotrue.Config{
		BaseURL: app.config.IdentityURL,
		APIKey:  app.config.IdentityAPIKey,
		JWKSURL: app.config.JWKSURL,
		Logger:  app.GetLogger("gotrue"),
	})
	if err != nil {
		return err
	}

	app.provider = client
	return nil
}

func WithGate(ctx context.Context, app *App) error {
	routes := gate.DefaultRouteTable()

	app.history = gate.NewHistory(gate.PathRoot)
	app.notices = gate.NewNoticeBoard(0)

	runner := gate.NewEffectRunner(app.history, app.notices).
		WithLogger(app.GetLogger("effects"))

	store := gate.NewStore(
		gate.WithStoreEffectRunner(runner),
		gate.WithStoreRouteTable(routes),
		gate.WithStoreLogger(app.GetLogger("store")),
	)

	activity := app.GetLogger("activity")

	app.machine = gate.NewMachine(app.provider, app.users, store, app.history).
		WithLogger(app.GetLogger("gate")).
		WithRouteTable(routes).
		WithOrigin(app.config.Origin).
		WithPhoneRegion(app.config.PhoneRegion).
		WithOperationTimeout(app.config.OperationTimeout).
		WithOAuthTimeout(app.config.OAuthTimeout).
		WithProvisioner(app.users).
		WithProfileWriter(app.users).
		WithActivitySink(activitymap.Sink(func(record activitymap.Record) error {
			activity.Info("auth activity",
				"verb", record.Verb,
				"actor_id", record.ActorID,
				"object_id", record.ObjectID,
				"metadata", record.Metadata,
			)
			return nil
		}))

	app.machine.Start()

	if err := app.machine.Initialize(ctx); err != nil {
		app.GetLogger("gate").Warn("initial session check failed", "error", err)
	}

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: app.config.Debug,
			StrictRouting:     false,
		}))
	})

	controller := shell.NewController(app.machine, app.history, app.notices,
		shell.WithLogger(app.GetLogger("shell")),
		shell.WithSessionAdopter(app.provider),
		shell.WithDebug(app.config.Debug),
	)
	controller.RegisterRoutes(srv.Router())

	app.SetHTTPServer(srv)

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
