package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/internal/export"
	"github.com/Koyo-os/form-builder/internal/repository"
	"github.com/Koyo-os/form-builder/internal/service"
	"github.com/Koyo-os/form-builder/pkg/closer"
	"github.com/Koyo-os/form-builder/pkg/config"
	"github.com/Koyo-os/form-builder/pkg/eventbus"
	"github.com/Koyo-os/form-builder/pkg/health"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/Koyo-os/form-builder/pkg/retrier"
	"github.com/Koyo-os/form-builder/pkg/transport/casher"
	"github.com/Koyo-os/form-builder/pkg/transport/listener"
	"github.com/Koyo-os/form-builder/pkg/transport/publisher"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	appName      = "formbuilder"
	cashTimeout  = 2 * time.Second
	eventBacklog = 64
)

type app struct {
	service *service.Service
	health  *health.HealthChecker
	closer  *closer.CloserGroup
	dates   *export.Exporter
	logger  *logger.Logger
	out     io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	configPath := flags.StringP("config", "c", "config.yaml", "path to the YAML config file")
	flags.Usage = func() { usage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if flags.NArg() == 0 {
		usage(stderr, flags)
		return 2
	}

	cfg, err := config.Init(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error init config: %v\n", err)
		return 1
	}

	if err = logger.Init(logger.Config{
		LogFile:   cfg.Log.File,
		LogLevel:  cfg.Log.Level,
		AppName:   appName,
		AddCaller: true,
	}); err != nil {
		fmt.Fprintf(stderr, "error init logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	log := logger.Get()

	db, err := repository.Open(cfg.Storage.Driver, cfg.Storage.DSN, cfg.Storage.Namespace)
	if err != nil {
		log.Error("error open storage",
			zap.String("driver", cfg.Storage.Driver),
			zap.Error(err))
		fmt.Fprintf(stderr, "error open storage: %v\n", err)
		return 1
	}

	a, err := assemble(ctx, db, cfg, log, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "error start: %v\n", err)
		return 1
	}
	defer func() {
		if err := a.closer.Close(); err != nil {
			log.Error("error close resources", zap.Error(err))
		}
	}()

	if err = a.dispatch(ctx, flags.Arg(0), flags.Args()[1:]); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	return 0
}

// assemble wires the gateway over db. The cache and the broker are connected
// only when their URL is set and are skipped with a warning when unreachable.
func assemble(ctx context.Context, db *gorm.DB, cfg *config.Config, log *logger.Logger, out io.Writer) (*app, error) {
	a := &app{
		closer: closer.NewCloserGroup(),
		health: health.NewHealthChecker(log),
		logger: log,
		out:    out,
	}

	repo := repository.Init(db, log)
	a.closer.Add(repo)
	a.health.Register("storage", repo)

	if err := repo.Migrate(); err != nil {
		_ = a.closer.Close()
		return nil, fmt.Errorf("migrate storage: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		_ = a.closer.Close()
		return nil, fmt.Errorf("export timezone: %w", err)
	}
	a.dates = export.New(cfg.Export.DateLayout, loc)

	var cash service.Casher
	if c := connectCash(ctx, cfg, log); c != nil {
		cash = c
		a.closer.Add(c)
		a.health.Register("cache", c)
	}

	bus := eventbus.New(log)
	bus.SubscribeAll(func(e entity.Event) {
		log.Debug("event raised",
			zap.String("event_type", e.Type),
			zap.String("event_id", e.ID))
	})

	if p := connectBroker(cfg, log); p != nil {
		a.closer.Add(p)
		a.health.Register("broker", p)

		forwarder := listener.Init(eventBacklog, p.PublishEvent, log)
		go forwarder.Listen(context.WithoutCancel(ctx))
		bus.SubscribeAll(forwarder.Enqueue)
		a.closer.Add(forwarder)
	}

	a.service = service.Init(cash, repo, bus, a.dates, log, cashTimeout)
	return a, nil
}

func connectCash(ctx context.Context, cfg *config.Config, log *logger.Logger) *casher.Casher {
	if cfg.Urls.Redis == "" {
		return nil
	}

	client, err := retrier.Connect(cfg.Retry.Count, cfg.Retry.Interval, func() (*redis.Client, error) {
		client, err := casher.NewClient(cfg.Urls.Redis)
		if err != nil {
			return nil, err
		}
		if err = client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, err
		}
		return client, nil
	})
	if err != nil {
		log.Warn("cache unavailable, reading forms from storage only", zap.Error(err))
		return nil
	}

	return casher.Init(client, log, 0)
}

func connectBroker(cfg *config.Config, log *logger.Logger) *publisher.Publisher {
	if cfg.Urls.Rabbitmq == "" {
		return nil
	}

	conn, err := retrier.Connect(cfg.Retry.Count, cfg.Retry.Interval, func() (*amqp.Connection, error) {
		return amqp.Dial(cfg.Urls.Rabbitmq)
	})
	if err != nil {
		log.Warn("broker unavailable, events stay in process", zap.Error(err))
		return nil
	}

	p, err := publisher.Init(cfg, log, conn)
	if err != nil {
		log.Warn("broker unavailable, events stay in process", zap.Error(err))
		return nil
	}

	return p
}

func usage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, `Usage: %s [--config path] <command> [args]

Commands:
  list                          list stored forms
  import <file.json>            validate and save a form
  show <form-id>                print the questions of a form
  submit <form-id> [flags]      submit a response (--answer id=value, --file answers.json)
  stats <form-id> --pin PIN     print response statistics
  export <form-id> --pin PIN    write the responses as CSV
  delete <form-id> --pin PIN    delete a form
  health                        check storage, cache and broker

Flags:
`, appName)
	flags.PrintDefaults()
}
