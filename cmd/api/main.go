// Command api runs the space-todo server and its maintenance commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/joho/godotenv/autoload"

	"github.com/Tomlord1122/space-todo/internal/cache"
	"github.com/Tomlord1122/space-todo/internal/config"
	"github.com/Tomlord1122/space-todo/internal/database"
	"github.com/Tomlord1122/space-todo/internal/events"
	"github.com/Tomlord1122/space-todo/internal/logger"
	"github.com/Tomlord1122/space-todo/internal/repository"
	"github.com/Tomlord1122/space-todo/internal/service"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:          "space-todo",
	Short:        "Spaces, lists and reusable tasks",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("TODO_CONFIG"), "Path to a TOML config file")
}

// loadConfig reads the configuration and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Setup(os.Stdout, cfg.LogLevel)
	return cfg, nil
}

// app is the infrastructure shared by serve and seed.
type app struct {
	cfg       *config.Config
	db        database.Service
	cache     cache.Cache
	publisher events.Publisher
	redis     *cache.Redis
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db, cache: cache.Nop{}, publisher: events.Nop{}}

	if cfg.Redis.URL != "" {
		r, err := cache.NewRedis(ctx, cfg.Redis.URL, cfg.Redis.PoolSize, cfg.Redis.TTL.Duration)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = r
		a.cache = r
	}

	if len(cfg.Kafka.Brokers) > 0 {
		events.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		a.publisher = events.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}
	return a, nil
}

type services struct {
	spaces service.SpaceService
	tasks  service.TaskService
	todos  service.TodoService
	users  service.UserService
}

func (a *app) services() services {
	gormDB := a.db.GetDB()

	spaceRepo := repository.NewGormSpaceRepository(gormDB)
	listRepo := repository.NewGormListRepository(gormDB)
	taskRepo := repository.NewGormTaskRepository(gormDB)
	todoRepo := repository.NewGormTodoRepository(gormDB)
	userRepo := repository.NewGormUserRepository(gormDB)

	return services{
		spaces: service.NewSpaceService(spaceRepo, listRepo),
		tasks:  service.NewTaskService(taskRepo, spaceRepo, a.cache, a.publisher),
		todos:  service.NewTodoService(todoRepo, listRepo, a.publisher),
		users:  service.NewUserService(userRepo),
	}
}

// Close flushes the publisher and closes the connection pools.
func (a *app) Close(ctx context.Context) {
	if err := a.publisher.Close(); err != nil {
		logger.Error(ctx, "Error closing event publisher", "error", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Error(ctx, "Error closing redis client", "error", err)
		}
	}
	logger.Info(ctx, "Closing database connection pool...")
	if err := a.db.Close(); err != nil {
		logger.Error(ctx, "Error closing database connection pool", "error", err)
		return
	}
	logger.Info(ctx, "Database connection pool closed.")
}
