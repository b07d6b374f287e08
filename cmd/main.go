package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pot-code/progress-engine/internal/catalog"
	"github.com/pot-code/progress-engine/internal/course"
	"github.com/pot-code/progress-engine/internal/dashboard"
	"github.com/pot-code/progress-engine/internal/domain"
	infra "github.com/pot-code/progress-engine/internal/infrastructure"
	"github.com/pot-code/progress-engine/internal/infrastructure/driver"
	"github.com/pot-code/progress-engine/internal/infrastructure/logging"
	"github.com/pot-code/progress-engine/internal/infrastructure/uuid"
	ihttp "github.com/pot-code/progress-engine/internal/interfaces/http"
	"github.com/pot-code/progress-engine/internal/lesson"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	logger = logger.With(
		zap.String("service.id", option.AppID),
	)
	defer logger.Sync()

	var (
		dbConn       driver.ITransactionalDB
		upstream     domain.CatalogGateway
		progressRepo domain.LessonProgressRepository
	)
	if option.Database.Driver == infra.DriverMemory {
		logger.Warn("Running on the in-memory store, progress is lost on exit")
		upstream = catalog.NewCatalogMemory()
		progressRepo = lesson.NewLessonMemory()
	} else {
		dbConn, err = driver.GetDBConnection(&driver.DBConfig{
			User:     option.Database.User,
			Password: option.Database.Password,
			MaxConn:  option.Database.MaxConn,
			Protocol: option.Database.Protocol,
			Driver:   option.Database.Driver,
			Host:     option.Database.Host,
			Port:     option.Database.Port,
			Query:    option.Database.Query,
			Schema:   option.Database.Schema,
		})
		if err != nil {
			logger.Fatal("Failed to create DB connection", zap.Error(err))
		}
		defer dbConn.Close(context.Background())
		logger.Debug("Create db connection instance", zap.String("db.driver", option.Database.Driver),
			zap.String("db.schema", option.Database.Schema),
			zap.String("db.host", option.Database.Host),
			zap.Any("config", option.Database),
		)
		upstream = catalog.NewCatalogSQL(dbConn)
		progressRepo = lesson.NewLessonSQL(dbConn)
	}

	var kv driver.KeyValueDB
	if option.KVStore.Host != "" {
		rdb := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password)
		defer rdb.Close()
		if err := rdb.Ping(); err != nil {
			logger.Fatal("Failed to reach kv store", zap.Error(err), zap.String("kv.host", option.KVStore.Host))
		}
		kv = rdb
	} else {
		kv = driver.NewMemoryKV()
	}

	CatalogCache := catalog.NewCatalogCache(upstream, kv, option.KVStore.CatalogTTL)
	UUIDGenerator := uuid.NewNanoIDGenerator(option.Security.IDLength, uuid.ProgressAlphabet)

	LessonUseCase := lesson.NewLessonUseCase(progressRepo, CatalogCache, UUIDGenerator, progressPolicy(option))
	CourseUseCase := course.NewCourseUseCase(progressRepo, CatalogCache)
	DashboardUseCase := dashboard.NewRanker(progressRepo, CatalogCache, option.Dashboard.MaxParallel)

	app := ihttp.NewApp(&ihttp.Dependencies{
		Conn:             dbConn,
		KV:               kv,
		Catalog:          CatalogCache,
		CatalogCache:     CatalogCache,
		LessonUseCase:    LessonUseCase,
		CourseUseCase:    CourseUseCase,
		DashboardUseCase: DashboardUseCase,
	}, option, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := ihttp.Serve(ctx, app, option, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
}

// progressPolicy heartbeat reconciliation constants from the progress section
func progressPolicy(option *infra.AppConfig) lesson.Policy {
	return lesson.Policy{
		CompletionThreshold: option.Progress.CompletionThreshold,
		RewindTolerance:     option.Progress.RewindTolerance,
		SkewTolerance:       option.Progress.SkewTolerance,
		DurationTolerance:   option.Progress.DurationTolerance,
	}
}
