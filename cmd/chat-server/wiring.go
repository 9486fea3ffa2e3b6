package main

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"botforge/internal/api"
	"botforge/internal/chatbot/conversation"
	"botforge/internal/chatbot/intent"
	"botforge/internal/chatbot/pipeline"
	"botforge/internal/chatbot/profile"
	"botforge/internal/chatbot/quickreplies"
	"botforge/internal/chatbot/speech"
	"botforge/internal/chatbot/speech/vosk"
	"botforge/internal/chatbot/store"
	"botforge/internal/chatbot/templates"
	"botforge/internal/common/camunda"
	"botforge/internal/common/config"
	"botforge/internal/common/database"
	"botforge/internal/common/logger"
	"botforge/internal/common/observability"
	chatreply "botforge/internal/workers/conversation/chat-reply"
	transcribeaudio "botforge/internal/workers/conversation/transcribe-audio"
	"botforge/pkg/registry"
)

// application owns every long-lived resource so shutdown can release them in order.
type application struct {
	service   *pipeline.Service
	readiness map[string]api.ReadinessCheck

	sql      *database.SQLClient
	redis    *database.RedisClient
	async    *conversation.AsyncLogger
	pool     *speech.RecognizerPool
	zeebe    *camunda.Client
	workers  []*camunda.CamundaWorker
	speechOn bool
}

func build(ctx context.Context, cfg *config.Config, obs *observability.Observability, log logger.Logger) (*application, error) {
	app := &application{readiness: map[string]api.ReadinessCheck{}}

	pack, err := loadContent(cfg.Content)
	if err != nil {
		return nil, err
	}
	builtin := registry.NewMemoryStore(pack)

	var (
		provider       profile.Provider = builtin
		templateSource                  = []templates.Source{builtin}
		replySources                    = []quickreplies.Source{builtin}
	)

	if cfg.Database.Driver != "memory" {
		err = retryWithBackoff(func() error {
			client, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			if err := client.Ping(ctx); err != nil {
				_ = client.Close()
				return err
			}
			app.sql = client
			return nil
		}, 15, 2*time.Second, log, "content store connection")
		if err != nil {
			return nil, err
		}
		app.readiness["store"] = app.sql.Ping

		sqlStore := store.NewSQLStore(app.sql, log)
		if err := sqlStore.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate content store: %w", err)
		}
		provider = profile.Chain{sqlStore, builtin}
		templateSource = []templates.Source{sqlStore, builtin}
		replySources = []quickreplies.Source{sqlStore, builtin}
	}

	if cfg.ProfileCache.Enabled {
		app.redis = database.NewRedis(cfg.Database.Redis)
		if err := retryWithBackoff(func() error { return app.redis.Ping(ctx) }, 10, 2*time.Second, log, "Redis connection"); err != nil {
			return nil, err
		}
		app.readiness["redis"] = app.redis.Ping
		provider = profile.NewCachedProvider(provider, app.redis.Client,
			time.Duration(cfg.ProfileCache.TTL)*time.Second, cfg.ProfileCache.Prefix, log)
	}

	keywordSets := lo.Map(pack.Keywords, func(r registry.KeywordRule, _ int) intent.KeywordSet {
		return intent.KeywordSet{Intent: r.Intent, Keywords: r.Keywords}
	})
	strategy, err := intent.NewStrategy(cfg.Intent, keywordSets)
	if err != nil {
		return nil, err
	}
	log.Info("intent strategy loaded", map[string]interface{}{"strategy": strategy.Name()})

	templateResolver, err := templates.NewResolver(ctx, log, templateSource...)
	if err != nil {
		return nil, err
	}

	replyResolver, err := quickreplies.NewResolver(log, pack.Exclusions, replySources...)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Dependencies{
		Classifier:   intent.NewClassifier(strategy, log),
		Profiles:     profile.NewResolver(provider, log),
		Templates:    templateResolver,
		QuickReplies: replyResolver,
		Observer:     obs,
	}

	if cfg.Speech.Enabled {
		engine, err := vosk.NewEngine(cfg.Speech.ModelPath)
		if err != nil {
			return nil, err
		}
		app.pool = speech.NewRecognizerPool(engine, cfg.Speech.Workers, log)
		deps.Transcriber = speech.NewTranscriber(speech.NewDecoder(cfg.Speech, log), app.pool, cfg.Speech, log)
		app.speechOn = true
	}

	convo, err := app.buildConversation(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	deps.Conversation = convo

	app.service = pipeline.NewService(deps, cfg.Pipeline, cfg.Conversation.HistoryLimit, log)
	return app, nil
}

// loadContent merges the optional content pack over the built-in defaults.
func loadContent(cfg config.ContentConfig) (*registry.ContentPack, error) {
	pack := registry.DefaultPack()
	if cfg.PackPath == "" {
		return pack, nil
	}
	overlay, err := registry.LoadPack(cfg.PackPath)
	if err != nil {
		return nil, fmt.Errorf("load content pack: %w", err)
	}
	return registry.Merge(pack, overlay), nil
}

func (app *application) buildConversation(ctx context.Context, cfg *config.Config, log logger.Logger) (conversation.Logger, error) {
	switch cfg.Conversation.Sink {
	case "elasticsearch":
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
		if err != nil {
			return nil, err
		}
		sink := conversation.NewElasticLogger(es.Client, cfg.Conversation.Index, log)
		if err := retryWithBackoff(func() error { return sink.EnsureIndex(ctx) }, 15, 2*time.Second, log, "Elasticsearch index setup"); err != nil {
			return nil, err
		}
		app.readiness["elasticsearch"] = es.Ping
		app.async = conversation.NewAsyncLogger(sink, cfg.Conversation.QueueSize, log)
		return app.async, nil
	case "memory":
		return conversation.NewMemoryLogger(cfg.Conversation.HistoryLimit), nil
	default:
		return conversation.NopLogger{}, nil
	}
}

func (app *application) startWorkers(cfg *config.Config, log logger.Logger) {
	if !cfg.Camunda.Enabled {
		return
	}

	err := retryWithBackoff(func() error {
		client, err := camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
		if err != nil {
			return err
		}
		app.zeebe = client
		return nil
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		log.Error("workflow workers disabled", map[string]interface{}{"error": err})
		return
	}
	app.readiness["zeebe"] = app.zeebe.HealthCheck

	if config.IsWorkerEnabled(cfg, chatreply.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, chatreply.TaskType)
		handler, err := chatreply.NewHandler(&chatreply.Config{Timeout: config.GetDuration(wcfg.Timeout)}, app.service, log)
		if err != nil {
			log.Error("failed to create chat-reply handler", map[string]interface{}{"error": err})
		} else {
			app.workers = append(app.workers, camunda.NewWorker(app.zeebe.GetClient(), chatreply.TaskType,
				wcfg.MaxJobsActive, config.GetDuration(wcfg.Timeout), handler, log))
		}
	}

	if app.speechOn && config.IsWorkerEnabled(cfg, transcribeaudio.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, transcribeaudio.TaskType)
		handler, err := transcribeaudio.NewHandler(&transcribeaudio.Config{
			Timeout:       config.GetDuration(wcfg.Timeout),
			MaxAudioBytes: int(cfg.Server.MaxUploadBytes),
		}, app.service, log)
		if err != nil {
			log.Error("failed to create transcribe-audio handler", map[string]interface{}{"error": err})
		} else {
			app.workers = append(app.workers, camunda.NewWorker(app.zeebe.GetClient(), transcribeaudio.TaskType,
				wcfg.MaxJobsActive, config.GetDuration(wcfg.Timeout), handler, log))
		}
	}

	log.Info("workflow workers registered", map[string]interface{}{"count": len(app.workers)})
}

// close releases resources in reverse dependency order.
func (app *application) close(ctx context.Context, log logger.Logger) {
	for _, w := range app.workers {
		w.Stop()
	}
	if app.zeebe != nil {
		if err := app.zeebe.Close(); err != nil {
			log.Error("Error closing Zeebe client", map[string]interface{}{"error": err})
		}
	}
	if app.async != nil {
		if err := app.async.Close(ctx); err != nil {
			log.Warn("conversation log flush incomplete", map[string]interface{}{"error": err})
		}
	}
	if app.pool != nil {
		_ = app.pool.Close()
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.sql != nil {
		_ = app.sql.Close()
	}
}
