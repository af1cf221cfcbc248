package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"call-insights/internal/agents"
	"call-insights/internal/audit"
	"call-insights/internal/auth"
	"call-insights/internal/blob"
	"call-insights/internal/calls"
	"call-insights/internal/chat"
	"call-insights/internal/config"
	"call-insights/internal/httpapi"
	"call-insights/internal/llm"
	"call-insights/internal/memory"
	"call-insights/internal/pipeline"
	"call-insights/internal/questions"
	"call-insights/internal/reporting"
	"call-insights/internal/sanitize"
	"call-insights/internal/transcription"
	"call-insights/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// transcriptionPrompt biases the speech model towards support-call vocabulary.
const transcriptionPrompt = "Customer support phone call between a Responder and a Caller. " +
	"Account numbers, router, modem, billing, new connection, technical support."

const transcriptionCapKey = "cap:transcription"

// app holds the composed services. Nothing here is global.
type app struct {
	db *sql.DB

	users      auth.UserRepository
	calls      *calls.Service
	questions  *questions.Service
	chat       *chat.Service
	reports    *reporting.Service
	audit      *audit.Service
	blobs      blob.Store
	dispatcher *pipeline.Dispatcher
}

func newApp(ctx, jobsCtx context.Context, cfg config.Config, db *sql.DB, rdb *redis.Client, store blob.Store) (*app, error) {
	prompts, err := agents.LoadPrompts(cfg.App.PromptsFile)
	if err != nil {
		return nil, err
	}

	general, err := newLLMClient(ctx, cfg.LLM, cfg.LLM.GeneralModel)
	if err != nil {
		return nil, err
	}
	report, err := newLLMClient(ctx, cfg.LLM, cfg.LLM.ReportModel)
	if err != nil {
		return nil, err
	}
	redaction, err := newLLMClient(ctx, cfg.LLM, cfg.LLM.RedactionModel)
	if err != nil {
		return nil, err
	}

	var provider transcription.Provider = transcription.MockProvider{}
	if !cfg.Transcription.UseMock {
		provider = transcription.NewWhisperClient(transcription.WhisperConfig{
			APIKey:   cfg.Transcription.APIKey,
			BaseURL:  cfg.Transcription.BaseURL,
			Model:    cfg.Transcription.Model,
			Language: cfg.Transcription.Language,
			Timeout:  cfg.Transcription.Timeout,

			MaxAttempts: cfg.Transcription.MaxAttempts,
		}, &http.Client{Timeout: cfg.Transcription.Timeout})
	}
	topts := transcription.Options{
		MaxChunkBytes: cfg.Transcription.MaxChunkBytes,
		MaxInFlight:   cfg.Transcription.MaxInFlight,
	}
	if rdb != nil && cfg.Transcription.GlobalCap > 0 {
		topts.Limiter = transcription.NewRedisLimiter(rdb, transcriptionCapKey, cfg.Transcription.GlobalCap)
	}

	callsRepo := calls.NewPostgresRepo(db)
	questionsRepo := questions.NewPostgresRepo(db)
	var memRepo memory.Repository = memory.NewPostgresRepo(db)
	if rdb != nil {
		memRepo = memory.NewCachedRepo(memRepo, rdb, cfg.Chat.MemoryWindow, cfg.Chat.CacheTTL)
	}

	callsSvc := calls.NewService(callsRepo)
	questionsSvc := questions.NewService(questionsRepo)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	proc := pipeline.NewProcessor(pipeline.Deps{
		Records:             callsSvc,
		Transcriber:         transcription.NewService(store, provider, topts),
		Sanitizer:           sanitize.NewService(redaction, prompts.Redaction),
		CallLog:             agents.NewCallLogAgent(general, prompts.CallLog),
		Report:              agents.NewReportAgent(report, prompts.Report),
		Form:                agents.NewFormAgent(general, prompts.Form),
		Questionnaire:       agents.NewQuestionnaireAgent(general, prompts.Questionnaire),
		Questions:           questionsSvc,
		Finalizer:           pipeline.NewSQLFinalizer(db),
		Audit:               auditSvc,
		TranscriptionPrompt: transcriptionPrompt,
	})

	return &app{
		db:         db,
		users:      auth.NewPostgresUsers(db),
		calls:      callsSvc,
		questions:  questionsSvc,
		chat:       chat.NewService(memRepo, callsSvc, general, prompts.Chat, cfg.Chat.MemoryWindow),
		reports:    reporting.NewService(reporting.CallsSource{Repo: callsRepo}),
		audit:      auditSvc,
		blobs:      store,
		dispatcher: pipeline.NewDispatcher(jobsCtx, proc),
	}, nil
}

func newLLMClient(ctx context.Context, cfg config.LLMConfig, name string) (*llm.Client, error) {
	if cfg.UseMock {
		return llm.NewClient(llm.MockGenerator{}, "mock:"+name, 1), nil
	}
	gen, err := llm.NewOpenAIModel(ctx, llm.ModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       name,
		Temperature: float32(cfg.Temperature),
		TopP:        float32(cfg.TopP),
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("llm %s: %w", name, err)
	}
	return llm.NewClient(gen, name, cfg.MaxRetries), nil
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, a *app, authMW gin.HandlerFunc, manager *auth.Manager) {
	h := httpapi.Handlers{
		Auth:      auth.NewAuthenticator(a.users, manager),
		Calls:     a.calls,
		Questions: a.questions,
		Chat:      a.chat,
		Reports:   a.reports,
		Audit:     a.audit,
		Blobs:     a.blobs,
		Jobs:      a.dispatcher,
		Health: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, a.db, 2*time.Second)
		},
	}
	httpapi.Register(r, h, authMW)
}
