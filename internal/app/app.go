package app

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/markdave123-py/docchat/internal/config"
	db "github.com/markdave123-py/docchat/internal/core/database"
	"github.com/markdave123-py/docchat/internal/core/engine"
	"github.com/markdave123-py/docchat/internal/core/extractor"
	"github.com/markdave123-py/docchat/internal/core/llm"
	objectclient "github.com/markdave123-py/docchat/internal/core/object-client"
	"github.com/markdave123-py/docchat/internal/core/textstore"
	"github.com/markdave123-py/docchat/internal/services"
)

type App struct {
	DBClient     db.DbClient
	ObjectClient objectclient.ObjectClient
	Engine       *engine.Engine
	LLM          *llm.GeminiLLM
	Server       *Server

	cfg *config.Config
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "init database")
	}

	objClient, err := objectclient.NewS3Client(initCtx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "init object storage")
	}

	gemini, err := llm.NewGeminiLLM(initCtx, cfg.AIAPIKey, cfg.GenModel, cfg.OCRModel)
	if err != nil {
		return nil, eris.Wrap(err, "init gemini client")
	}

	texts := textstore.NewStore(dbClient, textstore.NewTTLCache(cfg.CacheTTL))

	// Fixed cost-ascending trial order: free local pass, then the paid
	// vendor service, then vision OCR.
	tiers := []extractor.Extractor{
		extractor.NewDocconvExtractor(false),
		extractor.NewVendorExtractor(cfg.VendorAPIKey, cfg.VendorModel, cfg.VendorURL, cfg.VendorAttempts, cfg.VendorRatePerSec),
		extractor.NewVisionExtractor(gemini, cfg.OCRLanguageHints),
	}

	eng := engine.NewEngine(dbClient, objClient, texts, tiers, engine.NewLeaseTable(cfg.LeaseTTL), cfg.ExtractBudget)

	userService := services.NewUserService(dbClient)
	docService := services.NewDocumentService(dbClient, objClient, eng, cfg.BucketName, cfg.MaxUploadBytes)
	sessionService := services.NewSessionService(dbClient)
	contextService := services.NewContextService(dbClient, texts, cfg.ContextBudget, cfg.AssembleFanOut, cfg.AssembleTimeout)

	server := NewServer(cfg, userService, docService, sessionService, contextService, gemini)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Engine:       eng,
		LLM:          gemini,
		Server:       server,
		cfg:          cfg,
	}, nil
}

// Start launches the extraction workers and the HTTP server.
func (a *App) Start(ctx context.Context) {
	a.Engine.Start(ctx, a.cfg.ExtractWorkers)
	go a.Server.Start()
}

func (a *App) Close() {
	if a.LLM != nil {
		_ = a.LLM.Close()
	}
	if a.DBClient != nil {
		if err := a.DBClient.Close(); err != nil {
			zap.L().Warn("closing database", zap.Error(err))
		}
	}
}
