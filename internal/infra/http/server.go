package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"certanchor/internal/config"
	"certanchor/internal/domain"
	"certanchor/internal/infra/canon"
	"certanchor/internal/infra/db"
	"certanchor/internal/infra/ledger/evm"
	"certanchor/internal/infra/ledger/ledgermem"
	"certanchor/internal/infra/merkle"
	"certanchor/internal/infra/policyopa"
	"certanchor/internal/infra/ratelimit"
	"certanchor/internal/usecase"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	verifyUC  *usecase.VerifyCertificate
	recordsUC *usecase.ListVerificationRecords
	canon     usecase.Canonicalizer
	initErr   error
	closers   []func()

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

// NewServer wires the production dependencies from cfg. Initialisation
// failures are reported by Run.
func NewServer(ctx context.Context, cfg config.Config, store *db.Store) *Server {
	s := &Server{cfg: cfg, store: store, r: newEngine()}
	s.initDeps(ctx)
	s.routes()
	return s
}

type ServerDeps struct {
	Verify      *usecase.VerifyCertificate
	Records     *usecase.ListVerificationRecords
	RateLimiter domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	s := &Server{
		cfg:       cfg,
		r:         newEngine(),
		verifyUC:  deps.Verify,
		recordsUC: deps.Records,
		canon:     &canon.Service{},
	}
	if s.verifyUC != nil && s.verifyUC.Canon != nil {
		s.canon = s.verifyUC.Canon
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

func (s *Server) initDeps(ctx context.Context) {
	s.canon = &canon.Service{}
	uc := &usecase.VerifyCertificate{
		Canon:  s.canon,
		Proofs: &merkle.Service{},
		Info:   s.cfg.Ledger(),
	}

	if s.cfg.LedgerRPCURL != "" {
		client, err := evm.Dial(ctx, s.cfg)
		if err != nil {
			s.initErr = err
			return
		}
		s.closers = append(s.closers, client.Close)
		uc.Ledger = client
		uc.Blocks = client
	} else {
		ledger, err := offlineLedger(s.cfg)
		if err != nil {
			s.initErr = err
			return
		}
		uc.Ledger = ledger
		uc.Blocks = ledger
	}

	engine, err := policyopa.NewEngine(ctx, s.cfg.PolicyPath, s.cfg.PolicyBundleID)
	if err != nil {
		s.initErr = fmt.Errorf("load policy: %w", err)
		return
	}
	log.Info("Loaded acceptance policy", "bundle", engine.BundleID(), "hash", engine.BundleHash())
	uc.Policy = engine

	if s.store.Enabled() {
		repo := db.NewVerificationRecordRepository(s.store.DB)
		if s.cfg.RecordVerifications {
			uc.Records = repo
		}
		s.recordsUC = &usecase.ListVerificationRecords{Records: repo}
	}
	s.verifyUC = uc

	limiter, err := ratelimit.New(s.cfg)
	if err != nil {
		s.initErr = err
		return
	}
	s.initRateLimit(limiter)
}

func offlineLedger(cfg config.Config) (*ledgermem.Ledger, error) {
	if cfg.LedgerAnchorsFile == "" {
		log.Warn("LEDGER_RPC_URL not set; using an empty in-memory ledger")
		return ledgermem.New(), nil
	}
	ledger, err := ledgermem.LoadFile(cfg.LedgerAnchorsFile)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded offline anchors", "file", cfg.LedgerAnchorsFile)
	return ledger, nil
}

func (s *Server) initRateLimit(limiter domain.RateLimiter) {
	s.rateLimiter = limiter
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store.Enabled() {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"mode":    dbMode,
			"network": s.cfg.LedgerNetwork,
		})
	})

	v1 := s.r.Group("/v1")
	{
		v1.GET("/certificates/:leaf_digest/records", s.handleListRecords)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	if s.initErr != nil {
		return s.initErr
	}
	log.Info("Listening", "addr", s.cfg.HTTPAddr)
	return s.r.Run(s.cfg.HTTPAddr)
}

func (s *Server) Close() {
	for _, fn := range s.closers {
		fn()
	}
}
