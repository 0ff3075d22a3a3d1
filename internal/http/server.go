package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values pick defaults.
type Options struct {
	RateLimitPerMinute int
	// FeedbackRateLimitPerMinute caps feedback submissions per client on
	// top of the general limit.
	FeedbackRateLimitPerMinute int
	Logger                     *log.Logger
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
}

// Server serves the finance and report APIs.
type Server struct {
	http.Server

	finance  *services.FinanceService
	reports  *services.ReportService
	feedback *services.FeedbackService
	store    Pinger
	logger   *log.Logger

	rateLimiter      *ratelimit.Limiter
	feedbackLimiter  *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime              time.Time
	transactionsCreated atomic.Int64
	goalsCreated        atomic.Int64
	feedbackReports     atomic.Int64
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, finance *services.FinanceService, reports *services.ReportService, feedback *services.FeedbackService, store Pinger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}

	limiterCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}
	limiterCfg.Methods = ratelimit.MutatingMethods()

	feedbackCfg := ratelimit.DefaultConfig()
	feedbackCfg.RequestsPerMinute = 5
	if opts.FeedbackRateLimitPerMinute > 0 {
		feedbackCfg.RequestsPerMinute = opts.FeedbackRateLimitPerMinute
	}
	feedbackCfg.Methods = []string{http.MethodPost}

	s := &Server{
		finance:          finance,
		reports:          reports,
		feedback:         feedback,
		store:            store,
		logger:           logger.WithComponent(log.ComponentHTTP),
		rateLimiter:      ratelimit.NewLimiter(limiterCfg),
		feedbackLimiter:  ratelimit.NewLimiter(feedbackCfg),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/finance/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/finance/categories/{kind}", s.handleListCategoriesByKind)
	mux.HandleFunc("POST /api/finance/category", s.handleCreateCategory)

	mux.HandleFunc("POST /api/finance/transaction/{userId}/{categoryId}", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/finance/transaction/{userId}/{transactionId}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/finance/transactions/{userId}", s.handleListTransactions)
	mux.HandleFunc("GET /api/finance/transactionsByDate/{userId}", s.handleListTransactionsByDate)

	mux.HandleFunc("POST /api/finance/goal/{userId}/{categoryId}", s.handleCreateGoal)
	mux.HandleFunc("GET /api/finance/goals/{userId}", s.handleListGoals)
	mux.HandleFunc("PATCH /api/finance/goal/{goalId}", s.handleUpdateGoal)
	mux.HandleFunc("PATCH /api/finance/goal/activate/{goalId}", s.handleSetGoalActive(true))
	mux.HandleFunc("PATCH /api/finance/goal/deactivate/{goalId}", s.handleSetGoalActive(false))
	mux.HandleFunc("DELETE /api/finance/goal/{goalId}", s.handleDeleteGoal)

	mux.HandleFunc("GET /api/finance/budget/{userId}", s.handleGetBudget)
	mux.HandleFunc("POST /api/finance/budget/{userId}", s.handleSetBudget)
	mux.HandleFunc("PATCH /api/finance/budget/{budgetId}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/finance/budget/{budgetId}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/reports/{userId}/chart", s.handleChart)
	mux.HandleFunc("GET /api/reports/{userId}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/reports/{userId}/goals", s.handleGoalReport)
	mux.HandleFunc("GET /api/reports/{userId}/budget", s.handleBudgetReport)
	mux.HandleFunc("GET /api/reports/{userId}/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /api/reports/{userId}/dashboard", s.handleDashboard)

	feedbackLimit := s.feedbackLimiter.Middleware(s.securityDetector.ExtractClientIP, s.rejectRateLimited)
	mux.Handle("POST /api/feedback/report", feedbackLimit(http.HandlerFunc(s.handleCreateFeedbackReport)))

	mux.HandleFunc("/", s.handleNotFound)
}

// middleware wraps h with trace -> security -> rate limit, outermost first.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.rejectRateLimited)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.securityDetector.Middleware(s.logger)(h)
	return s.traceMiddleware.Middleware(h)
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError("rate limit exceeded, please try again later").Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.feedbackLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
