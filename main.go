package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	apihttp "connector-hub/internal/api/http"
	"connector-hub/internal/auth"
	application "connector-hub/internal/normalization/application"
	normalization "connector-hub/internal/normalization/domain"
	normpostgres "connector-hub/internal/normalization/infrastructure/postgres"
	"connector-hub/internal/normalization/infrastructure/rulefile"
	"connector-hub/internal/normalization/registry"
	"connector-hub/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	metrics.Init(logger)

	ruleRegistry := registry.NewRegistry()

	var ruleRepo *normpostgres.RuleRepository
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		ruleRepo = normpostgres.NewRuleRepository(db)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		rules, err := ruleRepo.List(ctx)
		cancel()
		if err != nil {
			logger.Fatalf("rule load error: %v", err)
		}
		for _, rule := range rules {
			if err := ruleRegistry.Register(rule); err != nil {
				logger.Fatalf("rule register error (%s): %v", rule.ID, err)
			}
		}
		logger.Printf("rules_loaded source=postgres count=%d", len(rules))
	} else {
		logger.Printf("DATABASE_URL not set, rules are in-memory only")
	}

	if cfg.RulesFile != "" {
		rules, err := rulefile.Load(cfg.RulesFile)
		if err != nil {
			logger.Fatalf("rule file error: %v", err)
		}
		for _, rule := range rules {
			if err := ruleRegistry.Register(rule); err != nil {
				logger.Fatalf("rule register error (%s): %v", rule.ID, err)
			}
		}
		logger.Printf("rules_loaded source=file count=%d", len(rules))
	}

	engine, err := application.NewEngine(ruleRegistry)
	if err != nil {
		logger.Fatalf("engine error: %v", err)
	}

	var persist func(r *http.Request, rule normalization.MappingRule) error
	if ruleRepo != nil {
		persist = func(r *http.Request, rule normalization.MappingRule) error {
			return ruleRepo.Save(r.Context(), rule)
		}
	}

	normalizeHandler, err := apihttp.NewNormalizeHandler(engine, logger)
	if err != nil {
		logger.Fatalf("normalize handler error: %v", err)
	}
	reportHandler, err := apihttp.NewReportHandler(engine, logger)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}
	rulesHandler, err := apihttp.NewRulesHandler(ruleRegistry, persist, logger)
	if err != nil {
		logger.Fatalf("rules handler error: %v", err)
	}

	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), auth.NewDefaultPolicy(
		[]string{"/healthz", "/metrics"},
		nil,
	))

	mux := http.NewServeMux()
	mux.Handle("/api/v1/normalize", normalizeHandler)
	mux.Handle("/api/v1/normalize/report", reportHandler)
	mux.Handle("/api/v1/rules", rulesHandler)
	mux.Handle("/api/v1/rules/", rulesHandler)
	mux.Handle("/api/v1/schema/infer", apihttp.NewInferHandler(logger))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	RulesFile   string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		RulesFile:   getenvDefault("RULES_FILE", ""),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
