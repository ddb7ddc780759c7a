package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"

	mem "archive-access/internal/adapters/storage/memory"
	pg "archive-access/internal/adapters/storage/postgres"
	"archive-access/internal/domain/access"
	"archive-access/internal/domain/requests"
	"archive-access/internal/domain/resources"
	"archive-access/internal/iprange"
	"archive-access/internal/middleware"
	"archive-access/internal/platform/logger"
	"archive-access/internal/ports/auth"
	"archive-access/internal/ports/settings"

	_ "archive-access/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Logger logger.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewFromEnv()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	// RealIP sólo detrás de un proxy de confianza: el checker de IP usa la
	// remota, y X-Forwarded-For desde internet abierto es spoofeable.
	if os.Getenv("TRUSTED_PROXY") == "true" {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	var (
		resourcesRepo resources.Repository
		statusRepo    access.StatusRepository
		requestsRepo  requests.Repository
		settingsStore settings.Store
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			} else {
				log.Warn("postgres unavailable, falling back to memory", map[string]any{"error": err.Error()})
			}
		}
	}

	if db != nil {
		resourcesRepo = pg.NewResourcesRepo(db)
		statusRepo = pg.NewAccessRepo(db)
		requestsRepo = pg.NewRequestsRepo(db)
		settingsStore = pg.NewSettingsStore(db)
	} else {
		memResources := mem.NewResourcesRepo()
		resourcesRepo = memResources
		statusRepo = mem.NewAccessRepo(memResources)
		requestsRepo = mem.NewRequestsRepo()
		settingsStore = mem.NewSettingsStore()
	}

	ctx := context.Background()

	table := loadIPTable(ctx, settingsStore, log)
	checkers, warns := access.BuildCheckers(ctx, settingsStore, table, requestsRepo)
	for _, w := range warns {
		log.Warn("access checker config", map[string]any{"error": w.Error()})
	}

	engine := access.NewEngine(statusRepo, resourcesRepo, settingsStore, checkers)

	// Services por módulo
	resourcesSvc := resources.NewService(resourcesRepo)
	accessSvc := access.NewService(statusRepo, resourcesRepo)
	requestsSvc := requests.NewService(requestsRepo)

	// Rutas por módulo
	resources.RegisterRoutes(r, resourcesSvc, accessSvc)
	access.RegisterRoutes(r, accessSvc, engine)
	requests.RegisterRoutes(r, requestsSvc)

	return r
}

// loadIPTable compila la tabla de reservas de IP desde settings. Reglas
// malformadas se loguean y se saltean; la tabla sigue sirviendo con el
// resto.
func loadIPTable(ctx context.Context, st settings.Store, log logger.Logger) *iprange.Table {
	var rules []iprange.Rule

	raw, found, err := st.Get(ctx, settings.KeyIPReservations)
	if err != nil {
		log.Warn("ip reservations unreadable", map[string]any{"error": err.Error()})
	} else if found {
		if err := json.Unmarshal([]byte(raw), &rules); err != nil {
			log.Warn("ip reservations malformed", map[string]any{"error": err.Error()})
			rules = nil
		}
	}

	table, warns := iprange.Compile(rules)
	for _, w := range warns {
		log.Warn("ip reservation rule skipped", map[string]any{"error": w.Error()})
	}
	return table
}
