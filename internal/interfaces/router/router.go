package router

import (
	"context"
	"time"

	authsvc "certhub-backend/internal/application/auth"
	dealersvc "certhub-backend/internal/application/dealers"
	healthsvc "certhub-backend/internal/application/health"
	"certhub-backend/internal/application/issuance"
	"certhub-backend/internal/application/ledger"
	"certhub-backend/internal/application/payments"
	"certhub-backend/internal/application/policies"
	programsvc "certhub-backend/internal/application/programs"
	studentsvc "certhub-backend/internal/application/students"
	"certhub-backend/internal/application/templates"
	"certhub-backend/internal/application/verification"
	"certhub-backend/internal/config"
	"certhub-backend/internal/infrastructure/database"
	authhandler "certhub-backend/internal/interfaces/handlers/auth"
	certhandler "certhub-backend/internal/interfaces/handlers/certificates"
	dealerhandler "certhub-backend/internal/interfaces/handlers/dealers"
	healthhandler "certhub-backend/internal/interfaces/handlers/health"
	ledgerhandler "certhub-backend/internal/interfaces/handlers/ledger"
	payhandler "certhub-backend/internal/interfaces/handlers/payments"
	programhandler "certhub-backend/internal/interfaces/handlers/programs"
	studenthandler "certhub-backend/internal/interfaces/handlers/students"
	tplhandler "certhub-backend/internal/interfaces/handlers/templates"
	verifyhandler "certhub-backend/internal/interfaces/handlers/verify"
	"certhub-backend/internal/middleware"
	"certhub-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Deps are the connections NewApp wires into services.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Rdb     *redis.Client
	Gateway payments.Gateway
	Assets  templates.AssetStore
	Policy  policies.Policy
}

// CreateApp opens Postgres, Redis and the asset store from cfg and builds the app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	rdb, err := middleware.NewRedis(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, err
	}

	var assets templates.AssetStore = templates.FileStore{Dir: cfg.AssetDir}
	if cfg.MinIOEndpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := templates.NewMinIOStore(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
		if err != nil {
			return nil, nil, nil, err
		}
		assets = store
		log.Info().Str("endpoint", cfg.MinIOEndpoint).Str("bucket", cfg.MinIOBucket).Msg("background assets served from MinIO")
	}

	gateway := payments.NewRestyGateway(cfg.PaymentGatewayURL, cfg.PaymentMerchantID, cfg.PaymentTerminalID, cfg.PaymentSecretKey, cfg.PaymentTimeout)

	app := NewApp(Deps{Config: cfg, DB: db, Rdb: rdb, Gateway: gateway, Assets: assets})
	return app, db, rdb, nil
}

// NewApp registers middleware and routes over already-open dependencies.
func NewApp(d Deps) *fiber.App {
	cfg := d.Config
	policy := d.Policy
	if policy == nil {
		policy = policies.RolePolicy{}
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.NewErrorHandler(d.Rdb),
		EnableTrustedProxyCheck: true,
	})
	app.Use(recover.New())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix:  cfg.FrontendURLEndsWith,
		DevPassword:    cfg.DevPassword,
		AllowLocalhost: cfg.Env != "production",
	}))
	app.Use(middleware.Session(d.Rdb))
	app.Use(middleware.HealthMarker(d.Rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            d.Rdb,
		DB:             &gormDBPinger{db: d.DB},
		HealthAdminKey: cfg.HealthAdminKey,
		Upstreams:         []healthsvc.Upstream{{Name: "gateway", URL: cfg.PaymentGatewayURL}},
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	ledgerSvc := ledger.New(d.DB, policy)
	issuanceSvc := issuance.New(d.DB, ledgerSvc, policy)
	engine := &templates.Engine{Assets: d.Assets, BaseURL: cfg.PublicBaseURL, FitMode: cfg.BackgroundFitMode}
	templateSvc := templates.NewService(d.DB, engine, policy)
	paymentSvc := &payments.Service{
		DB:          d.DB,
		Ledger:      ledgerSvc,
		Gateway:     d.Gateway,
		Policy:      policy,
		CallbackURL: cfg.PaymentCallbackBase + "/api/v1/payments/callback",
		ResultURL:   cfg.PaymentResultURL,
		Timeout:     cfg.PaymentTimeout,
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	ah := &authhandler.Handlers{UserFinder: &authsvc.GormUserFinder{DB: d.DB}, Rdb: d.Rdb, Config: sessionCfg}
	dh := &dealerhandler.Handlers{Service: &dealersvc.Service{DB: d.DB, Policy: policy}, Rdb: d.Rdb}
	lh := &ledgerhandler.Handlers{Service: ledgerSvc}
	ph := &payhandler.Handlers{Service: paymentSvc}
	sh := &studenthandler.Handlers{Service: &studentsvc.Service{DB: d.DB, Policy: policy}}
	prh := &programhandler.Handlers{Service: &programsvc.Service{DB: d.DB, Policy: policy}}
	th := &tplhandler.Handlers{Service: templateSvc}
	ch := &certhandler.Handlers{Service: issuanceSvc, Rdb: d.Rdb}
	vh := &verifyhandler.Handlers{Service: &verification.Service{DB: d.DB, Rdb: d.Rdb}}

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/login", limiter.New(limiter.Config{Max: 10, Expiration: time.Minute}), ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	api.Post("/dealers/register", limiter.New(limiter.Config{Max: 5, Expiration: time.Minute}), dh.Register)
	api.Get("/verify/:hash", limiter.New(limiter.Config{Max: 60, Expiration: time.Minute}), vh.Verify)
	api.Post("/payments/callback", ph.Callback)

	authed := api.Group("", middleware.RequireAuth())
	view := middleware.AuthorizePermission(constants.ViewData)

	authed.Get("/ledger/balance", view, lh.Balance)
	authed.Get("/ledger/transactions", view, lh.Transactions)
	authed.Get("/ledger/audit", view, lh.Audit)

	authed.Get("/payments/packages", view, ph.Packages)
	authed.Post("/payments/card", middleware.AuthorizePermission(constants.BuyCredit), ph.Card)
	authed.Post("/payments/wire-transfer", middleware.AuthorizePermission(constants.BuyCredit), ph.WireTransfer)

	authed.Post("/students", middleware.AuthorizePermission(constants.ManageStudents), sh.Create)
	authed.Get("/students", view, sh.List)
	authed.Get("/programs", view, prh.List)
	authed.Get("/templates", view, th.List)

	issue := middleware.AuthorizePermission(constants.IssueCertificates)
	authed.Post("/certificates", issue, ch.Issue)
	authed.Get("/certificates", view, ch.List)
	authed.Get("/certificates/:id", view, ch.Get)
	authed.Get("/certificates/:id/render", view, th.Render)

	catalog := middleware.AuthorizePermission(constants.ManageCatalog)
	admin := authed.Group("/admin")
	admin.Post("/transactions/:id/finalize", middleware.AuthorizePermission(constants.FinalizeTransactions), lh.Finalize)
	dealerMgmt := middleware.AuthorizePermission(constants.ManageDealers, constants.ManageCatalog)
	admin.Get("/dealers", dealerMgmt, dh.List)
	admin.Patch("/dealers/:id", dealerMgmt, dh.Update)
	admin.Post("/dealers/:id/credit", middleware.AuthorizePermission(constants.ManageDealers, constants.FinalizeTransactions), lh.Credit)
	admin.Post("/programs", catalog, prh.Create)
	admin.Patch("/programs/:id/price", catalog, prh.UpdatePrice)
	admin.Post("/templates", catalog, th.Create)
	admin.Put("/templates/:id/layout", catalog, th.UpdateLayout)
	admin.Put("/templates/:id/dealers", catalog, th.AssignDealers)
	admin.Post("/packages", catalog, ph.CreatePackage)

	return app
}
