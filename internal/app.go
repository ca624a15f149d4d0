// internal/app.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	router "sparkwallet/internal/api"
	"sparkwallet/internal/api/handler"
	"sparkwallet/internal/commerce"
	"sparkwallet/internal/config"
	"sparkwallet/internal/domain"
	"sparkwallet/internal/repository"
	"sparkwallet/internal/repository/postgres"
	"sparkwallet/internal/service"
	"sparkwallet/internal/util"
	"sparkwallet/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *logrus.Logger
	DB     *sqlx.DB

	// Repositories
	WalletRepository       repository.WalletRepository
	LedgerRepository       repository.LedgerRepository
	EntitlementRepository  repository.EntitlementRepository
	MembershipRepository   repository.MembershipRepository
	WebhookEventRepository repository.WebhookEventRepository

	// Services
	LedgerService      service.LedgerService
	WalletReader       service.WalletReader
	EntitlementService service.EntitlementService
	MembershipService  service.MembershipService
	AdminService       service.AdminService
	BillingService     service.BillingHistoryService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger()
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	// 4. Initialize Repositories
	app.WalletRepository = postgres.NewWalletRepository(app.DB)
	app.LedgerRepository = postgres.NewLedgerRepository(app.DB)
	app.EntitlementRepository = postgres.NewEntitlementRepository(app.DB)
	app.MembershipRepository = postgres.NewMembershipRepository(app.DB)
	app.WebhookEventRepository = postgres.NewWebhookEventRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 5. Initialize Services
	app.LedgerService = service.NewLedgerService(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		app.WalletRepository,
		app.LedgerRepository,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
	)
	app.WalletReader = service.NewWalletReader(app.LedgerService)
	app.EntitlementService = service.NewEntitlementService(app.DB, app.LedgerService, app.EntitlementRepository, domain.DefaultPricing())
	app.MembershipService = service.NewMembershipService(app.DB, app.MembershipRepository)
	app.AdminService = service.NewAdminService(app.LedgerService)

	orderStore := commerce.NewHTTPOrderStore(app.Config.CommerceBaseURL, app.Config.CommerceTimeout)
	app.BillingService = service.NewBillingHistoryService(orderStore)
	app.Logger.Info("Services initialized.")

	// 6. Initialize HTTP Handlers and Router
	walletHandler := handler.NewWalletHandler(app.WalletReader, app.LedgerService, app.EntitlementService, app.Logger)
	membershipHandler := handler.NewMembershipHandler(app.MembershipService, app.Logger)
	billingHandler := handler.NewBillingHandler(app.BillingService, app.Logger)
	adminHandler := handler.NewAdminHandler(app.AdminService, app.Logger)
	webhookHandler := handler.NewWebhookHandler(
		app.LedgerService,
		app.MembershipService,
		app.WebhookEventRepository,
		app.DB,
		app.Config.WebhookSecret,
		app.Logger,
	)
	app.HTTPHandler = router.NewRouter(walletHandler, membershipHandler, billingHandler, adminHandler, webhookHandler, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.WithError(err).Error("Failed to close database connection")
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
