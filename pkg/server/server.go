package server

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	gormdb "gorm.io/gorm"

	"github.com/hospitaldigital/hospital-api/pkg/config"
	"github.com/hospitaldigital/hospital-api/pkg/mailer"
	"github.com/hospitaldigital/hospital-api/pkg/pdf"
	"github.com/hospitaldigital/hospital-api/pkg/recovery"
	"github.com/hospitaldigital/hospital-api/pkg/server/middleware"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
	gormstore "github.com/hospitaldigital/hospital-api/pkg/server/store/gorm"
	"github.com/hospitaldigital/hospital-api/pkg/token"
)

// Server wires the router, database stores and supporting services.
type Server struct {
	Config *config.HospitalConfig
	Router *mux.Router
	DB     *gormdb.DB
	Logger *zap.Logger

	Issuer         *token.Issuer
	AuthMiddleware *middleware.Authenticator

	UsersStore         store.UsersStore
	CatalogsStore      store.CatalogsStore
	MedicationsStore   store.MedicationsStore
	NotesStore         store.NotesStore
	PrescriptionsStore store.PrescriptionsStore
	OrdersStore        store.OrdersStore
	BedsStore          store.BedsStore
	HealthStore        store.HealthStore

	// Mailer is nil when SMTP is not configured.
	Mailer *mailer.Mailer
	// Recovery is nil when Redis is not configured.
	Recovery *recovery.Service
	// PDF renders prescriptions and notes for download and email.
	PDF *pdf.Renderer

	srv *http.Server
}

// NewServer creates a Server with GORM-backed stores for every concern.
func NewServer(
	cfg *config.HospitalConfig,
	db *gormdb.DB,
	issuer *token.Issuer,
	logger *zap.Logger,
	host string,
	port string,
) *Server {
	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, router),
		Addr:    host + ":" + port,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	usersStore := gormstore.NewUsersStore(db)

	var mail *mailer.Mailer
	if cfg.MailEnabled() {
		mail = mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}

	return &Server{
		Config: cfg,
		Router: router,
		DB:     db,
		Logger: logger,

		Issuer:         issuer,
		AuthMiddleware: middleware.NewAuthenticator(issuer, usersStore),

		UsersStore:         usersStore,
		CatalogsStore:      gormstore.NewCatalogsStore(db),
		MedicationsStore:   gormstore.NewMedicationsStore(db),
		NotesStore:         gormstore.NewNotesStore(db),
		PrescriptionsStore: gormstore.NewPrescriptionsStore(db),
		OrdersStore:        gormstore.NewOrdersStore(db),
		BedsStore:          gormstore.NewBedsStore(db),
		HealthStore:        gormstore.NewHealthStore(db),

		Mailer: mail,
		PDF:    pdf.NewRenderer(cfg.HospitalName, cfg.PDFOutputPath),

		srv: srv,
	}
}

// WithRecovery attaches the recovery-code service. Recovery endpoints are
// disabled while it is nil.
func (s *Server) WithRecovery(svc *recovery.Service) *Server {
	s.Recovery = svc
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}
