package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hospitaldigital/hospital-api/pkg/config"
	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/password"
	"github.com/hospitaldigital/hospital-api/pkg/server"
	"github.com/hospitaldigital/hospital-api/pkg/server/endpoints"
	gormstore "github.com/hospitaldigital/hospital-api/pkg/server/store/gorm"
	"github.com/hospitaldigital/hospital-api/pkg/token"
)

const testSecretKey = "integration-test-secret-key"

// TestContext holds the resources for an integration test run.
type TestContext struct {
	DB          *gorm.DB
	Container   testcontainers.Container
	ServerURL   string
	DatabaseURL string
	HTTPClient  *http.Client
}

// NewTestContext starts a PostgreSQL container, runs the migrations, seeds a
// clinician account and starts the server in-process.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	migrationsDir := filepath.Join(projectRoot, "db", "migrations")

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("hospital_test"),
		tcpostgres.WithUsername("hospital"),
		tcpostgres.WithPassword("hospital"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	connStr := fmt.Sprintf("postgres://hospital:hospital@%s:%s/hospital_test?sslmode=disable", host, port.Port())

	m, err := migrate.New("file://"+migrationsDir, connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	_, _ = m.Close()

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := seedClinician(db); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to seed clinician: %w", err)
	}

	serverPort := "18080"
	serverURL := fmt.Sprintf("http://127.0.0.1:%s", serverPort)

	if err := startInlineServer(db, serverPort); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to start inline server: %w", err)
	}

	if err := waitForServer(serverURL, 30*time.Second); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return &TestContext{
		DB:          db,
		Container:   pgContainer,
		ServerURL:   serverURL,
		DatabaseURL: connStr,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Close cleans up all test resources.
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

func seedClinician(db *gorm.DB) error {
	hash, err := password.Hash("changeme123")
	if err != nil {
		return err
	}
	return gormstore.NewUsersStore(db).Create(&model.User{
		Username:              "house",
		Email:                 "house@hospital.test",
		PasswordHash:          hash,
		FirstName:             "Gregory",
		LastName:              "House",
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		ProfessionalData: model.JSONMap{
			"specialty":      "Diagnostic Medicine",
			"license_number": "MD-12345",
		},
	})
}

func startInlineServer(db *gorm.DB, port string) error {
	cfg := &config.HospitalConfig{
		SecretKey:                testSecretKey,
		Algorithm:                "HS256",
		AccessTokenExpireMinutes: 30,
		RefreshTokenExpireDays:   7,
		APIListLimitMax:          1000,
		HospitalName:             "Integration Test Hospital",
		PDFOutputPath:            os.TempDir(),
	}

	issuer, err := token.NewIssuer(cfg.SecretKey, cfg.Algorithm, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	if err != nil {
		return err
	}

	s := server.NewServer(cfg, db, issuer, zap.NewNop(), "127.0.0.1", port)
	endpoints.RegisterAll(s)

	go func() {
		_ = s.Start()
	}()
	return nil
}

func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}
