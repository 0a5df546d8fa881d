package orgauth_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/orgauth/pkg/authsdk"
	"github.com/aussiebroadwan/orgauth/pkg/idx"
	"github.com/aussiebroadwan/orgauth/pkg/rbac"
	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testImageName = "orgauth-test:latest"

	tokenSecret   = "e2e-secret-0123456789abcdef012345"
	testPassword  = "correct-horse-battery"
	postgresAlias = "postgres"
	redisAlias    = "redis"
)

// relaxedRateLimits keeps tests that fire many requests from tripping the
// production limits.
var relaxedRateLimits = map[string]string{
	"RATELIMIT_STRICT_REQUESTS":   "1000",
	"RATELIMIT_STRICT_WINDOW_SEC": "60",
	"RATELIMIT_STRICT_BURST":      "1000",
	"RATELIMIT_MODERATE_REQUESTS": "1000",
	"RATELIMIT_MODERATE_BURST":    "1000",
}

// TestMain builds the service image once for the whole suite.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building orgauth Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up orgauth Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/orgauth/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

func baseEnv(extra map[string]string) map[string]string {
	env := map[string]string{
		"AUTH_TOKEN_SECRET":  tokenSecret,
		"AUTH_ISSUER":        "orgauth-e2e",
		"AUTH_COOKIE_SECURE": "false",
		"ENV":                "test",
		"LOG_LEVEL":          "info",
		"LOG_FORMAT":         "json",
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

func startService(t *testing.T, env map[string]string, networks ...string) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		Networks:     networks,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return endpoint(t, container, "8080")
}

func endpoint(t *testing.T, c testcontainers.Container, port nat.Port) string {
	t.Helper()
	ctx := context.Background()

	mapped, err := c.MappedPort(ctx, port)
	require.NoError(t, err)
	host, err := c.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

// setupSQLite starts the service on its embedded SQLite database.
func setupSQLite(t *testing.T, extra map[string]string) *authsdk.SDKClient {
	t.Helper()
	addr := startService(t, baseEnv(extra))
	return authsdk.NewSDKClient("http://" + addr)
}

// stack is the service running against Postgres and Redis. DB is a direct
// connection to the service's database for seeding memberships the API
// cannot create.
type stack struct {
	Client *authsdk.SDKClient
	DB     *sql.DB
}

func setupStack(t *testing.T, extra map[string]string) *stack {
	t.Helper()
	ctx := context.Background()

	nw, err := network.New(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = nw.Remove(ctx) })

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          "postgres:16-alpine",
			ExposedPorts:   []string{"5432/tcp"},
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {postgresAlias}},
			Env: map[string]string{
				"POSTGRES_USER":     "orgauth",
				"POSTGRES_PASSWORD": "orgauth",
				"POSTGRES_DB":       "orgauth",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	rd, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          "redis:7-alpine",
			ExposedPorts:   []string{"6379/tcp"},
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {redisAlias}},
			WaitingFor:     wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rd.Terminate(ctx) })

	env := map[string]string{
		"DATABASE_DRIVER": "postgres",
		"DATABASE_URL":    fmt.Sprintf("postgres://orgauth:orgauth@%s:5432/orgauth?sslmode=disable", postgresAlias),
		"REDIS_URL":       fmt.Sprintf("redis://%s:6379/0", redisAlias),
	}
	for k, v := range extra {
		env[k] = v
	}
	addr := startService(t, baseEnv(env), nw.Name)

	db, err := sql.Open("postgres",
		fmt.Sprintf("postgres://orgauth:orgauth@%s/orgauth?sslmode=disable", endpoint(t, pg, "5432")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.PingContext(ctx))

	return &stack{Client: authsdk.NewSDKClient("http://" + addr), DB: db}
}

// addMember inserts a membership directly into the service's database.
func (s *stack) addMember(t *testing.T, userID, orgID string, role rbac.Role) {
	t.Helper()
	_, err := s.DB.ExecContext(t.Context(),
		`INSERT INTO memberships (id, user_id, organization_id, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())`,
		idx.New().String(), userID, orgID, string(role))
	require.NoError(t, err)
}

func register(t *testing.T, client *authsdk.SDKClient, email, org string) *authsdk.Session {
	t.Helper()
	s, err := client.Register(t.Context(), authsdk.RegisterRequest{
		Email:            email,
		Password:         testPassword,
		Name:             "E2E",
		OrganizationName: org,
	})
	require.NoError(t, err, "register %s", email)
	return s
}

func whoami(t *testing.T, s *authsdk.Session) *authsdk.MeResponse {
	t.Helper()
	me, err := s.Me(t.Context())
	require.NoError(t, err)
	return me
}

func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
