package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validApp() *App {
	return &App{
		Env:           "test",
		Server:        &Server{Scheme: "http", Host: "localhost", Port: 3000},
		Log:           &Log{Format: "text"},
		DB:            &DB{Driver: "sqlite", Url: "file::memory:"},
		Auth:          &Auth{Strategy: "jwt", Jwt: &Jwt{Secret: "secret", Expiry: time.Hour}},
		Redis:         &Redis{},
		RateLimit:     &RateLimit{MaxRequests: 10, Window: time.Minute},
		Cache:         &Cache{Driver: "memory", BalanceTTL: time.Second},
		EventBus:      &EventBus{Driver: "memory"},
		Notifications: &Notifications{},
		Balance:       &Balance{Currency: "KES"},
		Accounts:      &Accounts{},
		Client:        &Client{BaseURL: "http://localhost:3000", Timeout: time.Second},
	}
}

func TestApp_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*App)
		wantErr string
	}{
		{name: "valid", mutate: func(*App) {}},
		{name: "memory db needs no url", mutate: func(a *App) { a.DB = &DB{Driver: "memory"} }},
		{name: "unknown db driver", mutate: func(a *App) { a.DB.Driver = "mysql" }, wantErr: "DATABASE_DRIVER"},
		{name: "missing db url", mutate: func(a *App) { a.DB.Url = "" }, wantErr: "DATABASE_URL"},
		{name: "unknown auth strategy", mutate: func(a *App) { a.Auth.Strategy = "basic" }, wantErr: "AUTH_STRATEGY"},
		{name: "bad cache driver", mutate: func(a *App) { a.Cache.Driver = "memcached" }, wantErr: "CACHE_DRIVER"},
		{name: "bad bus driver", mutate: func(a *App) { a.EventBus.Driver = "kafka" }, wantErr: "EVENT_BUS_DRIVER"},
		{name: "bad log format", mutate: func(a *App) { a.Log.Format = "xml" }, wantErr: "LOG_FORMAT"},
		{name: "zero client timeout", mutate: func(a *App) { a.Client.Timeout = 0 }, wantErr: "CLIENT_TIMEOUT"},
		{name: "bad currency", mutate: func(a *App) { a.Balance.Currency = "kes" }, wantErr: "BALANCE_CURRENCY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := validApp()
			tt.mutate(app)
			err := app.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApp_ValidateCollectsEveryError(t *testing.T) {
	app := validApp()
	app.Cache.Driver = "x"
	app.EventBus.Driver = "y"

	err := app.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_DRIVER")
	assert.Contains(t, err.Error(), "EVENT_BUS_DRIVER")
}

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "finboard.test.env")
	content := "AUTH_JWT_SECRET=from-file\nDATABASE_DRIVER=memory\nCACHE_BALANCE_TTL=5s\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	t.Chdir(dir)
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("CACHE_BALANCE_TTL", "")
	os.Unsetenv("AUTH_JWT_SECRET")   //nolint:errcheck
	os.Unsetenv("DATABASE_DRIVER")   //nolint:errcheck
	os.Unsetenv("CACHE_BALANCE_TTL") //nolint:errcheck

	cfg, err := Load("finboard.test.env")
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.Jwt.Secret)
	assert.Equal(t, "memory", cfg.DB.Driver)
	assert.Equal(t, 5*time.Second, cfg.Cache.BalanceTTL)
	assert.Equal(t, "KES", cfg.Balance.Currency)
	assert.Equal(t, 24*time.Hour, cfg.Auth.Jwt.Expiry)
	assert.Equal(t, "localhost:3000", cfg.Server.Addr())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_JWT_SECRET", "")
	os.Unsetenv("AUTH_JWT_SECRET") //nolint:errcheck

	_, err := Load()
	assert.Error(t, err)
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "", maskValue(""))
	assert.Equal(t, "****", maskValue("short"))
	assert.Equal(t, "re****6379", maskValue("redis://localhost:6379"))
}

func TestFindUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), nil, 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(root, "a", "dir.env"), 0o755))

	got, ok := findUp(nested, "")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, ".env"), got)

	_, ok = findUp(nested, "dir.env")
	assert.False(t, ok, "directories are not env files")

	_, ok = findUp(nested, "missing.env")
	assert.False(t, ok)

	got, ok = findUp("/", filepath.Join(root, ".env"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, ".env"), got)
}
