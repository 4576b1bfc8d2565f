package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

type DB struct {
	Driver          string        `envconfig:"DRIVER" default:"postgres"`
	Url             string        `envconfig:"URL"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
	AutoMigrate     bool          `envconfig:"AUTO_MIGRATE" default:"false"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

type Auth struct {
	Strategy string `envconfig:"STRATEGY" default:"jwt"`
	Jwt      *Jwt   `envconfig:"JWT"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"finboard:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Cache selects where balances and sessions are kept.
type Cache struct {
	Driver     string        `envconfig:"DRIVER" default:"memory"`
	BalanceTTL time.Duration `envconfig:"BALANCE_TTL" default:"30s"`
}

type EventBus struct {
	Driver  string `envconfig:"DRIVER" default:"memory"`
	Channel string `envconfig:"CHANNEL" default:"finboard:events"`
}

// Notifications configures the alert publisher. An empty AMQPURL keeps
// alerts in the log only.
type Notifications struct {
	AMQPURL    string `envconfig:"AMQP_URL"`
	Exchange   string `envconfig:"EXCHANGE" default:"finboard.alerts"`
	Queue      string `envconfig:"QUEUE" default:"finboard.alerts.email"`
	RoutingKey string `envconfig:"ROUTING_KEY" default:"alert"`
}

type Balance struct {
	Currency string `envconfig:"CURRENCY" default:"KES"`
}

type Accounts struct {
	SeedSamples bool `envconfig:"SEED_SAMPLES" default:"true"`
}

// Client configures the HTTP client used by the CLI.
type Client struct {
	BaseURL string        `envconfig:"BASE_URL" default:"http://localhost:3000"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`
	Token   string        `envconfig:"TOKEN"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[finboard]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL is the address clients use to reach the server.
func (s *Server) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", s.Scheme, s.Host, s.Port)
}

type App struct {
	Env           string         `envconfig:"APP_ENV" default:"development"`
	Server        *Server        `envconfig:"SERVER"`
	Log           *Log           `envconfig:"LOG"`
	DB            *DB            `envconfig:"DATABASE"`
	Auth          *Auth          `envconfig:"AUTH"`
	Redis         *Redis         `envconfig:"REDIS"`
	RateLimit     *RateLimit     `envconfig:"RATE_LIMIT"`
	Cache         *Cache         `envconfig:"CACHE"`
	EventBus      *EventBus      `envconfig:"EVENT_BUS"`
	Notifications *Notifications `envconfig:"NOTIFICATIONS"`
	Balance       *Balance       `envconfig:"BALANCE"`
	Accounts      *Accounts      `envconfig:"ACCOUNTS"`
	Client        *Client        `envconfig:"CLIENT"`
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Validate reports every invalid setting at once.
func (a *App) Validate() error {
	var errs []error
	switch a.DB.Driver {
	case "postgres", "sqlite":
		if a.DB.Url == "" {
			errs = append(errs, errors.New("DATABASE_URL is not set"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q: want postgres, sqlite or memory", a.DB.Driver))
	}
	if a.Auth.Strategy != "jwt" {
		errs = append(errs, fmt.Errorf("AUTH_STRATEGY %q: only jwt is supported", a.Auth.Strategy))
	}
	if a.Auth.Jwt.Expiry <= 0 {
		errs = append(errs, errors.New("AUTH_JWT_EXPIRY must be positive"))
	}
	if a.Cache.Driver != "memory" && a.Cache.Driver != "redis" {
		errs = append(errs, fmt.Errorf("CACHE_DRIVER %q: want memory or redis", a.Cache.Driver))
	}
	if a.EventBus.Driver != "memory" && a.EventBus.Driver != "redis" {
		errs = append(errs, fmt.Errorf("EVENT_BUS_DRIVER %q: want memory or redis", a.EventBus.Driver))
	}
	switch a.Log.Format {
	case "text", "json", "tint":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q: want text, json or tint", a.Log.Format))
	}
	if !currencyPattern.MatchString(a.Balance.Currency) {
		errs = append(errs, fmt.Errorf("BALANCE_CURRENCY %q: want a 3-letter code", a.Balance.Currency))
	}
	if a.Client.Timeout <= 0 {
		errs = append(errs, errors.New("CLIENT_TIMEOUT must be positive"))
	}
	if a.RateLimit.MaxRequests < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX_REQUESTS must be at least 1"))
	}
	return errors.Join(errs...)
}
