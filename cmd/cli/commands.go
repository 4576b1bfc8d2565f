package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/amirasaad/finboard/infra"
	"github.com/amirasaad/finboard/pkg/client"
	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/export"
	"github.com/amirasaad/finboard/pkg/service/balance"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	labelColor = color.New(color.Bold)
	moneyColor = color.New(color.FgGreen)
	errorColor = color.New(color.FgRed)
	staleColor = color.New(color.FgYellow)
)

// clientConfig reads only the CLIENT_* settings so client commands work
// without a server configuration.
func (c *cli) clientConfig() (*config.Client, error) {
	_ = godotenv.Load(c.env...)
	var cfg config.Client
	if err := envconfig.Process("CLIENT", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *cli) newClient(token string) (*client.Client, error) {
	cfg, err := c.clientConfig()
	if err != nil {
		return nil, err
	}
	if token != "" {
		cfg.Token = token
	}
	logger := slog.New(slog.DiscardHandler)
	return client.New(cfg, logger), nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fmt.Fprint(c.stdout, "Email: ") //nolint:errcheck
		line, err := bufio.NewReader(c.stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read email: %w", err)
		}
		*email = strings.TrimSpace(line)
	}
	fmt.Fprint(c.stdout, "Password: ") //nolint:errcheck
	password, err := c.readPassword()
	fmt.Fprintln(c.stdout) //nolint:errcheck
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	cl, err := c.newClient("")
	if err != nil {
		return err
	}
	sess, err := cl.Login(ctx, *email, password)
	if errors.Is(err, domain.ErrUnauthorized) {
		return errors.New("email or password is incorrect")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Token (expires %s):\n%s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"), sess.Token) //nolint:errcheck
	fmt.Fprintln(c.stdout, "Export it as CLIENT_TOKEN to use the other commands.")                                    //nolint:errcheck
	return nil
}

func (c *cli) balances(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balances", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	token := fs.String("token", "", "session token (default $CLIENT_TOKEN)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cl, err := c.newClient(*token)
	if err != nil {
		return err
	}

	agg := balance.NewAggregator(cl)
	defer agg.Close()
	fetchErr := agg.FetchAll(ctx)
	if errors.Is(fetchErr, domain.ErrUnauthorized) {
		return errors.New("not signed in: run login and set CLIENT_TOKEN")
	}

	snap := agg.Snapshot()
	currency := ""
	for _, kind := range domain.Kinds() {
		st := snap.States[kind]
		labelColor.Fprintf(c.stdout, "%-18s", kind.Label()) //nolint:errcheck
		switch {
		case st.Data != nil:
			currency = st.Data.Currency
			moneyColor.Fprintf(c.stdout, "%s %s", st.Data.Currency, st.Data.Amount.StringFixed(2)) //nolint:errcheck
			if st.Error != "" {
				staleColor.Fprint(c.stdout, " (stale)") //nolint:errcheck
			}
		case st.Error != "":
			errorColor.Fprint(c.stdout, st.Error) //nolint:errcheck
		default:
			fmt.Fprint(c.stdout, "-") //nolint:errcheck
		}
		fmt.Fprintln(c.stdout) //nolint:errcheck
	}
	labelColor.Fprintf(c.stdout, "%-18s", "Total")                                           //nolint:errcheck
	moneyColor.Fprintln(c.stdout, strings.TrimSpace(currency+" "+snap.Total.StringFixed(2))) //nolint:errcheck
	return nil
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	token := fs.String("token", "", "session token (default $CLIENT_TOKEN)")
	formatFlag := fs.String("format", "csv", "csv or json")
	dir := fs.String("dir", ".", "directory to write the file to")
	from := fs.String("from", "", "start date, YYYY-MM-DD")
	to := fs.String("to", "", "end date, YYYY-MM-DD")
	kind := fs.String("account", "", "comma-separated account kinds")
	typ := fs.String("type", "", "credit or debit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}
	cl, err := c.newClient(*token)
	if err != nil {
		return err
	}

	query := url.Values{}
	for key, v := range map[string]string{"start_date": *from, "end_date": *to, "account": *kind, "type": *typ} {
		if v != "" {
			query.Set(key, v)
		}
	}
	out, err := cl.Export(ctx, format, query)
	if err != nil {
		return err
	}
	path := filepath.Join(*dir, filepath.Base(out.Filename))
	if err := os.WriteFile(path, out.Body, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(c.stdout, "Wrote %s (%d bytes)\n", path, len(out.Body)) //nolint:errcheck
	return nil
}

func (c *cli) migrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(c.env...)
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}
	if cfg.DB.Driver == "memory" {
		return errors.New("the memory database driver has no schema to migrate")
	}
	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close() //nolint:errcheck
	}
	logger := slog.New(slog.NewTextHandler(c.stderr, nil))
	if err := infra.Migrate(db, logger); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Migrations applied") //nolint:errcheck
	return nil
}
