package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const usage = `Usage: finboard-cli <command> [flags]

Commands:
  login     -email <email>                 sign in and print a session token
  balances  [-token <token>]               show every account balance and the total
  export    [-format csv|json] [-dir .]    download transactions to a file
  migrate                                  apply database migrations
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{
		stdin:  os.Stdin,
		stdout: color.Output,
		stderr: color.Error,
		readPassword: func() (string, error) {
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			return string(b), err
		},
	}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		color.New(color.FgRed).Fprintln(c.stderr, "Error:", err) //nolint:errcheck
		os.Exit(1)
	}
}

// cli holds the process streams so commands can be driven from tests.
type cli struct {
	stdin        io.Reader
	stdout       io.Writer
	stderr       io.Writer
	readPassword func() (string, error)
	// env overrides the .env lookup; tests point it at a temp file.
	env []string
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.stdout, usage) //nolint:errcheck
		return nil
	}
	switch args[0] {
	case "login":
		return c.login(ctx, args[1:])
	case "balances":
		return c.balances(ctx, args[1:])
	case "export":
		return c.export(ctx, args[1:])
	case "migrate":
		return c.migrate(args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(c.stdout, usage) //nolint:errcheck
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
}
