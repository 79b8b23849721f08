package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/printdock/printdock-backend/pkg/client"
	"github.com/printdock/printdock-backend/pkg/client/session"
	"github.com/printdock/printdock-backend/pkg/logger"
)

const defaultAPIURL = "http://localhost:8080"

type app struct {
	api      *client.Client
	sessions *session.Manager
	logg     *logger.Logger
	out      io.Writer
}

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api", envOr("STOREFRONT_API_URL", defaultAPIURL), "PrintDock API base URL")
	tokenPath := flag.String("token-file", "", "session file (defaults to the user config dir)")
	timeout := flag.Duration("timeout", 30*time.Second, "per-request timeout")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "warn"), "log level")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	logg := logger.New(logger.Options{ServiceName: "storefront", Level: logger.ParseLevel(*logLevel)})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(*apiURL, *tokenPath, *timeout, logg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		msg, code := client.Describe(err)
		var apiErr *client.Error
		if !errors.As(err, &apiErr) && client.Classify(err) == client.KindUnexpected {
			msg = err.Error()
		}
		if code != "" {
			fmt.Fprintf(os.Stderr, "storefront: %s (%s)\n", msg, code)
		} else {
			fmt.Fprintf(os.Stderr, "storefront: %s\n", msg)
		}
		os.Exit(1)
	}
}

func newApp(apiURL, tokenPath string, timeout time.Duration, logg *logger.Logger) (*app, error) {
	if tokenPath == "" {
		p, err := client.DefaultTokenPath()
		if err != nil {
			return nil, err
		}
		tokenPath = p
	}
	api, err := client.New(client.Config{BaseURL: apiURL, Timeout: timeout}, client.NewFileTokenStore(tokenPath), logg)
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewManager(api, session.Options{Logger: logg})
	if err != nil {
		return nil, err
	}
	return &app{api: api, sessions: sessions, logg: logg, out: os.Stdout}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.sessions.Logout(ctx)
	case "register":
		return a.register(ctx, args)
	case "forgot-password":
		return a.forgotPassword(ctx, args)
	case "me":
		return a.me(ctx)
	case "products":
		return a.products(ctx, args)
	case "quote":
		return a.quote(ctx, args)
	case "order":
		return a.order(ctx, args)
	case "orders":
		return a.orders(ctx, args)
	case "deposit":
		return a.deposit(ctx, args)
	case "batch":
		return a.batch(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// requireUser resolves the session before commands that need one.
func (a *app) requireUser(ctx context.Context) (*client.User, error) {
	user, err := a.sessions.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("not signed in, run: storefront login -email <email>")
	}
	return user, nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: storefront [flags] <command> [args]

commands:
  login            -email -password
  logout
  register         -email -password -company [-contact] [-phone]
  forgot-password  -email
  me
  products         [-search] [-id]
  quote            -item <product:qty[:color[:size[:opt,opt]]]>... [-shipping]
  order            -item ... -name -line1 -city -postal [-shipping] [-country]
  orders           [-status]
  deposit          -amount -method [-proof-url]
  batch            -file <orders.csv>

flags:
`)
	flag.PrintDefaults()
}
