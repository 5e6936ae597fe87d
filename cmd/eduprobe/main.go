// Command eduprobe exercises a platform backend from the command line:
// login, session restore, refresh, and logout against a real deployment,
// with the credential set persisted in a profile directory so consecutive
// invocations behave like one browser tab.
//
// Configuration comes from the environment:
//
//	EDUSESSION_BASE_URL        backend origin (required)
//	EDUSESSION_PROFILE_DIR     credential directory (default ".edusession")
//	EDUSESSION_TIMEOUT         request timeout (default 15s)
//	EDUSESSION_ALLOW_INSECURE  permit a plain-http base URL
//	EDUSESSION_HARDEN          block private/loopback destinations
//	EDUSESSION_AUDIT_LOG       append session events as JSON lines
//
// Usage:
//
//	eduprobe login -phone 13800138000 -password secret
//	eduprobe me
//	eduprobe refresh
//	eduprobe logout
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	edusession "github.com/edusoft/edusession"
)

type settings struct {
	BaseURL       string        `env:"EDUSESSION_BASE_URL"`
	ProfileDir    string        `env:"EDUSESSION_PROFILE_DIR" envDefault:".edusession"`
	Timeout       time.Duration `env:"EDUSESSION_TIMEOUT" envDefault:"15s"`
	AllowInsecure bool          `env:"EDUSESSION_ALLOW_INSECURE" envDefault:"false"`
	Harden        bool          `env:"EDUSESSION_HARDEN" envDefault:"false"`
	AuditLog      string        `env:"EDUSESSION_AUDIT_LOG"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var cfg settings
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "eduprobe: %v\n", err)
		return 2
	}
	if cfg.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "eduprobe: EDUSESSION_BASE_URL is required")
		return 2
	}
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "eduprobe: usage: eduprobe <login|me|refresh|logout> [flags]")
		return 2
	}

	conf := edusession.DefaultConfig()
	conf.Backend.BaseURL = cfg.BaseURL
	conf.Backend.RequestTimeout = cfg.Timeout
	conf.Backend.AllowInsecureBaseURL = cfg.AllowInsecure
	conf.Transport.HardenOutbound = cfg.Harden
	conf.Store.ProfileDir = cfg.ProfileDir

	builder := edusession.New().WithConfig(conf)

	var auditFile *os.File
	if cfg.AuditLog != "" {
		f, err := os.OpenFile(cfg.AuditLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "eduprobe: open audit log: %v\n", err)
			return 1
		}
		auditFile = f
		builder = builder.WithAuditSink(edusession.NewJSONWriterSink(f))
	}

	client, state, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "eduprobe: %v\n", err)
		return 1
	}
	defer func() {
		client.Close()
		if auditFile != nil {
			_ = auditFile.Close()
		}
	}()

	ctx := edusession.WithClientTag(context.Background(), "eduprobe")

	switch os.Args[1] {
	case "login":
		return cmdLogin(ctx, client, state, os.Args[2:])
	case "me":
		return cmdMe(ctx, state)
	case "refresh":
		return cmdRefresh(ctx, client)
	case "logout":
		state.Logout(ctx)
		fmt.Println("logged out")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "eduprobe: unknown command %q\n", os.Args[1])
		return 2
	}
}

func cmdLogin(ctx context.Context, client *edusession.Client, state *edusession.State, args []string) int {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	phone := fs.String("phone", "", "account phone number")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	if *phone == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "eduprobe: -phone and -password are required")
		return 2
	}

	user, err := client.LoginWithPassword(ctx, *phone, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eduprobe: login failed: %v\n", err)
		return 1
	}
	if err := state.AdoptLogin(ctx, user); err != nil {
		fmt.Fprintf(os.Stderr, "eduprobe: %v\n", err)
		return 1
	}

	fmt.Printf("logged in as %s (%s)\n", user.Name, user.Role)
	if exp, ok := client.TokenExpiry(ctx); ok {
		fmt.Printf("access token expires %s\n", exp.Format(time.RFC3339))
	}
	return 0
}

func cmdMe(ctx context.Context, state *edusession.State) int {
	user, err := state.Init(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eduprobe: session check failed: %v\n", err)
		return 1
	}
	fmt.Printf("session valid: %s (%s, %s)\n", user.Name, user.Role, user.Phone)
	return 0
}

func cmdRefresh(ctx context.Context, client *edusession.Client) int {
	pair, err := client.Refresh(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eduprobe: refresh failed: %v\n", err)
		return 1
	}
	fmt.Printf("token pair rotated (expires in %ds)\n", pair.ExpiresIn)
	return 0
}
