package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/x2t/internal/app"
	"github.com/samvad-hq/x2t/internal/config"
	"github.com/samvad-hq/x2t/internal/logger"
	"github.com/samvad-hq/x2t/pkg/guard"
	"github.com/samvad-hq/x2t/pkg/tiktok"
	"github.com/spf13/pflag"
)

// errReported marks a failure whose record was already written to stdout.
var errReported = errors.New("failure already reported")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "x2t failed: %v\n", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string) (app.Invocation, error) {
	var inv app.Invocation
	fs := pflag.NewFlagSet("x2t", pflag.ContinueOnError)
	fs.StringVarP(&inv.Method, "method", "X", "", "HTTP method: GET, POST, PUT, PATCH or DELETE")
	fs.StringVarP(&inv.Endpoint, "endpoint", "e", "", "API endpoint path, e.g. /authorization/202309/shops")
	fs.StringArrayVarP(&inv.Params, "param", "p", nil, "query parameter as key=value (repeatable)")
	fs.StringArrayVarP(&inv.Headers, "header", "H", nil, "extra header as 'Name: value' (repeatable)")
	fs.StringVarP(&inv.Body, "body", "d", "", "JSON request body")
	fs.StringVarP(&inv.RequestFile, "request", "r", "", "YAML or JSON request file")
	fs.BoolVar(&inv.SignOnly, "sign-only", false, "print the signed URL without sending it")
	if err := fs.Parse(args); err != nil {
		return app.Invocation{}, err
	}
	return inv, nil
}

func run(args []string, stdout io.Writer) error {
	inv, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Close()

	log.DebugObj("x2t starting", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := app.NewRunner(cfg, nil, log)
	if err != nil {
		return err
	}

	// Invalid input fails here, outside the guard.
	req, err := runner.Prepare(inv)
	if err != nil {
		return err
	}

	call := guard.Wrap1("x2t.execute", func(req tiktok.Request) (*app.Output, error) {
		return runner.Execute(ctx, req, inv.SignOnly)
	}, guard.WithLog(false), guard.WithTiming(true), guard.WithLogger(log))

	res := call(req)
	if !res.OK() {
		_ = json.NewEncoder(stdout).Encode(res)
		return errReported
	}
	return printOutput(stdout, res.Value, inv.SignOnly)
}

func printOutput(w io.Writer, out *app.Output, signOnly bool) error {
	if signOnly {
		_, err := fmt.Fprintf(w, "%s %s\nsign: %s\n", out.Method, out.URL, out.Signature)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s %s -> %d\n", out.Method, out.URL, out.StatusCode); err != nil {
		return err
	}
	if _, err := w.Write(out.Body); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
