// Command inflight issues coalesced HTTP requests through a multiplexer.
//
// Usage:
//
//	inflight fetch [-config config.yml] [-n 8] [-method GET] <url|path>
//	inflight version
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/inflight/bootstrap"
	"github.com/kbukum/inflight/config"
	"github.com/kbukum/inflight/flight"
	"github.com/kbukum/inflight/version"
)

const serviceName = "inflight"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "fetch":
		if err := runFetch(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
			os.Exit(1)
		}
	case "version":
		printVersion(os.Stdout)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	n := fs.Int("n", 8, "Number of concurrent identical requests")
	method := fs.String("method", http.MethodGet, "HTTP method")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one URL or path, got %d", fs.NArg())
	}

	var opts []config.LoaderOption
	if *configPath != "" {
		opts = append(opts, config.WithConfigFile(*configPath))
	}
	cfg, err := config.Load(serviceName, opts...)
	if err != nil {
		return err
	}

	app, err := bootstrap.NewApp(cfg, bootstrap.WithSummaryOutput(os.Stderr))
	if err != nil {
		return err
	}

	ep := app.Endpoint(strings.ToUpper(*method), fs.Arg(0))
	return app.RunTask(context.Background(), func(ctx context.Context) error {
		return fetch(ctx, app.Mux, ep, *n, os.Stdout)
	})
}

// fetchReport is printed as JSON once every request has completed.
type fetchReport struct {
	URL         string `json:"url"`
	Requests    int    `json:"requests"`
	Succeeded   int64  `json:"succeeded"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Bytes       int    `json:"bytes"`
	Error       string `json:"error,omitempty"`
}

// fetch requests ep n times concurrently and writes a report to w. All n
// requests share whatever call is in flight for ep.
func fetch(ctx context.Context, mux *flight.Multiplexer[flight.Endpoint], ep flight.Endpoint, n int, w io.Writer) error {
	if n < 1 {
		n = 1
	}

	var (
		succeeded atomic.Int64
		first     atomic.Pointer[flight.Response]
	)
	g, gctx := errgroup.WithContext(ctx)
	for range n {
		g.Go(func() error {
			resp, err := mux.Request(ep).Await(gctx)
			if err != nil {
				return err
			}
			succeeded.Add(1)
			first.CompareAndSwap(nil, resp)
			return nil
		})
	}
	err := g.Wait()

	report := fetchReport{URL: ep.URL, Requests: n, Succeeded: succeeded.Load()}
	if resp := first.Load(); resp != nil {
		report.StatusCode = resp.StatusCode
		report.ContentType = resp.HeaderValue("Content-Type")
		report.Bytes = len(resp.Data)
	}
	if err != nil {
		report.Error = err.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(report); encErr != nil {
		return encErr
	}
	return err
}

func printVersion(w io.Writer) {
	info := version.GetVersionInfo()
	fmt.Fprintf(w, "inflight %s\n", version.GetShortVersion())
	fmt.Fprintf(w, "  go:     %s\n", info.GoVersion)
	if !info.BuildDate.IsZero() {
		fmt.Fprintf(w, "  built:  %s\n", info.BuildDate.Format("2006-01-02T15:04:05Z07:00"))
	}
}

func printUsage() {
	fmt.Println(`inflight - coalescing HTTP client

Usage:
  inflight <command> [options]

Commands:
  fetch     Send identical concurrent requests through one multiplexer
  version   Show version information
  help      Show this help message

Options for 'fetch':
  -config <path>   Path to configuration file (YAML)
  -n <count>       Number of concurrent identical requests (default 8)
  -method <verb>   HTTP method (default GET)

Relative paths are joined onto transport.base_url.`)
}
