package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/gurl-cli/gurl/internal/browserspec"
	"github.com/gurl-cli/gurl/internal/cookies"
	"github.com/gurl-cli/gurl/internal/httpclient"
	"github.com/gurl-cli/gurl/pkg/logger"
)

var version = "dev"

const userAgent = "gurl/1.0"

func main() {
	app := cli.NewApp()
	app.Name = "gurl"
	app.HelpName = "gurl"
	app.Usage = "transfer a URL with cookies borrowed from your browser"
	app.UsageText = "gurl [options] URL"
	app.Version = version
	app.Flags = gurlFlags
	app.UseShortOptionHandling = true
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "gurl: %s\n", err.Error())
		os.Exit(exitCodeFor(err))
	}
}

func run(ctx *cli.Context) error {
	rawURL := ctx.Args().First()
	if rawURL == "" {
		cli.ShowAppHelp(ctx)
		return fmt.Errorf("no URL given")
	}

	log := newLogger()
	defer log.Close()

	header, err := parseHeaders(ctx.StringSlice("header"))
	if err != nil {
		return err
	}
	if data != "" && !ctx.IsSet("request") {
		method = http.MethodPost
	}
	if data != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	reqCtx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(reqCtx, timeout)
		defer cancel()
	}

	var jar *cookies.Jar
	if browserSpec != "" {
		jar, err = loadCookies(reqCtx, log)
		if err != nil {
			return err
		}
	}

	client := httpclient.New(httpclient.Config{
		Method:          strings.ToUpper(method),
		Header:          header,
		Body:            []byte(data),
		FollowRedirects: follow,
		MaxRedirects:    maxRedirects,
		Insecure:        insecure,
		UserAgent:       userAgent,
		Jar:             jar,
		Log:             log,
	})

	resp, err := client.Do(reqCtx, rawURL)
	if err != nil {
		return err
	}
	log.Debug("%s %s", resp.Proto, resp.Status)

	var dst io.Writer = os.Stdout
	progress := false
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			resp.Body.Close()
			return err
		}
		defer f.Close()
		dst = f
		progress = true
	}
	if _, err := httpclient.WriteBody(resp, dst, progress, "Downloading"); err != nil {
		return err
	}
	return nil
}

// loadCookies runs the extraction for the -b spec and reports skipped
// cookies on stderr.
func loadCookies(ctx context.Context, log logger.Logger) (*cookies.Jar, error) {
	spec, err := browserspec.Parse(browserSpec)
	if err != nil {
		return nil, err
	}

	res, err := cookies.Extract(ctx, spec, cookies.Options{
		Logger: log,
		Strict: strictCookies,
	})
	if err != nil {
		return nil, err
	}
	for _, issue := range res.Issues {
		log.Warning("skipped cookie %s for %s: %v", issue.Name, issue.Domain, issue.Err)
	}
	log.Debug("loaded %d cookies from %s", res.Jar.Len(), spec)
	return res.Jar, nil
}

func newLogger() logger.Logger {
	return logger.NewStandardLogger(log.New(os.Stderr, "", 0), verbose)
}

// parseHeaders converts repeated -H 'Name: value' flags into a header
// map.
func parseHeaders(values []string) (http.Header, error) {
	header := http.Header{}
	for _, raw := range values {
		name, value, found := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Name: value'", raw)
		}
		header.Add(name, strings.TrimSpace(value))
	}
	return header, nil
}
