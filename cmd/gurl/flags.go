package main

import (
	"time"

	"github.com/urfave/cli"
)

const defMaxRedirects = 10

var (
	browserSpec   string
	method        string
	data          string
	follow        bool
	maxRedirects  int
	outputPath    string
	insecure      bool
	timeout       time.Duration
	strictCookies bool
	verbose       bool
)

var gurlFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "cookies-from-browser, b",
		Usage:       "load cookies from a browser: BROWSER[+KEYRING][:PROFILE][::CONTAINER]",
		EnvVar:      "GURL_COOKIES_FROM_BROWSER",
		Destination: &browserSpec,
	},
	cli.StringFlag{
		Name:        "request, X",
		Usage:       "HTTP method to use",
		Value:       "GET",
		Destination: &method,
	},
	cli.StringSliceFlag{
		Name:  "header, H",
		Usage: "extra request header, repeatable ('Name: value')",
	},
	cli.StringFlag{
		Name:        "data, d",
		Usage:       "request body (implies POST unless -X is given)",
		Destination: &data,
	},
	cli.BoolFlag{
		Name:        "location, L",
		Usage:       "follow redirects",
		Destination: &follow,
	},
	cli.IntFlag{
		Name:        "max-redirs",
		Usage:       "maximum number of redirects to follow",
		Value:       defMaxRedirects,
		Destination: &maxRedirects,
	},
	cli.StringFlag{
		Name:        "output, o",
		Usage:       "write the response body to a file instead of stdout",
		Destination: &outputPath,
	},
	cli.BoolFlag{
		Name:        "insecure, k",
		Usage:       "skip TLS certificate verification",
		Destination: &insecure,
	},
	cli.DurationFlag{
		Name:        "timeout",
		Usage:       "overall request timeout (0 disables)",
		Destination: &timeout,
	},
	cli.BoolFlag{
		Name:        "strict-cookies",
		Usage:       "fail instead of skipping cookies that cannot be decrypted",
		Destination: &strictCookies,
	},
	cli.BoolFlag{
		Name:        "verbose, v",
		Usage:       "enable debug logging on stderr",
		Destination: &verbose,
	},
}
