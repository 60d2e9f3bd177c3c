// Command sitemap_analyzer checks a sitemap file or URL and samples the pages
// it lists.
package main

import (
	"context"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/romangod6/sitemapgen/internal/checker"
)

var cli struct {
	Target  string        `arg:"" help:"Sitemap file path or URL"`
	Samples int           `short:"n" help:"Number of listed pages to fetch and inspect" default:"3"`
	Timeout time.Duration `help:"Overall timeout" default:"2m"`
}

func main() {
	kong.Parse(&cli, kong.Description("Analyze a sitemap document"))

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), cli.Timeout)
	defer cancel()

	report, err := checker.New(nil, logger).Check(ctx, cli.Target, cli.Samples)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error checking sitemap")
	}

	report.Write(os.Stdout)
	if !report.OK() {
		os.Exit(1)
	}
}
