package main

import (
	"github.com/alecthomas/kong"
)

// Globals are flags shared by every command.
type Globals struct {
	Config  string `short:"c" help:"Configuration file path (default: config.yaml in . or ./config)" type:"path"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`
	LogFile bool   `help:"Also write logs to a rotating file under the log directory"`
}

type CLI struct {
	Globals

	Build BuildCmd `cmd:"" help:"Generate the sitemap for a source directory"`
	Crawl CrawlCmd `cmd:"" help:"Crawl a live site and generate its sitemap"`
	Serve ServeCmd `cmd:"" help:"Serve the sitemap and API, rebuilding on change or schedule"`
	Check CheckCmd `cmd:"" help:"Validate a sitemap file or URL"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("sitemapgen"),
		kong.Description("Generate sitemap.xml documents from content sources"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
