// Command browsercheck opens the configured browser against the job board
// once and reports what the scraper would see: cookies, page title, whether
// a bot wall was served, and a screenshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go-jobboard-scraper/internal/app"
	"go-jobboard-scraper/internal/browser"
	"go-jobboard-scraper/internal/config"
	"go-jobboard-scraper/internal/proxy"
	"go-jobboard-scraper/internal/scraper/monster"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to the YAML config")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log, err := app.NewLogger(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	opts := cfg.BrowserOptions()
	if opts.CookiesPath != "" {
		cookies, err := browser.LoadCookies(opts.CookiesPath)
		if err != nil {
			fmt.Printf("cookies: none (%v)\n", err)
		} else {
			fmt.Printf("cookies: %d loaded from %s\n", len(cookies), opts.CookiesPath)
		}
	}

	endpoint := proxy.New(cfg.Proxies).Next()
	fmt.Printf("proxy: %s\n", orDirect(proxy.Redact(endpoint)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sess, err := browser.NewPlaywrightLauncher(opts, log).Open(ctx, endpoint)
	if err != nil {
		return err
	}
	defer sess.Close()

	site := monster.Site(cfg.Site.Selectors)
	if err := sess.Navigate(ctx, site.HomeURL); err != nil {
		return err
	}
	title, err := sess.Title(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("title: %s\n", title)

	for _, marker := range site.BlockedTitles {
		if strings.Contains(strings.ToLower(title), strings.ToLower(marker)) {
			fmt.Println("status: blocked by bot protection")
			break
		}
	}
	if err := sess.WaitForSelector(ctx, site.Selectors.QueryInput, 15*time.Second); err != nil {
		fmt.Printf("search form: not found (%v)\n", err)
	} else {
		fmt.Println("search form: found")
	}

	if shot, ok := sess.(browser.Screenshotter); ok {
		path, err := shot.Screenshot("browsercheck")
		if err != nil {
			fmt.Printf("screenshot: failed (%v)\n", err)
		} else {
			fmt.Printf("screenshot: %s\n", path)
		}
	}
	return nil
}

func orDirect(s string) string {
	if s == "" {
		return "direct"
	}
	return s
}
