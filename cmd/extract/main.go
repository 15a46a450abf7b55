// Command extract downloads a Reddit thread and prints it as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"

	extractor "github.com/jamesprial/go-reddit-extractor"
	"github.com/jamesprial/go-reddit-extractor/pkg/media"
	"github.com/jamesprial/go-reddit-extractor/pkg/types"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "extract",
		Usage:     "Extract a Reddit thread with its media and comment tree",
		ArgsUsage: "[post URL]",
		Description: `Fetches one post and its comments through the Reddit OAuth API and
writes the result as JSON.

Credentials are read from REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET
(plus REDDIT_USERNAME and REDDIT_PASSWORD for the password grant),
after loading any --env-file, or .env when none is given.

Example:
  extract --comments 10 --depth 2 https://www.reddit.com/r/golang/comments/abc123/`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "id",
				Aliases: []string{"i"},
				Usage:   "Post ID, with or without the t3_ prefix",
			},
			&cli.IntFlag{
				Name:    "comments",
				Aliases: []string{"n"},
				Usage:   "Top-level comments to keep (-1 for all, 0 for none)",
				Value:   extractor.AllComments,
			},
			&cli.BoolFlag{
				Name:  "no-comments",
				Usage: "Skip comment retrieval",
			},
			&cli.StringFlag{
				Name:    "sort",
				Aliases: []string{"s"},
				Usage:   "Comment order: best, top, new, controversial, old, q&a or score",
				Value:   string(types.SortBest),
			},
			&cli.IntFlag{
				Name:    "depth",
				Aliases: []string{"d"},
				Usage:   "Reply depth to expand (-1 for unlimited)",
				Value:   extractor.UnlimitedDepth,
			},
			&cli.BoolFlag{
				Name:  "media-urls",
				Usage: "Print downloadable media URLs instead of the thread",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load credentials from this dotenv file (repeatable)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	logger := newLogger(os.Stderr, c.Bool("verbose"))

	opts, err := commentOptions(c.Int("comments"), c.Bool("no-comments"), c.String("sort"), c.Int("depth"))
	if err != nil {
		return err
	}

	id, postURL := c.String("id"), c.Args().First()
	if (id == "") == (postURL == "") {
		return cli.Exit("exactly one of --id or a post URL is required", 2)
	}

	cfg, err := extractor.LoadConfig(c.StringSlice("env-file")...)
	if err != nil {
		return err
	}
	cfg.Logger = logger

	ex, err := extractor.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	var thread *types.Thread
	if id != "" {
		thread, err = ex.Fetch(ctx, id, opts)
	} else {
		thread, err = ex.FetchURL(ctx, postURL, opts)
	}
	if err != nil {
		return err
	}
	logger.Debug("extraction finished", "elapsed", time.Since(start))

	out := c.App.Writer
	if c.Bool("media-urls") {
		return writeMediaURLs(out, thread)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(thread)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// commentOptions turns flag values into extractor options. noComments wins
// over limit.
func commentOptions(limit int, noComments bool, sort string, depth int) (extractor.CommentOptions, error) {
	opts := extractor.CommentOptions{
		Sort:     types.SortOrder(sort).Normalize(),
		Limit:    limit,
		MaxDepth: depth,
	}
	if noComments {
		opts.Limit = extractor.NoComments
	}
	if opts.Sort != "" && !opts.Sort.Valid() {
		return opts, cli.Exit(fmt.Sprintf("unknown sort %q", sort), 2)
	}
	if opts.Limit < extractor.AllComments {
		return opts, cli.Exit("--comments must be -1 or greater", 2)
	}
	if opts.MaxDepth < extractor.UnlimitedDepth {
		return opts, cli.Exit("--depth must be -1 or greater", 2)
	}
	return opts, nil
}

func writeMediaURLs(w io.Writer, thread *types.Thread) error {
	urls := media.DownloadableURLs(thread.Post.Media)
	urls = append(urls, media.CommentMediaURLs(thread.Comments)...)
	for _, u := range urls {
		if _, err := fmt.Fprintln(w, u); err != nil {
			return err
		}
	}
	return nil
}
