// Package extractor retrieves a single Reddit discussion thread: the root
// post, its attached media classified into structured items, and the nested
// comment tree.
//
// # Overview
//
// An Extractor fetches the post, then the comments, strictly in that order.
// Each remote call runs inside a retry loop (pkg/retry) that retries
// transient failures (HTTP 429/5xx, timeouts, connection resets) with
// exponential backoff and jitter, and translates anything else into one of
// four errors from pkg/errors.
//
// # Quick Start
//
// Credentials are read from the environment, optionally after loading a
// .env file:
//
//	cfg, err := extractor.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	cfg.Logger = slog.Default()
//
//	ex, err := extractor.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	thread, err := ex.FetchURL(ctx, "https://www.reddit.com/r/golang/comments/abc123/", extractor.DefaultCommentOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(thread.Post.Title, len(thread.Post.Media))
//
// # Comment Options
//
// CommentOptions bounds the tree:
//
//	opts := extractor.CommentOptions{
//		Sort:     types.SortScore, // fetched as "top", then re-sorted by score
//		Limit:    10,              // top-level comments; AllComments or NoComments
//		MaxDepth: 2,               // UnlimitedDepth expands every reply
//	}
//
// Deleted comments and "load more" placeholders are never counted toward
// Limit. Replies hidden behind placeholders are resolved through
// /api/morechildren; if that fails the node keeps the replies gathered so
// far and the fetch still succeeds.
//
// # Authentication
//
// Application-only authentication needs ClientID and ClientSecret. Adding
// Username and Password switches to the password grant. The token is
// requested lazily on the first call and cached until shortly before it
// expires.
//
// # Rate Limiting
//
// Requests are throttled client-side (60 per minute by default) and the
// client honours Retry-After and X-Ratelimit-* response headers.
//
// # Error Handling
//
//	thread, err := ex.Fetch(ctx, "abc123", opts)
//	if err != nil {
//		var authErr *errors.AuthError
//		var postErr *errors.PostRetrievalError
//		switch {
//		case errors.As(err, &authErr):
//			// 401/403: credentials rejected or post is private
//		case errors.As(err, &postErr):
//			// post missing, removed, or retries exhausted
//		}
//	}
//
// # Logging and Metrics
//
// Every Fetch logs through Config.Logger with a request_id attribute.
// Setting Config.Registerer publishes attempt, retry and failure counters
// to Prometheus.
package extractor
