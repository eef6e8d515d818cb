package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/w-h-a/ragchat"
	"github.com/w-h-a/ragchat/calendar"
	localcalendar "github.com/w-h-a/ragchat/calendar/local"
	utcpcalendar "github.com/w-h-a/ragchat/calendar/utcp"
	"github.com/w-h-a/ragchat/chatstore"
	memorychatstore "github.com/w-h-a/ragchat/chatstore/memory"
	postgreschatstore "github.com/w-h-a/ragchat/chatstore/postgres"
	"github.com/w-h-a/ragchat/crawler"
	"github.com/w-h-a/ragchat/docstore"
	"github.com/w-h-a/ragchat/embedder"
	localembedder "github.com/w-h-a/ragchat/embedder/local"
	openaiembedder "github.com/w-h-a/ragchat/embedder/openai"
	"github.com/w-h-a/ragchat/memory"
	"github.com/w-h-a/ragchat/moderator"
	"github.com/w-h-a/ragchat/retriever"
	httpserver "github.com/w-h-a/ragchat/server/http"
)

var (
	cfg struct {
		// Server config
		Address  string        `help:"Address for the http server to listen on" default:":8000"`
		CacheTTL time.Duration `help:"TTL for duplicate request suppression" default:"30s"`

		// Embedder config
		EmbedderKey string `help:"API Key for the embedder; empty selects the local embedder" default:""`
		Embedder    string `help:"Model identifier for embedder" default:"text-embedding-3-small"`

		// Retrieval config
		TopK   int     `help:"Number of chunks to select per question" default:"5"`
		FetchK int     `help:"Size of the relevance-ranked candidate pool" default:"20"`
		Lambda float64 `help:"Relevance/diversity tradeoff for candidate selection" default:"0.7"`

		// Crawler config
		CrawlMaxPages int           `help:"Maximum number of pages to crawl per url" default:"50"`
		CrawlTimeout  time.Duration `help:"Per-request timeout while crawling" default:"20s"`

		// Chat store config
		ChatStoreLocation string `help:"Postgres location for durable chat history; empty selects the in-memory store" default:""`

		// Calendar config
		CalendarAddrs []string `help:"List of addresses of calendar tool servers; empty selects the local calendar" default:""`
	}
)

func main() {
	// Parse inputs
	_ = godotenv.Load()
	_ = kong.Parse(&cfg)
	ctx := context.Background()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Create embedder
	var e embedder.Embedder
	if len(cfg.EmbedderKey) > 0 {
		e = openaiembedder.NewEmbedder(
			embedder.WithApiKey(cfg.EmbedderKey),
			embedder.WithModel(cfg.Embedder),
		)
	} else {
		e = localembedder.NewEmbedder()
	}

	// Create retrieval pipeline
	store := docstore.NewStore(e)

	c := crawler.NewCrawler(
		crawler.WithMaxPages(cfg.CrawlMaxPages),
		crawler.WithTimeout(cfg.CrawlTimeout),
	)

	r := retriever.NewRetriever(
		store,
		e,
		c,
		retriever.WithK(cfg.TopK),
		retriever.WithFetchK(cfg.FetchK),
		retriever.WithLambda(cfg.Lambda),
	)

	// Create engine
	engine := ragchat.New(store, memory.NewStore(), r)

	// Create durable chat history
	var chats chatstore.Store
	if len(cfg.ChatStoreLocation) > 0 {
		chats = postgreschatstore.NewStore(
			chatstore.WithLocation(cfg.ChatStoreLocation),
		)
	} else {
		chats = memorychatstore.NewStore()
	}

	// Create calendar
	var client calendar.Client
	if len(cfg.CalendarAddrs) > 0 {
		var err error
		client, err = utcpcalendar.NewClient(
			utcpcalendar.WithAddrs(cfg.CalendarAddrs...),
		)
		if err != nil {
			log.Fatalf("failed to create calendar client: %v", err)
		}
	} else {
		client = localcalendar.NewClient()
	}

	// Create server
	srv := httpserver.NewServer(
		engine,
		moderator.NewModerator(),
		chats,
		calendar.NewScheduler(client),
		e,
		httpserver.WithAddress(cfg.Address),
		httpserver.WithCacheTTL(cfg.CacheTTL),
	)

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	case <-stop:
		slog.InfoContext(ctx, "shutting down")

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			log.Fatalf("failed to stop server: %v", err)
		}
	}
}
