package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/kursio/weft"
	"github.com/kursio/weft/pkg/adapters/httpapi"
	redisadapter "github.com/kursio/weft/pkg/adapters/redis"
	"github.com/kursio/weft/pkg/llm/openai"
)

var serveCmd = &cobra.Command{
	Use:   "serve <graph-file>...",
	Short: "Serve training flows over the HTTP API",
	Long: `Registers each graph file under its base name (flow.yaml -> "flow")
and serves the JSON API. With --redis, sessions are stored in Redis and
guarded by a distributed lock so multiple replicas can share them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		addr, _ := cmd.Flags().GetString("addr")
		redisAddr, _ := cmd.Flags().GetString("redis")

		opts := []weft.Option{weft.WithLogger(logger)}
		if redisAddr != "" {
			client := backend.NewClient(&backend.Options{Addr: redisAddr})
			opts = append(opts,
				weft.WithStore(redisadapter.NewFromClient(client)),
				weft.WithLocker(redisadapter.NewLocker(client, "")),
			)
		}

		engine := weft.New(openai.New(), opts...)
		for _, path := range args {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if err := engine.Graphs().RegisterFile(name, path); err != nil {
				return fmt.Errorf("load graph %s: %w", path, err)
			}
			logger.Info("graph registered", "name", name, "path", path)
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: httpapi.NewHandler(engine, httpapi.WithLogger(logger)),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("http server listening", "addr", addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("redis", "", "Redis address for shared session storage (host:port)")
	rootCmd.AddCommand(serveCmd)
}
