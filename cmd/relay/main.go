package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"sascheck/internal/app"
	"sascheck/internal/relay"
)

var log = logger.GetGoI2PLogger()

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SASCHECK_RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "relay",
		Short:         "Store-and-forward relay for durable sascheck runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), v)
		},
	}
	f := cmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.String("db", filepath.Join(app.DefaultHome(), "relay.db"), "bbolt database path")
	f.Float64("rate", float64(relay.DefaultLimits.Rate), "requests per second per client (0 disables)")
	f.Int("burst", relay.DefaultLimits.Burst, "burst size per client")
	_ = v.BindPFlags(f)
	return cmd
}

func serve(ctx context.Context, v *viper.Viper) error {
	dbPath := v.GetString("db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return err
	}
	store, err := relay.OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	limits := relay.Limits{Rate: rate.Limit(v.GetFloat64("rate")), Burst: v.GetInt("burst")}
	srv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           relay.NewServer(store, limits),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.WithFields(logger.Fields{"at": "serve", "addr": srv.Addr, "db": dbPath}).Info("relay listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithFields(logger.Fields{"at": "serve"}).WithError(err).Error("relay stopped")
		return err
	}
	return nil
}
