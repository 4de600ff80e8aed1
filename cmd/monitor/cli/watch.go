package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/authintegrate/authintegrate/internal/dashboard"
)

const clearScreen = "\033[H\033[2J"

func newWatchCmd() *cobra.Command {
	var (
		once   bool
		redraw bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow access activity until interrupted",
		Long: `Log in as an administrator, then keep a merged view of access logs current
from REST polls and the realtime stream. The stream is not reconnected when it
closes; polling continues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.OutOrStdout(), once, redraw)
		},
	}

	cmd.Flags().String("email", "", "administrator email")
	cmd.Flags().String("password", "", "administrator password")
	cmd.Flags().String("cache", defaultCachePath(), "SQLite file keeping recent pushes across restarts (\":memory:\" to disable)")
	cmd.Flags().Duration("timeout", 5*time.Second, "HTTP request timeout")
	cmd.Flags().BoolVar(&once, "once", false, "print a single snapshot and exit")
	cmd.Flags().BoolVar(&redraw, "clear", true, "clear the terminal before each redraw")

	viper.BindPFlag("auth.email", cmd.Flags().Lookup("email"))
	viper.BindPFlag("auth.password", cmd.Flags().Lookup("password"))
	viper.BindPFlag("cache.path", cmd.Flags().Lookup("cache"))
	viper.BindPFlag("http.timeout", cmd.Flags().Lookup("timeout"))

	return cmd
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ":memory:"
	}
	return filepath.Join(home, ".authmon", "cache.db")
}

func runWatch(out io.Writer, once, redraw bool) error {
	logger := newLogger()

	email, password := viper.GetString("auth.email"), viper.GetString("auth.password")
	if email == "" || password == "" {
		return errors.New("--email and --password (or AUTHMON_AUTH_EMAIL / AUTHMON_AUTH_PASSWORD) are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := dashboard.NewClient(viper.GetString("server.url"), viper.GetDuration("http.timeout"))
	if err != nil {
		return err
	}
	if err := client.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	cachePath := viper.GetString("cache.path")
	if cachePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cachePath), 0o700); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	persister, err := dashboard.OpenSQLite(ctx, cachePath)
	if err != nil {
		return err
	}
	defer persister.Close()

	cache, err := dashboard.NewCache(ctx, persister)
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}

	monitor := dashboard.NewMonitor(client, cache, logger, dashboard.DefaultIntervals)

	if once {
		if err := monitor.Refresh(ctx); err != nil {
			return err
		}
		return dashboard.Render(out, cache.View())
	}

	monitor.OnChange = func(s dashboard.Snapshot) {
		if redraw {
			fmt.Fprint(out, clearScreen)
		}
		if err := dashboard.Render(out, s); err != nil {
			logger.Warn("render", "error", err)
		}
	}

	stream := dashboard.NewStream(client.StreamURL(), client.SessionHeader(), monitor, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := stream.Run(ctx); err != nil {
			logger.Warn("realtime stream ended, continuing with polling", "error", err)
		}
	}()

	err = monitor.Run(ctx)
	stop()
	wg.Wait()
	return err
}
