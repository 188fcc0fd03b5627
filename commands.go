package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Itish41/FranchiseOps/controller"
	"github.com/Itish41/FranchiseOps/initializers"
	"github.com/Itish41/FranchiseOps/middleware"
	services "github.com/Itish41/FranchiseOps/service"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	config     initializers.Config
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "franchise-ops",
		Short: "Action engine and automation processor for franchise locations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.ConfigFile != "" {
				if err := os.Setenv("CONFIG_FILE", opts.ConfigFile); err != nil {
					return err
				}
			}
			cfg, err := initializers.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			opts.config = cfg
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to YAML config file (overrides CONFIG_FILE)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRunActionsCommand(opts))
	cmd.AddCommand(NewRunAutomationsCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	return cmd
}

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Schedule    bool
	SkipMigrate bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server with the cron trigger and action item routes.

With --schedule the action engine and automation processor also run
in-process on the intervals from the engine config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(commandContext(cmd), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Schedule, "schedule", false, "run jobs on an in-process scheduler")
	cmd.Flags().BoolVar(&opts.SkipMigrate, "skip-migrate", false, "do not run migrations on startup")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func serve(parent context.Context, opts *ServeOptions) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(opts.config, !opts.SkipMigrate)
	if err != nil {
		return err
	}

	middleware.GlobalRateLimiter.StartReset(ctx)
	middleware.StrictRateLimiter.StartReset(ctx)

	var scheduler *services.Scheduler
	if opts.Schedule {
		scheduler = services.NewScheduler(
			services.Job{
				Name:     "action-engine",
				Interval: opts.config.Engine.ActionInterval,
				Run:      func(ctx context.Context) { app.Engine.Run(ctx) },
			},
			services.Job{
				Name:     "automations",
				Interval: opts.config.Engine.AutomationInterval,
				Run:      func(ctx context.Context) { app.Processor.Process(ctx) },
			},
		)
		scheduler.Start(ctx)
	}

	srv := &http.Server{
		Addr:    ":" + opts.config.Port,
		Handler: controller.NewRouter(app.Routes()),
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			serveErr = fmt.Errorf("server shutdown: %w", err)
		}
	}
	stop()
	if scheduler != nil {
		scheduler.Wait()
	}
	return serveErr
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func NewRunActionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run-actions",
		Short: "Run the action engine once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(rootOpts.config, false)
			if err != nil {
				return err
			}
			return printJSON(cmd, app.Engine.Run(commandContext(cmd)))
		},
	}
}

func NewRunAutomationsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run-automations",
		Short: "Process due automation enrollments once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(rootOpts.config, false)
			if err != nil {
				return err
			}
			return printJSON(cmd, app.Processor.Process(commandContext(cmd)))
		},
	}
}

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initializers.ConnectDB(rootOpts.config); err != nil {
				return err
			}
			return initializers.Migrate(rootOpts.config)
		},
	}
}
