package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/locshare/internal/service_registry"
	"github.com/benmeehan/locshare/internal/state_managers"
	"github.com/benmeehan/locshare/internal/utils"
	"github.com/benmeehan/locshare/pkg/file"
	"github.com/benmeehan/locshare/pkg/identity"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Share this device's location and show peers until interrupted",
	RunE:  runAgent,
}

func init() {
	RootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(cfgFile, fileClient)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		config.Log.Level = logLevel
	}

	// Logs go to stderr so they do not interleave with the map on stdout
	log, err := utils.NewLogger(config.Log.Level, config.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	session := identity.NewSession(config.Session.Prefix, config.Session.Length)
	log = log.With().Str("user_id", session.GetUserID()).Logger()
	log.Info().Str("endpoint", config.Channel.Endpoint).Msg("Session created")

	state := state_managers.NewTrackingStateManager(log.With().Str("component", "state").Logger())

	ch, err := service_registry.NewChannel(config, session, fileClient, log)
	if err != nil {
		return err
	}
	provider, err := service_registry.NewLocationProvider(config, log)
	if err != nil {
		return err
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(log)
	serviceRegistry.RegisterServices(config, service_registry.Dependencies{
		Session:  session,
		Channel:  ch,
		Provider: provider,
		State:    state,
		Output:   cmd.OutOrStdout(),
	})

	if err := serviceRegistry.StartServices(); err != nil {
		return err
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	state.Unmount()
	return serviceRegistry.StopServices()
}
