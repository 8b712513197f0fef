package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"vancedhelper/pkg/config"
)

// BotService implements service.Interface so the bot can run under
// systemd, launchd, or the Windows service manager.
type BotService struct {
	app    *fx.App
	logger service.Logger
}

// NewBotService creates a new bot service.
func NewBotService() *BotService {
	return &BotService{}
}

// Start implements service.Interface.Start
func (s *BotService) Start(svc service.Service) error {
	if s.logger != nil {
		s.logger.Info("Starting vancedhelper service")
	}

	// Start in a goroutine to not block
	go s.run()

	return nil
}

// Stop implements service.Interface.Stop
func (s *BotService) Stop(svc service.Service) error {
	if s.logger != nil {
		s.logger.Info("Stopping vancedhelper service")
	}

	if s.app != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.app.Stop(ctx); err != nil {
			if s.logger != nil {
				s.logger.Errorf("Error stopping service: %v", err)
			}
			return err
		}
	}

	return nil
}

// run starts the bot application.
func (s *BotService) run() {
	bootstrapEnv()

	s.app = botApp(
		fx.NopLogger, // Suppress fx logs when running as service
	)
	s.app.Run()
}

// ServiceConfig returns the service configuration. The config path in
// effect is propagated so the service process loads the same file.
func ServiceConfig() *service.Config {
	args := []string{"service", "run"}

	path := strings.TrimSpace(configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.ConfigPathEnv))
	}
	if path != "" {
		args = append([]string{"-c", path}, args...)
	}

	return &service.Config{
		Name:        "vancedhelper",
		DisplayName: "VancedHelper Bot",
		Description: "VancedHelper interactive chat bot for Discord and Telegram",
		Arguments:   args,
	}
}

// InstallService installs the bot as a system service.
func InstallService() error {
	svcConfig := ServiceConfig()
	prg := NewBotService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	logger, err := s.Logger(nil)
	if err != nil {
		return fmt.Errorf("creating service logger: %w", err)
	}
	prg.logger = logger

	if err := s.Install(); err != nil {
		return fmt.Errorf("installing service: %w", err)
	}

	fmt.Println("Service installed successfully!")
	fmt.Println("Use 'vancedhelper service start' to start the service")
	return nil
}

// UninstallService uninstalls the bot service.
func UninstallService() error {
	svcConfig := ServiceConfig()
	prg := NewBotService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	if err := s.Uninstall(); err != nil {
		return fmt.Errorf("uninstalling service: %w", err)
	}

	fmt.Println("Service uninstalled successfully!")
	return nil
}

// StartService starts the bot service.
func StartService() error {
	svcConfig := ServiceConfig()
	prg := NewBotService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	if err := s.Start(); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}

	fmt.Println("Service started successfully!")
	return nil
}

// StopService stops the bot service.
func StopService() error {
	svcConfig := ServiceConfig()
	prg := NewBotService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	if err := s.Stop(); err != nil {
		return fmt.Errorf("stopping service: %w", err)
	}

	fmt.Println("Service stopped successfully!")
	return nil
}

// RestartService restarts the bot service.
func RestartService() error {
	svcConfig := ServiceConfig()
	prg := NewBotService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	if err := s.Restart(); err != nil {
		return fmt.Errorf("restarting service: %w", err)
	}

	fmt.Println("Service restarted successfully!")
	return nil
}

// StatusService checks the status of the bot service.
func StatusService() error {
	svcConfig := ServiceConfig()
	prg := NewBotService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	status, err := s.Status()
	if err != nil {
		return fmt.Errorf("getting service status: %w", err)
	}

	statusStr := "Unknown"
	switch status {
	case service.StatusRunning:
		statusStr = "Running"
	case service.StatusStopped:
		statusStr = "Stopped"
	case service.StatusUnknown:
		statusStr = "Unknown"
	}

	fmt.Printf("Service Status: %s\n", statusStr)
	return nil
}

// RunService runs the bot service (called by the service manager).
func RunService() error {
	svcConfig := ServiceConfig()
	prg := NewBotService()

	s, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	logger, err := s.Logger(nil)
	if err != nil {
		return fmt.Errorf("creating service logger: %w", err)
	}
	prg.logger = logger

	if err := s.Run(); err != nil {
		logger.Error(err)
		return err
	}

	return nil
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the bot as a system service",
	Long: `Manage the vancedhelper bot as a system service.

This registers the bot with the system service manager:
- Linux: systemd
- macOS: launchd
- Windows: Windows Service Manager

Examples:
  # Install as system service (requires sudo/admin privileges)
  sudo vancedhelper service install

  # Control the service
  sudo vancedhelper service start
  sudo vancedhelper service stop
  sudo vancedhelper service restart
  vancedhelper service status

  # Uninstall the service
  sudo vancedhelper service uninstall`,
}

var serviceRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot in foreground or as a service",
	Long:  `Run the bot. When installed as a service, this is called automatically.`,
	Run:   runServiceRun,
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the bot as a system service",
	Long: `Install the vancedhelper bot as a system service.

The service will be configured to start automatically on system boot.
Requires administrator/root privileges.`,
	Run: runServiceInstall,
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the bot service",
	Long: `Uninstall the vancedhelper system service.

The service will be stopped before uninstallation.
Requires administrator/root privileges.`,
	Run: runServiceUninstall,
}

var serviceStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the bot service",
	Long: `Start the vancedhelper service.

The service must be installed first using 'vancedhelper service install'.
Requires administrator/root privileges.`,
	Run: runServiceStart,
}

var serviceStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the bot service",
	Long: `Stop the running vancedhelper service.

Requires administrator/root privileges.`,
	Run: runServiceStop,
}

var serviceRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the bot service",
	Long: `Restart the vancedhelper service.

This will stop and then start the service.
Requires administrator/root privileges.`,
	Run: runServiceRestart,
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the bot service status",
	Long:  `Check the status of the vancedhelper service.`,
	Run:   runServiceStatus,
}

func init() {
	serviceCmd.AddCommand(serviceRunCmd)
	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)
	serviceCmd.AddCommand(serviceStartCmd)
	serviceCmd.AddCommand(serviceStopCmd)
	serviceCmd.AddCommand(serviceRestartCmd)
	serviceCmd.AddCommand(serviceStatusCmd)
}

// runServiceRun runs the bot (called by the service manager or manually).
func runServiceRun(cmd *cobra.Command, args []string) {
	// Check if running as a service
	isService := os.Getenv("INVOCATION_ID") != "" || // systemd
		os.Getenv("_") == "/bin/launchd" || // launchd
		os.Getenv("SERVICE_NAME") != "" // Windows service

	if isService {
		if err := RunService(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running service: %v\n", err)
			os.Exit(1)
		}
	} else {
		runBot(cmd, args)
	}
}

// runServiceInstall installs the bot as a system service.
func runServiceInstall(cmd *cobra.Command, args []string) {
	if err := InstallService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error installing service: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nNote: Installing system services requires administrator privileges.")
		fmt.Fprintln(os.Stderr, "Please run with sudo (Linux/macOS) or as Administrator (Windows).")
		os.Exit(1)
	}
}

// runServiceUninstall uninstalls the bot service.
func runServiceUninstall(cmd *cobra.Command, args []string) {
	if err := UninstallService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error uninstalling service: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nNote: Uninstalling system services requires administrator privileges.")
		fmt.Fprintln(os.Stderr, "Please run with sudo (Linux/macOS) or as Administrator (Windows).")
		os.Exit(1)
	}
}

// runServiceStart starts the bot service.
func runServiceStart(cmd *cobra.Command, args []string) {
	if err := StartService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting service: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nNote: Starting system services requires administrator privileges.")
		fmt.Fprintln(os.Stderr, "Please run with sudo (Linux/macOS) or as Administrator (Windows).")
		os.Exit(1)
	}
}

// runServiceStop stops the bot service.
func runServiceStop(cmd *cobra.Command, args []string) {
	if err := StopService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping service: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nNote: Stopping system services requires administrator privileges.")
		fmt.Fprintln(os.Stderr, "Please run with sudo (Linux/macOS) or as Administrator (Windows).")
		os.Exit(1)
	}
}

// runServiceRestart restarts the bot service.
func runServiceRestart(cmd *cobra.Command, args []string) {
	if err := RestartService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error restarting service: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nNote: Restarting system services requires administrator privileges.")
		fmt.Fprintln(os.Stderr, "Please run with sudo (Linux/macOS) or as Administrator (Windows).")
		os.Exit(1)
	}
}

// runServiceStatus checks the bot service status.
func runServiceStatus(cmd *cobra.Command, args []string) {
	if err := StatusService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error checking service status: %v\n", err)
		os.Exit(1)
	}
}
