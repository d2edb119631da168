package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/yowainwright/tenure/internal/core"
	"github.com/yowainwright/tenure/internal/daemon"
	"github.com/yowainwright/tenure/internal/palette"
	"github.com/yowainwright/tenure/internal/service"
	"github.com/yowainwright/tenure/internal/stats"
	"github.com/yowainwright/tenure/internal/storage"
	"github.com/yowainwright/tenure/internal/tiers"
	"github.com/yowainwright/tenure/internal/tracker"
	"github.com/yowainwright/tenure/pkg/models"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "tenure",
		Short: "Track how long an application has been running",
		Long:  `tenure watches for a named application, keeps a lifetime total and a per-day log of the time it was running, and ranks your usage on tiered ladders.`,
		RunE:  runMenu,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/tenure/config.json)")

	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "Track the target application in the foreground",
		RunE:  runTrack,
	}

	// Stats command
	var (
		statsOnce   bool
		statsFormat string
	)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics and tiers",
		RunE:  runStats,
	}
	statsCmd.Flags().BoolVar(&statsOnce, "once", false, "Print once instead of refreshing")
	statsCmd.Flags().StringVarP(&statsFormat, "format", "f", "text", "Output format (text, json)")

	var paletteCount int
	paletteCmd := &cobra.Command{
		Use:   "palette",
		Short: "Generate a random color palette",
		RunE:  runPalette,
	}
	paletteCmd.Flags().IntVarP(&paletteCount, "count", "n", 0, "Number of colors (default from config)")

	// Daemon commands
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the tracker in the background",
	}

	daemonStartCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the background tracker",
		RunE:  startDaemon,
	}

	daemonStopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the background tracker",
		RunE:  stopDaemon,
	}

	daemonRestartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the background tracker",
		RunE:  restartDaemon,
	}

	var statusJSON bool
	daemonStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check tracker status",
		RunE:  daemonStatus,
	}
	daemonStatusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status as JSON")

	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonRestartCmd, daemonStatusCmd)

	// Config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	configGetCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get configuration value",
		Args:  cobra.ExactArgs(1),
		RunE:  getConfig,
	}

	configSetCmd := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set configuration value",
		Args:  cobra.ExactArgs(2),
		RunE:  setConfig,
	}

	configListCmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration",
		RunE:  listConfig,
	}

	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the tracked data aside",
		RunE:  backup,
	}

	// Service commands
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the systemd user service",
	}

	serviceInstallCmd := &cobra.Command{
		Use:   "install",
		Short: "Install a systemd user unit for the tracker",
		RunE:  installService,
	}

	servicePrintCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the systemd user unit",
		RunE:  printService,
	}

	serviceCmd.AddCommand(serviceInstallCmd, servicePrintCmd)

	rootCmd.AddCommand(
		trackCmd,
		statsCmd,
		paletteCmd,
		daemonCmd,
		configCmd,
		backupCmd,
		serviceCmd,
	)

	// Execute with Fang styling
	ctx := context.Background()
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion(core.Version),
		fang.WithColorSchemeFunc(fang.DefaultColorScheme),
	); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*core.Config, zerolog.Logger, error) {
	config, err := core.LoadConfig(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.EnsureDirectories(); err != nil {
		return nil, zerolog.Nop(), err
	}
	return config, core.NewLogger(config.Logging, os.Stderr), nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func gradient(hexes ...string) tiers.Gradient {
	g := make(tiers.Gradient, 0, len(hexes))
	for _, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			continue
		}
		g = append(g, c)
	}
	return g
}

func runMenu(cmd *cobra.Command, args []string) error {
	config, _, err := loadConfig()
	if err != nil {
		return err
	}
	target := config.Tracker.ProcessName

	fmt.Println(stats.Paint(fmt.Sprintf("tenure v%s", core.Version), gradient("#00ffff", "#90ee90")))
	fmt.Println(stats.Paint(fmt.Sprintf("1 - %s Time Tracker", target), gradient("#90ee90", "#ffff00")))
	fmt.Println(stats.Paint("2 - Random Color Palette Generator", gradient("#ff00ff", "#ff0000")))
	fmt.Println(stats.Paint("3 - Stats + Analytics", gradient("#ff0000", "#ffff00")))
	fmt.Println(subtitleStyle.Render("Tip: run the tracker and the stats view in two terminals at the same time."))
	fmt.Println()

	fmt.Print("Input your choice (1, 2 or 3): ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read choice: %w", err)
	}

	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		fmt.Println(errorStyle.Render("Invalid input, please enter a number."))
		return nil
	}

	switch choice {
	case 1:
		return runTrack(cmd, nil)
	case 2:
		return runPalette(cmd, nil)
	case 3:
		return runStats(cmd, nil)
	default:
		fmt.Println(errorStyle.Render("Invalid choice, please select 1, 2 or 3."))
		return nil
	}
}

func runTrack(cmd *cobra.Command, args []string) error {
	config, logger, err := loadConfig()
	if err != nil {
		return err
	}

	d, err := daemon.NewDaemon(config, logger)
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}

	target := config.Tracker.ProcessName
	if isTerminal(os.Stdout) {
		d.OnTick = func(r tracker.Result) {
			renderPanel(os.Stdout, target, r)
		}
	} else {
		d.OnTick = func(r tracker.Result) {
			switch r.Event {
			case tracker.EventStarted:
				fmt.Printf("%s detected, tracking started.\n", target)
			case tracker.EventStopped:
				fmt.Printf("%s closed, tracking paused.\n", target)
			}
		}
	}

	fmt.Println(infoStyle.Render(fmt.Sprintf("Starting %s time tracking. Press Ctrl+C to stop.", target)))

	if err := d.Run(cmd.Context()); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			fmt.Println(infoStyle.Render("A tracker is already running"))
			return nil
		}
		return err
	}

	fmt.Println(successStyle.Render("✓ Saved"))
	return nil
}

func renderPanel(w io.Writer, target string, r tracker.Result) {
	var b strings.Builder
	b.WriteString("\033[H\033[2J")
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("Total time in "+target+":"), core.FormatSeconds(r.Total))
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("Today's session:"), core.FormatSeconds(r.Today))
	if r.State == tracker.StateIdle {
		b.WriteString(subtitleStyle.Render(fmt.Sprintf("Waiting for %s to start...", target)))
		b.WriteByte('\n')
	}
	if r.SaveErr != nil {
		b.WriteString(errorStyle.Render("Could not save: " + r.SaveErr.Error()))
		b.WriteByte('\n')
	}
	io.WriteString(w, b.String())
}

func runStats(cmd *cobra.Command, args []string) error {
	config, logger, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	target := config.Tracker.ProcessName
	once, _ := cmd.Flags().GetBool("once")
	format, _ := cmd.Flags().GetString("format")

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats.Load(store, time.Now()).Report(target))
	case "text", "":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if once {
		return stats.Render(os.Stdout, stats.Load(store, time.Now()), target)
	}

	viewer := &stats.Viewer{
		Store:    store,
		Target:   target,
		Interval: config.RefreshInterval(),
		Watch:    config.Viewer.Watch,
		Clear:    isTerminal(os.Stdout),
		Out:      os.Stdout,
		Logger:   logger,
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	return viewer.Run(ctx)
}

func runPalette(cmd *cobra.Command, args []string) error {
	config, _, err := loadConfig()
	if err != nil {
		return err
	}

	count := config.Palette.Count
	if cmd.Flags().Lookup("count") != nil {
		if n, _ := cmd.Flags().GetInt("count"); n > 0 {
			count = n
		}
	}

	return palette.Render(os.Stdout, palette.Generate(count, nil))
}

func startDaemon(cmd *cobra.Command, args []string) error {
	config, logger, err := loadConfig()
	if err != nil {
		return err
	}

	// Check if already running
	if daemon.IsRunning(config) {
		fmt.Println(infoStyle.Render("tenure tracker is already running"))
		return nil
	}

	// Run in foreground when forked
	if os.Getenv(core.EnvForeground) != "" {
		d, err := daemon.NewDaemon(config, logger)
		if err != nil {
			return fmt.Errorf("failed to create tracker: %w", err)
		}
		return d.Run(cmd.Context())
	}

	fmt.Println(successStyle.Render("Starting tenure tracker..."))

	execPath, err := service.ResolveExecutable()
	if err != nil {
		return err
	}

	forkArgs := []string{execPath, "daemon", "start", "--config", config.Path()}
	env := append(os.Environ(), core.EnvForeground+"=1")

	procAttr := &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{0, 1, 2},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}

	if _, err := syscall.ForkExec(execPath, forkArgs, procAttr); err != nil {
		return fmt.Errorf("failed to fork tracker: %w", err)
	}

	time.Sleep(time.Second)
	if !daemon.IsRunning(config) {
		fmt.Println(errorStyle.Render("✗ tenure tracker did not start, check the logs"))
		return nil
	}
	fmt.Println(successStyle.Render("✓ tenure tracker started"))
	return nil
}

func stopDaemon(cmd *cobra.Command, args []string) error {
	config, _, err := loadConfig()
	if err != nil {
		return err
	}

	if !daemon.IsRunning(config) {
		fmt.Println(infoStyle.Render("tenure tracker is not running"))
		return nil
	}

	if err := daemon.Stop(config); err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ tenure tracker stopped"))
	return nil
}

func restartDaemon(cmd *cobra.Command, args []string) error {
	if err := stopDaemon(cmd, args); err != nil {
		return err
	}
	time.Sleep(time.Second)
	return startDaemon(cmd, args)
}

func daemonStatus(cmd *cobra.Command, args []string) error {
	config, _, err := loadConfig()
	if err != nil {
		return err
	}

	status := models.DaemonStatus{
		Running: daemon.IsRunning(config),
		Target:  config.Tracker.ProcessName,
		DataDir: config.Daemon.DataDir,
		Backend: config.Storage.Backend,
	}
	if status.Running {
		status.PID, _ = daemon.ReadPID(config)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	if status.Running {
		fmt.Println(successStyle.Render("✓ tenure tracker is running"))
		fmt.Println(subtitleStyle.Render("  PID:"), status.PID)
	} else {
		fmt.Println(errorStyle.Render("✗ tenure tracker is not running"))
	}
	fmt.Println(subtitleStyle.Render("  Target:"), status.Target)
	fmt.Println(subtitleStyle.Render("  Data:"), status.DataDir, subtitleStyle.Render("("+status.Backend+")"))

	return nil
}

func getConfig(cmd *cobra.Command, args []string) error {
	value, err := core.GetValue(configPath, args[0])
	if err != nil {
		return err
	}

	fmt.Println(value)
	return nil
}

func setConfig(cmd *cobra.Command, args []string) error {
	if _, err := core.SetValue(configPath, args[0], args[1]); err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ Configuration updated"))
	return nil
}

func listConfig(cmd *cobra.Command, args []string) error {
	config, err := core.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(config)
}

func backup(cmd *cobra.Command, args []string) error {
	config, logger, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	written, err := store.Backup()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	if len(written) == 0 {
		fmt.Println(infoStyle.Render("Nothing to back up yet"))
		return nil
	}

	fmt.Println(successStyle.Render("✓ Backup created"))
	for _, path := range written {
		fmt.Println(subtitleStyle.Render("  " + path))
	}
	return nil
}

func installService(cmd *cobra.Command, args []string) error {
	config, _, err := loadConfig()
	if err != nil {
		return err
	}

	execPath, err := service.ResolveExecutable()
	if err != nil {
		return err
	}

	unitPath, err := service.NewUnitGenerator(config).Install(execPath)
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ Installed " + unitPath))
	fmt.Println(subtitleStyle.Render("  Enable with: systemctl --user enable --now " + service.UnitName))
	return nil
}

func printService(cmd *cobra.Command, args []string) error {
	config, _, err := loadConfig()
	if err != nil {
		return err
	}

	execPath, err := service.ResolveExecutable()
	if err != nil {
		return err
	}

	return service.NewUnitGenerator(config).Generate(os.Stdout, execPath)
}
