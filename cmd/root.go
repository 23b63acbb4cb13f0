package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/weeksdev/duckfinder/api"
	"github.com/weeksdev/duckfinder/config"
	"github.com/weeksdev/duckfinder/log"
	"github.com/weeksdev/duckfinder/server"
)

var (
	flagPort       int
	flagHost       string
	flagDir        string
	flagShell      string
	flagDebounce   time.Duration
	flagLogLevel   string
	flagNoTerminal bool
	flagToken      string
	flagOrigins    []string

	version, commit, date string
)

// SetVersionInfo sets version information from ldflags
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "duckfinder",
	Short: "File browser kept in sync with a shell",
	Long: `duckfinder serves a file browser whose current directory follows the
commands you run in its shell, and whose listing follows changes made on disk
by any process.`,
	RunE:          runServer,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()
	f.IntVar(&flagPort, "port", 0, "HTTP port (env PORT)")
	f.StringVar(&flagHost, "host", "", "HTTP bind address (env HOST)")
	f.StringVarP(&flagDir, "dir", "d", "", "Start directory (env DUCK_START_DIR)")
	f.StringVar(&flagShell, "shell", "", "Shell used to run commands (env DUCK_SHELL)")
	f.DurationVar(&flagDebounce, "debounce", 0, "Filesystem event coalescing window (env DUCK_DEBOUNCE_MS)")
	f.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	f.BoolVar(&flagNoTerminal, "no-terminal", false, "Disable the interactive terminal endpoint")
	f.StringVar(&flagToken, "token", "", "Require this access token on API requests (env DUCK_TOKEN)")
	f.StringSliceVar(&flagOrigins, "allow-origin", nil, "Extra browser origin allowed to call the API, repeatable (env DUCK_ALLOWED_ORIGINS)")
}

// Execute runs the root command
func Execute() error {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(versionTemplate())
	return rootCmd.Execute()
}

func versionTemplate() string {
	if commit != "none" && commit != "" {
		return fmt.Sprintf("duckfinder %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	}
	return fmt.Sprintf("duckfinder %s\n", version)
}

// serverConfig merges environment configuration with flags the user set
func serverConfig(cmd *cobra.Command, cfg *config.Config) *server.Config {
	sc := &server.Config{
		Port:            cfg.Port,
		Host:            cfg.Host,
		Env:             cfg.Env,
		StartDir:        cfg.StartDir,
		DebounceDelay:   cfg.DebounceDelay,
		Shell:           cfg.Shell,
		ShellPath:       cfg.ShellPath,
		CancelGrace:     cfg.CancelGrace,
		TerminalEnabled: cfg.TerminalEnabled,
		AccessToken:     cfg.AccessToken,
		AllowedOrigins:  cfg.AllowedOrigins,
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		sc.Port = flagPort
	}
	if flags.Changed("host") {
		sc.Host = flagHost
	}
	if flags.Changed("dir") {
		sc.StartDir = flagDir
	}
	if flags.Changed("shell") {
		sc.Shell = flagShell
	}
	if flags.Changed("debounce") {
		sc.DebounceDelay = flagDebounce
	}
	if flags.Changed("no-terminal") {
		sc.TerminalEnabled = !flagNoTerminal
	}
	if flags.Changed("token") {
		sc.AccessToken = flagToken
	}
	if flags.Changed("allow-origin") {
		sc.AllowedOrigins = flagOrigins
	}
	return sc
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if cmd.Flags().Changed("log-level") {
		log.SetLevel(flagLogLevel)
	}

	sc := serverConfig(cmd, cfg)
	if sc.Port <= 0 || sc.Port > 65535 {
		return fmt.Errorf("invalid port %d", sc.Port)
	}

	srv, err := server.New(sc)
	if err != nil {
		return err
	}
	api.SetupRoutes(srv.Router(), api.NewHandlers(srv))

	errCh := make(chan error, 1)
	go func() {
		printNetworkAddresses(sc.Host, sc.Port)
		errCh <- srv.Start()
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
	case runErr = <-errCh:
		if runErr != nil {
			log.Error().Err(runErr).Msg("server error")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
	return runErr
}

// printNetworkAddresses logs reachable URLs when bound to all interfaces
func printNetworkAddresses(host string, port int) {
	if host != "" && host != "0.0.0.0" && host != "::" {
		log.Info().Str("url", fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(port)))).Msg("listening")
		return
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				if ip4 := ipnet.IP.To4(); ip4 != nil {
					log.Info().Str("url", fmt.Sprintf("http://%s:%d", ip4.String(), port)).Msg("network")
				}
			}
		}
	}
}
