package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/sshtunnel/internal/app"
	"github.com/sshtunnel/internal/installer"
	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/pairing"
	"github.com/sshtunnel/internal/probe"
	"github.com/sshtunnel/internal/service"
	"github.com/sshtunnel/internal/tunnel"
)

// env is the wiring shared by every subcommand: the directory layout,
// the config store and the process manager on top of it.
type env struct {
	home    service.Home
	logger  log.Logger
	store   tunnel.Store
	manager tunnel.Manager
}

func newEnv() *env {
	home := service.NewServiceHome(context.Background())
	logger := log.NewFileLogger("info", home.ServiceLogFile())
	store := tunnel.NewStore(home)
	return &env{
		home:    home,
		logger:  logger,
		store:   store,
		manager: tunnel.NewManager(home, store, logger),
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sshtunnel",
		Short:         "Manage persistent SSH tunnels",
		Long:          service.PrettyName + " supervises autossh tunnels described by JSON configurations in conf.d.",
		Version:       fmt.Sprintf("%s (%s)", service.Version, service.Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A relocated tree needs no privileges; the system tree does.
			if os.Getenv("SSHTUNNEL_HOME") == "" {
				if err := installer.RequireRoot(); err != nil {
					return err
				}
			}
			if missing := installer.MissingTools(); len(missing) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: missing tools: %s\n", strings.Join(missing, ", "))
			}
			return nil
		},
	}

	root.AddCommand(
		newStartCommand(),
		newStopCommand(),
		newRestartCommand(),
		newStatusCommand(),
		newCheckCommand(),
		newAddCommand(),
		newRemoveCommand(),
		newPairingCommand(),
		newServeCommand(),
	)
	return root
}

func newStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start [config]",
		Short: "Start one tunnel configuration, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEnv()
			if len(args) == 1 {
				return e.manager.Start(args[0])
			}
			return e.manager.StartAll()
		},
	}
}

func newStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [config]",
		Short: "Stop one tunnel configuration, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEnv()
			if len(args) == 1 {
				return e.manager.Stop(args[0])
			}
			return e.manager.StopAll()
		},
	}
}

func newRestartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restart [config]",
		Short: "Restart one tunnel configuration, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEnv()
			if len(args) == 1 {
				return e.manager.Restart(args[0])
			}
			if err := e.manager.StopAll(); err != nil {
				return err
			}
			return e.manager.StartAll()
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List every recorded tunnel process and its liveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEnv()
			entries, err := e.manager.Status()
			if err != nil {
				return err
			}
			return printJSON(cmd, entries)
		},
	}
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [config]",
		Short: "Probe server reachability and tunnel endpoints",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEnv()
			checker := probe.NewChecker(e.store, probe.NewProber(time.Second, time.Second, 3), e.logger)

			var report *probe.Report
			var err error
			if len(args) == 1 {
				report, err = checker.CheckConfig(args[0])
			} else {
				report, err = checker.CheckAll()
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
}

func newAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <config> <name> <type> <params>...",
		Short: "Add a tunnel to an existing configuration and restart it",
		Long: `Add a tunnel to an existing configuration, then restart the
configuration so the new forwarding takes effect.

Local (-L) tunnels take three parameters: listen-port endpoint-host
endpoint-port. Remote (-R) tunnels take four: listen-host listen-port
endpoint-host endpoint-port. Dynamic (-D) tunnels take one:
listen-port.`,
		Example: `  sshtunnel add office web -L 8080 10.0.0.5 80
  sshtunnel add office socks -D 1080`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEnv()
			if err := e.store.AddTunnel(args[0], args[1], args[2], args[3:]); err != nil {
				return err
			}
			return e.manager.Restart(args[0])
		},
	}
}

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <config> <name>",
		Short: "Remove a tunnel from a configuration and restart it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEnv()
			removed, err := e.store.RemoveTunnel(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d tunnel(s) named %s from %s\n", removed, args[1], args[0])
			if removed == 0 {
				return nil
			}
			return e.manager.Restart(args[0])
		},
	}
}

func newPairingCommand() *cobra.Command {
	var req pairing.Request
	cmd := &cobra.Command{
		Use:   "pairing <config> -i <ip> -u <admin-user> -p <password>",
		Short: "Pair with a remote server and write its configuration",
		Long: `Pair with a remote server: generate a dedicated ed25519 keypair,
create a no-login tunnel user on the server authorized for that key,
and write an initial configuration with no tunnels.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEnv()
			req.ConfigName = args[0]
			return pairing.NewPairer(e.store, e.logger).Pair(req)
		},
	}
	cmd.Flags().StringVarP(&req.IP, "ip", "i", "", "remote server address")
	cmd.Flags().StringVarP(&req.AdminUser, "user", "u", "", "administrative user on the remote server")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password of the administrative user")
	cmd.Flags().StringVarP(&req.Bandwidth, "bandwidth", "b", "", "bandwidth limit as up/down in KB/s")
	_ = cmd.MarkFlagRequired("ip")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewDefaultLogger()
			a := app.NewApp(context.Background(), logger)
			a.Start()
			a.Wait()
			a.Stop()
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
