package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sshtunnel/internal/installer"
	"github.com/sshtunnel/internal/log"
	"github.com/sshtunnel/internal/service"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sshtunnel-setup",
		Short:         "Install or uninstall the SSH tunnel manager",
		Version:       fmt.Sprintf("%s (%s)", service.Version, service.Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newInstallCommand(), newUninstallCommand())
	return root
}

func newInstallCommand() *cobra.Command {
	var opts installer.Options
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install system dependencies, directories and the manager binary",
		Long: `Install the manager: system packages through the host package
manager, the configuration, log and runtime directories with root-only
group permissions, the manager binary with its sshtunnel symlink, and
any provided initial tunnel configurations.

Must be run as root. Past the root check every step is best effort so a
partially prepared host still ends up usable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewDefaultLogger()
			home := service.NewServiceHome(context.Background())
			err := installer.NewInstaller(home, logger, opts).Run()
			if err != nil {
				return err
			}
			if missing := installer.MissingTools(); len(missing) > 0 {
				logger.Warnf("still missing after install: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.BinarySource, "binary", "", "manager binary to install (skipped when empty)")
	cmd.Flags().StringSliceVar(&opts.ConfigSources, "config", nil, "tunnel configuration files to seed into conf.d")
	cmd.Flags().BoolVar(&opts.SkipPackages, "skip-packages", false, "do not install system packages")
	return cmd
}

func newUninstallCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Stop tunnels, remove the binary and optionally purge data",
		Long: `Uninstall the manager: terminate every process recorded in the
runtime directory, remove the installed binary and symlink, then ask
before deleting the configuration, log and runtime directories.

Must be run as root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewDefaultLogger()
			home := service.NewServiceHome(context.Background())
			u := installer.NewUninstaller(home, logger)
			if yes {
				u = installer.NewUninstallerWithIO(home, logger, "", strings.NewReader("y\n"), cmd.OutOrStdout())
			}
			return u.Run()
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "purge data directories without prompting")
	return cmd
}
