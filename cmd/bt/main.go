package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bt-restic/internal/app"
	"bt-restic/internal/config"
	"bt-restic/internal/secret"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a BTApp. The caller must defer app.Close().
func newApp(cmd *cobra.Command) (*app.BTApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	opts := app.Options{ConsoleLevel: slog.LevelWarn}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		opts.ConsoleLevel = slog.LevelDebug
	}

	a, err := app.NewBTApp(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

func targetFlag(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString("target")
	return name
}

var rootCmd = &cobra.Command{
	Use:          "bt",
	Short:        "Backup target selection for restic",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Add [[targets]] to the config, then run 'bt repo password' and 'bt repo init'.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("# Configuration from %s\n\n", defaults["config_path"])
		m := &config.Manager{}
		return m.Write(os.Stdout, cfg)
	},
}

// repo command
var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage the restic repository",
}

var repoPasswordCmd = &cobra.Command{
	Use:   "password",
	Short: "Set the repository password",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		password, err := secret.PromptNewPassword(os.Stderr)
		if err != nil {
			return err
		}
		if err := a.SetPassword(password); err != nil {
			return fmt.Errorf("storing password: %w", err)
		}

		fmt.Println("Repository password stored.")
		return nil
	},
}

var repoInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.InitRepository(cmd.Context()); err != nil {
			return fmt.Errorf("initializing repository: %w", err)
		}

		fmt.Printf("Repository initialized at %s\n", a.Repository())
		return nil
	},
}

var repoCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ok, err := a.CheckRepository(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking repository: %w", err)
		}
		if !ok {
			return fmt.Errorf("repository %s has errors", a.Repository())
		}

		fmt.Printf("Repository %s is healthy.\n", a.Repository())
		return nil
	},
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check PATH",
	Short: "Show whether a path is part of the backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		sel, err := a.Check(targetFlag(cmd), absPath)
		if err != nil {
			return err
		}

		node, err := a.Stat(absPath)
		if err != nil {
			return err
		}

		fmt.Printf("%-10s %s  %-7s  %10d  %s\n",
			sel,
			os.FileMode(node.Mode).String(),
			node.Type,
			node.Size,
			absPath,
		)
		return nil
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files a backup would include",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sel, err := a.SelectFiles(targetFlag(cmd))
		if err != nil {
			return err
		}

		for _, p := range sel.Files.Paths() {
			fmt.Println(p)
		}
		if len(sel.Skipped) > 0 {
			fmt.Fprintf(os.Stderr, "%d unreadable entr(ies) skipped, see the log for details\n", len(sel.Skipped))
		}
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Execute backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		names := []string{targetFlag(cmd)}
		if all {
			names = a.TargetNames()
		}

		var errs []error
		for _, name := range names {
			summary, err := a.Backup(cmd.Context(), name)
			if err != nil {
				errs = append(errs, fmt.Errorf("backup of %q failed: %w", name, err))
				continue
			}
			fmt.Printf("snapshot %s: %d new, %d changed, %d unmodified, %d bytes added\n",
				shortID(summary.SnapshotID),
				summary.FilesNew,
				summary.FilesChanged,
				summary.FilesUnmodified,
				summary.DataAdded,
			)
		}
		return errors.Join(errs...)
	},
}

// snapshots command
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List repository snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		snaps, err := a.Snapshots(cmd.Context())
		if err != nil {
			return err
		}

		if len(snaps) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}

		for _, s := range snaps {
			fmt.Printf("%s  %s  %-12s  %-20s  %s\n",
				s.ShortID,
				s.Time.Local().Format("2006-01-02 15:04:05"),
				s.Hostname,
				strings.Join(s.Tags, ","),
				strings.Join(s.Paths, " "),
			)
		}
		return nil
	},
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls SNAPSHOT",
	Short: "List the contents of a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		match, _ := cmd.Flags().GetString("match")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		nodes, err := a.List(cmd.Context(), args[0], match)
		if err != nil {
			return err
		}

		for _, n := range nodes {
			fmt.Printf("%s  %10d  %s  %s\n",
				os.FileMode(n.Mode).String(),
				n.Size,
				n.MTime.Local().Format("2006-01-02 15:04:05"),
				n.Path,
			)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View backup operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.Finished() {
				duration = r.Duration().Truncate(time.Millisecond).String()
			}
			detail := shortID(r.SnapshotID)
			if r.Error != "" {
				detail = r.Error
			}
			fmt.Printf("%-8s  %-6s  %-10s  %s  %-8s  %-10s  %s\n",
				shortID(r.ID),
				r.Operation,
				r.Target,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Status,
				duration,
				detail,
			)
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.PersistentFlags().StringP("target", "t", "", "Target name (default: first configured target)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to the console")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// repo subcommands
	repoCmd.AddCommand(repoPasswordCmd)
	repoCmd.AddCommand(repoInitCmd)
	repoCmd.AddCommand(repoCheckCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().Bool("all", false, "Back up every configured target")
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().StringP("match", "m", "", "Only list paths matching this glob")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
