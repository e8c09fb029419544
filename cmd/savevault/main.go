package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/deepfall-games/savevault"
	"github.com/deepfall-games/savevault/internal/cliconfig"
	"github.com/deepfall-games/savevault/pkg/slot"
	"github.com/deepfall-games/savevault/pkg/watch"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "savevault",
		Short:   "Inspect and maintain a game's save directory",
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Example: `  savevault --dir ~/.mygame/saves slots
  savevault --dir ~/.mygame/saves rotate --strategy importance
  savevault --config ~/.savevault/config.toml stats`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Precedence: flags over env over config file over defaults.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			cmd.InheritedFlags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cliconfig.ApplyFileConfig(&cfg, fc, changed)
			}
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			return cfg.Validate()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "config file path (default ~/.savevault/config.toml)")
	pf.StringVar(&cfg.SaveDir, "dir", cfg.SaveDir, "save directory")
	pf.StringVar(&cfg.CurrentVersion, "game-version", cfg.CurrentVersion, "running game version for compatibility checks")
	pf.IntVar(&cfg.MaxSlots, "max-slots", cfg.MaxSlots, "number of save slots")
	pf.IntVar(&cfg.BackupCount, "backup-count", cfg.BackupCount, "backups kept per slot")
	pf.BoolVar(&cfg.AutoBackup, "auto-backup", cfg.AutoBackup, "back up the old save before each overwrite")
	pf.BoolVar(&cfg.Compression, "compression", cfg.Compression, "gzip-compress stored payloads")
	pf.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "rotation strategy: count, time, time-count, importance")
	pf.IntVar(&cfg.MaxSavesPerSlot, "max-saves-per-slot", cfg.MaxSavesPerSlot, "files kept per slot (count rotation)")
	pf.IntVar(&cfg.MaxTotalSaves, "max-total-saves", cfg.MaxTotalSaves, "files kept in total (importance rotation)")
	pf.IntVar(&cfg.MaxAgeDays, "max-age-days", cfg.MaxAgeDays, "max save age in days (time rotation)")
	pf.BoolVar(&cfg.BackupBeforeRotation, "backup-before-rotation", cfg.BackupBeforeRotation, "copy saves into backups/ before deleting")
	pf.BoolVar(&cfg.CompressOldSaves, "compress-old-saves", cfg.CompressOldSaves, "gzip rotation backups")

	newEngine := func() (*savevault.Engine, error) {
		rc, err := cfg.RotationConfig()
		if err != nil {
			return nil, err
		}
		ecfg := savevault.Config{
			Dir:            cfg.SaveDir,
			CurrentVersion: cfg.CurrentVersion,
			MaxSlots:       cfg.MaxSlots,
			BackupCount:    cfg.BackupCount,
			AutoBackup:     cfg.AutoBackup,
			Compression:    cfg.Compression,
			Rotation:       rc,
		}
		return savevault.New(ecfg, savevault.WithLogger(log))
	}

	root.AddCommand(
		slotsCommand(newEngine),
		deleteCommand(newEngine),
		backupCommand(newEngine),
		rotateCommand(newEngine),
		statsCommand(newEngine),
		cleanupCommand(newEngine, &cfg),
		watchCommand(&cfg, log),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

type engineFactory func() (*savevault.Engine, error)

func slotsCommand(newEngine engineFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "List save slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			for _, sl := range engine.Slots() {
				switch {
				case !sl.Occupied:
					fmt.Printf("  %3d  (empty)\n", sl.ID)
				case sl.Corrupted:
					fmt.Printf("  %3d  CORRUPTED  %s\n", sl.ID, sl.Metadata.SaveName)
				default:
					marker := " "
					if sl.BackupAvailable {
						marker = "B"
					}
					fmt.Printf("  %3d  %s  %-20s  %-12s  lvl %d  depth %d  %s\n",
						sl.ID, marker, sl.Metadata.SaveName, sl.Metadata.PlayerName,
						sl.Metadata.Level, sl.Metadata.Depth, sl.Metadata.FormattedPlaytime())
				}
			}
			return nil
		},
	}
}

func deleteCommand(newEngine engineFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slot>",
		Short: "Delete a save slot, its backups and its sidecar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSlotID(args[0])
			if err != nil {
				return err
			}
			engine, err := newEngine()
			if err != nil {
				return err
			}
			if err := engine.Delete(id); err != nil {
				return err
			}
			fmt.Printf("slot %d deleted\n", id)
			return nil
		},
	}
}

func backupCommand(newEngine engineFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <slot>",
		Short: "Rotate a slot's backup chain and snapshot its current save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSlotID(args[0])
			if err != nil {
				return err
			}
			engine, err := newEngine()
			if err != nil {
				return err
			}
			if err := engine.Store().CreateBackup(id); err != nil {
				return err
			}
			fmt.Printf("slot %d backed up\n", id)
			return nil
		},
	}
}

func rotateCommand(newEngine engineFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Run one rotation pass with the configured strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			result, err := engine.Rotate()
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d, backed up %d, compressed %d, freed %s\n",
				len(result.Deleted), len(result.BackedUp), result.Compressed,
				slot.FormatBytes(result.SpaceFreed))
			return nil
		},
	}
}

func statsCommand(newEngine engineFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show save directory statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			stats, err := engine.Rotation().Statistics()
			if err != nil {
				return err
			}
			info, err := engine.Store().Info()
			if err != nil {
				return err
			}
			fmt.Printf("save files:   %d (%d manual, %d autosave)\n",
				stats.TotalFiles, stats.ManualCount, stats.AutosaveCount)
			fmt.Printf("total size:   %s across %d files\n", info.FormattedSize(), info.FileCount)
			fmt.Printf("age range:    %dd .. %dd\n", stats.NewestAgeDays, stats.OldestAgeDays)
			fmt.Printf("backups dir:  %s\n", slot.FormatBytes(stats.BackupDirSize))
			return nil
		},
	}
}

func cleanupCommand(newEngine engineFactory, cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old rotation backups and stray temp files",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			backups, err := engine.Rotation().CleanupBackups(cfg.BackupMaxAgeDays)
			if err != nil {
				return err
			}
			temps, err := engine.Store().CleanupTemp()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d old backups, %d temp files\n", backups, temps)
			return nil
		},
	}
}

func watchCommand(cfg *cliconfig.Config, log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print slot changes as they land on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			watcher := watch.New(cfg.SaveDir, watch.WithLogger(log))
			go func() {
				for ev := range watcher.Events() {
					fmt.Printf("slot %d %s (%s)\n", ev.SlotID, ev.Op, ev.Path)
				}
			}()

			err := watcher.Run(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}
}

func parseSlotID(s string) (int, error) {
	var id int
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil || id < 0 {
		return 0, fmt.Errorf("invalid slot id %q", s)
	}
	return id, nil
}
