package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the 'print-config' command.
func PrintConfigCmd(svc *services) *Command {
	fs := flag.NewFlagSet("print-config", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long: `Print the effective configuration after merging defaults, the global
config, the project config, environment overrides, and CLI flags, plus
which config files contributed.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execPrintConfig(o, svc)
		},
	}
}

func execPrintConfig(o *IO, svc *services) error {
	cfg := svc.cfg

	o.Println("archive_dir=" + cfg.ArchiveDirAbs)
	o.Println("ledger_dir=" + cfg.LedgerDirAbs)
	o.Println("plans_dir=" + cfg.PlansDirAbs)
	o.Println("repos_dir=" + cfg.ReposDirAbs)
	o.Println("test_command=" + cfg.TestCommand)
	o.Printf("test_timeout_seconds=%d\n", cfg.TestTimeoutSecs)
	o.Println("validator_command=" + cfg.ValidatorCommand)
	o.Printf("validator_timeout_seconds=%d\n", cfg.ValidatorTimeoutSecs)
	o.Println("log_level=" + cfg.LogLevel)

	// Print sources
	o.Println("")
	o.Println("# Sources:")

	if cfg.Sources.Global != "" {
		o.Println("#   global:", cfg.Sources.Global)
	}

	if cfg.Sources.Project != "" {
		o.Println("#   project:", cfg.Sources.Project)
	}

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		o.Println("#   (using defaults only)")
	}

	return nil
}
