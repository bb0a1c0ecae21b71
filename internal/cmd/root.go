package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"microbeads/internal/cache"
	"microbeads/internal/clock"
	"microbeads/internal/config"
	"microbeads/internal/config/yamlstore"
	"microbeads/internal/store"
	"microbeads/internal/vcs"

	"github.com/spf13/cobra"
)

// AppProvider lazily initializes the App on first use, so commands like
// init and merge-driver can run before a data branch exists.
type AppProvider struct {
	once sync.Once
	app  *App
	err  error

	// Config captured from flags before Execute()
	DataDir    string
	JSONOutput bool
	Out        io.Writer
	Err        io.Writer
}

// Get returns the App, initializing it on first call.
func (p *AppProvider) Get() (*App, error) {
	p.once.Do(func() {
		if p.app == nil {
			p.app, p.err = p.init()
		}
	})
	return p.app, p.err
}

// NewTestProvider creates a provider pre-initialized with the given App.
// Used for testing commands against a store in a temp directory.
func NewTestProvider(app *App) *AppProvider {
	return &AppProvider{
		app: app,
		Out: app.Out,
		Err: app.Err,
	}
}

func (p *AppProvider) init() (*App, error) {
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := p.Err
	if errOut == nil {
		errOut = os.Stderr
	}

	ctx := context.Background()
	dataDir := p.DataDir
	if dataDir == "" {
		dataDir = os.Getenv(config.EnvDataDir)
	}

	var repo *vcs.Repo
	if dataDir == "" {
		var err error
		repo, err = vcs.Find(ctx, vcs.GitRunner{}, ".")
		if err != nil {
			return nil, err
		}
		if _, err := repo.EnsureWorktree(ctx); err != nil {
			return nil, err
		}
		dataDir = repo.StorePath()
	}

	cfg, err := yamlstore.New(filepath.Join(dataDir, "config.yaml"))
	if err != nil {
		return nil, err
	}
	config.ApplyDefaults(cfg)
	config.ApplyEnvOverrides(cfg)
	if repo != nil {
		repo.SetRemote(config.SyncRemote(cfg))
	}

	jsonOut := p.JSONOutput
	if v := os.Getenv(config.EnvJSON); v == "1" || v == "true" {
		jsonOut = true
	}

	return &App{
		Store:       store.New(dataDir, clock.System{}, cache.New()),
		Repo:        repo,
		ConfigStore: cfg,
		Out:         out,
		Err:         errOut,
		JSON:        jsonOut,
	}, nil
}

// Execute runs the CLI.
func Execute() error {
	provider := &AppProvider{
		Out: os.Stdout,
		Err: os.Stderr,
	}

	rootCmd := newRootCmd(provider)
	return rootCmd.Execute()
}

// newRootCmd creates the root command with all subcommands.
func newRootCmd(provider *AppProvider) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mb",
		Short: "A git-backed issue tracker that lives on its own branch",
		Long: `Microbeads stores issues as JSON files on a dedicated orphan branch,
checked out in a hidden worktree under .git. Issue data rides along with
the repository, merges cleanly through a structured merge driver, and
never clutters the code branches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags - these populate the provider config
	rootCmd.PersistentFlags().BoolVar(&provider.JSONOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&provider.DataDir, "dir", "", "Path to a .microbeads data directory (default: git discovery)")

	rootCmd.AddCommand(newInitCmd(provider))
	rootCmd.AddCommand(newCreateCmd(provider))
	rootCmd.AddCommand(newShowCmd(provider))
	rootCmd.AddCommand(newListCmd(provider))
	rootCmd.AddCommand(newUpdateCmd(provider))
	rootCmd.AddCommand(newCloseCmd(provider))
	rootCmd.AddCommand(newReopenCmd(provider))
	rootCmd.AddCommand(newReadyCmd(provider))
	rootCmd.AddCommand(newBlockedCmd(provider))
	rootCmd.AddCommand(newDepCmd(provider))
	rootCmd.AddCommand(newDoctorCmd(provider))
	rootCmd.AddCommand(newCompactCmd(provider))
	rootCmd.AddCommand(newSyncCmd(provider))
	rootCmd.AddCommand(newImportCmd(provider))
	rootCmd.AddCommand(newConfigCmd(provider))
	rootCmd.AddCommand(newMergeDriverCmd())

	return rootCmd
}
