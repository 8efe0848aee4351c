package commands

import (
	"os"

	"github.com/spf13/cobra"

	"sascheck/internal/app"
)

var (
	cfgFile    string
	passphrase string
	appCtx     *app.App
)

// Execute runs the root command.
func Execute() error {
	v := app.NewViper("")
	root := &cobra.Command{
		Use:           "sascheck",
		Short:         "Authenticate a peer by comparing a short code",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
			}
			cfg, err := app.LoadConfig(v)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}
			appCtx, err = app.New(cfg, newPrompt(cmd.InOrStdin(), cmd.OutOrStdout()))
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/.sascheck/config.yaml)")
	pf.String("home", "", "data dir (default ~/.sascheck)")
	pf.StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity")
	pf.String("relay", "", "relay base URL for durable sessions")
	pf.String("policy", "", "rtc (live link) or ws_async (relay)")
	pf.Int("digits", 0, "short code length")
	for _, name := range []string{"home", "relay", "policy", "digits"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(initCmd(), fingerprintCmd(), sendCmd(), recvCmd(), peersCmd())
	return root.Execute()
}
