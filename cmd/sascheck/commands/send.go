package commands

import (
	"github.com/spf13/cobra"

	"sascheck/internal/domain"
)

// send: authenticate to a peer as the side that offers its key.
func sendCmd() *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Authenticate to a peer as the sender",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, domain.RoleSender, &f)
		},
	}
	addSessionFlags(cmd, &f)
	return cmd
}
