package commands

import (
	"github.com/spf13/cobra"

	"sascheck/internal/domain"
)

// recv: authenticate to a peer as the side that commits to its key first.
func recvCmd() *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Authenticate to a peer as the receiver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, domain.RoleReceiver, &f)
		},
	}
	addSessionFlags(cmd, &f)
	return cmd
}
