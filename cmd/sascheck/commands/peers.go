package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sascheck/internal/crypto"
	"sascheck/internal/domain"
)

func peersCmd() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List peers whose short code you confirmed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			peers, err := appCtx.Peers.ListPeers()
			if err != nil {
				return err
			}
			if asYAML {
				return writePeersYAML(cmd.OutOrStdout(), peers)
			}
			if len(peers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no verified peers")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FINGERPRINT\tROLE\tROOM\tVERIFIED")
			for _, p := range peers {
				at := time.Unix(p.VerifiedUTC, 0).UTC().Format(time.RFC3339)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Fingerprint, p.Role, p.RoomID, at)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print full records as YAML, keys included")
	return cmd
}

type peerExport struct {
	domain.VerifiedPeer `yaml:",inline"`
	VK                  string `yaml:"vk"`
}

// writePeersYAML prints peers in a form that can be handed to --expect-vk.
func writePeersYAML(w io.Writer, peers []domain.VerifiedPeer) error {
	out := make([]peerExport, 0, len(peers))
	for _, p := range peers {
		out = append(out, peerExport{VerifiedPeer: p, VK: crypto.B64(p.PublicKey)})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
