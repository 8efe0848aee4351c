package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	uuid "gopkg.in/satori/go.uuid.v1"

	"sascheck/internal/app"
	"sascheck/internal/domain"
	"sascheck/internal/transport/memory"
)

type sessionFlags struct {
	room     string
	session  string
	listen   string
	peer     string
	expectFP string
	expectVK string
	loopback bool
}

func addSessionFlags(cmd *cobra.Command, f *sessionFlags) {
	fl := cmd.Flags()
	fl.StringVar(&f.room, "room", "", "room id shared with the peer (generated if empty)")
	fl.StringVar(&f.session, "session", "", "session id shared with the peer (generated if empty)")
	fl.StringVar(&f.listen, "listen", "", "live: address to accept the peer on, e.g. :7777")
	fl.StringVar(&f.peer, "peer", "", "live: ws:// URL of a listening peer")
	fl.StringVar(&f.expectFP, "expect-fp", "", "fail unless the peer has this fingerprint")
	fl.StringVar(&f.expectVK, "expect-vk", "", "fail unless the peer has this key (base64url)")
	fl.BoolVar(&f.loopback, "loopback", false, "run against an in-process throwaway peer")
}

func runSession(cmd *cobra.Command, role domain.Role, f *sessionFlags) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	out := cmd.OutOrStdout()
	if f.room == "" || f.session == "" {
		if f.room == "" {
			f.room = uuid.NewV4().String()
		}
		if f.session == "" {
			f.session = uuid.NewV4().String()
		}
		fmt.Fprintf(out, "Share with your peer: --room %s --session %s\n", f.room, f.session)
	}

	var expect *domain.PeerMeta
	if f.expectFP != "" || f.expectVK != "" {
		expect = &domain.PeerMeta{ID: f.expectFP, VK: f.expectVK}
	}
	params := app.VerifyParams{
		Endpoint: app.Endpoint{
			Policy: appCtx.Config.Policy,
			Role:   role,
			RoomID: f.room,
			Listen: f.listen,
			Peer:   f.peer,
		},
		SessionID:  f.session,
		Passphrase: passphrase,
		Expect:     expect,
		OnSAS: func(code string) {
			fmt.Fprintf(out, "Short code: %s\n", groupDigits(code))
		},
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var (
		peer domain.VerifiedPeer
		err  error
	)
	if f.loopback {
		peer, err = runLoopback(ctx, params)
	} else {
		peer, err = appCtx.Verify(ctx, params)
	}
	if err != nil {
		if domain.CodeOf(err).IsMallory() {
			fmt.Fprintln(out, "WARNING: the peer could not be authenticated. Do not trust this channel.")
		}
		return err
	}
	fmt.Fprintf(out, "Verified peer %s\n", peer.Fingerprint)
	return nil
}

// runLoopback verifies against a throwaway identity over an in-memory pipe.
func runLoopback(ctx context.Context, params app.VerifyParams) (domain.VerifiedPeer, error) {
	dir, err := os.MkdirTemp("", "sascheck-loopback-*")
	if err != nil {
		return domain.VerifiedPeer{}, err
	}
	defer os.RemoveAll(dir)

	cfg := appCtx.Config
	cfg.Home = dir
	other, err := app.New(cfg, autoConfirm{})
	if err != nil {
		return domain.VerifiedPeer{}, err
	}
	var raw [12]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return domain.VerifiedPeer{}, err
	}
	otherPass := "Lb-" + hex.EncodeToString(raw[:]) + "-X9"
	if _, _, err := other.Identity.GenerateIdentity(otherPass); err != nil {
		return domain.VerifiedPeer{}, err
	}

	mine, theirs := memory.Pipe(params.Policy)
	mine.Connect()

	otherParams := params
	otherParams.Role = params.Role.Peer()
	otherParams.Passphrase = otherPass
	otherParams.Expect = nil
	otherParams.OnSAS = nil
	go func() {
		_, _ = other.VerifyOver(ctx, theirs, otherParams)
	}()
	defer mine.Close()
	return appCtx.VerifyOver(ctx, mine, params)
}
