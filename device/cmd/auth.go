package main

import (
	"fmt"
	"io"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/byte4ever/gitlink/device"
	"github.com/byte4ever/gitlink/session"
)

// announced is a portal that can tell the user where to
// connect.
type announced interface {
	device.Portal
	SSID() string
	Address() netip.Addr
}

func newAuthCmd(a *app) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with a provider",
	}

	cmd.PersistentFlags().StringVar(
		&kindFlag, "kind", "",
		"provider: github, gitlab or gitee (default: saved)",
	)

	cmd.AddCommand(
		newAuthTokenCmd(a, &kindFlag),
		newAuthPortalCmd(a, &kindFlag, "portal",
			"Receive a token through the captive portal",
			func(kind session.Kind) (announced, error) {
				return a.ctl.TokenPortal(kind), nil
			},
		),
		newAuthPortalCmd(a, &kindFlag, "oauth",
			"Authorize through the OAuth captive portal",
			func(kind session.Kind) (announced, error) {
				return a.ctl.OAuthFlow(kind)
			},
		),
		newAuthPortalCmd(a, &kindFlag, "qr",
			"Authorize from a phone by scanning a QR code",
			func(kind session.Kind) (announced, error) {
				return a.ctl.QRPortal(kind)
			},
		),
		&cobra.Command{
			Use:   "logout",
			Short: "Forget the saved token",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.ctl.Disconnect(); err != nil {
					return err
				}

				_, err := fmt.Fprintln(cmd.OutOrStdout(), "logged out")

				return err
			},
		},
	)

	return cmd
}

func newAuthTokenCmd(a *app, kindFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Enter a personal access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := a.kind(*kindFlag)
			if err != nil {
				return err
			}

			prompter := device.TermPrompter{
				In:  a.stdin,
				Out: cmd.ErrOrStderr(),
			}

			token, err := prompter.Secret(
				kind.DisplayName() + " token: ",
			)
			if err != nil {
				return err
			}

			login, err := a.ctl.AuthenticateToken(
				cmd.Context(), kind, token,
			)
			if err != nil {
				return err
			}

			return printLogin(cmd.OutOrStdout(), kind, login)
		},
	}
}

func newAuthPortalCmd(
	a *app,
	kindFlag *string,
	use string,
	short string,
	build func(session.Kind) (announced, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := a.kind(*kindFlag)
			if err != nil {
				return err
			}

			portal, err := build(kind)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(
				cmd.ErrOrStderr(),
				"Join Wi-Fi %q and open http://%s/ to continue."+
					" Press Enter to cancel.\n",
				portal.SSID(), portal.Address(),
			)

			login, err := a.ctl.AuthenticatePortal(
				cmd.Context(),
				kind,
				portal,
				device.KeyCanceller(a.stdin),
			)
			if err != nil {
				return err
			}

			return printLogin(cmd.OutOrStdout(), kind, login)
		},
	}
}

func printLogin(w io.Writer, kind session.Kind, login string) error {
	_, err := fmt.Fprintf(
		w, "authenticated with %s as %s\n",
		kind.DisplayName(), login,
	)

	return err
}
