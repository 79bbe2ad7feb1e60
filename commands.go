// SPDX-License-Identifier: MIT
//
// Credential and probe commands.
//

package main

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/spf13/cobra"

	"captiveportal/config"
	"captiveportal/portal"
	"captiveportal/storage"
	"captiveportal/wifi"
)

func openCreds(opts *options) (*storage.Namespace, error) {
	if err := config.Load(opts.configDir); err != nil {
		return nil, err
	}
	store, err := storage.Open(config.Get().StorageFile.Path())
	if err != nil {
		return nil, err
	}
	return store.Namespace(portal.CredsNamespace)
}

func newCredsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage the stored WiFi credentials",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored SSID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := openCreds(opts)
			if err != nil {
				return err
			}
			ssid, err := storage.Get[string](ns, portal.KeySSID)
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "no stored credentials")
				return nil
			} else if err != nil {
				return err
			}
			password, _ := storage.Get[string](ns, portal.KeyPassword)
			fmt.Fprintf(cmd.OutOrStdout(), "ssid: %s\npassword: %s\n",
				ssid, wifi.Password(password))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <ssid> [password]",
		Short: "Store the credentials tried on the next start",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ssid, err := wifi.NewSSID(args[0])
			if err != nil {
				return err
			}
			if ssid == "" {
				return errors.New("ssid is empty")
			}
			var password wifi.Password
			if len(args) > 1 {
				if password, err = wifi.NewPassword(args[1]); err != nil {
					return err
				}
			}

			ns, err := openCreds(opts)
			if err != nil {
				return err
			}
			if err := storage.Set(ns, portal.KeySSID, string(ssid)); err != nil {
				return err
			}
			if err := storage.Set(ns, portal.KeyPassword, string(password)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored credentials of [%s]\n", ssid)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := openCreds(opts)
			if err != nil {
				return err
			}
			if err := ns.EraseAll(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared stored credentials")
			return nil
		},
	})

	return cmd
}

func newProbeCmd() *cobra.Command {
	var (
		server  string
		qtype   string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "probe <name>...",
		Short: "Query the captive DNS and print the answers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := mdns.StringToType[strings.ToUpper(qtype)]
			if !ok {
				return fmt.Errorf("unknown query type [%s]", qtype)
			}
			if _, _, err := net.SplitHostPort(server); err != nil {
				server = net.JoinHostPort(server, "53")
			}

			client := &mdns.Client{Net: "udp", Timeout: timeout}
			out := cmd.OutOrStdout()
			for _, name := range args {
				q := new(mdns.Msg)
				q.SetQuestion(mdns.Fqdn(name), t)
				resp, rtt, err := client.Exchange(q, server)
				if err != nil {
					return fmt.Errorf("query %s: %w", name, err)
				}
				fmt.Fprintf(out, "%s %s: %s (%s)\n", name, qtype,
					mdns.RcodeToString[resp.Rcode], rtt.Round(time.Microsecond))
				for _, rr := range resp.Answer {
					fmt.Fprintf(out, "  %s\n", rr)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "127.0.0.1:53",
		"DNS server address")
	cmd.Flags().StringVarP(&qtype, "type", "t", "A", "query type")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "query timeout")
	return cmd
}
