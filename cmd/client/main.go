package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/listqr/internal/client"
	"github.com/harrylevesque/listqr/internal/config"
	"github.com/harrylevesque/listqr/internal/export"
	"github.com/harrylevesque/listqr/internal/models"
	"github.com/harrylevesque/listqr/internal/tui"
	"github.com/harrylevesque/listqr/internal/utils"
	"github.com/harrylevesque/listqr/internal/viewer"
)

type app struct {
	server string
	c      *client.Client
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "listqr",
		Short:        "Terminal client for listqr",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive shell
  listqr

  # Scriptable commands
  listqr login --email ana@example.com
  listqr lists
  listqr export pdf <list-id> -o compras.pdf
`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Get()
			if err != nil {
				return err
			}
			if a.server == "" {
				a.server = cfg.Client.Server
			}
			a.c, err = client.New(a.server, client.Options{
				SessionFile: filepath.Join(utils.GetDataDir(), "client-session.json"),
			})
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(cmd.Context(), a.c)
		},
	}
	cmd.PersistentFlags().StringVar(&a.server, "server", "", "server base URL (default from config client.server)")
	cmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newListsCmd(a),
		newShowCmd(a),
		newExportCmd(a),
	)
	return cmd
}

func friendly(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(models.UserMessage(err, err.Error()))
}

func newLoginCmd(a *app) *cobra.Command {
	var (
		email  string
		signUp bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in (or sign up with --signup); the password is read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			fmt.Fprint(cmd.ErrOrStderr(), "Contraseña: ")
			password, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			var id models.Identity
			if signUp {
				id, err = a.c.SignUp(cmd.Context(), email, password)
			} else {
				id, err = a.c.SignIn(cmd.Context(), email, password)
			}
			if err != nil {
				return friendly(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sesión iniciada como %s\n", id.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&signUp, "signup", false, "create the account first")
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.c.SignOut(cmd.Context()); err != nil {
				return friendly(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sesión cerrada")
			return nil
		},
	}
}

func newListsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Show the lists you own, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			lists, err := a.c.Lists(cmd.Context())
			if err != nil {
				return friendly(err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTÍTULO\tÍTEMS\tCREADA")
			for _, l := range lists {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", l.PublicID, l.Title, l.ItemCount, l.CreatedAt.Local().Format("02/01/2006"))
			}
			return tw.Flush()
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <list-id>",
		Short: "Print a list as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.c.GetList(cmd.Context(), args[0])
			if err != nil {
				return friendly(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.List.Title)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, strings.Join(viewer.Header(resp.List), "\t"))
			for _, row := range viewer.Rows(resp.List) {
				fmt.Fprintln(tw, strings.Join(row, "\t"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s\n", resp.ShareURL)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "export <pdf|qr> <list-id>",
		Short:     "Download a list as PDF or its share link as a QR PNG",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"pdf", "qr"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			switch kind {
			case "pdf":
			case "qr":
				kind = "qr.png"
			default:
				return fmt.Errorf("unknown export %q, want pdf or qr", args[0])
			}
			id := args[1]
			if out == "" {
				resp, err := a.c.GetList(cmd.Context(), id)
				if err != nil {
					return friendly(err)
				}
				out = export.PDFFilename(resp.List.Title)
				if kind == "qr.png" {
					out = strings.TrimSuffix(out, ".pdf") + "-qr.png"
				}
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := a.c.Download(cmd.Context(), id, kind, f); err != nil {
				f.Close()
				_ = os.Remove(out)
				return friendly(err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Guardado en %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default derived from the list title)")
	return cmd
}
