package main

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/importer"
	"github.com/trezcool/vitrine/core/user"
	"github.com/trezcool/vitrine/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = database.Migrate  // mockable

	errEmptyPassword    = errors.New("the password cannot be empty")
	errPasswordMismatch = errors.New("the two passwords do not match")
)

type commandLine struct {
	db       *sqlx.DB
	usrSvc   *user.Service
	importer *importer.Importer
	mailSvc  core.EmailService
	out      io.Writer
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	return root.Execute()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administration commands for the site API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.importCmd(),
		cli.sendTestMailCmd(),
	)
	return root
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command (up, down, status, redo, version, ...) on the embedded migrations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrateFunc(cmd.Context(), cli.db, args[0], args[1:]...)
		},
	}
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var name, uname, email string
	var owner bool

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a backoffice user, or reactivate and update an existing one. The password is prompted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uname == "" && email == "" {
				return errors.New(`one of "username" or "email" is required`)
			}
			pwd, err := promptPassword(cmd, true)
			if err != nil {
				return err
			}
			usr, created, err := cli.addUser(cmd.Context(), name, uname, email, pwd, owner)
			if err != nil {
				return err
			}
			verb := "updated"
			if created {
				verb = "created"
			}
			cmd.Printf("user %d %s\n", usr.ID, verb)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the username)")
	cmd.Flags().StringVar(&uname, "username", "", "login username")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().BoolVar(&owner, "owner", false, "grant the owner role instead of editor")
	return cmd
}

// addUser creates the user, or updates the one owning uname or email.
func (cli *commandLine) addUser(ctx context.Context, name, uname, email, pwd string, owner bool) (user.User, bool, error) {
	roles := []string{user.RoleAdminEditor}
	if owner {
		roles = []string{user.RoleAdminOwner}
	}
	usr, err := cli.findUser(ctx, uname, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, false, err
		}
		if name == "" {
			name = uname
			if name == "" {
				name = email
			}
		}
		usr, err = cli.usrSvc.Create(ctx, user.NewUser{
			Name:            name,
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		})
		return usr, err == nil, err
	}

	active := true
	usr, err = cli.usrSvc.Update(ctx, usr, user.UpdateUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		IsActive:        &active,
		Roles:           roles,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	return usr, false, err
}

func (cli *commandLine) findUser(ctx context.Context, uname, email string) (user.User, error) {
	if uname != "" {
		usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
		if errors.Cause(err) != user.ErrNotFound {
			return usr, err
		}
	}
	if email != "" {
		return cli.usrSvc.GetByEmail(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string

	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password. The password is prompted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			usr, err := cli.usrSvc.GetByUsernameOrEmail(cmd.Context(), uname)
			if err != nil {
				return err
			}
			pwd, err := promptPassword(cmd, true)
			if err != nil {
				return err
			}
			if _, err = cli.usrSvc.SetPassword(cmd.Context(), usr, pwd, pwd); err != nil {
				return err
			}
			cmd.Printf("password of user %d reset\n", usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "the user's username or email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (cli *commandLine) importCmd() *cobra.Command {
	var file string
	var opts importer.Options

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a localStorage dump (a JSON object) into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var dump []byte
			var err error
			if file == "-" {
				dump, err = io.ReadAll(cmd.InOrStdin())
			} else {
				dump, err = os.ReadFile(file)
			}
			if err != nil {
				return errors.Wrap(err, "reading dump")
			}

			report, err := cli.importer.Import(cmd.Context(), dump, opts)
			if err != nil {
				return err
			}
			report.Render(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", `path of the dump, "-" for stdin`)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "run the import then roll it back")
	cmd.Flags().BoolVar(&opts.Truncate, "truncate", false, "cut oversized fields instead of rejecting the record")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (cli *commandLine) sendTestMailCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "sendtestmail",
		Short: "Send a test email with the configured mail backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := mail.ParseAddress(to)
			if err != nil {
				return errors.Wrapf(err, "invalid address %q", to)
			}
			msg := &core.EmailMessage{
				To:           []mail.Address{*addr},
				Subject:      "Test email",
				TemplateName: "smtp_test",
			}
			if err := cli.mailSvc.Send(msg); err != nil {
				return errors.Wrap(err, "sending test email")
			}
			cmd.Printf("test email sent to %s\n", addr.Address)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// promptPassword reads a password from the terminal, twice when confirm is set.
func promptPassword(cmd *cobra.Command, confirm bool) (string, error) {
	read := func(prompt string) (string, error) {
		cmd.Print(prompt)
		pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
		cmd.Println()
		if err != nil {
			return "", errors.Wrap(err, "reading password")
		}
		return string(pwd), nil
	}

	pwd, err := read("Enter password: ")
	if err != nil {
		return "", err
	}
	if pwd == "" {
		return "", errEmptyPassword
	}
	if confirm {
		again, err := read("Confirm password: ")
		if err != nil {
			return "", err
		}
		if again != pwd {
			return "", errPasswordMismatch
		}
	}
	return pwd, nil
}

func printErr(w io.Writer, err error) {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) && len(vErr.Fields) > 0 {
		for _, f := range vErr.Fields {
			_, _ = fmt.Fprintf(w, "error: %s: %s\n", f.Field, f.Error)
		}
		return
	}
	_, _ = fmt.Fprintf(w, "error: %s\n", err)
}
