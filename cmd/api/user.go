package main

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/budgetly/budgetly/internal/credstore"
	"github.com/budgetly/budgetly/internal/service"
)

// credstoreEnv is the configuration the user commands need.
type credstoreEnv struct {
	URL     string        `env:"CREDSTORE_URL,required"`
	Key     string        `env:"CREDSTORE_KEY,required"`
	Timeout time.Duration `env:"CREDSTORE_TIMEOUT" envDefault:"5s"`
}

func credstoreFromEnv() (service.CredentialStore, error) {
	var e credstoreEnv
	if err := env.Parse(&e); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return credstore.New(credstore.Config{URL: e.URL, Key: e.Key, Timeout: e.Timeout})
}

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	return newUserCmd(credstoreFromEnv)
}

func newUserCmd(openStore func() (service.CredentialStore, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users in the credential store",
	}

	register := &cobra.Command{
		Use:   "register",
		Short: "Register a user",
		Long: `Register a user in the credential store. The password is prompted for
when --password is omitted. The user must confirm their email before
logging in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUserRegister(cmd, openStore)
		},
	}
	register.Flags().String("email", "", "email address (required)")
	register.Flags().String("name", "", "first name")
	register.Flags().String("surname", "", "last name")
	register.Flags().String("password", "", "password (prompted for when omitted)")
	_ = register.MarkFlagRequired("email")

	cmd.AddCommand(register)
	return cmd
}

func runUserRegister(cmd *cobra.Command, openStore func() (service.CredentialStore, error)) error {
	flags := cmd.Flags()
	email, _ := flags.GetString("email")
	name, _ := flags.GetString("name")
	surname, _ := flags.GetString("surname")
	password, _ := flags.GetString("password")

	if password == "" {
		cmd.Print("Password: ")
		var err error
		password, err = readPassword(cmd.InOrStdin())
		cmd.Println()
		if err != nil {
			return oops.Code("INVALID_ARGUMENT").Wrapf(err, "read password")
		}
	}
	if strings.TrimSpace(password) == "" {
		return oops.Code("INVALID_ARGUMENT").Errorf("password cannot be empty")
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	users := service.NewUserService(store, nil, nil, nil)
	err = users.Register(cmd.Context(), service.RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
		Surname:  surname,
	})
	if err != nil {
		return oops.Code("REGISTRATION_FAILED").With("email", email).Wrap(err)
	}

	cmd.Printf("User %s registered. A confirmation email has been sent.\n", email)
	return nil
}

// readPassword reads without echo from a terminal, or one line otherwise.
func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
