package cli

import (
	"bufio"
	"fmt"
	"text/tabwriter"

	"github.com/me/docvault/internal/route"
	"github.com/me/docvault/pkg/model"
	"github.com/spf13/cobra"
)

func newRegisterCmd(a *app) *cobra.Command {
	var (
		name         string
		email        string
		department   string
		passwordFile string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: "Create an account in a department. --department accepts a department id\n" +
			"or name as listed by \"docvault departments\".",
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			dep, err := a.catalog.ResolveDepartment(cmd.Context(), department)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			password, err := readPassword(cmd, bufio.NewReader(cmd.InOrStdin()), passwordFile)
			if err != nil {
				return err
			}

			p := model.Profile{Name: name, Email: email, Password: password, DepartmentID: dep.ID}
			if err := a.client.RegisterUser(cmd.Context(), p); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s. Run \"docvault login\" to sign in.\n", email, dep.Name)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&department, "department", "", "Department id or name")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "Read the password from this file (\"-\" for stdin)")
	return forRoute(cmd, route.Register)
}

func newDepartmentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "departments",
		Short: "List departments available at registration",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			deps, err := a.catalog.Departments(cmd.Context())
			if err != nil {
				return fmt.Errorf("list departments: %w", err)
			}
			if len(deps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No departments found.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, d := range deps {
				fmt.Fprintf(tw, "%d\t%s\n", d.ID, d.Name)
			}
			return tw.Flush()
		}),
	}
}
