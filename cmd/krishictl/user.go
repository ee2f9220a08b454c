package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krishi-kendra/krishi-kendra/internal/auth"
)

func newUserCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage shop accounts",
	}
	var in auth.RegisterInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account with a bcrypt-hashed password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Email == "" || in.Password == "" {
				return errors.New("--email and --password are required")
			}
			pool, err := e.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			user, err := auth.NewService(auth.NewRepository(pool), nil, e.logger).CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Name, "name", "Owner", "display name")
	create.Flags().StringVar(&in.Email, "email", "", "login email")
	create.Flags().StringVar(&in.Password, "password", "", "login password")
	create.Flags().StringVar(&in.StoreName, "store", "", "store name")
	create.Flags().StringVar(&in.Mobile, "mobile", "", "mobile number")
	cmd.AddCommand(create)
	return cmd
}
