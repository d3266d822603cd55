package opsctl

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func authzCmd(load EnvLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authz",
		Short: "Xem phân quyền theo vai trò",
	}
	var implicit bool
	policiesCmd := &cobra.Command{
		Use:   "policies [role]",
		Short: "Liệt kê vai trò hoặc quyền trực tiếp của một vai trò",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(load)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			authzService := env.Container.AuthzService
			if len(args) == 0 {
				roles, err := authzService.ListRoles()
				if err != nil {
					return err
				}
				for _, role := range roles {
					fmt.Fprintln(out, role)
				}
				return nil
			}
			lookup := authzService.GetRolePolicies
			if implicit {
				lookup = authzService.GetImplicitRolePolicies
			}
			policies, err := lookup(args[0])
			if err != nil {
				return err
			}
			method := color.New(color.FgCyan)
			inherited := color.New(color.FgHiBlack)
			for _, policy := range policies {
				line := fmt.Sprintf("%s %s", method.Sprintf("%-6s", policy.Action), policy.Object)
				if implicit {
					line += inherited.Sprintf("  (%s)", policy.Subject)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	policiesCmd.Flags().BoolVar(&implicit, "implicit", false, "gồm cả quyền kế thừa từ vai trò cha")
	cmd.AddCommand(policiesCmd)
	return cmd
}
