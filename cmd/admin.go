/*
Copyright © 2021 Edmond Cotterell

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	"github.com/Daskott/safepoint/server"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage safepoint admins",
}

var promoteEmail string

// promoteCmd gives an existing user the admin role
var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Give an existing user the admin role",
	Example: `  safepoint admin promote --email jane@example.com --sconfig server.yml
  safepoint admin promote --email jane@example.com --dev`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := serverConfig()
		if err != nil {
			return err
		}

		err = server.PromoteUser(config, isDevEnv, promoteEmail)
		if err != nil {
			return formattedError("%v", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), green(fmt.Sprintf("%v is now an admin", promoteEmail)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(promoteCmd)

	promoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email of the user to promote")
	promoteCmd.MarkFlagRequired("email")
}
