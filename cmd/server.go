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
	"os"
	"strings"

	devConfig "github.com/Daskott/safepoint/dev/config"
	"github.com/Daskott/safepoint/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a safepoint server",
	Long: `The safepoint server exposes the REST API for users, emergency contacts,
emergency alerts & incident reports. Config values can also be set with env vars
e.g. SAFEPOINT_TWILIO_AUTHTOKEN overrides twilio.authToken`,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := serverConfig()
		cobra.CheckErr(err)

		server.Start(config, isDevEnv)
	},
}

var serverConfigFile string

func init() {
	rootCmd.AddCommand(serverCmd)

	rootCmd.PersistentFlags().StringVar(&serverConfigFile, "sconfig", "", "config file for the server, not needed in dev mode")
}

// serverConfig reads the server config from --sconfig, or the built in
// dev config when running with --dev
func serverConfig() (*viper.Viper, error) {
	config := viper.New()
	config.SetEnvPrefix("safepoint")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if isDevEnv {
		if serverConfigFile != "" {
			fmt.Fprintln(os.Stderr, warningLabel, "--sconfig is ignored in dev mode")
		}

		config.SetConfigType("yaml")
		err := config.ReadConfig(strings.NewReader(devConfig.SERVER_YML))
		if err != nil {
			return nil, formattedError("error reading dev server config: %v", err)
		}
		return config, nil
	}

	if serverConfigFile == "" {
		return nil, formattedError("--sconfig is required, unless running with --dev")
	}

	config.SetConfigFile(serverConfigFile)
	err := config.ReadInConfig()
	if err != nil {
		return nil, formattedError("error reading server config file: %v", err)
	}

	return config, nil
}
