package server

import (
	"fmt"
	"strings"

	"github.com/Daskott/safepoint/server/models"
	"github.com/spf13/viper"
)

// PromoteUser gives the user with 'email' the admin role, using the db described in 'configArg'
func PromoteUser(configArg *viper.Viper, devMode bool, email string) error {
	config, err := parseConfig(configArg)
	if err != nil {
		return err
	}

	err = models.AutoMigrate(config.Database, configDirectory(devMode))
	if err != nil {
		return err
	}

	user, err := models.FindUserBy("email", strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("unable to find user with email '%v': %v", email, err)
	}

	return user.SetRole(models.ADMIN_USER_ROLE)
}
