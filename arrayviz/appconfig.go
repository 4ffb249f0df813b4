package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/wiless/arraysim"
)

// ReadAppConfig layers the configuration file, when given, over the
// defaults. A non empty kind overrides antenna_type.
func ReadAppConfig(file, kind string) (arraysim.Config, error) {
	v := viper.New()
	defaults, err := arraysim.DefaultConfig().Settings()
	if err != nil {
		return arraysim.Config{}, err
	}
	for key, value := range defaults {
		if value != nil {
			v.SetDefault(key, value)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return arraysim.Config{}, err
		}
		log.WithField("file", file).Debug("configuration read")
	}
	if kind != "" {
		v.Set("antenna_type", kind)
	}

	// viper folds keys to lower case; mapstructure matches them case
	// insensitively, so SNR_db still lands.
	settings := v.AllSettings()
	log.WithField("settings", settings).Debug("configuration")
	return arraysim.DecodeConfig(settings)
}
