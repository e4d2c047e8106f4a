package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "bnf"

// applyConfig fills flags that were not given on the command line. A value
// from the environment variable BNF_<COMMAND>_<FLAG> wins over one from the
// command's section of the config file:
//
//	parse:
//	  start: Equation
//	  format: json
func applyConfig(command *cobra.Command, configFile string) error {
	env := viper.New()
	env.SetEnvPrefix(fmt.Sprintf("%s_%s", envPrefix, command.Name()))
	env.AutomaticEnv()

	var file *viper.Viper
	if configFile != "" {
		v := viper.New()
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		file = v.Sub(command.Name())
	}

	var errs []string
	command.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		var val any
		switch {
		case env.IsSet(key):
			val = env.Get(key)
		case file != nil && file.IsSet(f.Name):
			val = file.Get(f.Name)
		case file != nil && file.IsSet(key):
			val = file.Get(key)
		default:
			return
		}
		if err := command.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
			errs = append(errs, err.Error())
		}
	})

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("error mapping configuration to command flags: %s", strings.Join(errs, "; "))
}
