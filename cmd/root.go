////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package cmd initializes the CLI and config parsers as well as the logger.
package cmd

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
	"gitlab.com/elixxir/secretsanta/cmd/conf"
)

var cfgFile string
var verbose bool
var runs int
var parallel bool
var modulusBits int
var reveal bool
var showVer bool

// rootCmd represents the base command when called without any sub-commands
var rootCmd = &cobra.Command{
	Use:   "secretsanta",
	Short: "Runs an anonymous secret santa draw between simulated participants",
	Long: `Every participant learns who drew them and nothing else. Nobody,
including the coordinator, learns the full assignment.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVer {
			printVersion()
			return nil
		}

		params, err := conf.NewParams(viper.GetViper())
		if err != nil {
			return err
		}

		return RunSecretSanta(params, reveal, os.Stdout, ReceiveExitSignal())
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.  This is called by main.main(). It only needs to
// happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		jww.ERROR.Printf("Exiting with error: %v", err)
		os.Exit(1)
	}
	jww.INFO.Printf("Exiting without error...")
}

// init is the initialization function for Cobra which defines commands
// and flags.
func init() {
	cobra.OnInitialize(initConfig, initLog)

	rootCmd.Flags().StringVarP(&cfgFile, "config", "", "",
		"config file (default is $HOME/.elixxir/secretsanta.yaml)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Verbose mode for debugging")
	rootCmd.Flags().IntVarP(&runs, "runs", "r", 1,
		"Number of consecutive runs with the same participants")
	rootCmd.Flags().BoolVarP(&parallel, "parallel", "p", false,
		"Runs the participants of each round concurrently")
	rootCmd.Flags().IntVarP(&modulusBits, "modulusBits", "m", 2048,
		"RSA modulus size in bits for every key pair")
	rootCmd.Flags().BoolVar(&reveal, "reveal", false,
		"Prints every participant's giver after each run")
	rootCmd.Flags().BoolVarP(&showVer, "version", "V", false,
		"Show the version information.")

	err := viper.BindPFlag("runs", rootCmd.Flags().Lookup("runs"))
	handleBindingError(err, "runs")

	err = viper.BindPFlag("protocol.parallel",
		rootCmd.Flags().Lookup("parallel"))
	handleBindingError(err, "parallel")

	err = viper.BindPFlag("protocol.modulusBits",
		rootCmd.Flags().Lookup("modulusBits"))
	handleBindingError(err, "modulusBits")

	err = viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
	handleBindingError(err, "verbose")
}

func handleBindingError(err error, flag string) {
	if err != nil {
		jww.FATAL.Panicf("Error on binding flag \"%s\":%+v", flag, err)
	}
}

// initConfig reads in config file and ENV variables if set. Without a config
// file every value keeps its default.
func initConfig() {
	explicit := cfgFile != ""

	// Use default config location if none is passed
	if !explicit {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			jww.ERROR.Println(err)
			os.Exit(1)
		}

		cfgFile = home + "/.elixxir/secretsanta.yaml"
	}

	viper.AutomaticEnv() // read in environment variables that match

	if _, err := os.Stat(cfgFile); err != nil {
		if explicit {
			jww.FATAL.Panicf("Invalid config file (%s): %s", cfgFile,
				err.Error())
		}
		jww.INFO.Printf("No config file at %s, using defaults", cfgFile)
		return
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		jww.FATAL.Panicf("Unable to read config file (%s): %s", cfgFile,
			err.Error())
	}
}

// initLog initializes logging thresholds and the log path.
func initLog() {
	// If verbose flag set then log more info for debugging
	if viper.GetBool("verbose") {
		jww.SetLogThreshold(jww.LevelDebug)
		jww.SetStdoutThreshold(jww.LevelDebug)
	} else {
		jww.SetLogThreshold(jww.LevelInfo)
		jww.SetStdoutThreshold(jww.LevelWarn)
	}

	if logPath := viper.GetString("logPath"); logPath != "" {
		// Create log file, overwrites if existing
		logFile, err := os.Create(logPath)
		if err != nil {
			fmt.Printf("Invalid or missing log path %s, "+
				"logging to stdout only.\n", logPath)
		} else {
			jww.SetLogOutput(logFile)
		}
	}
}
