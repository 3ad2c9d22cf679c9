/*
Copyright © 2026 Anton Brekhov <anton@abrekhov.ru>

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
	"context"
	"fmt"
	"os"
	ossignal "os/signal"

	"github.com/AlecAivazis/survey/v2"
	"github.com/abrekhov/edunet/pkg/config"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Flags
var (
	cfgFile string
	verbose bool
	logFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "edunet",
	Short: "P2P classroom sessions",
	Long: `edunet connects two classroom peers directly over WebRTC.
Tickets are exchanged by copy and paste; no signaling server is involved.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(setupLogging(log.StandardLogger(), verbose, logFile))
	},
	RunE:         welcome,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.edunet.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Increase verbosity")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")

	flags := rootCmd.PersistentFlags()
	flags.StringSlice(config.KeyICEServers, nil, "STUN/TURN server URLs (default: Google STUN)")
	flags.Duration(config.KeyAnswerTimeout, 0, "Warn when an offer stays unanswered this long (0 disables)")
	flags.String(config.KeyTicketFormat, "", "Ticket text format: json or compact")
	flags.String(config.KeyDownloadDir, "", "Directory for saved files")
	flags.Int64(config.KeyMaxFileSize, 0, "Largest file accepted or sent, in bytes")
	flags.Bool(config.KeyPoliteOffers, false, "Let the joining side start renegotiation too")
	for _, key := range []string{
		config.KeyICEServers, config.KeyAnswerTimeout, config.KeyTicketFormat,
		config.KeyDownloadDir, config.KeyMaxFileSize, config.KeyPoliteOffers,
	} {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(key)))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".edunet" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".edunet")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves flags, env and file into a Config.
func loadConfig() *config.Config {
	c, err := config.Load(viper.GetViper())
	cobra.CheckErr(err)
	log.WithFields(log.Fields{
		"ice-servers":    c.ICEServers,
		"answer-timeout": c.AnswerTimeout,
		"ticket-format":  c.TicketFormat,
	}).Debugln("Config loaded")
	return c
}

// setupLogging installs the prefixed formatter and, when path is set, a
// file hook that receives every level.
func setupLogging(logger *log.Logger, verbose bool, path string) error {
	logger.SetFormatter(&prefixed.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if path == "" {
		return nil
	}
	home, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	pathMap := lfshook.PathMap{}
	for _, level := range log.AllLevels {
		pathMap[level] = home
	}
	logger.AddHook(lfshook.NewHook(pathMap, &log.TextFormatter{}))
	return nil
}

func welcome(cmd *cobra.Command, args []string) error {
	role := ""
	err := survey.AskOne(&survey.Select{
		Message: "Welcome to edunet. What would you like to do?",
		Options: []string{roleHost, roleJoin},
	}, &role)
	if err != nil {
		return err
	}

	if role == roleHost {
		return runHost(cmd.Context())
	}
	return runJoin(cmd.Context())
}
