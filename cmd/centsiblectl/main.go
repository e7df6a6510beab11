package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	apiFlag     string
	keyFlag     string
	userFlag    string
	chatFlag    string
	projectFlag string
	rootCmd     = &cobra.Command{
		Use:   "centsiblectl",
		Short: "CLI client for the Centsible assistant REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Assistant service base URL")
	rootCmd.PersistentFlags().StringVarP(&keyFlag, "key", "k", "", "API key sent as X-Api-Key")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "dev", "User ID")
	rootCmd.PersistentFlags().StringVarP(&chatFlag, "chat", "c", "dev", "Chat ID")
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "personal", "Project ID")

	// send subcommand
	sendCmd := &cobra.Command{
		Use:   "send TEXT...",
		Short: "Send one message and print the assistant reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return runSend(apiFlag, keyFlag, userFlag, chatFlag, projectFlag, text, os.Stdout)
		},
	}
	rootCmd.AddCommand(sendCmd)

	// callback subcommand
	callbackCmd := &cobra.Command{
		Use:   "callback DATA",
		Short: "Deliver a button callback, e.g. confirm_delete_<id>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCallback(apiFlag, keyFlag, userFlag, chatFlag, projectFlag, args[0], os.Stdout)
		},
	}
	rootCmd.AddCommand(callbackCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
