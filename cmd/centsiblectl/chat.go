package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session with the assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(os.Stdout, "Chatting as user=%s chat=%s project=%s. Ctrl-D to quit.\n", userFlag, chatFlag, projectFlag)
			sc := bufio.NewScanner(os.Stdin)
			for {
				fmt.Fprint(os.Stdout, "> ")
				if !sc.Scan() {
					fmt.Fprintln(os.Stdout)
					break
				}
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					continue
				}
				if err := runSend(apiFlag, keyFlag, userFlag, chatFlag, projectFlag, line, os.Stdout); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}
			return sc.Err()
		},
	}
	rootCmd.AddCommand(chatCmd)

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Print the service health report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(apiFlag, os.Stdout)
		},
	}
	rootCmd.AddCommand(healthCmd)
}
