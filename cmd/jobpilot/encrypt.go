package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/manthysbr/jobpilot/internal/config"
	"github.com/spf13/cobra"
)

func newEncryptCommand(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt [VALUE]",
		Short: "Encrypt a secret for use in .env files (reads stdin when VALUE is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) == 1 {
				value = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read value: %w", err)
				}
				value = strings.TrimSpace(line)
			}
			if value == "" {
				return errors.New("nothing to encrypt")
			}

			key, err := config.LoadSecretKey(config.DefaultSecretKeyPath())
			if err != nil {
				return fmt.Errorf("failed to load secret key: %w", err)
			}
			enc, err := key.Encrypt(value)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), enc)
			return nil
		},
	}
}
