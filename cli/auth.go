package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
)

const keyringService = "trackcli"
const keyringUser = "server-token"

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Commands for managing the token used to authenticate against the control server.`,
}

var authSetTokenCmd = &cobra.Command{
	Use:   "set-token TOKEN",
	Short: "Store the server auth token",
	Long:  `Stores the control server token in the system keyring. Client commands send it as a bearer token.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.Set(keyringService, keyringUser, args[0]); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}

		fmt.Println("Token stored successfully.")
		return nil
	},
}

var authClearTokenCmd = &cobra.Command{
	Use:   "clear-token",
	Short: "Remove the stored auth token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.Delete(keyringService, keyringUser); err != nil {
			fmt.Println("No token is stored.")
			return nil
		}

		fmt.Println("Token removed.")
		return nil
	},
}

var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Display the stored auth token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := keyring.Get(keyringService, keyringUser)
		if err != nil {
			return fmt.Errorf("no token found for trackcli")
		}

		fmt.Println(token)
		return nil
	},
}

// storedToken returns the keyring token, or "" when none is stored.
func storedToken() string {
	token, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		return ""
	}
	return token
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetTokenCmd, authClearTokenCmd, authTokenCmd)
}
