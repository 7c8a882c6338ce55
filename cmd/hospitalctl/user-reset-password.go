package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hospitaldigital/hospital-api/pkg/db"
	"github.com/hospitaldigital/hospital-api/pkg/password"
	gormstore "github.com/hospitaldigital/hospital-api/pkg/server/store/gorm"
)

// userResetPasswordCmd represents the user reset-password command
var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <email>",
	Short: "Reset a user's password",
	Long: `Reset the password for a user account.

Any outstanding refresh token is invalidated, so active sessions must
log in again. If --password is omitted a random password is generated
and printed to stdout.

Example:
  hospitalctl user reset-password admin@hospital.example`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		email := args[0]

		plain, _ := cmd.Flags().GetString("password")
		generated, err := resetUserPassword(email, plain)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to reset password for %s: %v\n", email, err)
			os.Exit(1)
		}

		fmt.Printf("Password reset for %s\n", email)
		if generated != "" {
			fmt.Println("New password:", generated)
		}
	},
}

func init() {
	userCmd.AddCommand(userResetPasswordCmd)
	userResetPasswordCmd.Flags().String("password", "", "new password (generated when omitted)")
}

func resetUserPassword(email, plain string) (generated string, err error) {
	database, err := db.Connect(db.Config{})
	if err != nil {
		return "", err
	}

	if plain == "" {
		plain = uuid.NewString()
		generated = plain
	}
	if len(plain) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := password.Hash(plain)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	users := gormstore.NewUsersStore(database)
	user, err := users.GetByEmail(email)
	if err != nil {
		return "", err
	}

	if err := users.SetPassword(user.ID, hash); err != nil {
		return "", err
	}
	return generated, nil
}
