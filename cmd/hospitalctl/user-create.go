package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hospitaldigital/hospital-api/pkg/db"
	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/password"
	gormstore "github.com/hospitaldigital/hospital-api/pkg/server/store/gorm"
)

// userCreateCmd represents the user create command
var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create a user account",
	Long: `Create a user account.

Accounts created with both --specialty and --license are clinician
accounts and may author notes, prescriptions and orders. Without them
the account is administrative.

If --password is omitted a random password is generated and printed
to stdout.

Example:
  hospitalctl user create admin@hospital.example --password changeme123
  hospitalctl user create house@hospital.example \
      --first-name Gregory --last-name House \
      --specialty "Diagnostic Medicine" --license MD-12345`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		email := args[0]

		plain, err := createUser(cmd, email)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create user %s: %v\n", email, err)
			os.Exit(1)
		}

		fmt.Printf("Created user %s\n", email)
		if plain != "" {
			fmt.Println("Generated password:", plain)
		}
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().String("password", "", "account password (generated when omitted)")
	userCreateCmd.Flags().String("username", "", "username (defaults to the local part of the email)")
	userCreateCmd.Flags().String("first-name", "", "first name")
	userCreateCmd.Flags().String("last-name", "", "last name")
	userCreateCmd.Flags().String("specialty", "", "medical specialty (clinician accounts)")
	userCreateCmd.Flags().String("license", "", "professional license number (clinician accounts)")
	userCreateCmd.Flags().String("position", "", "position or role title")
}

func createUser(cmd *cobra.Command, email string) (generated string, err error) {
	database, err := db.Connect(db.Config{})
	if err != nil {
		return "", err
	}

	plain, _ := cmd.Flags().GetString("password")
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

	username, _ := cmd.Flags().GetString("username")
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	firstName, _ := cmd.Flags().GetString("first-name")
	lastName, _ := cmd.Flags().GetString("last-name")
	specialty, _ := cmd.Flags().GetString("specialty")
	license, _ := cmd.Flags().GetString("license")
	position, _ := cmd.Flags().GetString("position")

	professional := model.JSONMap{}
	if specialty != "" {
		professional["specialty"] = specialty
	}
	if license != "" {
		professional["license_number"] = license
	}
	if position != "" {
		professional["position"] = position
	}

	user := &model.User{
		Username:              username,
		Email:                 email,
		PasswordHash:          hash,
		FirstName:             firstName,
		LastName:              lastName,
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		ProfessionalData:      professional,
	}

	if err := gormstore.NewUsersStore(database).Create(user); err != nil {
		return "", err
	}
	return generated, nil
}
