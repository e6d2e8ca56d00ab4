package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/pratik-mahalle/paygate/pkg/client"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthSignupCmd())
	cmd.AddCommand(newAuthRefreshCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthWhoamiCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Login with email and password",
		Annotations: map[string]string{clientAnnotation: clientPublic},
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = promptInput("Email: ")
			}
			if password == "" {
				password = promptPassword("Password: ")
			}

			resp, err := apiClient.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := saveSession(resp.AccessToken, resp.RefreshToken, resp.User); err != nil {
				return err
			}

			fmt.Printf("Logged in as %s\n", displayEmail(resp, email))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")

	return cmd
}

func newAuthSignupCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:         "signup",
		Aliases:     []string{"register"},
		Short:       "Create a new account",
		Annotations: map[string]string{clientAnnotation: clientPublic},
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = promptInput("Email: ")
			}
			if password == "" {
				password = promptPassword("Password: ")
				confirm := promptPassword("Confirm password: ")
				if password != confirm {
					return fmt.Errorf("passwords do not match")
				}
			}

			resp, err := apiClient.Signup(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("signup failed: %w", err)
			}
			if err := saveSession(resp.AccessToken, resp.RefreshToken, resp.User); err != nil {
				return err
			}

			fmt.Printf("Account created. Logged in as %s\n", displayEmail(resp, email))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (min 6 characters)")

	return cmd
}

func newAuthRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the stored refresh token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := refreshSession(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Session refreshed")
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:         "logout",
		Short:       "Revoke the session and clear stored credentials",
		Annotations: map[string]string{clientAnnotation: clientPublic},
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient.SetToken(viper.GetString("auth.token"))
			apiClient.SetRefreshToken(viper.GetString("auth.refresh_token"))

			// Local credentials are cleared even when the server is unreachable
			if err := apiClient.Logout(cmd.Context(), all); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: server logout failed: %v\n", err)
			}
			if err := clearSession(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}

			fmt.Println("Logged out successfully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "revoke every session of this account")

	return cmd
}

func newAuthWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show current user info",
		RunE: func(cmd *cobra.Command, args []string) error {
			var profile *client.Profile
			err := withSession(cmd.Context(), func(ctx context.Context) error {
				var err error
				profile, err = apiClient.Entitlements().Profile(ctx)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to get user info: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(profile)
			}

			fmt.Printf("Email:    %s\n", profile.Email)
			fmt.Printf("Name:     %s\n", profile.DisplayName)
			fmt.Printf("ID:       %d\n", profile.UserID)
			fmt.Printf("Joined:   %s\n", profile.CreatedAt.Format("2006-01-02"))
			return nil
		},
	}
}

// withSession runs fn and, if the access token has expired, rotates the
// session once and retries
func withSession(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	apiErr, ok := client.AsAPIError(err)
	if !ok || !(apiErr.IsExpired() || (apiErr.IsUnauthorized() && apiClient.GetToken() == "")) {
		return err
	}
	if apiClient.GetRefreshToken() == "" {
		return err
	}
	if rerr := refreshSession(ctx); rerr != nil {
		return rerr
	}
	return fn(ctx)
}

func refreshSession(ctx context.Context) error {
	pair, err := apiClient.Refresh(ctx)
	if err != nil {
		if apiErr, ok := client.AsAPIError(err); ok && apiErr.IsRevoked() {
			_ = clearSession()
			return fmt.Errorf("session was revoked. Run 'paygate auth login' again")
		}
		return fmt.Errorf("refresh failed: %w", err)
	}
	return saveSession(pair.AccessToken, pair.RefreshToken, nil)
}

func saveSession(access, refresh string, user *client.User) error {
	viper.Set("auth.token", access)
	viper.Set("auth.refresh_token", refresh)
	if user != nil {
		viper.Set("auth.email", user.Email)
	}
	if err := writeConfig(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func clearSession() error {
	viper.Set("auth.token", "")
	viper.Set("auth.refresh_token", "")
	viper.Set("auth.email", "")
	return writeConfig()
}

func displayEmail(resp *client.AuthResponse, fallback string) string {
	if resp.User != nil {
		return resp.User.Email
	}
	return fallback
}

func promptInput(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func promptPassword(prompt string) string {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(password)
}
