// ABOUTME: CLI commands for the account: login, register, logout, whoami, and profile update.
// ABOUTME: Login runs the bubbletea wizard unless credentials are passed as flags.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/sociality/internal/api"
	"github.com/2389-research/sociality/internal/auth"
	"github.com/2389-research/sociality/internal/tui"
)

var loginCmd = &cobra.Command{
	Use:         "login",
	Short:       "Sign in to Sociality",
	Long:        "Sign in with email and password. Without flags an interactive wizard collects them.",
	Annotations: map[string]string{annotationInteractive: "true"},
	RunE:        runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a Sociality account",
	Long:  "Create an account. Registration does not sign you in; run 'sociality login' afterwards.",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:         "whoami",
	Short:       "Show the signed-in user",
	Annotations: requiresAuth,
	RunE:        runWhoami,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your profile",
}

var profileUpdateCmd = &cobra.Command{
	Use:         "update",
	Short:       "Update profile fields",
	Long:        "Update your profile. Only the flags you pass are changed. --avatar uploads a local image.",
	Annotations: requiresAuth,
	RunE:        runProfileUpdate,
}

// Flags
var (
	loginEmail    string
	loginPassword string

	regName     string
	regUsername string
	regEmail    string
	regPhone    string
	regPassword string

	profName      string
	profUsername  string
	profPhone     string
	profBio       string
	profAvatarURL string
	profAvatar    string
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileUpdateCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (skips the wizard)")

	registerCmd.Flags().StringVar(&regName, "name", "", "Display name")
	registerCmd.Flags().StringVar(&regUsername, "username", "", "Username")
	registerCmd.Flags().StringVar(&regEmail, "email", "", "Email address")
	registerCmd.Flags().StringVar(&regPhone, "phone", "", "Phone number")
	registerCmd.Flags().StringVar(&regPassword, "password", "", "Password")
	for _, name := range []string{"name", "username", "email", "password"} {
		_ = registerCmd.MarkFlagRequired(name)
	}

	profileUpdateCmd.Flags().StringVar(&profName, "name", "", "Display name")
	profileUpdateCmd.Flags().StringVar(&profUsername, "username", "", "Username")
	profileUpdateCmd.Flags().StringVar(&profPhone, "phone", "", "Phone number")
	profileUpdateCmd.Flags().StringVar(&profBio, "bio", "", "Bio")
	profileUpdateCmd.Flags().StringVar(&profAvatarURL, "avatar-url", "", "Avatar image URL")
	profileUpdateCmd.Flags().StringVar(&profAvatar, "avatar", "", "Path to an avatar image to upload")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if loginEmail != "" && loginPassword != "" {
		user, err := globalAuth.Login(cmd.Context(), loginEmail, loginPassword)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", user.Handle())
		return nil
	}

	email := loginEmail
	if email == "" {
		if p := globalSession.Profile(); p != nil {
			email = p.Email
		}
	}

	p := tea.NewProgram(tui.NewLoginModel(email, globalAuth.Login))
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	final := result.(tui.LoginModel)
	if !final.Succeeded() {
		fmt.Println("Login cancelled.")
		return nil
	}
	if u := final.User(); u != nil {
		fmt.Printf("Logged in as %s\n", u.Handle())
	}
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	msg, err := globalAuth.Register(cmd.Context(), api.RegisterRequest{
		Name:     strings.TrimSpace(regName),
		Username: strings.TrimPrefix(strings.TrimSpace(regUsername), "@"),
		Email:    strings.TrimSpace(regEmail),
		Phone:    strings.TrimSpace(regPhone),
		Password: regPassword,
	})
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Account created"
	}
	fmt.Printf("%s. Run 'sociality login --email %s' to sign in.\n", strings.TrimSuffix(msg, "."), strings.TrimSpace(regEmail))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if globalSession.Token() == "" {
		fmt.Println("Not logged in.")
		return nil
	}
	globalAuth.Logout()
	fmt.Println("Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	u, err := globalAuth.RefreshProfile(cmd.Context())
	if err != nil {
		return err
	}
	printUser(os.Stdout, u)

	info := auth.Inspect(globalSession.Token())
	if info.JWT && !info.ExpiresAt.IsZero() {
		fmt.Printf("session expires: %s (in %s)\n",
			info.ExpiresAt.Local().Format("2006-01-02 15:04"),
			time.Until(info.ExpiresAt).Round(time.Minute))
	}
	return nil
}

func runProfileUpdate(cmd *cobra.Command, args []string) error {
	upd := api.ProfileUpdate{
		Name:      profName,
		Username:  strings.TrimPrefix(profUsername, "@"),
		Phone:     profPhone,
		Bio:       profBio,
		AvatarURL: profAvatarURL,
	}
	if profAvatar != "" {
		path, err := expandFile(profAvatar)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open avatar: %w", err)
		}
		defer func() { _ = f.Close() }()
		upd.Avatar = f
		upd.AvatarName = filepath.Base(path)
	}
	if upd == (api.ProfileUpdate{}) {
		return fmt.Errorf("nothing to update: pass at least one of --name, --username, --phone, --bio, --avatar-url, --avatar")
	}

	u, err := globalAuth.UpdateProfile(cmd.Context(), upd)
	if err != nil {
		return err
	}
	fmt.Println("Profile updated.")
	printUser(os.Stdout, u)
	return nil
}
