package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your user profile",
}

var profileInitCmd = &cobra.Command{
	Use:   "init <nickname>",
	Short: "Create your profile",
	Long: `Create the user profile for this device.

The nickname (2-20 characters) is shown to other participants when you
complete tasks on shared lists. A stable user ID is generated once and
never changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if a.profiles.IsLoggedIn() {
			fmt.Fprintln(os.Stderr, "Profile already exists; use 'kaitodo profile nickname' to rename")
			return nil
		}

		p, err := a.profiles.Create(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Welcome, %s! Your user ID is %s\n", p.Nickname, p.UserID)
		return nil
	},
}

var profileNicknameCmd = &cobra.Command{
	Use:   "nickname <new-nickname>",
	Short: "Change your nickname",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.profiles.SetNickname(args[0]); err != nil {
			return err
		}
		fmt.Printf("Nickname updated to %s\n", args[0])
		return nil
	},
}

var profileTokenCmd = &cobra.Command{
	Use:   "token <device-token>",
	Short: "Register a device token for push delivery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.profiles.SetDeviceToken(args[0]); err != nil {
			return err
		}
		fmt.Println("Device token updated")
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		p, err := a.requireUser()
		if err != nil {
			return err
		}
		fmt.Printf("Nickname: %s\n", p.Nickname)
		fmt.Printf("User ID:  %s\n", p.UserID)
		fmt.Printf("Since:    %s\n", p.CreatedAt.Format("2006-01-02"))
		return nil
	},
}

var profileLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the profile (lists stay on this device)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.profiles.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileInitCmd)
	profileCmd.AddCommand(profileNicknameCmd)
	profileCmd.AddCommand(profileTokenCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileLogoutCmd)
}
