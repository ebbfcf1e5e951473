package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var shareCmd = &cobra.Command{
	Use:   "share <list-id>",
	Short: "Share a list and get an invite code",
	Long: `Publish a list to the record service and print its invite code.

The code is 6 characters and can be redeemed by anyone with 'kaitodo join'.
If the remote publish fails, the list stays shared locally and the code is
still printed; retrying later catches the remote side up.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		user, err := a.requireUser()
		if err != nil {
			return err
		}

		code, err := a.share.Publish(cmd.Context(), args[0], user.UserID, user.Nickname)
		if code != "" {
			fmt.Printf("Invite code: %s\n", code)
		}
		if err != nil {
			if code != "" {
				// Shared locally; the remote side is catch-up work.
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				return nil
			}
			return err
		}
		return nil
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <invite-code>",
	Short: "Join a shared list by invite code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		user, err := a.requireUser()
		if err != nil {
			return err
		}

		list, err := a.share.Redeem(cmd.Context(), args[0], user.UserID, user.Nickname)
		if err != nil {
			return err
		}
		fmt.Printf("Joined %q (%d tasks), shared by %s\n", list.Name, len(list.Tasks), list.OwnerName)
		return nil
	},
}

var participantsCmd = &cobra.Command{
	Use:   "participants",
	Short: "Manage a shared list's participants",
}

var participantsRmCmd = &cobra.Command{
	Use:   "rm <list-id> <participant-id>",
	Short: "Remove a participant from the local participant set",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		return a.share.RemoveParticipant(args[0], args[1])
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [list-id]",
	Short: "Show completion stats",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if len(args) == 0 {
			fmt.Printf("Completed %d of %d tasks across all lists\n",
				a.repo.TotalCompletedTasks(), a.repo.TotalTasks())
			return nil
		}

		stats := a.repo.ParticipantStats(args[0])
		names := make([]string, 0, len(stats))
		for name := range stats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s: %d completed\n", name, stats[name])
		}
		return nil
	},
}

func init() {
	participantsCmd.AddCommand(participantsRmCmd)
}
