package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaitodo/kaitodo/internal/model"
)

var listColor string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Manage task lists",
}

var listCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new private list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		list, err := a.repo.CreateList(args[0], listColor)
		if err != nil {
			return err
		}
		fmt.Printf("Created list %s (%s)\n", list.Name, list.ID)
		return nil
	},
}

var listRenameCmd = &cobra.Command{
	Use:   "rename <list-id> <name>",
	Short: "Rename a list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		return a.repo.RenameList(args[0], args[1])
	},
}

var listRecolorCmd = &cobra.Command{
	Use:   "recolor <list-id> <color>",
	Short: "Change a list's color",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		return a.repo.RecolorList(args[0], args[1])
	},
}

var listRmCmd = &cobra.Command{
	Use:   "rm <list-id>",
	Short: "Delete a list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		return a.repo.DeleteList(args[0])
	},
}

var listShowCmd = &cobra.Command{
	Use:   "show [list-id]",
	Short: "Show all lists, or one list with its tasks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if len(args) == 0 {
			for _, list := range a.repo.Lists() {
				printListLine(list)
			}
			return nil
		}

		list, ok := a.repo.Get(args[0])
		if !ok {
			fmt.Println("List not found")
			return nil
		}
		printListLine(list)
		for _, task := range list.Tasks {
			mark := " "
			byline := ""
			if task.IsCompleted {
				mark = "x"
				byline = fmt.Sprintf("  (done by %s)", task.CompletedByName)
			}
			fmt.Printf("  [%s] %s  %s%s\n", mark, task.ID, task.Text, byline)
		}
		return nil
	},
}

func printListLine(list model.TodoList) {
	shared := ""
	switch list.ShareType {
	case model.ShareTypeOwned:
		shared = fmt.Sprintf("  [shared, code %s]", list.InviteCode)
	case model.ShareTypeParticipant:
		shared = fmt.Sprintf("  [joined, owner %s]", list.OwnerName)
	}
	fmt.Printf("%s  %s  %d/%d done%s\n",
		list.ID, list.Name, list.CompletedTaskCount(), list.TotalTaskCount(), shared)
}

func init() {
	listCreateCmd.Flags().StringVar(&listColor, "color", "7161EF", "list color (hex)")
	listCmd.AddCommand(listCreateCmd)
	listCmd.AddCommand(listRenameCmd)
	listCmd.AddCommand(listRecolorCmd)
	listCmd.AddCommand(listRmCmd)
	listCmd.AddCommand(listShowCmd)
}
