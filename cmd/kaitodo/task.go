package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks within a list",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <list-id> <text>",
	Short: "Add a task to a list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		task, ok, err := a.repo.AddTask(args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("List not found")
			return nil
		}

		if list, found := a.repo.Get(args[0]); found {
			a.propagateUpsert(list, task)
		}
		fmt.Printf("Added task %s\n", task.ID)
		return nil
	},
}

var taskToggleCmd = &cobra.Command{
	Use:   "toggle <list-id> <task-id>",
	Short: "Complete or un-complete a task",
	Long: `Toggle a task's completion. Completing a task attributes it to you;
un-completing clears the attribution.`,
	Args: cobra.ExactArgs(2),
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

		task, ok, err := a.repo.ToggleTask(args[0], args[1], user.UserID, user.Nickname)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Task not found")
			return nil
		}

		if list, found := a.repo.Get(args[0]); found {
			a.propagateUpsert(list, task)
		}

		if task.IsCompleted {
			fmt.Printf("Done: %s 🎉\n", task.Text)
		} else {
			fmt.Printf("Reopened: %s\n", task.Text)
		}
		return nil
	},
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <list-id> <task-id> <text>",
	Short: "Edit a task's text",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		task, ok, err := a.repo.EditTask(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Task not found")
			return nil
		}

		if list, found := a.repo.Get(args[0]); found {
			a.propagateUpsert(list, task)
		}
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <list-id> <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		list, found := a.repo.Get(args[0])
		if err := a.repo.DeleteTask(args[0], args[1]); err != nil {
			return err
		}
		if found {
			a.propagateDelete(list, args[1])
		}
		return nil
	},
}

func init() {
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskToggleCmd)
	taskCmd.AddCommand(taskEditCmd)
	taskCmd.AddCommand(taskRmCmd)
}
