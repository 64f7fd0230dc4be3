// ABOUTME: CLI commands for managing exercise categories.
// ABOUTME: Provides add, list, set, and delete subcommands.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/spf13/cobra"
)

var (
	categoryBodyMass   bool
	categoryBodyWeight bool
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"cat", "c"},
	Short:   "Manage exercise categories",
	Long: `Manage the categories entries are logged against.

A category is one of:

  body mass     your own body weight; entries never carry reps
  body weight   an exercise using your body weight (pullups, dips)
  weighted      a loaded lift (the default)

A category can never be both body mass and a body weight exercise.`,
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}

		c := models.NewCategory(user.ID, args[0])
		c.IsBodyMass = categoryBodyMass
		c.IsBodyWeightExercise = categoryBodyWeight
		if err := store.CreateCategory(c); err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}

		color.Green("✓ Created %s", c.Name)
		fmt.Printf("  %s %s\n", color.New(color.Faint).Sprintf("#%d", c.ID), c.Kind())
		return nil
	},
}

var categoryListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List categories, most recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}

		cats, err := store.ListCategories(user.ID)
		if err != nil {
			return fmt.Errorf("failed to list categories: %w", err)
		}
		if len(cats) == 0 {
			fmt.Println("No categories found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, c := range cats {
			lastUsed := "never"
			if c.LastUsedAt != nil {
				lastUsed = c.LastUsedAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Printf("%s %s %s %s\n",
				faint.Sprint(padRight(fmt.Sprintf("#%d", c.ID), 6)),
				padRight(truncate(c.Name, 24), 24),
				padRight(c.Kind(), 12),
				faint.Sprint(lastUsed))
		}
		return nil
	},
}

var categorySetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Change a category's kind",
	Long: `Change whether a category is body mass or a body weight exercise.
Passing neither flag makes it a plain weighted lift.

Examples:
  liftlog category set Pullups --body-weight
  liftlog category set "Morning Weight" --body-mass`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}

		c, err := store.GetCategoryByName(user.ID, args[0])
		if err != nil {
			return fmt.Errorf("unknown category: %s", args[0])
		}
		if err := store.SetCategoryFlags(c.ID, categoryBodyMass, categoryBodyWeight); err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}

		c.IsBodyMass, c.IsBodyWeightExercise = categoryBodyMass, categoryBodyWeight
		color.Green("✓ Updated %s", c.Name)
		fmt.Printf("  %s\n", c.Kind())
		return nil
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a category and all of its entries",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}

		c, err := store.GetCategoryByName(user.ID, args[0])
		if err != nil {
			return fmt.Errorf("unknown category: %s", args[0])
		}
		if err := store.DeleteCategory(c.ID); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}

		color.Green("✓ Deleted %s", c.Name)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{categoryAddCmd, categorySetCmd} {
		cmd.Flags().BoolVar(&categoryBodyMass, "body-mass", false, "body mass category (entries carry no reps)")
		cmd.Flags().BoolVar(&categoryBodyWeight, "body-weight", false, "body weight exercise")
		cmd.MarkFlagsMutuallyExclusive("body-mass", "body-weight")
	}

	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categorySetCmd)
	categoryCmd.AddCommand(categoryDeleteCmd)
	rootCmd.AddCommand(categoryCmd)
}
