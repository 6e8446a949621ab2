package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/logger"
	"github.com/Tomlord1122/space-todo/internal/policy"
	"github.com/Tomlord1122/space-todo/internal/repository"
	"github.com/Tomlord1122/space-todo/internal/service"
)

const (
	seedTaskTitle       = "Read a Book"
	seedTaskDescription = "Spend 30 minutes reading any book of your choice."
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Add the demo task to the first space",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := policy.WithPrincipal(cmd.Context(), policy.SystemPrincipal)

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	gormDB := a.db.GetDB()
	space, err := repository.NewGormSpaceRepository(gormDB).FindFirst(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No space found. Create a space first, then run seed again.")
		return nil
	}
	if err != nil {
		return err
	}
	owner, err := repository.NewGormUserRepository(gormDB).FindByID(ctx, space.OwnerID)
	if errors.Is(err, domain.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "Space %q has no owner. Nothing to seed.\n", space.Slug)
		return nil
	}
	if err != nil {
		return err
	}

	tasks := a.services().tasks
	existing, err := tasks.FindBySpace(ctx, space.ID)
	if err != nil {
		return err
	}
	for _, t := range existing {
		if t.Title == seedTaskTitle {
			fmt.Fprintf(cmd.OutOrStdout(), "Space %q already has %q.\n", space.Slug, seedTaskTitle)
			return nil
		}
	}

	task, err := tasks.Create(ctx, service.CreateTaskRequest{
		Title:       seedTaskTitle,
		Description: seedTaskDescription,
		SpaceID:     space.ID,
	})
	if err != nil {
		return fmt.Errorf("seed task: %w", err)
	}
	logger.Info(ctx, "Seeded task", "task_id", task.ID, "space", space.Slug, "owner", owner.Email)
	fmt.Fprintf(cmd.OutOrStdout(), "Created task %q in space %q for %s\n", task.Title, space.Name, owner.Email)
	return nil
}
