package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/offsync/internal/client/storage"
)

func newPutCommand(c *Cli) *cobra.Command {
	var (
		rawJSON string
		pairs   []string
	)

	cmd := &cobra.Command{
		Use:   "put <type> [id]",
		Short: "Create or update an entity",
		Long: `Create or update an entity of the given type. Without an id a new
entity is created. Fields come from --json and repeated --field key=value.`,
		Example: `  offsync put transactions --field amount=42 --field note=rent
  offsync put goals g-1 --json '{"name":"bike","target":500}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 2 {
				id = args[1]
			}
			return c.runPut(cmd.Context(), args[0], id, rawJSON, pairs)
		},
	}

	cmd.Flags().StringVar(&rawJSON, "json", "", "fields as a JSON object")
	cmd.Flags().StringArrayVarP(&pairs, "field", "f", nil, "field as key=value (repeatable)")
	return cmd
}

func (c *Cli) runPut(ctx context.Context, entityType, id, rawJSON string, pairs []string) error {
	fields, err := parseFields(rawJSON, pairs)
	if err != nil {
		return err
	}

	change, err := c.app.Data.Put(ctx, entityType, id, fields)
	if err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}

	c.io.Printf("✓ %s %s %s (version %d)\n",
		change.Operation, entityType, change.Entity.ID, change.Entity.Version)
	return nil
}

func newGetCommand(c *Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Show an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGet(cmd.Context(), args[0], args[1])
		},
	}
}

func (c *Cli) runGet(ctx context.Context, entityType, id string) error {
	entity, err := c.app.Data.Get(ctx, entityType, id)
	if err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			return fmt.Errorf("%s %s not found", entityType, id)
		}
		return fmt.Errorf("failed to get entity: %w", err)
	}

	return render(c.io, entityTmpl, map[string]any{
		"Type":   entityType,
		"Entity": entity,
	})
}

func newListCommand(c *Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list [type]",
		Short: "List entities of a type, or the known types",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return c.runListTypes(cmd.Context())
			}
			return c.runList(cmd.Context(), args[0])
		},
	}
}

func (c *Cli) runListTypes(ctx context.Context) error {
	types, err := c.app.Storage.EntityTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list entity types: %w", err)
	}
	if len(types) == 0 {
		c.io.Println("No entities yet.")
		c.io.Println("Use 'offsync put <type>' to create the first one.")
		return nil
	}
	for _, t := range types {
		c.io.Println(t)
	}
	return nil
}

func (c *Cli) runList(ctx context.Context, entityType string) error {
	entities, err := c.app.Data.List(ctx, entityType)
	if err != nil {
		return fmt.Errorf("failed to list entities: %w", err)
	}

	if len(entities) == 0 {
		c.io.Printf("No %s found.\n", entityType)
		return nil
	}

	c.io.Printf("Found %d %s:\n\n", len(entities), entityType)
	for i, entity := range entities {
		c.io.Printf("%d. %s (version %d)\n", i+1, entity.ID, entity.Version)
		for _, f := range sortedFields(entity.Fields) {
			c.io.Printf("   %s: %s\n", f.Name, formatValue(f.Value))
		}
	}
	return nil
}

func newDeleteCommand(c *Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Soft delete an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDelete(cmd.Context(), args[0], args[1])
		},
	}
}

func (c *Cli) runDelete(ctx context.Context, entityType, id string) error {
	change, err := c.app.Data.Delete(ctx, entityType, id)
	if err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			return fmt.Errorf("%s %s not found", entityType, id)
		}
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	c.io.Printf("✓ deleted %s %s (version %d)\n", entityType, id, change.Entity.Version)
	c.io.Println("Run 'offsync sync' to propagate the deletion.")
	return nil
}
