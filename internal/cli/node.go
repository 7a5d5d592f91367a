package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Flowline/internal/domain"
)

// NewNodeCmd создаёт группу команд управления пользовательскими узлами.
func NewNodeCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage custom nodes",
	}

	cmd.AddCommand(
		newNodeListCmd(loggerFn, outputFn),
		newNodeShowCmd(loggerFn, outputFn),
		newNodeRegisterCmd(loggerFn, outputFn),
		newNodeUnregisterCmd(loggerFn, outputFn),
		newNodeExportCmd(loggerFn, outputFn),
		newNodeImportCmd(loggerFn, outputFn),
		newNodeClearCmd(loggerFn, outputFn),
	)

	return cmd
}

func newNodeListCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered custom nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			app, err := newApp(cmd.Context(), loggerFn())
			if err != nil {
				return err
			}
			defer app.Close()

			defs := app.Nodes.List()

			headers := []string{"TYPE", "NAME", "CATEGORY", "IN", "OUT", "USED"}
			rows := make([][]string, len(defs))
			for i, def := range defs {
				rows[i] = []string{
					def.Type,
					def.Name,
					def.Category,
					strconv.Itoa(len(def.Inputs)),
					strconv.Itoa(len(def.Outputs)),
					strconv.Itoa(def.Metadata.UsageCount),
				}
			}

			out.Print(headers, rows, defs)
			return nil
		},
	}
}

func newNodeShowCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show TYPE",
		Short: "Show a custom node definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			app, err := newApp(cmd.Context(), loggerFn())
			if err != nil {
				return err
			}
			defer app.Close()

			def, ok := app.Nodes.Get(args[0])
			if !ok {
				return fmt.Errorf("custom node %q is not registered", args[0])
			}

			// Определение всегда в JSON: код и порты в таблицу не лезут
			out.JSON(def)
			return nil
		},
	}
}

func newNodeRegisterCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "register FILE.json",
		Short: "Register a custom node from a definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read definition file: %w", err)
			}

			var def domain.CustomNodeDefinition
			if err := json.Unmarshal(data, &def); err != nil {
				return fmt.Errorf("parse definition file %s: %w", args[0], err)
			}

			app, err := newApp(cmd.Context(), loggerFn())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Nodes.Register(cmd.Context(), &def); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Registered custom node %q", def.Type))
			return nil
		},
	}
}

func newNodeUnregisterCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "unregister TYPE",
		Short: "Remove a custom node from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			app, err := newApp(cmd.Context(), loggerFn())
			if err != nil {
				return err
			}
			defer app.Close()

			removed, err := app.Nodes.Unregister(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("custom node %q is not registered", args[0])
			}

			out.Success(fmt.Sprintf("Unregistered custom node %q", args[0]))
			return nil
		},
	}
}

func newNodeExportCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export [TYPE...]",
		Short: "Export custom nodes to a bundle",
		Long:  "Export selected custom nodes (or all, if no types given) to a JSON bundle.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			app, err := newApp(cmd.Context(), loggerFn())
			if err != nil {
				return err
			}
			defer app.Close()

			bundle := app.Nodes.ExportSelection(args...)

			data, err := json.MarshalIndent(bundle, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal bundle: %w", err)
			}

			if outPath == "" {
				fmt.Fprintln(os.Stdout, string(data))
				return nil
			}

			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write bundle: %w", err)
			}

			out.Success(fmt.Sprintf("Exported %d node(s) to %s", len(bundle.Nodes), outPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write the bundle to a file instead of stdout")

	return cmd
}

func newNodeImportCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE.json",
		Short: "Import custom nodes from a bundle",
		Long: `Import custom nodes from a bundle file.

Каждый узел бандла проходит полную валидацию; невалидные узлы
пропускаются, остальные регистрируются. Команда возвращает ошибку
только если не импортировано ни одного узла.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read bundle file: %w", err)
			}

			app, err := newApp(cmd.Context(), loggerFn())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Nodes.ImportBundle(cmd.Context(), payload)
			if err != nil {
				return err
			}

			for _, importErr := range result.Errors {
				out.Error(importErr)
			}
			out.Success(fmt.Sprintf("Imported %d node(s), %d error(s)", result.Imported, len(result.Errors)))

			if result.Imported == 0 && len(result.Errors) > 0 {
				return fmt.Errorf("no nodes imported")
			}
			return nil
		},
	}
}

func newNodeClearCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all custom nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			if !force {
				return fmt.Errorf("refusing to clear the registry without --force")
			}

			app, err := newApp(cmd.Context(), loggerFn())
			if err != nil {
				return err
			}
			defer app.Close()

			count := app.Nodes.Size()
			if err := app.Nodes.ClearAll(cmd.Context()); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Removed %d node(s)", count))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm removal of all custom nodes")

	return cmd
}
