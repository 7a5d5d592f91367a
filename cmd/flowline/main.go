// Flowline CLI — движок выполнения флоу: направленных графов
// типизированных узлов с пользовательскими sandbox-узлами.
//
// Использование:
//
//	flowline [--json] <command> [flags]
//
// Команды:
//
//	run       Выполнить флоу из JSON-файла
//	validate  Проверить граф без выполнения
//	node      Управление пользовательскими узлами
//	serve     Метрики и планировщик
//	tail      Живой просмотр потока логов
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/Flowline/internal/cli"
	"github.com/shaiso/Flowline/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "flowline",
		Short:         "Flowline — flow execution engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	loggerFn := func() *slog.Logger { return telemetry.SetupLogger() }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(loggerFn, outputFn),
		cli.NewValidateCmd(loggerFn, outputFn),
		cli.NewNodeCmd(loggerFn, outputFn),
		cli.NewServeCmd(loggerFn, outputFn),
		cli.NewTailCmd(loggerFn, outputFn),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
