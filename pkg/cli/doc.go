/*
Package cli provides helpers shared by the growth command: output
formatting, status lines, exit codes and signal handling.

Output Formatting:

Results are wrapped in view types that render as aligned text or CSV and
encode to JSON like the underlying value:

	formatter := cli.NewFormatter(cli.FormatCSV)
	if err := formatter.FormatTo(os.Stdout, cli.FunnelView{Stats: stats}); err != nil {
		return err
	}

Status Lines:

	cli.Success(os.Stderr, "Activated %s %s", strategyType, version)
	cli.Warning(os.Stderr, "No baseline for %s", strategyType)

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
