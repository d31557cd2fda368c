/*
Package cli holds the helpers shared by the governor subcommands:
output formatting, error reporting, and shutdown signal wiring.

Status reports and period history render as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, status); err != nil {
		return err
	}

The run command stops its pollers, scheduler, and metrics server from a
single signal-bound context:

	ctx, stop := cli.ShutdownContext()
	defer stop()
	<-ctx.Done()
*/
package cli
