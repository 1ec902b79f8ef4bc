/*
Package cli provides command-line interface utilities for the verity command.

Output Formatting:

Command results are printed as text or JSON:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
		return err
	}

Results that implement TextWriter render their own text form.

Exit Codes:

Commands return errors; main maps them with ExitCode. ExitInvalid (2) means
the command ran and found invalid subjects or rule files, ExitError (1) means
the command itself failed.

Progress Reporting:

For batch validation, use the progress reporter on stderr:

	progress := cli.NewProgressReporter(os.Stderr, "subjects")
	progress.Start(int64(len(subjects)))
	progress.Update(done)
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
