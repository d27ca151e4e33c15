package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"s3aid/internal/keys"
	"s3aid/internal/state"
)

func Run(args []string) error {
	fs := flag.NewFlagSet("s3aid", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath, err := state.ConfigPath()
	if err != nil {
		return err
	}
	var verbose bool
	fs.StringVar(&configPath, "config", configPath, "path to config file")
	fs.BoolVar(&verbose, "verbose", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return usageError()
	}

	var command func(context.Context, *keys.Manager) error
	switch rest[0] {
	case "list":
		opts, err := parseListArgs(rest[1:])
		if err != nil {
			return err
		}
		command = func(ctx context.Context, m *keys.Manager) error { return runList(ctx, m, opts) }
	case "upload":
		opts, err := parseUploadArgs(rest[1:])
		if err != nil {
			return err
		}
		command = func(ctx context.Context, m *keys.Manager) error { return runUpload(ctx, m, opts) }
	case "delete":
		opts, err := parseDeleteArgs(rest[1:])
		if err != nil {
			return err
		}
		command = func(ctx context.Context, m *keys.Manager) error { return runDelete(ctx, m, opts) }
	case "sequence":
		opts, err := parseSequenceArgs(rest[1:])
		if err != nil {
			return err
		}
		command = func(ctx context.Context, m *keys.Manager) error { return runSequence(ctx, m, opts) }
	default:
		return usageError()
	}

	ctx := context.Background()
	manager, err := managerFromConfig(ctx, configPath, verbose)
	if err != nil {
		return err
	}
	return command(ctx, manager)
}

func usageError() error {
	return errors.New("usage: s3aid [-config path] [-verbose] list [--match regex] | upload <local-path> [key] | delete --match regex [--dry-run] | sequence --match regex <local-path>")
}

func runList(ctx context.Context, m *keys.Manager, opts listOptions) error {
	if opts.HasMatch {
		fmt.Printf("Listing keys matching '%s' in '%s' of bucket '%s'\n", opts.Match, m.Prefix(), m.Bucket())
		matched, err := m.ListKeysMatching(ctx, opts.Match)
		if err != nil {
			return describeError(err, fmt.Sprintf("listing keys in '%s'", m.Prefix()))
		}
		if len(matched) == 0 {
			fmt.Printf("No keys matching '%s' found in '%s'.\n", opts.Match, m.Prefix())
			return nil
		}
		printKeys(matched)
		return nil
	}

	fmt.Printf("Listing keys in '%s' of bucket '%s'\n", m.Prefix(), m.Bucket())
	all, err := m.ListKeys(ctx)
	if err != nil {
		return describeError(err, fmt.Sprintf("listing keys in '%s'", m.Prefix()))
	}
	if len(all) == 0 {
		fmt.Printf("No keys found in '%s'.\n", m.Prefix())
		return nil
	}
	printKeys(all)
	return nil
}

func runUpload(ctx context.Context, m *keys.Manager, opts uploadOptions) error {
	key := opts.Key
	if key == "" {
		key = m.KeyFor(opts.LocalPath)
	}
	if err := m.Upload(ctx, opts.LocalPath, key); err != nil {
		return describeError(err, fmt.Sprintf("uploading '%s'", key))
	}
	fmt.Printf("Uploaded '%s' to '%s' in bucket '%s'\n", opts.LocalPath, key, m.Bucket())
	return nil
}

func runDelete(ctx context.Context, m *keys.Manager, opts deleteOptions) error {
	if opts.DryRun {
		matched, err := m.ListKeysMatching(ctx, opts.Match)
		if err != nil {
			return describeError(err, fmt.Sprintf("listing keys in '%s'", m.Prefix()))
		}
		for _, key := range matched {
			fmt.Printf("would delete %s\n", key)
		}
		fmt.Printf("delete dry-run: matched=%d deleted=0\n", len(matched))
		return nil
	}

	result, err := m.DeleteMatching(ctx, opts.Match)
	for _, key := range result.Deleted {
		fmt.Printf("deleted %s\n", key)
	}
	if err != nil {
		if result.Failed != "" {
			return describeError(err, fmt.Sprintf("deleting '%s' (%d of %d deleted, %d not attempted)",
				result.Failed, result.Count(), len(result.Matched), len(result.NotAttempted())))
		}
		return describeError(err, fmt.Sprintf("listing keys in '%s'", m.Prefix()))
	}
	if len(result.Matched) == 0 {
		fmt.Printf("No keys matching '%s' found in '%s'.\n", opts.Match, m.Prefix())
	}
	fmt.Printf("delete complete: matched=%d deleted=%d\n", len(result.Matched), result.Count())
	return nil
}

// runSequence walks the full list, upload, filtered list, delete flow and
// ends with a final listing of what is left.
func runSequence(ctx context.Context, m *keys.Manager, opts sequenceOptions) error {
	steps := []func() error{
		func() error { return runList(ctx, m, listOptions{}) },
		func() error { return runUpload(ctx, m, uploadOptions{LocalPath: opts.LocalPath}) },
		func() error { return runList(ctx, m, listOptions{Match: opts.Match, HasMatch: true}) },
		func() error { return runDelete(ctx, m, deleteOptions{Match: opts.Match}) },
		func() error { return runList(ctx, m, listOptions{}) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func printKeys(list []string) {
	for _, key := range list {
		fmt.Println(key)
	}
}
