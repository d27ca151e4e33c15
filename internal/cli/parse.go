package cli

import (
	"errors"
	"flag"
	"os"
)

func parseListArgs(args []string) (listOptions, error) {
	listFS := flag.NewFlagSet("list", flag.ContinueOnError)
	listFS.SetOutput(os.Stderr)

	var opts listOptions
	listFS.StringVar(&opts.Match, "match", "", "only list keys matching this regular expression")

	if err := listFS.Parse(args); err != nil {
		return listOptions{}, err
	}
	if len(listFS.Args()) != 0 {
		return listOptions{}, errors.New("usage: s3aid list [--match regex]")
	}
	listFS.Visit(func(f *flag.Flag) {
		if f.Name == "match" {
			opts.HasMatch = true
		}
	})
	return opts, nil
}

func parseUploadArgs(args []string) (uploadOptions, error) {
	uploadFS := flag.NewFlagSet("upload", flag.ContinueOnError)
	uploadFS.SetOutput(os.Stderr)

	if err := uploadFS.Parse(args); err != nil {
		return uploadOptions{}, err
	}

	rest := uploadFS.Args()
	if len(rest) < 1 || len(rest) > 2 {
		return uploadOptions{}, errors.New("usage: s3aid upload <local-path> [key]")
	}
	opts := uploadOptions{LocalPath: rest[0]}
	if len(rest) == 2 {
		opts.Key = rest[1]
	}
	return opts, nil
}

func parseDeleteArgs(args []string) (deleteOptions, error) {
	deleteFS := flag.NewFlagSet("delete", flag.ContinueOnError)
	deleteFS.SetOutput(os.Stderr)

	var opts deleteOptions
	deleteFS.StringVar(&opts.Match, "match", "", "delete keys matching this regular expression (required)")
	deleteFS.BoolVar(&opts.DryRun, "dry-run", false, "show matching keys without deleting")

	if err := deleteFS.Parse(args); err != nil {
		return deleteOptions{}, err
	}
	if len(deleteFS.Args()) != 0 {
		return deleteOptions{}, errors.New("usage: s3aid delete --match regex [--dry-run]")
	}
	if opts.Match == "" {
		return deleteOptions{}, errors.New("delete requires --match")
	}
	return opts, nil
}

func parseSequenceArgs(args []string) (sequenceOptions, error) {
	sequenceFS := flag.NewFlagSet("sequence", flag.ContinueOnError)
	sequenceFS.SetOutput(os.Stderr)

	var opts sequenceOptions
	sequenceFS.StringVar(&opts.Match, "match", "", "regular expression used for the filtered list and delete steps (required)")

	if err := sequenceFS.Parse(args); err != nil {
		return sequenceOptions{}, err
	}
	rest := sequenceFS.Args()
	if len(rest) != 1 {
		return sequenceOptions{}, errors.New("usage: s3aid sequence --match regex <local-path>")
	}
	if opts.Match == "" {
		return sequenceOptions{}, errors.New("sequence requires --match")
	}
	opts.LocalPath = rest[0]
	return opts, nil
}
