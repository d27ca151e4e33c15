package cli

type listOptions struct {
	Match    string
	HasMatch bool
}

type uploadOptions struct {
	LocalPath string
	Key       string
}

type deleteOptions struct {
	Match  string
	DryRun bool
}

type sequenceOptions struct {
	LocalPath string
	Match     string
}
