package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/capprobe/internal/capability"
	"github.com/roach88/capprobe/internal/registry"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Env string
}

// ValidationIssue is one finding against a catalog.
type ValidationIssue struct {
	Probe   string `json:"probe"`
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
// Issues with an E code make the catalog invalid; W codes are warnings.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Probes int               `json:"probes"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Validate a probe catalog",
		Long: `Check a probe catalog for structural errors without running it.

With --env, also resolve every probe name, alias and dependency against the
environment manifest. Probe names that would fail with MISSING_CAPABILITY
make the catalog invalid; undefined aliases and dependencies are warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Env, "env", "", "environment manifest to resolve names against")

	return cmd
}

func runValidate(cmd *cobra.Command, catalogPath string, opts *ValidateOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(catalogPath); os.IsNotExist(err) {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("catalog not found: %s", catalogPath))
	}

	catalog, err := registry.ReadCatalogFile(catalogPath)
	if err != nil {
		return outputValidateError(formatter, ErrCodeInvalidCatalog, err.Error())
	}
	formatter.VerboseLog("Read %d probe(s) from %s", len(catalog.Probes), catalogPath)

	result := ValidationResult{Valid: true, Probes: len(catalog.Probes)}

	if opts.Env != "" {
		manifest, err := capability.Load(opts.Env)
		if err != nil {
			return outputValidateError(formatter, ErrCodeInvalidManifest, err.Error())
		}
		host, err := manifest.Namespace()
		if err != nil {
			return outputValidateError(formatter, ErrCodeInvalidManifest, err.Error())
		}
		reg, err := catalog.Build(host)
		if err != nil {
			return outputValidateError(formatter, ErrCodeInvalidCatalog, err.Error())
		}
		result.Issues = resolveCatalog(host, reg.Catalog())
	}

	for _, issue := range result.Issues {
		if issue.Code == ErrCodeUnresolvedName {
			result.Valid = false
		}
	}

	return outputValidateResult(formatter, result)
}

// resolveCatalog reports every name, alias and dependency that the host
// does not define. Probes without a test are never resolved at run time,
// so only their aliases are checked.
func resolveCatalog(host capability.Resolver, catalog []registry.Descriptor) []ValidationIssue {
	var issues []ValidationIssue
	for _, d := range catalog {
		if d.HasTest() {
			if _, ok := host.Resolve(d.Name); !ok {
				issues = append(issues, ValidationIssue{
					Probe:   d.Name,
					Path:    d.Name,
					Code:    ErrCodeUnresolvedName,
					Message: "capability not found",
				})
			}
			for _, dep := range d.Dependencies {
				if _, ok := host.Resolve(dep); !ok {
					issues = append(issues, ValidationIssue{
						Probe:   d.Name,
						Path:    dep,
						Code:    ErrCodeMissingDep,
						Message: "dependency not defined",
					})
				}
			}
		}
		for _, alias := range d.Aliases {
			if _, ok := host.Resolve(alias); !ok {
				issues = append(issues, ValidationIssue{
					Probe:   d.Name,
					Path:    alias,
					Code:    ErrCodeMissingAlias,
					Message: "alias not defined",
				})
			}
		}
	}
	return issues
}

// outputValidateError outputs a command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidateResult(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    ErrCodeUnresolvedName,
				Message: "catalog names capabilities the environment does not define",
			}
		}
		if err := formatter.encode(response); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if result.Valid {
			fmt.Fprintf(w, "✓ Catalog valid (%d probes)\n", result.Probes)
		} else {
			fmt.Fprintln(w, "✗ Validation failed")
		}
		for _, issue := range result.Issues {
			fmt.Fprintf(w, "  %s: %s: %s (%s)\n", issue.Code, issue.Probe, issue.Message, issue.Path)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
