// Package cmdutil provides flags and helpers shared by boardmerge commands.
package cmdutil

import (
	"github.com/spf13/cobra"

	"github.com/tobiasrohr/FInal-merger/internal/cmd/output"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/index"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// IdentityFlags select the identity columns of the duplicate index.
type IdentityFlags struct {
	Email        string
	Reference    string
	Composite    string
	NameFallback bool
}

// AddIdentityFlags adds the identity column flags to a command.
func AddIdentityFlags(cmd *cobra.Command) *IdentityFlags {
	flags := &IdentityFlags{}

	cmd.Flags().StringVar(&flags.Email, "email-column", "",
		"Column holding the email address")
	cmd.Flags().StringVar(&flags.Reference, "reference-column", "",
		"Column holding the reference code")
	cmd.Flags().StringVar(&flags.Composite, "composite-column", "",
		"Column combined with the item name into a composite key")
	cmd.Flags().BoolVar(&flags.NameFallback, "name-fallback", false,
		"Match on the normalized name when no identity column has a value")

	return flags
}

// Apply overrides base with the flags the user set.
func (f *IdentityFlags) Apply(cmd *cobra.Command, base index.Config) index.Config {
	if cmd.Flags().Changed("email-column") {
		base.EmailColumn = records.FieldID(f.Email)
	}
	if cmd.Flags().Changed("reference-column") {
		base.ReferenceColumn = records.FieldID(f.Reference)
	}
	if cmd.Flags().Changed("composite-column") {
		base.CompositeColumn = records.FieldID(f.Composite)
	}
	if cmd.Flags().Changed("name-fallback") {
		base.NameFallback = f.NameFallback
	}
	return base
}

// RequireIdentity rejects an index configuration that cannot match anything.
func RequireIdentity(cfg index.Config) error {
	if len(cfg.Enabled()) == 0 && !cfg.NameFallback {
		return errors.NewValidationError("identity", nil,
			"set at least one of --email-column, --reference-column, --composite-column or --name-fallback")
	}
	return nil
}

// AddSnapshotFlag adds --snapshot, which replaces the API with boards read
// from a snapshot file.
func AddSnapshotFlag(cmd *cobra.Command) *string {
	var path string
	cmd.Flags().StringVar(&path, "snapshot", "",
		"Read boards from a snapshot file instead of the API")
	return &path
}

// First returns the first non-empty value.
func First(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Print writes a command result to the command's output in format.
func Print(cmd *cobra.Command, format string, data any, layout func(bool) output.Data) error {
	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}
	return output.Print(cmd.OutOrStdout(), f, data, layout)
}
