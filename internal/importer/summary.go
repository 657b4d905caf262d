package importer

// Options controls duplicate handling and dry runs.
type Options struct {
	// OverwriteExisting updates matched users and config fields in place.
	OverwriteExisting bool `json:"overwrite_existing"`
	// SkipDuplicates leaves matched entities untouched; it takes
	// precedence over OverwriteExisting.
	SkipDuplicates bool `json:"skip_duplicates"`
	// ValidateOnly stops after structural validation without mutating
	// anything.
	ValidateOnly bool `json:"validate_only"`
}

// DefaultOptions skips duplicates and mutates state.
func DefaultOptions() Options {
	return Options{SkipDuplicates: true}
}

// Summary is the immutable outcome of one import run. Success reflects
// structural validity only: per-item errors leave Success true.
type Summary struct {
	Success bool `json:"success"`

	UsersImported        int `json:"users_imported"`
	UsersSkipped         int `json:"users_skipped"`
	ConfigFieldsImported int `json:"config_fields_imported"`
	ConfigFieldsSkipped  int `json:"config_fields_skipped"`
	TicketsImported      int `json:"tickets_imported"`
	NotesImported        int `json:"notes_imported"`

	Errors           []string `json:"errors,omitempty"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
}
