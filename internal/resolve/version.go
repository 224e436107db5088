package resolve

// VersionContext carries the documentation version and the URLs derived
// from it. It is a value: changing the version means building a new one.
type VersionContext struct {
	Version    string
	BaseURL    string
	CmdBaseURL string
}

// NewVersionContext derives the help site URLs for version.
func NewVersionContext(version string) VersionContext {
	base := "https://ansyshelp.ansys.com/Views/Secured/corp/v" + version + "/en/"
	return VersionContext{
		Version:    version,
		BaseURL:    base,
		CmdBaseURL: base + "/ans_cmd/",
	}
}

// WithVersion returns a context for another version. The receiver is unchanged.
func (v VersionContext) WithVersion(version string) VersionContext {
	return NewVersionContext(version)
}
