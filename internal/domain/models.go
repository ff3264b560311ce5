package domain

// Well-known selection scopes
const (
	ScopeContacts      = "contacts"
	ScopePartners      = "partners"
	ScopePipeline      = "pipeline"
	ScopeNotifications = "notifications"
)

// DefaultScopes are the list views that carry a selection
var DefaultScopes = []string{ScopeContacts, ScopePartners, ScopePipeline}

// Record is a row shown in one of the list views
type Record struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Scope    string `yaml:"scope"`
	Stage    string `yaml:"stage,omitempty"`
	Company  string `yaml:"company,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}
