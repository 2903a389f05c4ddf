package database

// LogFilter narrows an audit listing. Zero values do not filter.
type LogFilter struct {
	IPAddress          string
	BrowserFingerprint string
	IsBot              *bool
}
