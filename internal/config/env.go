package config

import "strings"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from VIEWER_* environment variables. Unset
// variables leave the field alone.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = SplitCSV(v)
		}
	}

	str("VIEWER_API_BASE", &c.API.Base)
	str("VIEWER_API_TOKEN", &c.API.Token)
	str("VIEWER_SOCKET_BASE", &c.Socket.Base)
	str("VIEWER_SOCKET_PATH", &c.Socket.Path)
	str("VIEWER_SOCKET_NAMESPACE", &c.Socket.Namespace)
	if v, ok := lookup("VIEWER_SOCKET_AUTO_OPEN"); ok {
		c.Socket.AutoOpen = ParseAutoOpen(v)
	}

	events, hasEvents := lookup("VIEWER_SOCKET_EVENTS")
	single, hasSingle := lookup("VIEWER_SOCKET_EVENT")
	if hasEvents || hasSingle {
		names := SplitCSV(events)
		if s := strings.TrimSpace(single); s != "" {
			names = append(names, s)
		}
		if len(names) > 0 {
			c.Socket.Events = names
		}
	}

	list("VIEWER_ACCEPT_DEVICE_IDS", &c.Filter.AcceptDeviceIDs)
	list("VIEWER_ACCEPT_LOCATION_CODES", &c.Filter.AcceptLocationCodes)
	str("VIEWER_LOG_PATH", &c.Log.Output)
	str("VIEWER_LOCAL_DOCS_DIR", &c.Server.DocumentsDir)
}

// ParseAutoOpen treats "0", "false" and "no" (any case) as off.
func ParseAutoOpen(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no":
		return false
	}
	return true
}

// SplitCSV splits a comma separated list, trimming items and dropping
// empties.
func SplitCSV(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
