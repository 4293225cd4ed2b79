package config

import (
	"github.com/spf13/pflag"
)

// AddKioskFlags registers the docviewer overrides on flagSet. Defaults
// shown in help are the built-in ones; only flags given on the command
// line are applied by ApplyFlags.
func AddKioskFlags(flagSet *pflag.FlagSet) {
	d := defaultConfig()
	flagSet.String("api-base", d.API.Base, "document server base URL")
	flagSet.String("token", "", "bearer token sent to the document server")
	flagSet.Duration("api-timeout", d.API.Timeout, "HTTP request timeout")
	flagSet.String("socket-base", "", "Socket.IO base URL (default: --api-base)")
	flagSet.String("socket-path", d.Socket.Path, "Socket.IO path")
	flagSet.String("namespace", "", "Socket.IO namespace")
	flagSet.Bool("auto-open", d.Socket.AutoOpen, "connect to the event channel on start")
	flagSet.StringSlice("events", d.Socket.Events, "event channel names to subscribe to")
	flagSet.StringSlice("accept-device", nil, "only react to scans from these device ids")
	flagSet.StringSlice("accept-location", nil, "only react to scans at these location codes")
	flagSet.Int("error-timeout", d.Viewer.ErrorTimeout, "seconds before an error returns to idle")
	flagSet.Bool("relay-events", d.RelayEvents, "post received events to /api/socket-events")
	flagSet.String("embed-socket", "", "unix socket of an embedding parent process")
	flagSet.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flagSet.String("log-output", "", "write JSON log records to this file")
	flagSet.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// AddServerFlags registers the docserver overrides on flagSet.
func AddServerFlags(flagSet *pflag.FlagSet) {
	d := defaultConfig()
	flagSet.String("host", d.Server.Host, "listen host")
	flagSet.Int("port", d.Server.Port, "listen port")
	flagSet.String("documents-dir", d.Server.DocumentsDir, "directory of PDF documents")
	flagSet.String("server-token", "", "bearer token required on /api/v1 and the socket")
	flagSet.String("event-name", d.Server.EventName, "event name broadcast for ingested scans")
	flagSet.StringSlice("allowed-origins", nil, "extra origins allowed to open the socket")
	flagSet.Duration("cache-ttl", d.Server.CacheTTL, "document lookup cache lifetime")
	flagSet.Bool("mock", false, "ingest simulated handheld scans")
	flagSet.Duration("mock-interval", d.Server.Mock.Interval, "time between simulated scans")
	flagSet.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// ApplyFlags copies every flag set on the command line into c. Flags not
// registered on flagSet are ignored.
func (c *Config) ApplyFlags(flagSet *pflag.FlagSet) error {
	var err error
	flagSet.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = c.applyFlag(flagSet, f.Name)
	})
	return err
}

func (c *Config) applyFlag(fs *pflag.FlagSet, name string) error {
	var err error
	switch name {
	case "api-base":
		c.API.Base, err = fs.GetString(name)
	case "token":
		c.API.Token, err = fs.GetString(name)
	case "api-timeout":
		c.API.Timeout, err = fs.GetDuration(name)
	case "socket-base":
		c.Socket.Base, err = fs.GetString(name)
	case "socket-path":
		c.Socket.Path, err = fs.GetString(name)
	case "namespace":
		c.Socket.Namespace, err = fs.GetString(name)
	case "auto-open":
		c.Socket.AutoOpen, err = fs.GetBool(name)
	case "events":
		c.Socket.Events, err = fs.GetStringSlice(name)
	case "accept-device":
		c.Filter.AcceptDeviceIDs, err = fs.GetStringSlice(name)
	case "accept-location":
		c.Filter.AcceptLocationCodes, err = fs.GetStringSlice(name)
	case "error-timeout":
		c.Viewer.ErrorTimeout, err = fs.GetInt(name)
	case "relay-events":
		c.RelayEvents, err = fs.GetBool(name)
	case "embed-socket":
		c.Embed.Socket, err = fs.GetString(name)
	case "metrics-addr":
		c.Metrics.Addr, err = fs.GetString(name)
	case "log-output":
		c.Log.Output, err = fs.GetString(name)
	case "log-level":
		c.Log.Level, err = fs.GetString(name)
	case "host":
		c.Server.Host, err = fs.GetString(name)
	case "port":
		c.Server.Port, err = fs.GetInt(name)
	case "documents-dir":
		c.Server.DocumentsDir, err = fs.GetString(name)
	case "server-token":
		c.Server.Token, err = fs.GetString(name)
	case "event-name":
		c.Server.EventName, err = fs.GetString(name)
	case "allowed-origins":
		c.Server.AllowedOrigins, err = fs.GetStringSlice(name)
	case "cache-ttl":
		c.Server.CacheTTL, err = fs.GetDuration(name)
	case "mock":
		c.Server.Mock.Enabled, err = fs.GetBool(name)
	case "mock-interval":
		c.Server.Mock.Interval, err = fs.GetDuration(name)
	}
	return err
}
