package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/florianilch/claudine-gateway/internal/app"
)

// flagKeys maps CLI flags to configuration keys.
var flagKeys = [][2]string{
	{"log-level", "log_level"},
	{"log-format", "log_format"},
	{"host", "server.host"},
	{"port", "server.port"},
	{"provider", "upstream.provider"},
}

// loadConfig loads the layered configuration. Only flags the user set
// explicitly override file and environment values.
func loadConfig(path string, cmd *cli.Command, environ func() []string) (*app.Config, error) {
	overrides := make(map[string]any)
	for _, fk := range flagKeys {
		if cmd.IsSet(fk[0]) {
			overrides[fk[1]] = cmd.Value(fk[0])
		}
	}
	return app.LoadConfig(path, overrides, environ)
}
