package config

import (
	"fmt"
	"os"
)

func Template() string {
	return relayTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(relayTemplate), 0o600)
}

const relayTemplate = `host = "localhost"
port = 9000
password = ""
# totp = "123456"
compression = "zlib"
lines = 50

[tls]
enabled = false
# ca_file = "/etc/ssl/relay-ca.pem"
# cert_file = ""
# key_file = ""

[websocket]
enabled = false
path = "/weechat"

[reconnect]
enabled = true
initial_delay = "250ms"
multiplier = 2.0
max_delay = "30s"
jitter = true

[metrics]
# addr = "127.0.0.1:2112"
`
