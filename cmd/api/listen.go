package main

import (
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/rs/zerolog/log"
)

const maxPortAttempts = 10

// listen binds the port. With fallback enabled an occupied port is skipped
// in favour of the next one, up to maxPortAttempts ports.
func listen(port int, fallback bool) (net.Listener, error) {
	attempts := 1
	if fallback {
		attempts = maxPortAttempts
	}

	var lastErr error
	for i := 0; i < attempts && port+i <= 65535; i++ {
		addr := fmt.Sprintf(":%d", port+i)

		ln, err := net.Listen("tcp", addr)
		if err == nil {
			if i > 0 {
				log.Warn().Int("configured_port", port).Int("port", port+i).Msg("configured port in use, using next free port")
			}
			return ln, nil
		}

		lastErr = err
		if !errors.Is(err, syscall.EADDRINUSE) {
			break
		}
	}

	return nil, fmt.Errorf("unable to listen on port %d: %w", port, lastErr)
}
