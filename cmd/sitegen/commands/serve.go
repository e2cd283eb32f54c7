package commands

import (
	"errors"
	"fmt"
)

// ErrNotImplemented marks reserved commands that are not available yet.
var ErrNotImplemented = errors.New("not implemented")

// ServeCmd is reserved. The generated site is plain static files; until a
// built-in server lands, any web server pointed at the output directory
// works.
type ServeCmd struct {
	Host string `help:"Interface to bind" default:"127.0.0.1"`
	Port int    `help:"Port to listen on" default:"8080"`
}

func (s *ServeCmd) Run(_ *Global, _ *CLI) error {
	return fmt.Errorf("%w: serve; run 'sitegen build' and serve the output directory with a web server", ErrNotImplemented)
}
