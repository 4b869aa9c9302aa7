package main

import (
	"errors"

	"github.com/spf13/cobra"
)

// NewRotateCmd creates the rotate command. Manual rotation of a running
// session needs a control channel into the session process (a local
// control socket), which does not exist yet; the command is reserved so
// the surface is stable.
func NewRotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Manually rotate the active proxy endpoint (reserved)",
		Long: `Rotate is reserved for manually switching a running session to its next
proxy endpoint, outside the rotation timer.

It is not implemented yet: a running session currently rotates only on its
own timer. Use 'vekodome start --rotate <seconds>' to control the pace.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return errors.New("manual rotation is not implemented yet; sessions rotate on their own timer (see 'vekodome start --rotate')")
		},
	}
}
