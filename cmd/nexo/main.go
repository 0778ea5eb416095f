package main

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/nexosim/nexosim-go/internal/nexo/cli"
	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
)

func main() {
	if err := cli.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		if c := simerrors.ClassifyError(err); c.Category != simerrors.CategoryUnknown {
			_, _ = fmt.Fprintln(os.Stderr, c.UserMsg)
		}
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
