package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odysseus0/svgsafe/internal/store"
)

// annotationNeedsStore marks commands that read the history database even
// when recording is disabled.
const annotationNeedsStore = "svgsafe/needs-store"

func requireApp(getApp func() *App) (*App, error) {
	app := getApp()
	if app == nil {
		return nil, errors.New("app not initialized")
	}
	return app, nil
}

func requireStore(getApp func() *App) (*App, error) {
	app, err := requireApp(getApp)
	if err != nil {
		return nil, err
	}
	if app.store == nil {
		return nil, errors.New("history store not opened")
	}
	return app, nil
}

func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNeedsStore] == "true" {
			return true
		}
	}
	return false
}

// readInput reads the named .svg file, or stdin for "-" or no argument. At
// most limit+1 bytes are read so oversized input still fails the size check.
func readInput(cmd *cobra.Command, args []string, limit int) ([]byte, string, error) {
	name := "-"
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}
	if name == "" || name == "-" {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), int64(limit)+1))
		if err != nil {
			return nil, "-", fmt.Errorf("read stdin: %w", err)
		}
		return data, "-", nil
	}

	if !strings.EqualFold(filepath.Ext(name), ".svg") {
		return nil, name, fmt.Errorf("%w: %q is not an .svg file", store.ErrInvalidInput, name)
	}
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, name, fmt.Errorf("open %s: %w", name, store.ErrNotFound)
		}
		return nil, name, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return nil, name, fmt.Errorf("read %s: %w", name, err)
	}
	return data, name, nil
}
