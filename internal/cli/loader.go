package cli

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/roach88/plumage/internal/plugin"
	"github.com/roach88/plumage/internal/schema"
	"github.com/roach88/plumage/internal/store"
)

// LoadError is a manifest directory that could not be loaded or set up.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadManifests parses every manifest in dir.
func LoadManifests(dir string) ([]*plugin.Manifest, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifests directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "error accessing manifests directory", Err: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "error scanning directory", Err: err}
	}
	found := false
	for _, e := range entries {
		if !e.IsDir() && plugin.IsManifestFile(e.Name()) {
			found = true
			break
		}
	}
	if !found {
		return nil, &LoadError{Code: ErrCodeNoManifests, Message: fmt.Sprintf("no manifests found in %s", dir)}
	}

	manifests, err := plugin.LoadDir(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: "failed to load manifests", Err: err}
	}
	return manifests, nil
}

// OpenStore builds a store with every manifest in dir set up.
func OpenStore(dir string, logger *zap.Logger, opts ...store.Option) (*store.Store, []*plugin.Manifest, error) {
	manifests, err := LoadManifests(dir)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(append([]store.Option{store.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeGeneric, Message: "failed to create store", Err: err}
	}
	if err := plugin.SetupAll(st, manifests); err != nil {
		return nil, nil, &LoadError{Code: setupErrorCode(err), Message: "failed to set up plugins", Err: err}
	}
	return st, manifests, nil
}

// setupErrorCode classifies a setup failure.
func setupErrorCode(err error) string {
	var ce *schema.CompileError
	switch {
	case errors.As(err, &ce), store.IsSchemaError(err):
		return ErrCodeSchema
	case store.IsValueError(err):
		return ErrCodeValue
	default:
		return ErrCodeGeneric
	}
}

// loadErrorCode returns the code of a LoadError, or the generic code.
func loadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}
