package binding

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/qualitylink/config"
	"github.com/grovetools/qualitylink/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Workspace exposes the root directory of the currently open workspace.
type Workspace interface {
	ActiveRoot() (string, bool)
}

// Reader reads the binding of the current workspace.
// A nil record with a nil error means the workspace is not bound.
type Reader interface {
	Read() (*BoundProject, error)
}

// Store reads and persists the binding of the current workspace.
type Store interface {
	Reader
	Write(bound BoundProject) error
	Delete() error
	Close() error
}

// fileNames lists binding file names in lookup order.
var fileNames = []string{"binding.yml", "binding.yaml", "binding.toml"}

// FileStore keeps one binding file per workspace in <root>/<dir>/binding.{yml,toml}.
type FileStore struct {
	workspace Workspace
	dir       string
	format    string
	validator *Validator
}

// Verify interface compliance at compile time
var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed store for the given workspace source.
func NewFileStore(ws Workspace, cfg config.BindingConfig) (*FileStore, error) {
	if ws == nil {
		return nil, errors.InvalidArgument("workspace")
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build binding validator")
	}

	dir := cfg.Dir
	if dir == "" {
		dir = ".qlink"
	}
	format := cfg.Format
	if format == "" {
		format = config.FormatYAML
	}

	return &FileStore{
		workspace: ws,
		dir:       dir,
		format:    format,
		validator: validator,
	}, nil
}

// Dir returns the binding directory of the active workspace.
func (s *FileStore) Dir() (string, bool) {
	root, ok := s.workspace.ActiveRoot()
	if !ok {
		return "", false
	}
	return filepath.Join(root, s.dir), true
}

// Path returns the binding file of the active workspace: the first existing
// file in lookup order, or the path a new file would be written to.
func (s *FileStore) Path() (string, bool) {
	dir, ok := s.Dir()
	if !ok {
		return "", false
	}
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return filepath.Join(dir, s.defaultName()), true
}

func (s *FileStore) defaultName() string {
	if s.format == config.FormatTOML {
		return "binding.toml"
	}
	return "binding.yml"
}

// Read loads the binding of the active workspace.
// No open workspace or no binding file both mean "not bound".
func (s *FileStore) Read() (*BoundProject, error) {
	path, ok := s.Path()
	if !ok {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.BindingRead(path, err)
	}

	return s.decode(path, data)
}

func (s *FileStore) decode(path string, data []byte) (*BoundProject, error) {
	expanded := []byte(config.ExpandEnvVars(string(data)))
	isTOML := strings.HasSuffix(path, ".toml")

	var doc map[string]interface{}
	if isTOML {
		err := toml.Unmarshal(expanded, &doc)
		if err != nil {
			return nil, errors.BindingInvalid(path, err.Error())
		}
	} else if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return nil, errors.BindingInvalid(path, err.Error())
	}

	if len(doc) == 0 {
		return nil, errors.BindingInvalid(path, "binding file is empty")
	}

	if err := s.validator.Validate(doc); err != nil {
		return nil, errors.BindingInvalid(path, err.Error())
	}

	var bound BoundProject
	if isTOML {
		if err := toml.Unmarshal(expanded, &bound); err != nil {
			return nil, errors.BindingInvalid(path, err.Error())
		}
	} else if err := yaml.Unmarshal(expanded, &bound); err != nil {
		return nil, errors.BindingInvalid(path, err.Error())
	}

	if err := bound.Validate(); err != nil {
		return nil, errors.BindingInvalid(path, err.Error())
	}
	return &bound, nil
}

// Write persists bound as the binding of the active workspace.
func (s *FileStore) Write(bound BoundProject) error {
	if err := bound.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidArgument, "refusing to write invalid binding")
	}

	dir, ok := s.Dir()
	if !ok {
		return errors.New(errors.ErrCodeBindingWrite, "no workspace is open")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.BindingWrite(dir, err)
	}

	path := filepath.Join(dir, s.defaultName())
	var (
		data []byte
		err  error
	)
	if s.format == config.FormatTOML {
		data, err = toml.Marshal(bound)
	} else {
		data, err = yaml.Marshal(bound)
	}
	if err != nil {
		return errors.BindingWrite(path, err)
	}

	// Write to a temp file first so readers never see a partial record.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return errors.BindingWrite(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.BindingWrite(path, err)
	}

	// Drop stale files in other formats so lookup order cannot shadow the new record.
	for _, name := range fileNames {
		if other := filepath.Join(dir, name); other != path {
			os.Remove(other)
		}
	}
	return nil
}

// Delete removes the binding of the active workspace. A missing file is not an error.
func (s *FileStore) Delete() error {
	dir, ok := s.Dir()
	if !ok {
		return nil
	}
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.BindingWrite(path, err)
		}
	}
	return nil
}

// Close implements Store. Files hold no open resources.
func (s *FileStore) Close() error {
	return nil
}
