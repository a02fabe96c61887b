// Package state persists compiled service state between invocations.
//
// The raw service document may reference itself (a whole-document
// "${self:}" variable), so Save cuts every such reference to SelfMarker
// before encoding and Load splices the live document back in.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	wetwire "github.com/lex00/wetwire-serverless-go"
	"github.com/lex00/wetwire-serverless-go/internal/selfref"
	"github.com/lex00/wetwire-serverless-go/internal/service"
	"github.com/lex00/wetwire-serverless-go/internal/template"
)

// File names inside the state directory.
const (
	Dir          = ".serverless"
	StateFile    = "serverless-state.json"
	TemplateFile = "cloudformation-template-update-stack.json"
)

// SelfMarker stands in for the service document wherever it references itself.
const SelfMarker = service.SelfMarker

// ErrNotFound is returned by Load when no state has been saved.
var ErrNotFound = errors.New("no saved state")

// State is the persisted result of one compilation.
type State struct {
	BuildID   string            `json:"buildId"`
	CreatedAt time.Time         `json:"createdAt"`
	Stage     string            `json:"stage"`
	Region    string            `json:"region"`
	Service   map[string]any    `json:"service"`
	Template  *wetwire.Template `json:"template"`
	Paths     map[string]string `json:"paths,omitempty"`
}

// New captures def and its build as a State with a fresh build ID.
func New(def *service.Definition, build *template.Build) *State {
	return &State{
		BuildID:   uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Stage:     def.Provider.Stage,
		Region:    def.Provider.Region,
		Service:   def.Raw,
		Template:  build.Template,
		Paths:     build.Paths,
	}
}

// Path returns the state directory under root.
func Path(root string) string {
	return filepath.Join(root, Dir)
}

// Save writes s and its template into dir, creating dir if needed.
// Self-references in s.Service are cut while encoding and restored before
// Save returns, so s is unchanged afterwards.
func Save(dir string, s *State) error {
	data, err := encode(s)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmpl, err := template.ToJSON(s.Template)
	if err != nil {
		return fmt.Errorf("encoding template: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, StateFile), data, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, TemplateFile), tmpl, 0o644); err != nil {
		return fmt.Errorf("writing template: %w", err)
	}

	slog.Debug("saved state", "dir", dir, "build", s.BuildID, "resources", len(s.Template.Resources))
	return nil
}

func encode(s *State) ([]byte, error) {
	if s.Template == nil {
		return nil, errors.New("state has no template")
	}

	cut, err := selfref.Replace(s.Service, s.Service, SelfMarker)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, path := range cut {
			_ = selfref.Set(s.Service, path, s.Service)
		}
	}()

	return json.MarshalIndent(s, "", "  ")
}

// Load reads the state saved in dir. Every SelfMarker in the service
// document is replaced by the document itself.
func Load(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", StateFile, err)
	}
	if s.Template == nil {
		return nil, fmt.Errorf("parsing %s: missing template", StateFile)
	}

	if s.Service != nil {
		if _, err := selfref.Replace(s.Service, SelfMarker, s.Service); err != nil {
			return nil, fmt.Errorf("restoring self references: %w", err)
		}
	}
	return &s, nil
}
