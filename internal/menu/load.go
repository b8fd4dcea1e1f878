package menu

import (
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

type document struct {
	Menu Tree `yaml:"menu"`
}

// Validate validates a top-level node and its children.
func (n Node) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.ID, validation.Required, validation.Min(1)),
		validation.Field(&n.Name, validation.Required),
		validation.Field(&n.URL, validation.By(absolutePath)),
		validation.Field(&n.RequiredPermissions, validation.Each(validation.Required)),
		validation.Field(&n.SubMenus),
	)
}

// Validate validates a child node.
func (s SubNode) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, validation.Required, validation.Min(1)),
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.URL, validation.Required, validation.By(absolutePath)),
		validation.Field(&s.RequiredPermissions, validation.Each(validation.Required)),
	)
}

func absolutePath(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !strings.HasPrefix(s, "/") {
		return fmt.Errorf("must start with /")
	}
	return nil
}

// Parse decodes and validates a YAML menu document of the form
//
//	menu:
//	  - id: 1
//	    name: Dashboard
//	    url: /
//
// Duplicate top-level ids are rejected because disclosure state is keyed by
// them. Dead nodes are accepted; Check reports them.
func Parse(data []byte) (Tree, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("menu: decode: %w", err)
	}
	if len(doc.Menu) == 0 {
		return nil, fmt.Errorf("menu: no entries")
	}
	seen := make(map[int]struct{}, len(doc.Menu))
	for i, n := range doc.Menu {
		if err := n.Validate(); err != nil {
			return nil, fmt.Errorf("menu: entry %d (%q): %w", i, n.Name, err)
		}
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("menu: duplicate top-level id %d (%q)", n.ID, n.Name)
		}
		seen[n.ID] = struct{}{}
	}
	return doc.Menu, nil
}

// Load reads a menu file. An empty path yields the built-in Default tree.
func Load(path string) (Tree, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("menu: read %s: %w", path, err)
	}
	return Parse(data)
}

// Marshal renders the tree in the same YAML layout Parse accepts.
func Marshal(t Tree) ([]byte, error) {
	return yaml.Marshal(document{Menu: t})
}
