// Package policy parses the YAML documents that grant capabilities to actors.
//
// One file describes one actor:
//
//	actor: alice
//	superuser: false
//	permissions:
//	  - view_tenant
//	  - view_lease
package policy

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

var (
	actorRe      = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	permissionRe = regexp.MustCompile(`^[a-z][a-z0-9_.:-]*$`)
)

// Document is a parsed policy file.
type Document struct {
	Actor       string   `yaml:"actor" json:"actor"`
	Superuser   bool     `yaml:"superuser" json:"superuser"`
	Permissions []string `yaml:"permissions" json:"permissions"`
}

// Validate validates the document.
func (d *Document) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Actor, validation.Required, validation.Match(actorRe)),
		validation.Field(&d.Permissions, validation.Each(validation.Required, validation.Match(permissionRe))),
	)
}

// Parse decodes and validates a policy document. Permissions are trimmed
// and deduplicated; their order is kept.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("policy: decode: %w", err)
	}
	doc.Actor = strings.TrimSpace(doc.Actor)
	doc.Permissions = normalize(doc.Permissions)
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return &doc, nil
}

// Marshal renders doc in the canonical layout Parse accepts.
func Marshal(doc *Document) ([]byte, error) {
	out := *doc
	out.Permissions = normalize(doc.Permissions)
	if out.Permissions == nil {
		out.Permissions = []string{}
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return yaml.Marshal(&out)
}

// FileName returns the file a document for actor is stored under.
func FileName(actor string) string {
	return actor + ".yaml"
}

// ValidActor reports whether actor can name a policy file.
func ValidActor(actor string) bool {
	return actorRe.MatchString(actor)
}

func normalize(perms []string) []string {
	if perms == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
