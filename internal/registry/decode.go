package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/permissions"
	"github.com/keshon/orator/internal/platform"
)

// Definition files are YAML; JSON documents parse as YAML too.

var (
	commandKeys    = []string{"name", "description", "category", "aliases", "parameters", "permission", "middleware", "action", "reply", "deleteInvoking", "deleteResponse", "deleteResponseDelay", "subCommands"}
	permissionKeys = []string{"name", "level", "reason", "check", "roles", "users", "permissions"}
	eventKeys      = []string{"name", "on", "once", "handler"}
)

type paramDef core.Parameter

// UnmarshalYAML accepts either a bare name or a {name, optional} mapping.
func (p *paramDef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		p.Name = n.Value
		return nil
	}
	var full core.Parameter
	if err := n.Decode(&full); err != nil {
		return err
	}
	*p = paramDef(full)
	return nil
}

type commandDef struct {
	Name                string        `yaml:"name"`
	Description         string        `yaml:"description"`
	Category            string        `yaml:"category"`
	Aliases             []string      `yaml:"aliases"`
	Parameters          []paramDef    `yaml:"parameters"`
	Permission          string        `yaml:"permission"`
	Middleware          []string      `yaml:"middleware"`
	Action              string        `yaml:"action"`
	Reply               string        `yaml:"reply"`
	DeleteInvoking      *bool         `yaml:"deleteInvoking"`
	DeleteResponse      *bool         `yaml:"deleteResponse"`
	DeleteResponseDelay string        `yaml:"deleteResponseDelay"`
	SubCommands         []*commandDef `yaml:"subCommands"`
}

type permissionDef struct {
	Name        string   `yaml:"name"`
	Level       int      `yaml:"level"`
	Reason      string   `yaml:"reason"`
	Check       string   `yaml:"check"`
	Roles       []string `yaml:"roles"`
	Users       []string `yaml:"users"`
	Permissions []string `yaml:"permissions"`
}

type eventDef struct {
	Name    string `yaml:"name"`
	On      string `yaml:"on"`
	Once    bool   `yaml:"once"`
	Handler string `yaml:"handler"`
}

// parseNode parses raw into its top-level mapping node.
func parseNode(path string, raw []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &LoadableTypeError{Path: path, Expected: "a YAML or JSON document", Err: err}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, &LoadableTypeError{Path: path, Expected: "a mapping at the top level"}
	}
	return doc.Content[0], nil
}

// checkKeys rejects fields outside allowed. Nested sub-command mappings are checked too.
func checkKeys(path, prefix string, n *yaml.Node, allowed []string) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !slices.Contains(allowed, k.Value) {
			return &LoadableBadKeyError{Path: path, Key: prefix + k.Value, Value: v.Value}
		}
		if k.Value != "subCommands" || v.Kind != yaml.SequenceNode {
			continue
		}
		for j, sub := range v.Content {
			if sub.Kind != yaml.MappingNode {
				continue
			}
			if err := checkKeys(path, fmt.Sprintf("%ssubCommands[%d].", prefix, j), sub, allowed); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeInto(path string, n *yaml.Node, expected string, out any) error {
	if err := n.Decode(out); err != nil {
		return &LoadableTypeError{Path: path, Expected: expected, Err: err}
	}
	return nil
}

func decodeCommand(catalog *Catalog, perms *PermissionMap) Decoder[*core.Command] {
	return func(path string, raw []byte) (*core.Command, error) {
		n, err := parseNode(path, raw)
		if err != nil {
			return nil, err
		}
		if err := checkKeys(path, "", n, commandKeys); err != nil {
			return nil, err
		}
		var def commandDef
		if err := decodeInto(path, n, "a command definition", &def); err != nil {
			return nil, err
		}
		return buildCommand(path, "", &def, catalog, perms)
	}
}

func buildCommand(path, prefix string, def *commandDef, catalog *Catalog, perms *PermissionMap) (*core.Command, error) {
	c := &core.Command{
		Name:           def.Name,
		Description:    def.Description,
		Category:       def.Category,
		Aliases:        def.Aliases,
		DeleteInvoking: def.DeleteInvoking,
		DeleteResponse: def.DeleteResponse,
		Source:         path,
	}
	for _, p := range def.Parameters {
		c.Parameters = append(c.Parameters, core.Parameter(p))
	}

	if def.Permission != "" {
		if perms == nil {
			return nil, &LoadableBadKeyError{Path: path, Key: prefix + "permission", Value: def.Permission}
		}
		p, ok := perms.Get(def.Permission)
		if !ok {
			return nil, &LoadableBadKeyError{Path: path, Key: prefix + "permission", Value: def.Permission}
		}
		c.Permission = p
	}

	for _, name := range def.Middleware {
		mw, ok := catalog.Middleware(name)
		if !ok {
			return nil, &LoadableBadKeyError{Path: path, Key: prefix + "middleware", Value: name}
		}
		c.Middleware = append(c.Middleware, mw)
	}

	switch {
	case def.Action != "" && def.Reply != "":
		return nil, &LoadableTypeError{Path: path, Expected: "either action or reply, not both"}
	case def.Action != "":
		a, ok := catalog.Action(def.Action)
		if !ok {
			return nil, &LoadableBadKeyError{Path: path, Key: prefix + "action", Value: def.Action}
		}
		c.Action = a
	case def.Reply != "":
		reply := def.Reply
		c.Action = func(context.Context, *core.Context) (any, error) { return reply, nil }
	}

	if def.DeleteResponseDelay != "" {
		d, err := parseDelay(def.DeleteResponseDelay)
		if err != nil {
			return nil, &LoadableBadKeyError{Path: path, Key: prefix + "deleteResponseDelay", Value: def.DeleteResponseDelay}
		}
		c.DeleteResponseDelay = &d
	}

	for i, sub := range def.SubCommands {
		if sub == nil {
			return nil, &LoadableTypeError{Path: path, Expected: "a mapping for every sub-command"}
		}
		child, err := buildCommand(path, fmt.Sprintf("%ssubCommands[%d].", prefix, i), sub, catalog, perms)
		if err != nil {
			return nil, err
		}
		c.SubCommands = append(c.SubCommands, child)
	}
	return c, nil
}

// parseDelay reads "10s"-style durations; a bare number is milliseconds.
func parseDelay(v string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		if ms < 0 {
			return 0, errors.New("negative delay")
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("negative delay")
	}
	return d, nil
}

func decodePermission(catalog *Catalog) Decoder[*core.Permission] {
	return func(path string, raw []byte) (*core.Permission, error) {
		n, err := parseNode(path, raw)
		if err != nil {
			return nil, err
		}
		if err := checkKeys(path, "", n, permissionKeys); err != nil {
			return nil, err
		}
		var def permissionDef
		if err := decodeInto(path, n, "a permission definition", &def); err != nil {
			return nil, err
		}

		var checks []core.Check
		if def.Check != "" {
			check, ok := catalog.Check(def.Check)
			if !ok {
				return nil, &LoadableBadKeyError{Path: path, Key: "check", Value: def.Check}
			}
			checks = append(checks, check)
		}
		if len(def.Roles) > 0 {
			checks = append(checks, permissions.HasRole(def.Roles...))
		}
		if len(def.Users) > 0 {
			checks = append(checks, permissions.IsUser(def.Users...))
		}
		if len(def.Permissions) > 0 {
			bits, err := permissions.ParseChannelPermissions(def.Permissions)
			if err != nil {
				return nil, &LoadableBadKeyError{Path: path, Key: "permissions", Value: strings.Join(def.Permissions, ",")}
			}
			checks = append(checks, permissions.HasChannelPermission(bits...))
		}

		p := &core.Permission{Name: def.Name, Level: def.Level, Reason: def.Reason, Source: path}
		switch len(checks) {
		case 0:
		case 1:
			p.Check = checks[0]
		default:
			p.Check = permissions.Any(checks...)
		}
		return p, nil
	}
}

func decodeEvent(catalog *Catalog) Decoder[*Event] {
	return func(path string, raw []byte) (*Event, error) {
		n, err := parseNode(path, raw)
		if err != nil {
			return nil, err
		}
		if err := checkKeys(path, "", n, eventKeys); err != nil {
			return nil, err
		}
		var def eventDef
		if err := decodeInto(path, n, "an event definition", &def); err != nil {
			return nil, err
		}

		on := platform.EventName(def.On)
		if !platform.ValidEvent(on) {
			return nil, &LoadableBadKeyError{Path: path, Key: "on", Value: def.On}
		}
		ev := &Event{Name: def.Name, On: on, Once: def.Once, Source: path}
		if def.Handler != "" {
			h, ok := catalog.Handler(def.Handler)
			if !ok {
				return nil, &LoadableBadKeyError{Path: path, Key: "handler", Value: def.Handler}
			}
			ev.Handler = h
		}
		return ev, nil
	}
}
