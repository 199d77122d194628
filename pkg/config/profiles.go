package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/profile"
)

// Attribute names of a profile block that are not connection fields.
const (
	attrParent = "parent"
	attrUnset  = "unset"
)

type yamlProfiles struct {
	Profiles []yamlProfile `yaml:"profiles"`
}

type yamlProfile struct {
	ID     string                 `yaml:"id"`
	Parent string                 `yaml:"parent"`
	Fields map[string]interface{} `yaml:"fields"`
	Unset  []string               `yaml:"unset"`
}

type hclProfiles struct {
	Profiles []hclProfile `hcl:"profile,block"`
}

type hclProfile struct {
	ID     string   `hcl:"id,label"`
	Remain hcl.Body `hcl:",remain"`
}

// LoadProfiles reads profile nodes from path. Files ending in .hcl are HCL,
// anything else is YAML. A missing file yields no profiles.
func LoadProfiles(path string) ([]profile.Node, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from settings
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read profiles file").WithDetail("file", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return ParseProfilesHCL(content, path)
	}
	return ParseProfilesYAML(content)
}

// ParseProfilesYAML decodes a YAML profiles document. ${NAME} references are
// replaced from the environment before decoding.
func ParseProfilesYAML(content []byte) ([]profile.Node, error) {
	var doc yamlProfiles
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(content))), &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse profiles YAML")
	}

	nodes := make([]profile.Node, 0, len(doc.Profiles))
	for i, p := range doc.Profiles {
		if p.ID == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "profile without id").WithDetail("index", i)
		}
		n := profile.Node{ID: p.ID, Parent: p.Parent, Fields: map[string]string{}, Unset: p.Unset}
		for k, v := range p.Fields {
			n.Fields[k] = yamlScalar(v)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// yamlScalar renders a decoded YAML value as a field string. Lists are
// joined with newlines, which is how init statements are stored.
func yamlScalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = yamlScalar(e)
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(t)
	}
}

// ParseProfilesHCL decodes profile "<id>" { ... } blocks. Every attribute
// other than parent and unset is a connection field. Expressions may refer
// to environment variables by name, as in password = "${PGPASSWORD}".
func ParseProfilesHCL(content []byte, filename string) ([]profile.Node, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(content, filename)
	if diags.HasErrors() {
		return nil, errors.New(errors.ErrorTypeConfig, "failed to parse profiles HCL").WithDetail("diagnostics", diags.Error())
	}

	var doc hclProfiles
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, errors.New(errors.ErrorTypeConfig, "failed to decode profiles HCL").WithDetail("diagnostics", diags.Error())
	}

	evalCtx := envEvalContext()
	nodes := make([]profile.Node, 0, len(doc.Profiles))
	for _, p := range doc.Profiles {
		attrs, diags := p.Remain.JustAttributes()
		if diags.HasErrors() {
			return nil, errors.New(errors.ErrorTypeConfig, "invalid profile block").
				WithDetail("profile", p.ID).WithDetail("diagnostics", diags.Error())
		}
		n := profile.Node{ID: p.ID, Fields: map[string]string{}}
		for name, attr := range attrs {
			val, diags := attr.Expr.Value(evalCtx)
			if diags.HasErrors() {
				return nil, errors.New(errors.ErrorTypeConfig, "invalid profile attribute").
					WithDetail("profile", p.ID).WithDetail("field", name).WithDetail("diagnostics", diags.Error())
			}
			strs, err := ctyStrings(val)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid profile attribute").
					WithDetail("profile", p.ID).WithDetail("field", name)
			}
			switch name {
			case attrParent:
				n.Parent = strings.Join(strs, "")
			case attrUnset:
				n.Unset = strs
			default:
				n.Fields[name] = strings.Join(strs, "\n")
			}
		}
		sort.Strings(n.Unset)
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func envEvalContext() *hcl.EvalContext {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && hclIdentifier(k) {
			vars[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{Variables: vars}
}

func hclIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && (r == '-' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}

// ctyStrings converts a scalar or a list of scalars to strings.
func ctyStrings(val cty.Value) ([]string, error) {
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		var out []string
		for it := val.ElementIterator(); it.Next(); {
			_, e := it.Element()
			s, err := ctyString(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	s, err := ctyString(val)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

func ctyString(val cty.Value) (string, error) {
	if val.IsNull() {
		return "", nil
	}
	s, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}

// ExportProfilesHCL writes nodes as HCL profile blocks, in the given order.
// Fields holding several lines become lists.
func ExportProfilesHCL(w io.Writer, nodes []profile.Node) error {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	for i, n := range nodes {
		if i > 0 {
			root.AppendNewline()
		}
		body := root.AppendNewBlock("profile", []string{n.ID}).Body()
		if n.Parent != "" {
			body.SetAttributeValue(attrParent, cty.StringVal(n.Parent))
		}
		keys := make([]string, 0, len(n.Fields))
		for k := range n.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !hclIdentifier(k) || k == attrParent || k == attrUnset {
				return errors.Newf(errors.ErrorTypeConfig, "field name %q cannot be written as HCL", k).WithDetail("profile", n.ID)
			}
			body.SetAttributeValue(k, fieldValue(n.Fields[k]))
		}
		if len(n.Unset) > 0 {
			body.SetAttributeValue(attrUnset, stringList(n.Unset))
		}
	}

	if _, err := w.Write(f.Bytes()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to write HCL")
	}
	return nil
}

func fieldValue(v string) cty.Value {
	if strings.Contains(v, "\n") {
		return stringList(strings.Split(v, "\n"))
	}
	return cty.StringVal(v)
}

func stringList(values []string) cty.Value {
	if len(values) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(values))
	for i, v := range values {
		vals[i] = cty.StringVal(v)
	}
	return cty.ListVal(vals)
}
