package catalog

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FixtureProvider is a MetadataProvider backed by a static YAML snapshot,
// used by the CLI's `catalog build` and `translate` commands when no live
// database extractor is wired in (spec §1 treats live extraction as an
// external collaborator; this is the reference implementation of the
// provider interface exercised by unit tests and the CLI alike).
type FixtureProvider struct {
	fixture metadataFixture
}

// metadataFixture mirrors the four MetadataProvider enumerations plus the
// optional TypeFieldProvider extension, in the shape a human would author
// by hand to describe a small slice of an Oracle schema for testing or
// offline translation.
type metadataFixture struct {
	Tables []struct {
		Schema  string `yaml:"schema"`
		Name    string `yaml:"name"`
		Columns []struct {
			Name            string `yaml:"name"`
			BaseType        string `yaml:"base_type"`
			TypeOwnerSchema string `yaml:"type_owner_schema"`
			Length          int    `yaml:"length"`
			Precision       int    `yaml:"precision"`
			Scale           int    `yaml:"scale"`
			Nullable        bool   `yaml:"nullable"`
		} `yaml:"columns"`
	} `yaml:"tables"`

	ObjectTypeMethods []struct {
		Schema string `yaml:"schema"`
		Type   string `yaml:"type"`
		Method string `yaml:"method"`
		Kind   string `yaml:"kind"`
	} `yaml:"object_type_methods"`

	PackageFunctions []struct {
		Owner    string `yaml:"owner"`
		Package  string `yaml:"package"`
		Function string `yaml:"function"`
	} `yaml:"package_functions"`

	Synonyms []struct {
		Owner       string `yaml:"owner"`
		Name        string `yaml:"name"`
		TargetOwner string `yaml:"target_owner"`
		TargetName  string `yaml:"target_name"`
	} `yaml:"synonyms"`

	TypeFields []struct {
		Schema          string `yaml:"schema"`
		Type            string `yaml:"type"`
		Field           string `yaml:"field"`
		BaseType        string `yaml:"base_type"`
		TypeOwnerSchema string `yaml:"type_owner_schema"`
	} `yaml:"type_fields"`
}

// LoadFixtureProvider reads and parses a YAML metadata fixture file from
// path into a ready-to-use MetadataProvider.
func LoadFixtureProvider(path string) (*FixtureProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx metadataFixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, err
	}
	return &FixtureProvider{fixture: fx}, nil
}

func (p *FixtureProvider) Tables(schemas []string) ([]TableMetadata, error) {
	schemaSet := toSet(schemas)
	var out []TableMetadata
	for _, t := range p.fixture.Tables {
		if !schemaSet.contains(t.Schema) {
			continue
		}
		tm := TableMetadata{Schema: t.Schema, Name: t.Name}
		for _, c := range t.Columns {
			tm.Columns = append(tm.Columns, ColumnMetadata{
				Name:            c.Name,
				BaseType:        c.BaseType,
				TypeOwnerSchema: c.TypeOwnerSchema,
				Length:          c.Length,
				Precision:       c.Precision,
				Scale:           c.Scale,
				Nullable:        c.Nullable,
			})
		}
		out = append(out, tm)
	}
	return out, nil
}

func (p *FixtureProvider) ObjectTypeMethods(schemas []string) ([]MethodMetadata, error) {
	schemaSet := toSet(schemas)
	var out []MethodMetadata
	for _, m := range p.fixture.ObjectTypeMethods {
		if !schemaSet.contains(m.Schema) {
			continue
		}
		out = append(out, MethodMetadata{Schema: m.Schema, Type: m.Type, Method: m.Method, Kind: m.Kind})
	}
	return out, nil
}

func (p *FixtureProvider) PackageFunctions(schemas []string) ([]PackageFunctionMetadata, error) {
	schemaSet := toSet(schemas)
	var out []PackageFunctionMetadata
	for _, f := range p.fixture.PackageFunctions {
		if !schemaSet.contains(f.Owner) {
			continue
		}
		out = append(out, PackageFunctionMetadata{Owner: f.Owner, Package: f.Package, Function: f.Function})
	}
	return out, nil
}

func (p *FixtureProvider) Synonyms(schemas []string) ([]SynonymMetadata, error) {
	schemaSet := toSet(schemas)
	var out []SynonymMetadata
	for _, s := range p.fixture.Synonyms {
		if !schemaSet.contains(s.Owner) {
			continue
		}
		out = append(out, SynonymMetadata{Owner: s.Owner, Name: s.Name, TargetOwner: s.TargetOwner, TargetName: s.TargetName})
	}
	return out, nil
}

// TypeFields implements the optional TypeFieldProvider extension.
func (p *FixtureProvider) TypeFields(schemas []string) ([]TypeFieldMetadata, error) {
	schemaSet := toSet(schemas)
	var out []TypeFieldMetadata
	for _, f := range p.fixture.TypeFields {
		if !schemaSet.contains(f.Schema) {
			continue
		}
		out = append(out, TypeFieldMetadata{
			Schema: f.Schema, Type: f.Type, Field: f.Field,
			BaseType: f.BaseType, TypeOwnerSchema: f.TypeOwnerSchema,
		})
	}
	return out, nil
}

type stringSet map[string]struct{}

func toSet(schemas []string) stringSet {
	s := make(stringSet, len(schemas))
	for _, v := range schemas {
		s[fold(v)] = struct{}{}
	}
	return s
}

// contains reports whether name is in the set, or true for any name when
// the set is empty (an empty schema list means "no schema filter").
func (s stringSet) contains(name string) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[fold(name)]
	return ok
}
