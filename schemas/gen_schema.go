package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// JSONSchema represents a basic JSON Schema structure
type JSONSchema struct {
	Type                 string                `json:"type,omitempty"`
	Description          string                `json:"description,omitempty"`
	Title                string                `json:"title,omitempty"`
	Properties           map[string]JSONSchema `json:"properties,omitempty"`
	Items                *JSONSchema           `json:"items,omitempty"`
	Required             []string              `json:"required,omitempty"`
	AdditionalProperties *JSONSchema           `json:"additionalProperties,omitempty"`
}

// ToolFunctionSchema is the top-level structure written to the cache file
type ToolFunctionSchema struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"`
}

func main() {
	funcName := flag.String("func", "", "Name of the function to generate schema for")
	fileName := flag.String("file", "main.go", "Go source file containing the function")
	outDir := flag.String("out", "cached_schemas", "Output directory for the generated schema")
	flag.Parse()

	if *funcName == "" {
		log.Fatal("Function name must be provided using -func flag")
	}

	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles |
			packages.NeedImports |
			packages.NeedTypes |
			packages.NeedTypesSizes |
			packages.NeedSyntax |
			packages.NeedTypesInfo,
		Fset: token.NewFileSet(),
	}

	loadPattern := filepath.Dir(*fileName)
	log.Printf("Loading package info for pattern: %s", loadPattern)
	pkgs, err := packages.Load(cfg, loadPattern)
	if err != nil {
		log.Fatalf("Failed to load package(s) for pattern '%s': %v", loadPattern, err)
	}
	if len(pkgs) == 0 {
		log.Fatalf("No packages found for pattern: %s", loadPattern)
	}
	if len(pkgs) > 1 {
		log.Printf("Warning: Loaded multiple packages. Using the first one: %s", pkgs[0].PkgPath)
	}

	pkg := pkgs[0]

	var loadErrors []string
	for _, p := range pkgs {
		for _, err := range p.Errors {
			loadErrors = append(loadErrors, err.Error())
		}
	}
	if len(loadErrors) > 0 {
		log.Fatalf("Errors during package loading/type checking:\n%s", strings.Join(loadErrors, "\n"))
	}

	info := pkg.TypesInfo
	fset := cfg.Fset

	// Find the AST file node for the target file
	var node *ast.File
	absoluteFileName, err := filepath.Abs(*fileName)
	if err != nil {
		log.Fatalf("Failed to get absolute path for target file '%s': %v", *fileName, err)
	}
	for _, syntaxFile := range pkg.Syntax {
		filePos := fset.Position(syntaxFile.Pos())
		absoluteSyntaxFileName, err := filepath.Abs(filePos.Filename)
		if err != nil {
			continue
		}
		if absoluteSyntaxFileName == absoluteFileName {
			node = syntaxFile
			break
		}
	}
	if node == nil {
		log.Fatalf("Could not find AST node for the target file '%s' within package '%s'", *fileName, pkg.PkgPath)
	}

	scope := pkg.Types.Scope()
	obj := scope.Lookup(*funcName)
	if obj == nil {
		log.Fatalf("Function '%s' not found in package '%s'", *funcName, pkg.PkgPath)
	}

	funcObj, ok := obj.(*types.Func)
	if !ok {
		log.Fatalf("Object '%s' found but is not a function", *funcName)
	}

	funcPos := fset.Position(funcObj.Pos())
	absoluteFuncFileName, _ := filepath.Abs(funcPos.Filename)
	if absoluteFuncFileName != absoluteFileName {
		log.Fatalf("Function '%s' is defined in file '%s', not the target file '%s'", *funcName, funcPos.Filename, *fileName)
	}

	funcSig, ok := funcObj.Type().(*types.Signature)
	if !ok {
		log.Fatalf("Object '%s' found but is not a function signature", *funcName)
	}

	// Locate the declaration for its doc comment
	var funcDecl *ast.FuncDecl
	ast.Inspect(node, func(n ast.Node) bool {
		fn, ok := n.(*ast.FuncDecl)
		if !ok {
			return true
		}
		if fn.Name != nil && info.Defs[fn.Name] == funcObj {
			funcDecl = fn
			return false
		}
		return true
	})

	funcDescription := ""
	if funcDecl != nil && funcDecl.Doc != nil {
		funcDescription = strings.TrimSpace(funcDecl.Doc.Text())
	} else {
		log.Printf("Warning: No documentation comment found for function '%s'", *funcName)
	}

	params := funcSig.Params()
	parameterSchema := JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
		Required:   []string{},
	}

	log.Printf("Generating schema for %d parameters of function '%s'...", params.Len(), *funcName)

	for i := 0; i < params.Len(); i++ {
		param := params.At(i)
		paramName := param.Name()
		paramType := param.Type()

		paramFieldSchema, err := generateSchemaForType(paramType, pkg)
		if err != nil {
			log.Printf("Warning: Could not generate schema for parameter '%s' (type %s): %v. Skipping.", paramName, paramType.String(), err)
			continue
		}

		parameterSchema.Properties[paramName] = paramFieldSchema

		// Non-pointer parameters are treated as required
		if _, isPointer := paramType.(*types.Pointer); !isPointer {
			parameterSchema.Required = append(parameterSchema.Required, paramName)
		}
	}
	sort.Strings(parameterSchema.Required)

	finalSchema := ToolFunctionSchema{
		Name:        *funcName,
		Description: funcDescription,
		Parameters:  parameterSchema,
	}

	cacheDir := *outDir
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Fatalf("Failed to create directory '%s': %v", cacheDir, err)
	}

	schemaJSON, err := json.MarshalIndent(finalSchema, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal schema to JSON: %v", err)
	}

	outputFile := filepath.Join(cacheDir, *funcName+".json")
	if err := os.WriteFile(outputFile, schemaJSON, 0644); err != nil {
		log.Fatalf("Failed to write schema to file '%s': %v", outputFile, err)
	}

	log.Printf("Successfully generated schema for function '%s' and saved to '%s'", *funcName, outputFile)
}

// generateSchemaForType recursively generates JSONSchema for a given Go type.
func generateSchemaForType(t types.Type, pkg *packages.Package) (JSONSchema, error) {
	switch typ := t.Underlying().(type) {
	case *types.Basic:
		schema := JSONSchema{}
		switch typ.Kind() {
		case types.Bool:
			schema.Type = "boolean"
		case types.Int, types.Int8, types.Int16, types.Int32, types.Int64,
			types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64, types.Uintptr:
			schema.Type = "integer"
		case types.Float32, types.Float64:
			schema.Type = "number"
		case types.String:
			schema.Type = "string"
		default:
			return JSONSchema{}, fmt.Errorf("unsupported basic type kind: %s", typ.String())
		}
		if named, ok := t.(*types.Named); ok {
			schema.Title = named.Obj().Name()
		}
		return schema, nil

	case *types.Slice:
		elemSchema, err := generateSchemaForType(typ.Elem(), pkg)
		if err != nil {
			return JSONSchema{}, fmt.Errorf("failed to get schema for slice element type '%s': %w", typ.Elem().String(), err)
		}
		schema := JSONSchema{Type: "array", Items: &elemSchema}
		if named, ok := t.(*types.Named); ok {
			schema.Title = named.Obj().Name()
		}
		return schema, nil

	case *types.Array:
		elemSchema, err := generateSchemaForType(typ.Elem(), pkg)
		if err != nil {
			return JSONSchema{}, fmt.Errorf("failed to get schema for array element type '%s': %w", typ.Elem().String(), err)
		}
		schema := JSONSchema{Type: "array", Items: &elemSchema}
		if named, ok := t.(*types.Named); ok {
			schema.Title = named.Obj().Name()
		}
		return schema, nil

	case *types.Struct:
		schema := JSONSchema{
			Type:       "object",
			Properties: make(map[string]JSONSchema),
			Required:   []string{},
		}
		if named, ok := t.(*types.Named); ok {
			schema.Title = named.Obj().Name()
		}

		for i := 0; i < typ.NumFields(); i++ {
			field := typ.Field(i)
			if !field.Exported() {
				continue
			}

			fieldName := field.Name()
			jsonInfo := parseJsonTag(reflect.StructTag(typ.Tag(i)))
			if jsonInfo.Name == "-" {
				continue
			}
			if jsonInfo.Name != "" {
				fieldName = jsonInfo.Name
			}

			fieldSchema, err := generateSchemaForType(field.Type(), pkg)
			if err != nil {
				log.Printf("Warning: Could not generate schema for struct field '%s.%s': %v. Skipping field.", schema.Title, field.Name(), err)
				continue
			}

			schema.Properties[fieldName] = fieldSchema

			if !jsonInfo.OmitEmpty {
				schema.Required = append(schema.Required, fieldName)
			}
		}
		sort.Strings(schema.Required)
		return schema, nil

	case *types.Pointer:
		// Pointer parameters map to the element type's schema; the caller
		// decides whether the parameter is required.
		return generateSchemaForType(typ.Elem(), pkg)

	case *types.Map:
		keyType := typ.Key().Underlying()
		if b, ok := keyType.(*types.Basic); !ok || b.Kind() != types.String {
			log.Printf("Warning: Map key type '%s' is not string; JSON object keys must be strings.", keyType.String())
		}

		valueSchema, err := generateSchemaForType(typ.Elem(), pkg)
		if err != nil {
			return JSONSchema{}, fmt.Errorf("failed to get schema for map value type '%s': %w", typ.Elem().String(), err)
		}

		schema := JSONSchema{Type: "object", AdditionalProperties: &valueSchema}
		schema.Description = fmt.Sprintf("Map with %s keys and %s values", typ.Key().String(), typ.Elem().String())
		if named, ok := t.(*types.Named); ok {
			schema.Title = named.Obj().Name()
		}
		return schema, nil

	case *types.Interface:
		if typ.Empty() {
			schema := JSONSchema{Description: "Any type (interface{})"}
			if named, ok := t.(*types.Named); ok {
				schema.Title = named.Obj().Name()
			}
			return schema, nil
		}
		log.Printf("Warning: Generating generic 'object' schema for non-empty interface '%s'.", t.String())
		schema := JSONSchema{Type: "object", Description: fmt.Sprintf("Interface type: %s (represented as generic object)", t.String())}
		if named, ok := t.(*types.Named); ok {
			schema.Title = named.Obj().Name()
		}
		return schema, nil

	default:
		return JSONSchema{}, fmt.Errorf("unhandled type: %T (%s)", t, t.String())
	}
}

// jsonTagInfo holds parsed information from a `json:"..."` struct tag.
type jsonTagInfo struct {
	Name      string
	OmitEmpty bool
}

func parseJsonTag(tag reflect.StructTag) jsonTagInfo {
	jsonValue := tag.Get("json")
	if jsonValue == "" {
		return jsonTagInfo{}
	}

	parts := strings.Split(jsonValue, ",")
	info := jsonTagInfo{Name: parts[0]}

	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "omitempty" {
			info.OmitEmpty = true
		}
	}

	return info
}
