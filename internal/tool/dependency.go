package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/quarry-ai/quarry/internal/codeintel"
	"github.com/quarry-ai/quarry/internal/depgraph"
)

const dependencyDescription = "Analyze dependencies between source files. " +
	"Use operation='imports' to see what a file imports, " +
	"'dependents' to see what imports a file, or " +
	"'graph' for a full dependency graph."

// DependencyTool analyzes import relationships through the depgraph
// analyzer.
type DependencyTool struct {
	workDir string
	parser  *codeintel.Parser
	opts    depgraph.Options
}

// NewDependencyTool creates the dependency_analyzer tool rooted at workDir.
func NewDependencyTool(workDir string, parser *codeintel.Parser, opts depgraph.Options) *DependencyTool {
	if parser == nil {
		parser = codeintel.DefaultParser()
	}
	return &DependencyTool{workDir: workDir, parser: parser, opts: opts}
}

// DependencyInput is the input for the dependency_analyzer tool.
type DependencyInput struct {
	Operation string `json:"operation,omitempty"`
	Target    string `json:"target"`
	Depth     int    `json:"depth,omitempty"`
}

func (t *DependencyTool) Name() string        { return "dependency_analyzer" }
func (t *DependencyTool) Description() string { return dependencyDescription }

func (t *DependencyTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"operation": {
				"type": "string",
				"enum": ["imports", "dependents", "graph"],
				"description": "Analysis to run (default: imports)"
			},
			"target": {
				"type": "string",
				"description": "File path to analyze"
			},
			"depth": {
				"type": "integer",
				"description": "How many levels deep to follow for the graph operation (default: 1)"
			}
		},
		"required": ["target"]
	}`)
}

func (t *DependencyTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params DependencyInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Target == "" {
		return nil, fmt.Errorf("target is required")
	}

	root := t.workDir
	if tc != nil && tc.WorkDir != "" {
		root = tc.WorkDir
	}
	analyzer := depgraph.NewAnalyzer(root, t.parser, t.opts)

	depth := params.Depth
	if depth <= 0 {
		depth = 1
	}

	var result *depgraph.Result
	var err error
	switch params.Operation {
	case "", "imports":
		result, err = analyzer.Imports(ctx, params.Target)
	case "dependents":
		result, err = analyzer.Dependents(ctx, params.Target)
	case "graph":
		result, err = analyzer.Graph(ctx, params.Target, depth)
	default:
		return nil, fmt.Errorf("unknown operation %q", params.Operation)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Title:  fmt.Sprintf("%s for %s", result.Operation, result.Target),
		Output: renderDependencyResult(result),
		Metadata: map[string]any{
			"target":     result.Target,
			"operation":  result.Operation,
			"imports":    result.Imports,
			"dependents": result.Dependents,
			"graph":      result.Graph,
		},
	}, nil
}

func renderDependencyResult(r *depgraph.Result) string {
	var b strings.Builder
	switch r.Operation {
	case "imports":
		fmt.Fprintf(&b, "Found %d import(s) in %s", len(r.Imports), r.Target)
		for _, imp := range r.Imports {
			fmt.Fprintf(&b, "\n  %d: %s", imp.Line, imp.ImportedModule)
			if len(imp.ImportedNames) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(imp.ImportedNames, ", "))
			}
			if imp.IsRelative {
				b.WriteString(" [relative]")
			}
		}

	case "dependents":
		fmt.Fprintf(&b, "Found %d dependent(s) of %s", len(r.Dependents), r.Target)
		for _, dep := range r.Dependents {
			fmt.Fprintf(&b, "\n  %s", dep)
		}

	case "graph":
		fmt.Fprintf(&b, "Built graph with %d node(s) from %s", len(r.Graph), r.Target)
		nodes := make([]string, 0, len(r.Graph))
		for node := range r.Graph {
			nodes = append(nodes, node)
		}
		sort.Strings(nodes)
		for _, node := range nodes {
			fmt.Fprintf(&b, "\n  %s -> %s", node, strings.Join(r.Graph[node], ", "))
		}
	}
	return b.String()
}
