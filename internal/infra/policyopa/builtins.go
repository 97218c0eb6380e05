package policyopa

import "github.com/open-policy-agent/opa/ast"

// guardBuiltins is everything guard.rego calls. Membership tests on the
// operation sets are plain references and need no builtin; == and != compile
// to equal and neq, unification to eq.
var guardBuiltins = map[string]bool{
	ast.Count.Name:    true,
	ast.Equality.Name: true,
	ast.Equal.Name:    true,
	ast.NotEqual.Name: true,
}

// restrictCapabilities limits the compiler to guardBuiltins, so a policy that
// calls anything else fails to compile.
func restrictCapabilities(caps *ast.Capabilities) *ast.Capabilities {
	kept := make([]*ast.Builtin, 0, len(guardBuiltins))
	for _, b := range caps.Builtins {
		if guardBuiltins[b.Name] {
			kept = append(kept, b)
		}
	}
	caps.Builtins = kept
	return caps
}
