package policyopa

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"contractflow/internal/domain"
	"contractflow/pkg/logger"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

const guardQuery = "data.contractflow.guard.result"

//go:embed policy/*.rego
var embeddedPolicy embed.FS

// Guard answers access requests by evaluating a Rego policy. It gives the
// same decisions as the rbac rule table.
type Guard struct {
	query      rego.PreparedEvalQuery
	policyHash string
}

type guardInput struct {
	Role             string `json:"role"`
	Operation        string `json:"operation"`
	ActorBranchID    int64  `json:"actor_branch_id"`
	ContractBranchID int64  `json:"contract_branch_id"`
}

type guardResult struct {
	Allow bool     `json:"allow"`
	Deny  []string `json:"deny"`
}

// NewGuard prepares the policy compiled into the binary.
func NewGuard(ctx context.Context) (*Guard, error) {
	policyFS, err := fs.Sub(embeddedPolicy, "policy")
	if err != nil {
		return nil, err
	}
	policyHash, err := PolicyHashFromFS(policyFS)
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(policyFS, ".")
	if err != nil {
		return nil, err
	}
	var opts []func(*rego.Rego)
	for _, entry := range entries {
		src, err := fs.ReadFile(policyFS, entry.Name())
		if err != nil {
			return nil, err
		}
		opts = append(opts, rego.Module(entry.Name(), string(src)))
	}
	return prepare(ctx, policyHash, opts...)
}

// NewGuardFromDir loads the policy from a directory on disk.
func NewGuardFromDir(ctx context.Context, dir string) (*Guard, error) {
	policyHash, err := PolicyHashFromDir(dir)
	if err != nil {
		return nil, err
	}
	return prepare(ctx, policyHash, rego.Load([]string{dir}, nil))
}

func prepare(ctx context.Context, policyHash string, sources ...func(*rego.Rego)) (*Guard, error) {
	compiler := ast.NewCompiler().WithCapabilities(restrictCapabilities(ast.CapabilitiesForThisVersion()))

	opts := []func(*rego.Rego){
		rego.Query(guardQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
	}
	opts = append(opts, sources...)
	prepared, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}
	return &Guard{query: prepared, policyHash: policyHash}, nil
}

func (g *Guard) PolicyHash() string {
	return g.policyHash
}

// Check fails closed: an evaluation error is reported as forbidden.
func (g *Guard) Check(req domain.AccessRequest) error {
	if g == nil {
		return errors.New("policy guard is nil")
	}
	ctx := context.Background()
	result, err := g.evaluate(ctx, req)
	if err != nil {
		logger.Error(ctx, "policy evaluation failed", "operation", string(req.Operation), "error", err)
		return fmt.Errorf("%w: policy evaluation failed", domain.ErrForbidden)
	}
	if result.Allow {
		return nil
	}
	code := domain.AccessRoleNotPermitted
	if len(result.Deny) > 0 {
		code = result.Deny[0]
	}
	return &domain.AccessError{Code: code, Operation: req.Operation}
}

func (g *Guard) evaluate(ctx context.Context, req domain.AccessRequest) (guardResult, error) {
	input := guardInput{
		Role:             string(req.Role),
		Operation:        string(req.Operation),
		ActorBranchID:    req.ActorBranchID,
		ContractBranchID: req.ContractBranchID,
	}
	results, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return guardResult{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return guardResult{}, errors.New("empty policy result")
	}
	payload, err := json.Marshal(results[0].Expressions[0].Value)
	if err != nil {
		return guardResult{}, err
	}
	var out guardResult
	if err := json.Unmarshal(payload, &out); err != nil {
		return guardResult{}, err
	}
	sort.Strings(out.Deny)
	return out, nil
}

func assertNoForbiddenBuiltins(compiler *ast.Compiler) error {
	if compiler == nil {
		return errors.New("policy compiler is nil")
	}
	forbidden := make(map[string]struct{})
	for _, module := range compiler.Modules {
		ast.WalkTerms(module, func(term *ast.Term) bool {
			call, ok := term.Value.(ast.Call)
			if !ok || len(call) == 0 || call[0] == nil {
				return false
			}
			name := call[0].Value.String()
			if _, ok := ast.BuiltinMap[name]; !ok {
				return false
			}
			if guardBuiltins[name] {
				return false
			}
			forbidden[name] = struct{}{}
			return false
		})
	}
	if len(forbidden) == 0 {
		return nil
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("forbidden builtins: %s", strings.Join(names, ", "))
}

var _ domain.AccessGuard = (*Guard)(nil)
