// Package query filters catalog listings with CEL expressions, e.g.
//
//	option.price > 1000.0 && category.allowMultiple
//	option.name.startsWith("Light") || option.isStandard
//
// It serves admin and listing endpoints only. Configuration rules are
// structured condition trees and never go through here.
package query

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/configbuilder/catalog"
)

// CostLimit bounds the evaluation cost of a single filter
const CostLimit = 1000000

// Compiler compiles filter expressions and caches the programs by source text.
// It is safe for concurrent use.
type Compiler struct {
	env      *cel.Env
	programs map[string]cel.Program
	mu       sync.RWMutex
}

// NewCompiler creates a compiler with the option and category variables declared
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("option", cel.DynType),
		cel.Variable("category", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Compiler{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Compile type-checks an expression and returns a reusable filter.
// Expressions whose static type cannot be bool are rejected.
func (c *Compiler) Compile(expression string) (*Filter, error) {
	c.mu.RLock()
	prog, ok := c.programs[expression]
	c.mu.RUnlock()
	if ok {
		return &Filter{expression: expression, program: prog}, nil
	}

	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsAssignableType(cel.BoolType) {
		return nil, fmt.Errorf("filter must evaluate to bool, got %s", ast.OutputType())
	}

	prog, err := c.env.Program(ast, cel.CostLimit(CostLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	c.mu.Lock()
	c.programs[expression] = prog
	c.mu.Unlock()

	return &Filter{expression: expression, program: prog}, nil
}

// Compile compiles an expression with a fresh compiler
func Compile(expression string) (*Filter, error) {
	c, err := NewCompiler()
	if err != nil {
		return nil, err
	}
	return c.Compile(expression)
}

// Filter is a compiled option filter
type Filter struct {
	expression string
	program    cel.Program
}

// String returns the source expression
func (f *Filter) String() string {
	return f.expression
}

// Match evaluates the filter for one option and its category.
// A non-boolean result is treated as no match.
func (f *Filter) Match(opt *catalog.Option, cat *catalog.OptionCategory) (bool, error) {
	out, _, err := f.program.Eval(map[string]any{
		"option":   optionFacts(opt),
		"category": categoryFacts(cat),
	})
	if err != nil {
		return false, fmt.Errorf("evaluating filter on option %s: %w", opt.ID, err)
	}

	matched, ok := out.Value().(bool)
	return ok && matched, nil
}

// Options returns the options of the store that match, in load order.
// A nil filter matches everything.
func (f *Filter) Options(store *catalog.Store) ([]*catalog.Option, error) {
	all := store.Options()
	if f == nil {
		return all, nil
	}

	matched := make([]*catalog.Option, 0, len(all))
	for _, opt := range all {
		cat, _ := store.Category(opt.CategoryID)
		ok, err := f.Match(opt, cat)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, opt)
		}
	}
	return matched, nil
}

func optionFacts(opt *catalog.Option) map[string]any {
	price, _ := opt.Price.Float64()
	return map[string]any{
		"id":            opt.ID,
		"categoryId":    opt.CategoryID,
		"name":          opt.Name,
		"price":         price,
		"isStandard":    opt.IsStandard,
		"allowQuantity": opt.AllowQuantity,
		"displayOrder":  int64(opt.DisplayOrder),
		"description":   opt.Description,
	}
}

func categoryFacts(cat *catalog.OptionCategory) map[string]any {
	if cat == nil {
		return map[string]any{}
	}
	return map[string]any{
		"id":              cat.ID,
		"name":            cat.Name,
		"productClassIds": append([]string(nil), cat.ProductClassIDs...),
		"isRequired":      cat.IsRequired,
		"allowMultiple":   cat.AllowMultiple,
		"displayOrder":    int64(cat.DisplayOrder),
	}
}
