// Package parser wraps the PingCAP/TiDB SQL parser behind a small
// adapter, pinned to a MySQL-compatible dialect. It is the only place
// in the module that knows the parser library's shape.
package parser

import (
	"fmt"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// Adapter parses SQL text into a TiDB AST statement node.
type Adapter struct {
	p *parser.Parser
}

// New creates an Adapter with a fresh parser instance.
func New() *Adapter {
	return &Adapter{p: parser.New()}
}

// Parse parses sql and returns the first statement node. When the
// parser produces a batch (multiple statements separated by `;`),
// only the first is returned, matching the rest of the module's
// single-statement-per-call contract.
func (a *Adapter) Parse(sql string) (ast.StmtNode, error) {
	stmtNodes, _, err := a.p.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("parser: parse failed: %w", err)
	}
	if len(stmtNodes) == 0 {
		return nil, fmt.Errorf("parser: no statements found")
	}
	return stmtNodes[0], nil
}
