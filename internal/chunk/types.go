// Package chunk splits source files and markdown documents into
// semantically bounded, stably identified fragments for embedding and
// retrieval.
package chunk

import (
	"context"
)

// Chunk size defaults, expressed in characters (the unit the chunking
// rules are specified in).
const (
	DefaultMaxChunkSize = 1500 // characters per chunk before splitting
	MinChunkSize        = 100  // minimum viable chunk size
	DefaultOverlapRatio = 0.15
)

// SymbolType is the kind of fragment a chunk represents, as stored in
// chunk metadata.
type SymbolType string

const (
	SymbolTypeFunction SymbolType = "function"
	SymbolTypeClass    SymbolType = "class"
	SymbolTypeMethod   SymbolType = "method"
	SymbolTypeModule   SymbolType = "module"
	SymbolTypeMarkdown SymbolType = "markdown"
	SymbolTypeOther    SymbolType = "other"
)

// Metadata describes where a chunk came from and what it represents.
type Metadata struct {
	Path       string
	Language   string
	SymbolType SymbolType
	SymbolName string
	StartLine  int
	EndLine    int
	FileHash   string
}

// Chunk is a semantically coherent fragment of one file, with stable
// identity across re-indexing of unchanged content.
type Chunk struct {
	ID       string
	Text     string
	Metadata Metadata
}

// FileInput is the input to a Chunker.
type FileInput struct {
	Path     string
	Content  []byte
	Language string
	FileHash string
}

// Chunker splits a file into chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
	SupportedExtensions() []string
}

// Tree represents a parsed AST.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node represents a node in the AST.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point represents a position in the source code.
type Point struct {
	Row    uint32 // 0-indexed line number
	Column uint32
}

// LanguageConfig holds configuration for a supported language.
type LanguageConfig struct {
	Name       string
	Extensions []string

	FunctionTypes  []string
	ClassTypes     []string
	InterfaceTypes []string
	MethodTypes    []string
	TypeDefTypes   []string
	ConstantTypes  []string
	VariableTypes  []string

	NameField string
}

// SymbolKind is the AST-level classification of a symbol-defining
// node, finer-grained than the public SymbolType: it additionally
// distinguishes interfaces, type aliases, constants and variables,
// all of which the code chunker folds down into module-level residue
// (SymbolTypeModule) when building chunk metadata.
type SymbolKind string

const (
	SymbolKindFunction  SymbolKind = "function"
	SymbolKindMethod    SymbolKind = "method"
	SymbolKindClass     SymbolKind = "class"
	SymbolKindInterface SymbolKind = "interface"
	SymbolKindType      SymbolKind = "type"
	SymbolKindConstant  SymbolKind = "constant"
	SymbolKindVariable  SymbolKind = "variable"
)

// ToSymbolType folds an AST-level kind down into the restricted
// public SymbolType enum.
func (k SymbolKind) ToSymbolType() SymbolType {
	switch k {
	case SymbolKindFunction:
		return SymbolTypeFunction
	case SymbolKindMethod:
		return SymbolTypeMethod
	case SymbolKindClass:
		return SymbolTypeClass
	default:
		return SymbolTypeModule
	}
}

// Symbol represents a code symbol extracted by AST traversal, before
// it is folded into chunk Metadata.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	StartLine  int
	EndLine    int
	Signature  string
	DocComment string
}
