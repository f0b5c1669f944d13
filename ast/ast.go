// Package ast defines the declaration tree produced from a C header.
//
// The tree keeps the shape of the source: a declaration has one base type
// shared by its declarators, and each declarator carries only the derived
// part of its type (pointers, arrays, functions). The innermost derived
// type has a nil target standing for the base type; Complete rebuilds the
// full type.
package ast

import "github.com/hipabi/hdrparse/lexer"

type Pos = lexer.Pos

type TranslationUnit struct {
	Name     string
	Includes []string
	Entities []*Declaration
}

type Storage int

const (
	StorageNone Storage = iota
	StorageTypedef
	StorageExtern
	StorageStatic
	StorageAuto
	StorageRegister
)

var storageNames = map[Storage]string{
	StorageTypedef:  "typedef",
	StorageExtern:   "extern",
	StorageStatic:   "static",
	StorageAuto:     "auto",
	StorageRegister: "register",
}

func (s Storage) String() string {
	return storageNames[s]
}

// ParseStorage returns the storage class named by a keyword.
func ParseStorage(s string) (Storage, bool) {
	for k, v := range storageNames {
		if v == s {
			return k, true
		}
	}
	return StorageNone, false
}

type Declaration struct {
	Pos         Pos
	Storage     Storage
	Inline      bool
	Type        Type
	Declarators []*Declarator
	// Definition is set for a function definition; its body is not kept.
	Definition bool
}

type Declarator struct {
	Pos      Pos
	Name     string
	Indirect Type
	Init     Expr
	BitWidth Expr
}

type Parameter struct {
	Pos  Pos
	Type Type
	Name string
}

type Member struct {
	Pos         Pos
	Type        Type
	Declarators []*Declarator
}

type Enumerator struct {
	Pos   Pos
	Name  string
	Value Expr
}
