package graph

import (
	"fmt"
	"strings"
)

// Key is the checksum identity of a declaration. Zero is the null key.
type Key uint32

// Role is the level/role category of an occurrence. Roles are mutually exclusive.
type Role uint8

const (
	RoleFile Role = iota
	RoleExported
	RoleArg
	RoleReturn
	RoleNested
)

// Base levels of the hierarchy.
const (
	LevelFile     = 0
	LevelExported = 1
	LevelArg      = 2
	LevelNested   = 3
)

// Level returns the base hierarchical level of the role.
func (r Role) Level() int {
	switch r {
	case RoleFile:
		return LevelFile
	case RoleExported:
		return LevelExported
	case RoleArg, RoleReturn:
		return LevelArg
	case RoleNested:
		return LevelNested
	}
	panic(fmt.Sprintf("graph: unknown role %d", r))
}

// IsArgument reports whether the role is an argument or return position.
func (r Role) IsArgument() bool {
	return r == RoleArg || r == RoleReturn
}

func (r Role) String() string {
	switch r {
	case RoleFile:
		return "file"
	case RoleExported:
		return "exported"
	case RoleArg:
		return "arg"
	case RoleReturn:
		return "return"
	case RoleNested:
		return "nested"
	}
	return fmt.Sprintf("role(%d)", r)
}

// ParseRole is the inverse of Role.String.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "file":
		return RoleFile, nil
	case "exported", "export":
		return RoleExported, nil
	case "arg", "argument":
		return RoleArg, nil
	case "return", "ret":
		return RoleReturn, nil
	case "nested":
		return RoleNested, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Flags are orthogonal syntactic and occurrence attributes.
type Flags uint16

const (
	FlagPointer Flags = 1 << iota
	FlagArray
	FlagStruct
	FlagUnion
	FlagEnum
	FlagFunction
	FlagTypedef
	FlagConst
	FlagBackPointer
	FlagDuplicate
)

// DeclFlags are the syntactic flags a declaration shares with its occurrences.
const DeclFlags = FlagPointer | FlagArray | FlagStruct | FlagUnion | FlagEnum |
	FlagFunction | FlagTypedef | FlagConst

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagPointer, "pointer"},
	{FlagArray, "array"},
	{FlagStruct, "struct"},
	{FlagUnion, "union"},
	{FlagEnum, "enum"},
	{FlagFunction, "function"},
	{FlagTypedef, "typedef"},
	{FlagConst, "const"},
	{FlagBackPointer, "backptr"},
	{FlagDuplicate, "dup"},
}

// Has reports whether every bit of f2 is set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseFlag maps a flag name to its bit.
func ParseFlag(name string) (Flags, error) {
	for _, fn := range flagNames {
		if fn.name == name {
			return fn.flag, nil
		}
	}
	switch name {
	case "back-pointer", "backpointer":
		return FlagBackPointer, nil
	case "duplicate":
		return FlagDuplicate, nil
	}
	return 0, fmt.Errorf("unknown flag %q", name)
}

// Ref names an ancestor by declaration key and level.
type Ref struct {
	Key   Key
	Level int
}

// IsNull reports whether the reference points nowhere.
func (r Ref) IsNull() bool { return r.Key == 0 }

// Link names one occurrence by its declaration key and discovery order.
type Link struct {
	Key   Key
	Order int
}

// IsNull reports whether the link points nowhere.
func (l Link) IsNull() bool { return l.Key == 0 }

// Occurrence is one textual appearance of a declaration (a cnode).
type Occurrence struct {
	Key      Key // owning declaration
	Level    int
	Order    int
	Role     Role
	Flags    Flags
	Name     string
	Function Ref  // enclosing exported function
	Argument Ref  // nearest enclosing argument or return
	Parent   Link // immediate container
}

// Link returns the link that addresses this occurrence.
func (o Occurrence) Link() Link {
	return Link{Key: o.Key, Order: o.Order}
}

// Decl is one unique declaration (a dnode).
type Decl struct {
	Key      Key
	Text     string
	Flags    Flags
	Children []Link       // every occurrence found directly inside any sibling, in insertion order
	Siblings []Occurrence // every occurrence of this declaration
}

// First returns the first recorded occurrence.
func (d *Decl) First() (Occurrence, bool) {
	if len(d.Siblings) == 0 {
		return Occurrence{}, false
	}
	return d.Siblings[0], true
}
